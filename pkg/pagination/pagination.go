package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is an offset page request. Both the FHIR style _count/_offset and
// the plain limit/offset query parameters are accepted.
type Params struct {
	Limit  int
	Offset int
}

func FromContext(c echo.Context) Params {
	limit := firstInt(c, "_count", "limit")
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	offset := max(firstInt(c, "_offset", "offset"), 0)
	return Params{Limit: limit, Offset: offset}
}

// firstInt returns the first positive integer among the named query params.
func firstInt(c echo.Context, names ...string) int {
	n := 0
	for _, name := range names {
		n, _ = strconv.Atoi(c.QueryParam(name))
		if n > 0 {
			return n
		}
	}
	return n
}

func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset clamps at zero.
func (p Params) PreviousOffset() int {
	return max(p.Offset-p.Limit, 0)
}

// Link is one navigation link of a page, FHIR Bundle.link style.
type Link struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Links builds self, next and previous links for path. Other query
// parameters of the request are not carried over.
func (p Params) Links(path string, total int) []Link {
	links := []Link{{Relation: "self", URL: pageURL(path, p.Offset, p.Limit)}}
	if p.HasNext(total) {
		links = append(links, Link{Relation: "next", URL: pageURL(path, p.NextOffset(), p.Limit)})
	}
	if p.HasPrevious() {
		links = append(links, Link{Relation: "previous", URL: pageURL(path, p.PreviousOffset(), p.Limit)})
	}
	return links
}

func pageURL(path string, offset, limit int) string {
	q := url.Values{}
	q.Set("_count", strconv.Itoa(limit))
	q.Set("_offset", strconv.Itoa(offset))
	return path + "?" + q.Encode()
}

// Response wraps a page of results.
type Response struct {
	Data    any    `json:"data"`
	Total   int    `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
	Links   []Link `json:"links,omitempty"`
}

// NewResponse wraps data for the page p. Links are added when path is set.
func NewResponse(data any, total int, p Params, path string) *Response {
	r := &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.HasNext(total),
	}
	if path != "" {
		r.Links = p.Links(path, total)
	}
	return r
}
