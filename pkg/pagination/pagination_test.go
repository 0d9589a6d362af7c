package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   Params
	}{
		{"defaults", "/", Params{Limit: DefaultLimit, Offset: 0}},
		{"plain params", "/?limit=50&offset=10", Params{Limit: 50, Offset: 10}},
		{"fhir params", "/?_count=25&_offset=5", Params{Limit: 25, Offset: 5}},
		{"fhir params win", "/?_count=7&limit=9&_offset=3&offset=4", Params{Limit: 7, Offset: 3}},
		{"capped", "/?limit=500", Params{Limit: MaxLimit, Offset: 0}},
		{"negative offset", "/?offset=-5", Params{Limit: DefaultLimit, Offset: 0}},
		{"garbage", "/?_count=abc&_offset=xyz", Params{Limit: DefaultLimit, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paramsFor(tt.target); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   bool
	}{
		{"more results", Params{Limit: 10, Offset: 0}, 25, true},
		{"exact end", Params{Limit: 10, Offset: 15}, 25, false},
		{"past end", Params{Limit: 10, Offset: 30}, 25, false},
		{"no results", Params{Limit: 10, Offset: 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{"normal", Params{Limit: 10, Offset: 20}, 10},
		{"clamp to zero", Params{Limit: 10, Offset: 5}, 0},
		{"exact", Params{Limit: 10, Offset: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.PreviousOffset(); got != tt.want {
				t.Errorf("PreviousOffset() = %d, want %d", got, tt.want)
			}
		})
	}
}

func linkMap(links []Link) map[string]string {
	m := make(map[string]string, len(links))
	for _, l := range links {
		m[l.Relation] = l.URL
	}
	return m
}

func TestParams_Links(t *testing.T) {
	const path = "/api/v1/repopulate/sessions"

	first := linkMap(Params{Limit: 10, Offset: 0}.Links(path, 25))
	if first["self"] != path+"?_count=10&_offset=0" {
		t.Errorf("unexpected self link %q", first["self"])
	}
	if first["next"] != path+"?_count=10&_offset=10" {
		t.Errorf("unexpected next link %q", first["next"])
	}
	if _, ok := first["previous"]; ok {
		t.Error("did not expect previous link on first page")
	}

	last := linkMap(Params{Limit: 10, Offset: 20}.Links(path, 25))
	if _, ok := last["next"]; ok {
		t.Error("did not expect next link on last page")
	}
	if last["previous"] != path+"?_count=10&_offset=10" {
		t.Errorf("unexpected previous link %q", last["previous"])
	}

	if links := (Params{Limit: 10}).Links(path, 0); len(links) != 1 {
		t.Fatalf("expected only self link, got %d", len(links))
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a", "b"}, 10, Params{Limit: 2, Offset: 4}, "/items")
	if r.Total != 10 || r.Limit != 2 || r.Offset != 4 || !r.HasMore {
		t.Errorf("unexpected response %+v", r)
	}
	if len(r.Links) != 3 {
		t.Errorf("expected self, next and previous links, got %d", len(r.Links))
	}

	last := NewResponse([]string{"a"}, 3, Params{Limit: 2, Offset: 2}, "")
	if last.HasMore {
		t.Error("expected has_more to be false on the last page")
	}
	if last.Links != nil {
		t.Error("expected no links without a path")
	}
}
