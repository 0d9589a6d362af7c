package fhir

import (
	"strconv"
	"strings"
	"time"
)

// AnswerFormatter converts a single answer into its display string. A nil
// answer formats to "".
type AnswerFormatter interface {
	Format(answer *QuestionnaireResponseAnswer) string
}

// FormatterFunc adapts a plain function to AnswerFormatter.
type FormatterFunc func(answer *QuestionnaireResponseAnswer) string

func (f FormatterFunc) Format(answer *QuestionnaireResponseAnswer) string {
	return f(answer)
}

const (
	displayDateLayout     = "02 Jan 2006"
	displayMonthLayout    = "Jan 2006"
	displayDateTimeLayout = "02 Jan 2006 15:04"
)

// DefaultFormatter renders answers the way the repopulation dialog shows them.
type DefaultFormatter struct {
	// Location is the zone date-times are normalized to before formatting.
	Location        *time.Location
	YesLabel        string
	NoLabel         string
	AttachmentLabel string
}

// NewDefaultFormatter returns a formatter normalizing date-times to loc
// (UTC when nil) with English yes/no labels.
func NewDefaultFormatter(loc *time.Location) *DefaultFormatter {
	if loc == nil {
		loc = time.UTC
	}
	return &DefaultFormatter{
		Location:        loc,
		YesLabel:        "Yes",
		NoLabel:         "No",
		AttachmentLabel: "Attachment",
	}
}

func (f *DefaultFormatter) Format(a *QuestionnaireResponseAnswer) string {
	if a == nil {
		return ""
	}
	switch {
	case a.ValueString != nil:
		return *a.ValueString
	case a.ValueBoolean != nil:
		if *a.ValueBoolean {
			return f.YesLabel
		}
		return f.NoLabel
	case a.ValueInteger != nil:
		return strconv.Itoa(*a.ValueInteger)
	case a.ValueDecimal != nil:
		return formatDecimal(*a.ValueDecimal)
	case a.ValueDate != nil:
		return formatDate(*a.ValueDate)
	case a.ValueDateTime != nil:
		return f.formatDateTime(*a.ValueDateTime)
	case a.ValueTime != nil:
		return *a.ValueTime
	case a.ValueURI != nil:
		return *a.ValueURI
	case a.ValueQuantity != nil:
		return formatQuantity(a.ValueQuantity)
	case a.ValueCoding != nil:
		if a.ValueCoding.Display != "" {
			return a.ValueCoding.Display
		}
		return a.ValueCoding.Code
	case a.ValueAttachment != nil:
		if a.ValueAttachment.Title != "" {
			return a.ValueAttachment.Title
		}
		return f.AttachmentLabel
	case a.ValueReference != nil:
		if a.ValueReference.Display != "" {
			return a.ValueReference.Display
		}
		return a.ValueReference.Reference
	}
	return ""
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatQuantity(q *Quantity) string {
	var parts []string
	if q.Value != nil {
		parts = append(parts, formatDecimal(*q.Value))
	}
	if q.Unit != "" {
		parts = append(parts, q.Unit)
	} else if q.Code != "" {
		parts = append(parts, q.Code)
	}
	return strings.Join(parts, " ")
}

// formatDate handles full dates and the partial YYYY / YYYY-MM forms FHIR
// allows. Unparseable values are returned unchanged.
func formatDate(s string) string {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format(displayDateLayout)
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Format(displayMonthLayout)
	}
	return s
}

func (f *DefaultFormatter) formatDateTime(s string) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Format(displayDateTimeLayout)
	}
	// Without an offset the value is taken as already local.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t.Format(displayDateTimeLayout)
	}
	return formatDate(s)
}
