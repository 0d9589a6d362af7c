package fhir

import (
	"time"
)

// Meta carries resource-level metadata.
type Meta struct {
	VersionID   string     `json:"versionId,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Profile     []string   `json:"profile,omitempty"`
	Extras      Extras     `json:"-"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Version string `json:"version,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
	Extras  Extras `json:"-"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
	Extras    Extras `json:"-"`
}

type Quantity struct {
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
	System string   `json:"system,omitempty"`
	Code   string   `json:"code,omitempty"`
	Extras Extras   `json:"-"`
}

type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Size        *int   `json:"size,omitempty"`
	Extras      Extras `json:"-"`
}

// Extension covers the value[x] variants questionnaires read. Any other
// value[x] or nested extension is kept in Extras.
type Extension struct {
	URL                  string           `json:"url"`
	ValueString          *string          `json:"valueString,omitempty"`
	ValueCode            *string          `json:"valueCode,omitempty"`
	ValueBoolean         *bool            `json:"valueBoolean,omitempty"`
	ValueInteger         *int             `json:"valueInteger,omitempty"`
	ValueCoding          *Coding          `json:"valueCoding,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	Extras               Extras           `json:"-"`
}

// ============================================================================
// JSON with unmodeled members
// ============================================================================

func (m Meta) MarshalJSON() ([]byte, error) {
	type plain Meta
	return encodeWithExtras(plain(m), m.Extras)
}

func (m *Meta) UnmarshalJSON(data []byte) (err error) {
	type plain Meta
	m.Extras, err = decodeWithExtras(data, (*plain)(m))
	return err
}

func (c Coding) MarshalJSON() ([]byte, error) {
	type plain Coding
	return encodeWithExtras(plain(c), c.Extras)
}

func (c *Coding) UnmarshalJSON(data []byte) (err error) {
	type plain Coding
	c.Extras, err = decodeWithExtras(data, (*plain)(c))
	return err
}

func (r Reference) MarshalJSON() ([]byte, error) {
	type plain Reference
	return encodeWithExtras(plain(r), r.Extras)
}

func (r *Reference) UnmarshalJSON(data []byte) (err error) {
	type plain Reference
	r.Extras, err = decodeWithExtras(data, (*plain)(r))
	return err
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	type plain Quantity
	return encodeWithExtras(plain(q), q.Extras)
}

func (q *Quantity) UnmarshalJSON(data []byte) (err error) {
	type plain Quantity
	q.Extras, err = decodeWithExtras(data, (*plain)(q))
	return err
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	type plain Attachment
	return encodeWithExtras(plain(a), a.Extras)
}

func (a *Attachment) UnmarshalJSON(data []byte) (err error) {
	type plain Attachment
	a.Extras, err = decodeWithExtras(data, (*plain)(a))
	return err
}

func (e Extension) MarshalJSON() ([]byte, error) {
	type plain Extension
	return encodeWithExtras(plain(e), e.Extras)
}

func (e *Extension) UnmarshalJSON(data []byte) (err error) {
	type plain Extension
	e.Extras, err = decodeWithExtras(data, (*plain)(e))
	return err
}

// BoolExtension returns an extension carrying valueBoolean.
func BoolExtension(url string, v bool) Extension {
	return Extension{URL: url, ValueBoolean: &v}
}

// HasBoolExtension reports whether exts contains url with the given boolean value.
func HasBoolExtension(exts []Extension, url string, v bool) bool {
	for _, ext := range exts {
		if ext.URL == url && ext.ValueBoolean != nil && *ext.ValueBoolean == v {
			return true
		}
	}
	return false
}

// OperationOutcome represents a FHIR OperationOutcome for errors.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func InvalidOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome("error", "invalid", diagnostics)
}

func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return NewOperationOutcome("error", "not-found", resourceType+"/"+id+" not found")
}
