package fhir

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// QuestionnaireResponse Types
// ============================================================================

// QuestionnaireResponse models the members the repopulation flow reads.
// Everything else on the resource (identifier, author, contained and so on)
// is carried in Extras.
type QuestionnaireResponse struct {
	ResourceType  string                      `json:"resourceType"`
	ID            string                      `json:"id,omitempty"`
	Meta          *Meta                       `json:"meta,omitempty"`
	Questionnaire string                      `json:"questionnaire,omitempty"`
	Status        string                      `json:"status,omitempty"`
	Subject       *Reference                  `json:"subject,omitempty"`
	Authored      string                      `json:"authored,omitempty"`
	Item          []QuestionnaireResponseItem `json:"item,omitempty"`
	Extras        Extras                      `json:"-"`
}

// QuestionnaireResponseItem mirrors one item definition by linkId. Repeated
// occurrences of a repeating group are siblings sharing the same linkId.
type QuestionnaireResponseItem struct {
	LinkID    string                        `json:"linkId"`
	Text      string                        `json:"text,omitempty"`
	Extension []Extension                   `json:"extension,omitempty"`
	Answer    []QuestionnaireResponseAnswer `json:"answer,omitempty"`
	Item      []QuestionnaireResponseItem   `json:"item,omitempty"`
	Extras    Extras                        `json:"-"`
}

// QuestionnaireResponseAnswer holds exactly one value[x] in practice.
type QuestionnaireResponseAnswer struct {
	ValueBoolean    *bool                       `json:"valueBoolean,omitempty"`
	ValueDecimal    *float64                    `json:"valueDecimal,omitempty"`
	ValueInteger    *int                        `json:"valueInteger,omitempty"`
	ValueDate       *string                     `json:"valueDate,omitempty"`
	ValueDateTime   *string                     `json:"valueDateTime,omitempty"`
	ValueTime       *string                     `json:"valueTime,omitempty"`
	ValueString     *string                     `json:"valueString,omitempty"`
	ValueURI        *string                     `json:"valueUri,omitempty"`
	ValueAttachment *Attachment                 `json:"valueAttachment,omitempty"`
	ValueCoding     *Coding                     `json:"valueCoding,omitempty"`
	ValueQuantity   *Quantity                   `json:"valueQuantity,omitempty"`
	ValueReference  *Reference                  `json:"valueReference,omitempty"`
	Item            []QuestionnaireResponseItem `json:"item,omitempty"`
	Extras          Extras                      `json:"-"`
}

func (qr QuestionnaireResponse) MarshalJSON() ([]byte, error) {
	type plain QuestionnaireResponse
	return encodeWithExtras(plain(qr), qr.Extras)
}

func (qr *QuestionnaireResponse) UnmarshalJSON(data []byte) (err error) {
	type plain QuestionnaireResponse
	qr.Extras, err = decodeWithExtras(data, (*plain)(qr))
	return err
}

func (item QuestionnaireResponseItem) MarshalJSON() ([]byte, error) {
	type plain QuestionnaireResponseItem
	return encodeWithExtras(plain(item), item.Extras)
}

func (item *QuestionnaireResponseItem) UnmarshalJSON(data []byte) (err error) {
	type plain QuestionnaireResponseItem
	item.Extras, err = decodeWithExtras(data, (*plain)(item))
	return err
}

func (a QuestionnaireResponseAnswer) MarshalJSON() ([]byte, error) {
	type plain QuestionnaireResponseAnswer
	return encodeWithExtras(plain(a), a.Extras)
}

func (a *QuestionnaireResponseAnswer) UnmarshalJSON(data []byte) (err error) {
	type plain QuestionnaireResponseAnswer
	a.Extras, err = decodeWithExtras(data, (*plain)(a))
	return err
}

// ============================================================================
// Parsing
// ============================================================================

// ParseQuestionnaireResponse decodes a QuestionnaireResponse from JSON.
func ParseQuestionnaireResponse(data []byte) (*QuestionnaireResponse, error) {
	var qr QuestionnaireResponse
	if err := json.Unmarshal(data, &qr); err != nil {
		return nil, fmt.Errorf("invalid QuestionnaireResponse JSON: %w", err)
	}
	if qr.ResourceType != "QuestionnaireResponse" {
		return nil, fmt.Errorf("expected resourceType QuestionnaireResponse, got %q", qr.ResourceType)
	}
	return &qr, nil
}

// ============================================================================
// Copying and lookup
// ============================================================================

// CloneItem returns a deep copy of item. A nil item clones to nil.
func CloneItem(item *QuestionnaireResponseItem) *QuestionnaireResponseItem {
	if item == nil {
		return nil
	}
	out := cloneItemValue(*item)
	return &out
}

// CloneItems deep-copies a slice, preserving nil.
func CloneItems(items []QuestionnaireResponseItem) []QuestionnaireResponseItem {
	if items == nil {
		return nil
	}
	out := make([]QuestionnaireResponseItem, len(items))
	for i := range items {
		out[i] = cloneItemValue(items[i])
	}
	return out
}

// CloneResponse deep-copies a QuestionnaireResponse.
func CloneResponse(qr *QuestionnaireResponse) *QuestionnaireResponse {
	if qr == nil {
		return nil
	}
	out := *qr
	if qr.Meta != nil {
		m := *qr.Meta
		m.Profile = append([]string(nil), qr.Meta.Profile...)
		m.Extras = qr.Meta.Extras.Clone()
		out.Meta = &m
	}
	out.Subject = cloneReference(qr.Subject)
	out.Item = CloneItems(qr.Item)
	out.Extras = qr.Extras.Clone()
	return &out
}

func cloneItemValue(item QuestionnaireResponseItem) QuestionnaireResponseItem {
	out := QuestionnaireResponseItem{
		LinkID:    item.LinkID,
		Text:      item.Text,
		Extension: cloneExtensions(item.Extension),
		Item:      CloneItems(item.Item),
		Extras:    item.Extras.Clone(),
	}
	if item.Answer != nil {
		out.Answer = make([]QuestionnaireResponseAnswer, len(item.Answer))
		for i, a := range item.Answer {
			out.Answer[i] = cloneAnswer(a)
		}
	}
	return out
}

func cloneAnswer(a QuestionnaireResponseAnswer) QuestionnaireResponseAnswer {
	out := QuestionnaireResponseAnswer{
		ValueBoolean:   clonePtr(a.ValueBoolean),
		ValueDecimal:   clonePtr(a.ValueDecimal),
		ValueInteger:   clonePtr(a.ValueInteger),
		ValueDate:      clonePtr(a.ValueDate),
		ValueDateTime:  clonePtr(a.ValueDateTime),
		ValueTime:      clonePtr(a.ValueTime),
		ValueString:    clonePtr(a.ValueString),
		ValueURI:       clonePtr(a.ValueURI),
		ValueCoding:    cloneCoding(a.ValueCoding),
		ValueReference: cloneReference(a.ValueReference),
		Item:           CloneItems(a.Item),
		Extras:         a.Extras.Clone(),
	}
	if a.ValueAttachment != nil {
		att := *a.ValueAttachment
		att.Size = clonePtr(a.ValueAttachment.Size)
		att.Extras = a.ValueAttachment.Extras.Clone()
		out.ValueAttachment = &att
	}
	if a.ValueQuantity != nil {
		q := *a.ValueQuantity
		q.Value = clonePtr(a.ValueQuantity.Value)
		q.Extras = a.ValueQuantity.Extras.Clone()
		out.ValueQuantity = &q
	}
	return out
}

func cloneExtensions(exts []Extension) []Extension {
	if exts == nil {
		return nil
	}
	out := make([]Extension, len(exts))
	for i, ext := range exts {
		out[i] = Extension{
			URL:          ext.URL,
			ValueString:  clonePtr(ext.ValueString),
			ValueCode:    clonePtr(ext.ValueCode),
			ValueBoolean: clonePtr(ext.ValueBoolean),
			ValueInteger: clonePtr(ext.ValueInteger),
			ValueCoding:  cloneCoding(ext.ValueCoding),
			Extras:       ext.Extras.Clone(),
		}
		if ext.ValueCodeableConcept != nil {
			cc := CodeableConcept{Text: ext.ValueCodeableConcept.Text}
			if ext.ValueCodeableConcept.Coding != nil {
				cc.Coding = make([]Coding, len(ext.ValueCodeableConcept.Coding))
				for j := range ext.ValueCodeableConcept.Coding {
					cc.Coding[j] = *cloneCoding(&ext.ValueCodeableConcept.Coding[j])
				}
			}
			out[i].ValueCodeableConcept = &cc
		}
	}
	return out
}

func cloneCoding(c *Coding) *Coding {
	if c == nil {
		return nil
	}
	out := *c
	out.Extras = c.Extras.Clone()
	return &out
}

func cloneReference(r *Reference) *Reference {
	if r == nil {
		return nil
	}
	out := *r
	out.Extras = r.Extras.Clone()
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IndexByLinkID maps each linkId to its first occurrence in items.
func IndexByLinkID(items []QuestionnaireResponseItem) map[string]*QuestionnaireResponseItem {
	index := make(map[string]*QuestionnaireResponseItem, len(items))
	for i := range items {
		if _, ok := index[items[i].LinkID]; !ok {
			index[items[i].LinkID] = &items[i]
		}
	}
	return index
}

// ChildByLinkID returns the first child of item with the given linkId. A nil
// item has no children.
func ChildByLinkID(item *QuestionnaireResponseItem, linkID string) *QuestionnaireResponseItem {
	if item == nil {
		return nil
	}
	for i := range item.Item {
		if item.Item[i].LinkID == linkID {
			return &item.Item[i]
		}
	}
	return nil
}

// FirstAnswer returns the first answer on item, or nil.
func FirstAnswer(item *QuestionnaireResponseItem) *QuestionnaireResponseAnswer {
	if item == nil || len(item.Answer) == 0 {
		return nil
	}
	return &item.Answer[0]
}
