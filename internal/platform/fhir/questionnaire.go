package fhir

import (
	"encoding/json"
	"fmt"

	"github.com/ehr/repopulate/pkg/fhirmodels"
)

// ============================================================================
// Questionnaire Types
// ============================================================================

// Questionnaire is the subset of the FHIR Questionnaire resource the
// repopulation flow reads. It is treated as read-only once parsed.
type Questionnaire struct {
	ResourceType string              `json:"resourceType"`
	ID           string              `json:"id,omitempty"`
	Meta         *Meta               `json:"meta,omitempty"`
	URL          string              `json:"url,omitempty"`
	Version      string              `json:"version,omitempty"`
	Title        string              `json:"title,omitempty"`
	Status       string              `json:"status,omitempty"`
	Extension    []Extension         `json:"extension,omitempty"`
	Item         []QuestionnaireItem `json:"item,omitempty"`
}

// QuestionnaireItem is one item definition node.
type QuestionnaireItem struct {
	LinkID       string              `json:"linkId"`
	Text         string              `json:"text,omitempty"`
	Type         string              `json:"type"`
	Required     *bool               `json:"required,omitempty"`
	Repeats      bool                `json:"repeats,omitempty"`
	ReadOnly     *bool               `json:"readOnly,omitempty"`
	AnswerOption []AnswerOption      `json:"answerOption,omitempty"`
	Extension    []Extension         `json:"extension,omitempty"`
	Item         []QuestionnaireItem `json:"item,omitempty"`
}

// AnswerOption is a predefined answer choice.
type AnswerOption struct {
	ValueCoding     *Coding    `json:"valueCoding,omitempty"`
	ValueString     *string    `json:"valueString,omitempty"`
	ValueInteger    *int       `json:"valueInteger,omitempty"`
	ValueDate       *string    `json:"valueDate,omitempty"`
	ValueReference  *Reference `json:"valueReference,omitempty"`
	InitialSelected bool       `json:"initialSelected,omitempty"`
}

// ============================================================================
// Parsing
// ============================================================================

// ParseQuestionnaire decodes a Questionnaire resource from JSON.
func ParseQuestionnaire(data []byte) (*Questionnaire, error) {
	var q Questionnaire
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("invalid Questionnaire JSON: %w", err)
	}
	if q.ResourceType != "Questionnaire" {
		return nil, fmt.Errorf("expected resourceType Questionnaire, got %q", q.ResourceType)
	}
	if err := validateItems(q.Item, "Questionnaire.item"); err != nil {
		return nil, err
	}
	return &q, nil
}

func validateItems(items []QuestionnaireItem, path string) error {
	for i, item := range items {
		p := fmt.Sprintf("%s[%d]", path, i)
		if item.LinkID == "" {
			return fmt.Errorf("%s: linkId is required", p)
		}
		if item.Type == "" {
			return fmt.Errorf("%s: type is required", p)
		}
		if err := validateItems(item.Item, p+".item"); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Item helpers
// ============================================================================

// IsGroup reports whether the item is a group.
func (item *QuestionnaireItem) IsGroup() bool {
	return item.Type == fhirmodels.ItemTypeGroup
}

// IsChoiceGroup reports whether the item is a group whose members are
// mutually exclusive answer options.
func (item *QuestionnaireItem) IsChoiceGroup() bool {
	return item.IsGroup() && len(item.AnswerOption) > 0
}

// IsRepeatGroup reports whether the item is a repeating group.
func (item *QuestionnaireItem) IsRepeatGroup() bool {
	return item.IsGroup() && item.Repeats
}

// ItemControl returns the first itemControl code on the item, or "".
func ItemControl(item *QuestionnaireItem) string {
	for _, ext := range item.Extension {
		if ext.URL != fhirmodels.ExtItemControl || ext.ValueCodeableConcept == nil {
			continue
		}
		for _, c := range ext.ValueCodeableConcept.Coding {
			if c.Code != "" {
				return c.Code
			}
		}
	}
	return ""
}

// IsItemControl reports whether the item carries the given itemControl code.
func IsItemControl(item *QuestionnaireItem, code string) bool {
	return ItemControl(item) == code
}

// ShortText returns the sdc shortText extension value, or "".
func ShortText(item *QuestionnaireItem) string {
	for _, ext := range item.Extension {
		if ext.URL == fhirmodels.ExtShortText && ext.ValueString != nil {
			return *ext.ValueString
		}
	}
	return ""
}

// IsTabContainer reports whether the item is a group rendered as tabs.
func IsTabContainer(item *QuestionnaireItem) bool {
	return item.IsGroup() && IsItemControl(item, fhirmodels.ItemControlTabContainer)
}

// DisplayText returns the short text, text or linkId, in that order.
func DisplayText(item *QuestionnaireItem) string {
	if s := ShortText(item); s != "" {
		return s
	}
	if item.Text != "" {
		return item.Text
	}
	return item.LinkID
}
