package fhir

import (
	"testing"

	"github.com/ehr/repopulate/pkg/fhirmodels"
)

func makeQuestionnaireJSON() []byte {
	return []byte(`{
		"resourceType": "Questionnaire",
		"id": "health-check",
		"status": "active",
		"item": [
			{
				"linkId": "tabs",
				"type": "group",
				"extension": [{
					"url": "http://hl7.org/fhir/StructureDefinition/questionnaire-itemControl",
					"valueCodeableConcept": {"coding": [{"code": "tab-container"}]}
				}],
				"item": [
					{
						"linkId": "history",
						"text": "Medical history",
						"type": "group",
						"repeats": true,
						"item": [
							{"linkId": "condition", "text": "Condition", "type": "string"},
							{"linkId": "onset", "text": "Onset", "type": "date"}
						]
					},
					{
						"linkId": "smoking",
						"type": "group",
						"answerOption": [{"valueString": "never"}, {"valueString": "current"}]
					}
				]
			}
		]
	}`)
}

func TestParseQuestionnaire(t *testing.T) {
	q, err := ParseQuestionnaire(makeQuestionnaireJSON())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.ID != "health-check" {
		t.Errorf("expected id health-check, got %s", q.ID)
	}
	tabs := &q.Item[0]
	if !IsTabContainer(tabs) {
		t.Error("expected tab container")
	}
	history := &tabs.Item[0]
	if !history.IsRepeatGroup() {
		t.Error("expected history to be a repeat group")
	}
	if len(history.Item) != 2 || history.Item[1].Type != fhirmodels.ItemTypeDate {
		t.Error("expected two columns with onset as date")
	}
	if !tabs.Item[1].IsChoiceGroup() {
		t.Error("expected smoking to be a choice group")
	}
}

func TestParseQuestionnaire_MissingLinkID(t *testing.T) {
	_, err := ParseQuestionnaire([]byte(`{"resourceType": "Questionnaire", "item": [{"type": "string"}]}`))
	if err == nil {
		t.Fatal("expected error for missing linkId")
	}
}

func TestParseQuestionnaire_WrongType(t *testing.T) {
	_, err := ParseQuestionnaire([]byte(`{"resourceType": "QuestionnaireResponse"}`))
	if err == nil {
		t.Fatal("expected error for wrong resourceType")
	}
}

func TestItemControlAndShortText(t *testing.T) {
	item := QuestionnaireItem{
		LinkID: "bp",
		Text:   "Blood pressure",
		Type:   fhirmodels.ItemTypeGroup,
		Extension: []Extension{
			{URL: fhirmodels.ExtItemControl, ValueCodeableConcept: &CodeableConcept{Coding: []Coding{{Code: "grid"}}}},
			{URL: fhirmodels.ExtShortText, ValueString: strPtr("BP")},
		},
	}
	if !IsItemControl(&item, fhirmodels.ItemControlGrid) {
		t.Error("expected grid item control")
	}
	if ShortText(&item) != "BP" {
		t.Errorf("expected BP, got %s", ShortText(&item))
	}
	if DisplayText(&item) != "BP" {
		t.Errorf("expected display text BP, got %s", DisplayText(&item))
	}

	plain := QuestionnaireItem{LinkID: "x", Type: fhirmodels.ItemTypeString}
	if ItemControl(&plain) != "" {
		t.Error("expected no item control")
	}
	if DisplayText(&plain) != "x" {
		t.Errorf("expected linkId fallback, got %s", DisplayText(&plain))
	}
}
