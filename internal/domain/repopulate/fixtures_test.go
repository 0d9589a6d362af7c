package repopulate

import (
	"time"

	"github.com/ehr/repopulate/internal/platform/fhir"
)

var testFormatter = fhir.NewDefaultFormatter(time.UTC)

func str(s string) *string { return &s }

func stringItem(linkID, v string) fhir.QuestionnaireResponseItem {
	return fhir.QuestionnaireResponseItem{
		LinkID: linkID,
		Answer: []fhir.QuestionnaireResponseAnswer{{ValueString: &v}},
	}
}

func decimalItem(linkID string, v float64) fhir.QuestionnaireResponseItem {
	return fhir.QuestionnaireResponseItem{
		LinkID: linkID,
		Answer: []fhir.QuestionnaireResponseAnswer{{ValueDecimal: &v}},
	}
}

func groupItem(linkID string, children ...fhir.QuestionnaireResponseItem) fhir.QuestionnaireResponseItem {
	return fhir.QuestionnaireResponseItem{LinkID: linkID, Item: children}
}

// conditionRow is one row of the "conditions" repeating group.
func conditionRow(condition, onset string) fhir.QuestionnaireResponseItem {
	row := groupItem("conditions", stringItem("condition", condition))
	if onset != "" {
		row.Item = append(row.Item, stringItem("onset", onset))
	}
	return row
}

func conditionRows(conditions ...string) []fhir.QuestionnaireResponseItem {
	rows := make([]fhir.QuestionnaireResponseItem, 0, len(conditions))
	for _, c := range conditions {
		rows = append(rows, conditionRow(c, ""))
	}
	return rows
}

func qItem(linkID, text, typ string, children ...fhir.QuestionnaireItem) fhir.QuestionnaireItem {
	return fhir.QuestionnaireItem{LinkID: linkID, Text: text, Type: typ, Item: children}
}

func conditionsDef() *fhir.QuestionnaireItem {
	def := qItem("conditions", "Conditions", "group",
		qItem("condition", "Condition", "string"),
		qItem("onset", "Onset", "string"),
	)
	def.Repeats = true
	return &def
}

// testQuestionnaire has a plain section with two fields and a history
// section holding a repeating group.
func testQuestionnaire() *fhir.Questionnaire {
	return &fhir.Questionnaire{
		ResourceType: "Questionnaire",
		Item: []fhir.QuestionnaireItem{
			qItem("about", "About", "group",
				qItem("weight", "Weight", "decimal"),
				qItem("name", "Name", "string"),
			),
			qItem("history", "History", "group", *conditionsDef()),
		},
	}
}

func testResponse(weight float64, name string, conditions ...string) *fhir.QuestionnaireResponse {
	history := groupItem("history", conditionRows(conditions...)...)
	return &fhir.QuestionnaireResponse{
		ResourceType: "QuestionnaireResponse",
		Status:       "in-progress",
		Item: []fhir.QuestionnaireResponseItem{
			groupItem("about", decimalItem("weight", weight), stringItem("name", name)),
			history,
		},
	}
}

// repeatingEntry builds a single-item heading list for a repeating item.
func repeatingEntry(current, server []fhir.QuestionnaireResponseItem) []Heading {
	return []Heading{{
		Text: "History",
		Items: []HeadingItem{{
			LinkID: "conditions",
			Item: ItemToRepopulate{
				QItem:           conditionsDef(),
				SectionItemText: "History",
				CurrentItems:    current,
				ServerItems:     server,
			},
		}},
	}}
}

func itemMapOf(headings []Heading) *ItemMap {
	m := NewItemMap()
	for _, h := range headings {
		for _, it := range h.Items {
			m.Set(it.LinkID, it.Item)
		}
	}
	return m
}

func conditionValues(rows []fhir.QuestionnaireResponseItem) []string {
	var out []string
	for i := range rows {
		a := fhir.FirstAnswer(fhir.ChildByLinkID(&rows[i], "condition"))
		if a == nil || a.ValueString == nil {
			out = append(out, "")
			continue
		}
		out = append(out, *a.ValueString)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
