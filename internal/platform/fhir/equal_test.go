package fhir

import "testing"

func makeRow(linkID, condition string) QuestionnaireResponseItem {
	return QuestionnaireResponseItem{
		LinkID: linkID,
		Item: []QuestionnaireResponseItem{
			{LinkID: "condition", Answer: []QuestionnaireResponseAnswer{{ValueString: strPtr(condition)}}},
			{LinkID: "onset", Answer: []QuestionnaireResponseAnswer{{ValueDate: strPtr("2020-01-01")}}},
		},
	}
}

func TestItemsEqual_Identical(t *testing.T) {
	a := makeRow("history", "Asthma")
	b := makeRow("history", "Asthma")
	if !ItemsEqual(&a, &b) {
		t.Error("expected identical rows to be equal")
	}
}

func TestItemsEqual_NestedDifference(t *testing.T) {
	a := makeRow("history", "Asthma")
	b := makeRow("history", "Asthma")
	b.Item[1].Answer[0].ValueDate = strPtr("2021-01-01")
	if ItemsEqual(&a, &b) {
		t.Error("expected rows differing in a nested answer to be unequal")
	}
}

func TestItemsEqual_Nil(t *testing.T) {
	a := makeRow("history", "Asthma")
	if !ItemsEqual(nil, nil) {
		t.Error("expected nil items to be equal")
	}
	if ItemsEqual(&a, nil) || ItemsEqual(nil, &a) {
		t.Error("expected nil and non-nil to be unequal")
	}
}

func TestItemsEqual_Extensions(t *testing.T) {
	a := makeRow("history", "Asthma")
	b := makeRow("history", "Asthma")
	b.Extension = []Extension{BoolExtension("http://example.org/flag", true)}
	if ItemsEqual(&a, &b) {
		t.Error("expected an extra extension to make rows unequal")
	}
	a.Extension = []Extension{BoolExtension("http://example.org/flag", true)}
	if !ItemsEqual(&a, &b) {
		t.Error("expected matching extensions to be equal")
	}
}

func TestItemsEqual_TypedNotDisplay(t *testing.T) {
	// Same display text, different underlying codes.
	a := QuestionnaireResponseItem{LinkID: "x", Answer: []QuestionnaireResponseAnswer{{ValueCoding: &Coding{Code: "a", Display: "Same"}}}}
	b := QuestionnaireResponseItem{LinkID: "x", Answer: []QuestionnaireResponseAnswer{{ValueCoding: &Coding{Code: "b", Display: "Same"}}}}
	if ItemsEqual(&a, &b) {
		t.Error("expected codings with different codes to be unequal")
	}
}

func TestItemsEqual_NilAndEmptySlices(t *testing.T) {
	a := QuestionnaireResponseItem{LinkID: "x"}
	b := QuestionnaireResponseItem{LinkID: "x", Answer: []QuestionnaireResponseAnswer{}, Item: []QuestionnaireResponseItem{}}
	if !ItemsEqual(&a, &b) {
		t.Error("expected nil and empty slices to compare equal")
	}
}

func TestAnswersEqual_Quantity(t *testing.T) {
	a := QuestionnaireResponseAnswer{ValueQuantity: &Quantity{Value: floatPtr(70), Unit: "kg"}}
	b := QuestionnaireResponseAnswer{ValueQuantity: &Quantity{Value: floatPtr(70), Unit: "kg"}}
	if !AnswersEqual(&a, &b) {
		t.Error("expected equal quantities")
	}
	b.ValueQuantity.Unit = "lb"
	if AnswersEqual(&a, &b) {
		t.Error("expected quantities with different units to be unequal")
	}
}
