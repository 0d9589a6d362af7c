package fhir

import "testing"

func TestParseQuestionnaireResponse(t *testing.T) {
	data := []byte(`{
		"resourceType": "QuestionnaireResponse",
		"status": "in-progress",
		"item": [
			{"linkId": "weight", "answer": [{"valueQuantity": {"value": 70, "unit": "kg"}}]},
			{"linkId": "smoker", "answer": [{"valueBoolean": false}]}
		]
	}`)

	qr, err := ParseQuestionnaireResponse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qr.Item) != 2 {
		t.Fatalf("expected 2 items, got %d", len(qr.Item))
	}
	if qr.Item[0].Answer[0].ValueQuantity == nil || *qr.Item[0].Answer[0].ValueQuantity.Value != 70 {
		t.Error("expected weight quantity of 70")
	}
	if qr.Item[1].Answer[0].ValueBoolean == nil || *qr.Item[1].Answer[0].ValueBoolean {
		t.Error("expected smoker false")
	}
}

func TestParseQuestionnaireResponse_WrongType(t *testing.T) {
	_, err := ParseQuestionnaireResponse([]byte(`{"resourceType": "Patient"}`))
	if err == nil {
		t.Fatal("expected error for wrong resourceType")
	}
}

func TestCloneItem_Independent(t *testing.T) {
	orig := makeRow("history", "Asthma")
	orig.Extension = []Extension{BoolExtension("http://example.org/flag", true)}

	clone := CloneItem(&orig)
	if !ItemsEqual(&orig, clone) {
		t.Fatal("expected clone to equal original")
	}

	*clone.Item[0].Answer[0].ValueString = "Diabetes"
	*clone.Extension[0].ValueBoolean = false
	if *orig.Item[0].Answer[0].ValueString != "Asthma" {
		t.Error("expected original answer to be unaffected by clone mutation")
	}
	if !*orig.Extension[0].ValueBoolean {
		t.Error("expected original extension to be unaffected by clone mutation")
	}
}

func TestCloneItem_Nil(t *testing.T) {
	if CloneItem(nil) != nil {
		t.Error("expected nil clone of nil item")
	}
	if CloneItems(nil) != nil {
		t.Error("expected nil clone of nil slice")
	}
}

func TestIndexByLinkID_FirstMatchWins(t *testing.T) {
	items := []QuestionnaireResponseItem{
		{LinkID: "a", Text: "first"},
		{LinkID: "b"},
		{LinkID: "a", Text: "second"},
	}
	index := IndexByLinkID(items)
	if len(index) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(index))
	}
	if index["a"].Text != "first" {
		t.Errorf("expected first occurrence, got %s", index["a"].Text)
	}
	if index["missing"] != nil {
		t.Error("expected missing linkId to be absent")
	}
}

func TestChildByLinkID(t *testing.T) {
	row := makeRow("history", "Asthma")
	if c := ChildByLinkID(&row, "onset"); c == nil || c.LinkID != "onset" {
		t.Error("expected onset child")
	}
	if ChildByLinkID(&row, "missing") != nil {
		t.Error("expected nil for missing child")
	}
	if ChildByLinkID(nil, "onset") != nil {
		t.Error("expected nil for nil parent")
	}
}

func TestHasBoolExtension(t *testing.T) {
	exts := []Extension{BoolExtension("http://example.org/deleted", true)}
	if !HasBoolExtension(exts, "http://example.org/deleted", true) {
		t.Error("expected extension to be found")
	}
	if HasBoolExtension(exts, "http://example.org/deleted", false) {
		t.Error("expected value mismatch to be reported as absent")
	}
}
