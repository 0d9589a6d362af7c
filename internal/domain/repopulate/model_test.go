package repopulate

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValueChangeModeOf(t *testing.T) {
	tests := []struct {
		name    string
		changes []ChangeEntry
		want    ValueChangeMode
	}{
		{"only server values", []ChangeEntry{{ServerValue: str("72")}}, ModeNew},
		{"only current values", []ChangeEntry{{CurrentValue: str("70")}}, ModeRemoved},
		{"both sides", []ChangeEntry{{CurrentValue: str("70"), ServerValue: str("72")}}, ModeUpdated},
		{"split across fields", []ChangeEntry{{CurrentValue: str("a")}, {ServerValue: str("b")}}, ModeUpdated},
		{"empty strings count as absent", []ChangeEntry{{CurrentValue: str(""), ServerValue: str("b")}}, ModeNew},
		{"no changes", nil, ModeUpdated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueChangeModeOf(tt.changes); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestItemMap_KeepsInsertionOrder(t *testing.T) {
	m := NewItemMap()
	m.Set("c", ItemToRepopulate{SectionItemText: "1"})
	m.Set("a", ItemToRepopulate{SectionItemText: "2"})
	m.Set("b", ItemToRepopulate{SectionItemText: "3"})
	m.Set("c", ItemToRepopulate{SectionItemText: "4"})

	if got := m.Keys(); !equalStrings(got, []string{"c", "a", "b"}) {
		t.Fatalf("expected [c a b], got %v", got)
	}
	if c, _ := m.Get("c"); c.SectionItemText != "4" {
		t.Errorf("expected replaced value, got %q", c.SectionItemText)
	}

	m.Delete("a")
	m.Delete("missing")
	if got := m.Keys(); !equalStrings(got, []string{"c", "b"}) {
		t.Fatalf("expected [c b], got %v", got)
	}

	keys := m.Keys()
	keys[0] = "mutated"
	if m.Keys()[0] != "c" {
		t.Error("Keys should return a copy")
	}
}

func TestItemMap_Nil(t *testing.T) {
	var m *ItemMap
	if m.Len() != 0 || m.Keys() != nil {
		t.Fatal("nil map should be empty")
	}
	if _, ok := m.Get("x"); ok {
		t.Fatal("nil map should have no entries")
	}
}

func TestItemMap_MarshalJSON(t *testing.T) {
	m := NewItemMap()
	m.Set("weight", ItemToRepopulate{QItem: &testQuestionnaire().Item[0].Item[0], SectionItemText: "About"})
	m.Set("conditions", ItemToRepopulate{QItem: conditionsDef(), SectionItemText: "History"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []struct {
		LinkID          string `json:"linkId"`
		SectionItemText string `json:"sectionItemText"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("expected an array, got %s", data)
	}
	if len(entries) != 2 || entries[0].LinkID != "weight" || entries[1].LinkID != "conditions" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[1].SectionItemText != "History" {
		t.Errorf("expected embedded item fields, got %+v", entries[1])
	}
}

func TestChangeEntry_MarshalJSON(t *testing.T) {
	def := qItem("weight", "Weight", "decimal")
	row := 2
	entry := ChangeEntry{
		FieldGroup:   &def,
		SubItem:      &def,
		CurrentValue: str("70"),
		RowIndex:     &row,
		RowLabel:     "Row 3",
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := string(data)
	for _, want := range []string{`"subItemLinkId":"weight"`, `"fieldGroupText":"Weight"`, `"currentValue":"70"`, `"serverValue":null`, `"rowIndex":2`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}
