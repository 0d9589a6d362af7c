package repopulate

import (
	"encoding/json"

	"github.com/ehr/repopulate/internal/platform/fhir"
)

// ItemToRepopulate is one top-level field or group whose current answers
// differ from what the patient record now suggests. Either the single
// Current/Server pair is used (non-repeating) or the two parallel row arrays
// (repeating groups). Values are never mutated in place.
type ItemToRepopulate struct {
	QItem           *fhir.QuestionnaireItem          `json:"qItem"`
	SectionItemText string                           `json:"sectionItemText,omitempty"`
	ParentItemText  string                           `json:"parentItemText,omitempty"`
	IsInGrid        bool                             `json:"isInGrid,omitempty"`
	CurrentItem     *fhir.QuestionnaireResponseItem  `json:"currentQRItem,omitempty"`
	ServerItem      *fhir.QuestionnaireResponseItem  `json:"serverQRItem,omitempty"`
	CurrentItems    []fhir.QuestionnaireResponseItem `json:"currentQRItems,omitempty"`
	ServerItems     []fhir.QuestionnaireResponseItem `json:"serverQRItems,omitempty"`
}

// IsRepeating reports whether the item is addressed row by row. An item is
// repeating when either side carries at least one row.
func (it *ItemToRepopulate) IsRepeating() bool {
	return len(it.CurrentItems) > 0 || len(it.ServerItems) > 0
}

// RowCount is max(len(current rows), len(server rows)).
func (it *ItemToRepopulate) RowCount() int {
	return max(len(it.CurrentItems), len(it.ServerItems))
}

// Clone returns a deep copy sharing only the questionnaire item definition.
func (it *ItemToRepopulate) Clone() ItemToRepopulate {
	return ItemToRepopulate{
		QItem:           it.QItem,
		SectionItemText: it.SectionItemText,
		ParentItemText:  it.ParentItemText,
		IsInGrid:        it.IsInGrid,
		CurrentItem:     fhir.CloneItem(it.CurrentItem),
		ServerItem:      fhir.CloneItem(it.ServerItem),
		CurrentItems:    fhir.CloneItems(it.CurrentItems),
		ServerItems:     fhir.CloneItems(it.ServerItems),
	}
}

// ChangeEntry is one field-level difference between the current and the
// server-suggested value. Values are formatted display strings; nil means
// the side has no answer.
type ChangeEntry struct {
	FieldGroup   *fhir.QuestionnaireItem `json:"-"`
	SubItem      *fhir.QuestionnaireItem `json:"-"`
	CurrentValue *string                 `json:"currentValue"`
	ServerValue  *string                 `json:"serverValue"`
	RowIndex     *int                    `json:"rowIndex,omitempty"`
	RowLabel     string                  `json:"rowLabel,omitempty"`
}

// MarshalJSON flattens the item definitions to their linkId and text.
func (c ChangeEntry) MarshalJSON() ([]byte, error) {
	type alias ChangeEntry
	out := struct {
		FieldGroupLinkID string `json:"fieldGroupLinkId,omitempty"`
		FieldGroupText   string `json:"fieldGroupText,omitempty"`
		SubItemLinkID    string `json:"subItemLinkId,omitempty"`
		SubItemText      string `json:"subItemText,omitempty"`
		alias
	}{alias: alias(c)}
	if c.FieldGroup != nil {
		out.FieldGroupLinkID = c.FieldGroup.LinkID
		out.FieldGroupText = c.FieldGroup.Text
	}
	if c.SubItem != nil {
		out.SubItemLinkID = c.SubItem.LinkID
		out.SubItemText = c.SubItem.Text
	}
	return json.Marshal(out)
}

// RowChanges groups the changes that fall in one row of a repeating item.
type RowChanges struct {
	RowIndex int           `json:"rowIndex"`
	RowLabel string        `json:"rowLabel"`
	Items    []ChangeEntry `json:"itemsInRow"`
}

// ============================================================================
// Ordered item map
// ============================================================================

// ItemMap is a linkId keyed map of items that remembers insertion order.
// Selection keys are positional, so iteration order must be stable.
type ItemMap struct {
	keys  []string
	items map[string]ItemToRepopulate
}

func NewItemMap() *ItemMap {
	return &ItemMap{items: make(map[string]ItemToRepopulate)}
}

// Set inserts or replaces an item. Replacing keeps the original position.
func (m *ItemMap) Set(linkID string, item ItemToRepopulate) {
	if _, ok := m.items[linkID]; !ok {
		m.keys = append(m.keys, linkID)
	}
	m.items[linkID] = item
}

func (m *ItemMap) Get(linkID string) (ItemToRepopulate, bool) {
	if m == nil {
		return ItemToRepopulate{}, false
	}
	item, ok := m.items[linkID]
	return item, ok
}

func (m *ItemMap) Delete(linkID string) {
	if _, ok := m.items[linkID]; !ok {
		return
	}
	delete(m.items, linkID)
	for i, k := range m.keys {
		if k == linkID {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns linkIds in insertion order.
func (m *ItemMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *ItemMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

type itemMapEntry struct {
	LinkID string `json:"linkId"`
	ItemToRepopulate
}

// MarshalJSON encodes the map as an ordered array of entries.
func (m *ItemMap) MarshalJSON() ([]byte, error) {
	entries := make([]itemMapEntry, 0, m.Len())
	for _, k := range m.Keys() {
		entries = append(entries, itemMapEntry{LinkID: k, ItemToRepopulate: m.items[k]})
	}
	return json.Marshal(entries)
}
