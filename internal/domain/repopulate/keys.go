package repopulate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ehr/repopulate/internal/platform/fhir"
)

// CreateSelectionKey addresses a whole item (no child index) or one row of a
// repeating item. The two forms never collide: a row key always carries the
// "-child-" segment.
func CreateSelectionKey(headingIndex, parentIndex int) string {
	return fmt.Sprintf("heading-%d-parent-%d", headingIndex, parentIndex)
}

// CreateRowSelectionKey addresses row childIndex of a repeating item.
func CreateRowSelectionKey(headingIndex, parentIndex, childIndex int) string {
	return fmt.Sprintf("heading-%d-parent-%d-child-%d", headingIndex, parentIndex, childIndex)
}

func childKeyPrefix(headingIndex, parentIndex int) string {
	return CreateSelectionKey(headingIndex, parentIndex) + "-child-"
}

// KeySet is a set of selection keys.
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s KeySet) Add(key string)    { s[key] = struct{}{} }
func (s KeySet) Remove(key string) { delete(s, key) }

func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the keys in lexical order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// withPrefix returns the keys starting with prefix, sorted.
func (s KeySet) withPrefix(prefix string) []string {
	var out []string
	for k := range s {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ChildEntryCounts counts the selected and the valid row keys of one item.
func ChildEntryCounts(headingIndex, parentIndex int, selected, valid KeySet) (numSelected, numValid int) {
	prefix := childKeyPrefix(headingIndex, parentIndex)
	for k := range selected {
		if strings.HasPrefix(k, prefix) {
			numSelected++
		}
	}
	for k := range valid {
		if strings.HasPrefix(k, prefix) {
			numValid++
		}
	}
	return numSelected, numValid
}

// ============================================================================
// Headings
// ============================================================================

// Heading is one section of the items map. Index positions are what
// selection keys refer to.
type Heading struct {
	Text  string        `json:"heading"`
	Items []HeadingItem `json:"items"`
}

type HeadingItem struct {
	LinkID string           `json:"linkId"`
	Item   ItemToRepopulate `json:"item"`
}

// GroupByHeading groups items by section text, both headings and items in
// first-seen order. Keys derived from the result are only valid for this
// snapshot of items.
func GroupByHeading(items *ItemMap) []Heading {
	var headings []Heading
	position := make(map[string]int)
	for _, linkID := range items.Keys() {
		item, _ := items.Get(linkID)
		idx, ok := position[item.SectionItemText]
		if !ok {
			idx = len(headings)
			position[item.SectionItemText] = idx
			headings = append(headings, Heading{Text: item.SectionItemText})
		}
		headings[idx].Items = append(headings[idx].Items, HeadingItem{LinkID: linkID, Item: item})
	}
	return headings
}

// ValidKeys returns every selectable key. Non-repeating items are always
// selectable. Rows of repeating items are selectable unless the current and
// server rows are structurally identical.
func ValidKeys(headings []Heading) KeySet {
	valid := make(KeySet)
	for h := range headings {
		for p := range headings[h].Items {
			item := &headings[h].Items[p].Item
			if !item.IsRepeating() {
				valid.Add(CreateSelectionKey(h, p))
				continue
			}
			for c := 0; c < item.RowCount(); c++ {
				if !fhir.ItemsEqual(rowAt(item.CurrentItems, c), rowAt(item.ServerItems, c)) {
					valid.Add(CreateRowSelectionKey(h, p, c))
				}
			}
		}
	}
	return valid
}
