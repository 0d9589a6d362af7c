package repopulate

import (
	"github.com/ehr/repopulate/internal/platform/fhir"
)

// DefaultTombstoneURL marks a row that was deleted upstream but selected by
// the user. It only lives between the two phases of FilterItems.
const DefaultTombstoneURL = "http://ehr.local/fhir/StructureDefinition/repopulate-row-deleted"

// FilterItems keeps the items and rows whose keys are selected and restores
// the user's values everywhere else.
//
// For repeating items the result holds the full original current rows and a
// server side where selected rows carry the suggested value, unselected rows
// fall back to the current value, and rows deleted upstream are dropped.
// Non-repeating items pass through whole when selected. Inputs are not
// modified.
func FilterItems(headings []Heading, selected KeySet, original *ItemMap, tombstoneURL string) *ItemMap {
	if tombstoneURL == "" {
		tombstoneURL = DefaultTombstoneURL
	}

	filtered := NewItemMap()
	sparse := make(map[string][]*fhir.QuestionnaireResponseItem)

	// Phase 1: selection.
	for h := range headings {
		for p := range headings[h].Items {
			entry := &headings[h].Items[p]
			item := &entry.Item

			if !item.IsRepeating() {
				if selected.Has(CreateSelectionKey(h, p)) {
					filtered.Set(entry.LinkID, item.Clone())
				}
				continue
			}

			rows := item.RowCount()
			current := make([]*fhir.QuestionnaireResponseItem, rows)
			server := make([]*fhir.QuestionnaireResponseItem, rows)
			picked := false
			for c := 0; c < rows; c++ {
				if !selected.Has(CreateRowSelectionKey(h, p, c)) {
					continue
				}
				picked = true
				currentRow := rowAt(item.CurrentItems, c)
				serverRow := rowAt(item.ServerItems, c)
				current[c] = fhir.CloneItem(currentRow)
				server[c] = fhir.CloneItem(serverRow)
				if currentRow != nil && serverRow == nil {
					tomb := fhir.CloneItem(currentRow)
					tomb.Extension = append(tomb.Extension, fhir.BoolExtension(tombstoneURL, true))
					server[c] = tomb
				}
			}
			if !picked {
				continue
			}

			result := ItemToRepopulate{
				QItem:           item.QItem,
				SectionItemText: item.SectionItemText,
				ParentItemText:  item.ParentItemText,
				IsInGrid:        item.IsInGrid,
				CurrentItems:    compact(current),
				ServerItems:     compact(server),
			}
			filtered.Set(entry.LinkID, result)
			sparse[entry.LinkID] = server
		}
	}

	// Phase 2: restoration.
	for _, linkID := range filtered.Keys() {
		server, ok := sparse[linkID]
		if !ok {
			continue
		}
		result, _ := filtered.Get(linkID)
		orig, ok := original.Get(linkID)
		if !ok {
			// No counterpart: keep the selected rows as they are, minus
			// tombstones.
			result.ServerItems = restoreRows(server, nil, tombstoneURL)
			filtered.Set(linkID, result)
			continue
		}
		result.CurrentItems = fhir.CloneItems(orig.CurrentItems)
		result.ServerItems = restoreRows(server, orig.CurrentItems, tombstoneURL)
		filtered.Set(linkID, result)
	}

	return filtered
}

// restoreRows fills unselected gaps in the sparse server rows from the
// original current rows and drops tombstoned rows.
func restoreRows(server []*fhir.QuestionnaireResponseItem, originalCurrent []fhir.QuestionnaireResponseItem, tombstoneURL string) []fhir.QuestionnaireResponseItem {
	n := max(len(server), len(originalCurrent))
	out := make([]fhir.QuestionnaireResponseItem, 0, n)
	for i := 0; i < n; i++ {
		var row *fhir.QuestionnaireResponseItem
		if i < len(server) {
			row = server[i]
		}
		if row == nil {
			row = fhir.CloneItem(rowAt(originalCurrent, i))
		}
		if row == nil {
			continue
		}
		if fhir.HasBoolExtension(row.Extension, tombstoneURL, true) {
			continue
		}
		out = append(out, *row)
	}
	return out
}

func compact(rows []*fhir.QuestionnaireResponseItem) []fhir.QuestionnaireResponseItem {
	var out []fhir.QuestionnaireResponseItem
	for _, r := range rows {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
