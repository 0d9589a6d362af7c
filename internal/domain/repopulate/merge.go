package repopulate

import (
	"github.com/ehr/repopulate/internal/platform/fhir"
)

// RepopulateResponse merges filtered items into a copy of current. Items are
// laid out in questionnaire order: an item present in filtered takes its
// server side (every row for repeating items), groups are rebuilt around
// their children, and everything else is copied unchanged. Response items
// with no matching definition are kept at the end of their level.
func RepopulateResponse(q *fhir.Questionnaire, current *fhir.QuestionnaireResponse, filtered *ItemMap) *fhir.QuestionnaireResponse {
	out := fhir.CloneResponse(current)
	if out == nil {
		out = &fhir.QuestionnaireResponse{ResourceType: "QuestionnaireResponse"}
	}
	if q == nil || filtered.Len() == 0 {
		return out
	}
	out.Item = mergeItems(q.Item, out.Item, filtered)
	return out
}

func mergeItems(qItems []fhir.QuestionnaireItem, qrItems []fhir.QuestionnaireResponseItem, filtered *ItemMap) []fhir.QuestionnaireResponseItem {
	known := make(map[string]bool, len(qItems))
	var out []fhir.QuestionnaireResponseItem

	for i := range qItems {
		qItem := &qItems[i]
		known[qItem.LinkID] = true
		matches := matching(qrItems, qItem.LinkID)

		if entry, ok := filtered.Get(qItem.LinkID); ok {
			out = append(out, replacement(&entry)...)
			continue
		}

		if !qItem.IsGroup() || len(qItem.Item) == 0 {
			out = append(out, matches...)
			continue
		}

		if len(matches) == 0 {
			kids := mergeItems(qItem.Item, nil, filtered)
			if len(kids) > 0 {
				out = append(out, fhir.QuestionnaireResponseItem{LinkID: qItem.LinkID, Text: qItem.Text, Item: kids})
			}
			continue
		}
		for _, m := range matches {
			m.Item = mergeItems(qItem.Item, m.Item, filtered)
			out = append(out, m)
		}
	}

	for _, it := range qrItems {
		if !known[it.LinkID] {
			out = append(out, it)
		}
	}
	return out
}

func replacement(entry *ItemToRepopulate) []fhir.QuestionnaireResponseItem {
	if entry.IsRepeating() {
		return fhir.CloneItems(entry.ServerItems)
	}
	if entry.ServerItem == nil {
		return nil
	}
	return []fhir.QuestionnaireResponseItem{*fhir.CloneItem(entry.ServerItem)}
}
