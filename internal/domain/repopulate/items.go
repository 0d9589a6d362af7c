package repopulate

import (
	"github.com/ehr/repopulate/internal/platform/fhir"
	"github.com/ehr/repopulate/pkg/fhirmodels"
)

// BuildItemsToRepopulate pairs every answerable unit of the questionnaire
// with its current and server answers and keeps the ones that differ.
//
// Units are leaf items, repeating groups (compared row by row) and
// non-repeating grids (compared as a whole). Units the server has no value
// for are skipped. Headings come from the top-level item text, or from the
// tab when the item sits inside a tab container.
func BuildItemsToRepopulate(q *fhir.Questionnaire, current, server *fhir.QuestionnaireResponse) *ItemMap {
	items := NewItemMap()
	if q == nil || server == nil || len(q.Item) == 0 || len(server.Item) == 0 {
		return items
	}
	var currentItems []fhir.QuestionnaireResponseItem
	if current != nil {
		currentItems = current.Item
	}

	b := &builder{items: items}
	for i := range q.Item {
		b.collect(q.Item[i:i+1], currentItems, server.Item, q.Item[i].Text, "", false)
	}
	return items
}

type builder struct {
	items *ItemMap
}

func (b *builder) collect(
	qItems []fhir.QuestionnaireItem,
	current, server []fhir.QuestionnaireResponseItem,
	heading, parentText string,
	inTabs bool,
) {
	for i := range qItems {
		qItem := &qItems[i]
		currentMatches := matching(current, qItem.LinkID)
		serverMatches := matching(server, qItem.LinkID)

		itemHeading := heading
		if inTabs {
			itemHeading = fhir.DisplayText(qItem)
		}

		switch {
		case qItem.Type == fhirmodels.ItemTypeDisplay:
			continue

		case qItem.IsRepeatGroup():
			if len(serverMatches) == 0 || fhir.ItemSlicesEqual(currentMatches, serverMatches) {
				continue
			}
			b.items.Set(qItem.LinkID, ItemToRepopulate{
				QItem:           qItem,
				SectionItemText: itemHeading,
				ParentItemText:  parentText,
				CurrentItems:    fhir.CloneItems(currentMatches),
				ServerItems:     fhir.CloneItems(serverMatches),
			})

		case qItem.IsGroup() && len(qItem.Item) > 0 && fhir.IsItemControl(qItem, fhirmodels.ItemControlGrid):
			b.pair(qItem, currentMatches, serverMatches, itemHeading, parentText, true)

		case qItem.IsGroup() && len(qItem.Item) > 0:
			b.collect(qItem.Item,
				children(currentMatches), children(serverMatches),
				itemHeading, qItem.Text, fhir.IsTabContainer(qItem))

		default:
			b.pair(qItem, currentMatches, serverMatches, itemHeading, parentText, false)
		}
	}
}

func (b *builder) pair(qItem *fhir.QuestionnaireItem, current, server []fhir.QuestionnaireResponseItem, heading, parentText string, inGrid bool) {
	if len(server) == 0 {
		return
	}
	var currentItem *fhir.QuestionnaireResponseItem
	if len(current) > 0 {
		currentItem = &current[0]
	}
	if fhir.ItemsEqual(currentItem, &server[0]) {
		return
	}
	b.items.Set(qItem.LinkID, ItemToRepopulate{
		QItem:           qItem,
		SectionItemText: heading,
		ParentItemText:  parentText,
		IsInGrid:        inGrid,
		CurrentItem:     fhir.CloneItem(currentItem),
		ServerItem:      fhir.CloneItem(&server[0]),
	})
}

func matching(items []fhir.QuestionnaireResponseItem, linkID string) []fhir.QuestionnaireResponseItem {
	var out []fhir.QuestionnaireResponseItem
	for _, it := range items {
		if it.LinkID == linkID {
			out = append(out, it)
		}
	}
	return out
}

// children flattens the child items of every occurrence of a group.
func children(groups []fhir.QuestionnaireResponseItem) []fhir.QuestionnaireResponseItem {
	var out []fhir.QuestionnaireResponseItem
	for _, g := range groups {
		out = append(out, g.Item...)
	}
	return out
}
