package repopulate

import (
	"fmt"
	"sort"

	"github.com/ehr/repopulate/internal/platform/fhir"
	"github.com/ehr/repopulate/pkg/fhirmodels"
)

// DetectParams is the input to DetectChanges. Rows are only used when Item is
// a repeating group.
type DetectParams struct {
	Item        *fhir.QuestionnaireItem
	Current     *fhir.QuestionnaireResponseItem
	Server      *fhir.QuestionnaireResponseItem
	CurrentRows []fhir.QuestionnaireResponseItem
	ServerRows  []fhir.QuestionnaireResponseItem
}

// Changes runs DetectChanges over this item.
func (it *ItemToRepopulate) Changes(f fhir.AnswerFormatter) []ChangeEntry {
	return DetectChanges(DetectParams{
		Item:        it.QItem,
		Current:     it.CurrentItem,
		Server:      it.ServerItem,
		CurrentRows: it.CurrentItems,
		ServerRows:  it.ServerItems,
	}, f)
}

// DetectChanges walks the item definition alongside the current and server
// response nodes and returns one entry per field whose formatted first answer
// differs. Missing nodes count as absent values, never as errors.
func DetectChanges(p DetectParams, f fhir.AnswerFormatter) []ChangeEntry {
	if p.Item == nil {
		return nil
	}
	d := &detector{root: p.Item, format: f}

	if p.Item.IsRepeatGroup() {
		// A repeat group supplied without row arrays is a contract violation
		// upstream and yields zero rows.
		d.detectRows(p.CurrentRows, p.ServerRows)
		return d.changes
	}

	d.walk(p.Item, p.Item, p.Current, p.Server, nil, "")
	return d.changes
}

type detector struct {
	root    *fhir.QuestionnaireItem
	format  fhir.AnswerFormatter
	changes []ChangeEntry
}

func (d *detector) detectRows(current, server []fhir.QuestionnaireResponseItem) {
	rows := max(len(current), len(server))
	for i := 0; i < rows; i++ {
		currentRow := rowAt(current, i)
		serverRow := rowAt(server, i)
		currentCells := cellIndex(currentRow)
		serverCells := cellIndex(serverRow)

		label := d.rowLabel(i, currentCells, serverCells)
		rowIndex := i

		for c := range d.root.Item {
			column := &d.root.Item[c]
			d.walk(column, column, currentCells[column.LinkID], serverCells[column.LinkID], &rowIndex, label)
		}
	}
}

// rowLabel names a row after its first column, e.g. "Condition: Asthma".
// The current row is consulted first, then the server row.
func (d *detector) rowLabel(i int, current, server map[string]*fhir.QuestionnaireResponseItem) string {
	label := fmt.Sprintf("Row %d", i+1)
	if len(d.root.Item) == 0 {
		return label
	}
	first := &d.root.Item[0]
	answer := fhir.FirstAnswer(current[first.LinkID])
	if answer == nil {
		answer = fhir.FirstAnswer(server[first.LinkID])
	}
	if answer == nil {
		return label
	}
	name := first.Text
	if name == "" {
		name = first.LinkID
	}
	return name + ": " + d.format.Format(answer)
}

func (d *detector) walk(
	node, fieldGroup *fhir.QuestionnaireItem,
	current, server *fhir.QuestionnaireResponseItem,
	rowIndex *int, rowLabel string,
) {
	if !node.IsGroup() || node.IsChoiceGroup() {
		currentValue := d.display(current)
		serverValue := d.display(server)
		if !sameDisplay(currentValue, serverValue) {
			entry := ChangeEntry{
				FieldGroup:   fieldGroup,
				SubItem:      node,
				CurrentValue: currentValue,
				ServerValue:  serverValue,
			}
			if rowIndex != nil {
				idx := *rowIndex
				entry.RowIndex = &idx
				entry.RowLabel = rowLabel
			}
			d.changes = append(d.changes, entry)
		}
	}

	if len(node.Item) == 0 {
		return
	}

	next := fieldGroup
	if node.IsGroup() && !node.Repeats &&
		!fhir.IsItemControl(node, fhirmodels.ItemControlGrid) &&
		node.LinkID != d.root.LinkID {
		next = node
	}

	currentChildren := cellIndex(current)
	serverChildren := cellIndex(server)
	for i := range node.Item {
		child := &node.Item[i]
		d.walk(child, next, currentChildren[child.LinkID], serverChildren[child.LinkID], rowIndex, rowLabel)
	}
}

func (d *detector) display(item *fhir.QuestionnaireResponseItem) *string {
	answer := fhir.FirstAnswer(item)
	if answer == nil {
		return nil
	}
	s := d.format.Format(answer)
	return &s
}

func sameDisplay(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func rowAt(rows []fhir.QuestionnaireResponseItem, i int) *fhir.QuestionnaireResponseItem {
	if i < len(rows) {
		return &rows[i]
	}
	return nil
}

func cellIndex(item *fhir.QuestionnaireResponseItem) map[string]*fhir.QuestionnaireResponseItem {
	if item == nil {
		return nil
	}
	return fhir.IndexByLinkID(item.Item)
}

// GroupChangesByRow groups row-scoped changes by row index in ascending
// order. Changes outside a repeating item are left out.
func GroupChangesByRow(changes []ChangeEntry) []RowChanges {
	byRow := make(map[int]*RowChanges)
	for _, c := range changes {
		if c.RowIndex == nil {
			continue
		}
		idx := *c.RowIndex
		row, ok := byRow[idx]
		if !ok {
			label := c.RowLabel
			if label == "" {
				label = fmt.Sprintf("Row %d", idx+1)
			}
			row = &RowChanges{RowIndex: idx, RowLabel: label}
			byRow[idx] = row
		}
		row.Items = append(row.Items, c)
	}

	out := make([]RowChanges, 0, len(byRow))
	for _, row := range byRow {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowIndex < out[j].RowIndex })
	return out
}
