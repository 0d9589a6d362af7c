package fhir

// ItemsEqual reports whether two response items are structurally identical:
// same linkId and text, same extensions, same answers and same children, all
// compared in order, plus any unmodeled members such as definition. Two nil items are equal; nil and non-nil are not. An
// empty slice equals a nil slice since both serialize to nothing.
//
// This is strict structural equality, distinct from comparing formatted
// display strings.
func ItemsEqual(a, b *QuestionnaireResponseItem) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.LinkID != b.LinkID || a.Text != b.Text || !a.Extras.Equal(b.Extras) {
		return false
	}
	if !extensionsEqual(a.Extension, b.Extension) {
		return false
	}
	if len(a.Answer) != len(b.Answer) {
		return false
	}
	for i := range a.Answer {
		if !AnswersEqual(&a.Answer[i], &b.Answer[i]) {
			return false
		}
	}
	return ItemSlicesEqual(a.Item, b.Item)
}

// ItemSlicesEqual compares two sibling lists element by element.
func ItemSlicesEqual(a, b []QuestionnaireResponseItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ItemsEqual(&a[i], &b[i]) {
			return false
		}
	}
	return true
}

// AnswersEqual compares every value[x] and nested items of two answers.
func AnswersEqual(a, b *QuestionnaireResponseAnswer) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ptrEqual(a.ValueBoolean, b.ValueBoolean) &&
		ptrEqual(a.ValueDecimal, b.ValueDecimal) &&
		ptrEqual(a.ValueInteger, b.ValueInteger) &&
		ptrEqual(a.ValueDate, b.ValueDate) &&
		ptrEqual(a.ValueDateTime, b.ValueDateTime) &&
		ptrEqual(a.ValueTime, b.ValueTime) &&
		ptrEqual(a.ValueString, b.ValueString) &&
		ptrEqual(a.ValueURI, b.ValueURI) &&
		codingsEqual(a.ValueCoding, b.ValueCoding) &&
		referencesEqual(a.ValueReference, b.ValueReference) &&
		attachmentsEqual(a.ValueAttachment, b.ValueAttachment) &&
		quantitiesEqual(a.ValueQuantity, b.ValueQuantity) &&
		ItemSlicesEqual(a.Item, b.Item) &&
		a.Extras.Equal(b.Extras)
}

func extensionsEqual(a, b []Extension) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.URL != y.URL ||
			!ptrEqual(x.ValueString, y.ValueString) ||
			!ptrEqual(x.ValueCode, y.ValueCode) ||
			!ptrEqual(x.ValueBoolean, y.ValueBoolean) ||
			!ptrEqual(x.ValueInteger, y.ValueInteger) ||
			!codingsEqual(x.ValueCoding, y.ValueCoding) ||
			!x.Extras.Equal(y.Extras) {
			return false
		}
		if !codeableConceptsEqual(x.ValueCodeableConcept, y.ValueCodeableConcept) {
			return false
		}
	}
	return true
}

func codeableConceptsEqual(a, b *CodeableConcept) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Text != b.Text || len(a.Coding) != len(b.Coding) {
		return false
	}
	for i := range a.Coding {
		if !codingsEqual(&a.Coding[i], &b.Coding[i]) {
			return false
		}
	}
	return true
}

func codingsEqual(a, b *Coding) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.System == b.System && a.Version == b.Version &&
		a.Code == b.Code && a.Display == b.Display && a.Extras.Equal(b.Extras)
}

func referencesEqual(a, b *Reference) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Reference == b.Reference && a.Type == b.Type &&
		a.Display == b.Display && a.Extras.Equal(b.Extras)
}

func attachmentsEqual(a, b *Attachment) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ContentType == b.ContentType && a.URL == b.URL &&
		a.Title == b.Title && ptrEqual(a.Size, b.Size) && a.Extras.Equal(b.Extras)
}

func quantitiesEqual(a, b *Quantity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ptrEqual(a.Value, b.Value) && a.Unit == b.Unit &&
		a.System == b.System && a.Code == b.Code && a.Extras.Equal(b.Extras)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
