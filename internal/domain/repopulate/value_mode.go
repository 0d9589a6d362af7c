package repopulate

// ValueChangeMode summarizes how an item's values move.
type ValueChangeMode string

const (
	ModeNew     ValueChangeMode = "new"
	ModeUpdated ValueChangeMode = "updated"
	ModeRemoved ValueChangeMode = "removed"
)

// ValueChangeModeOf classifies a set of changes: only server values present
// is new, only current values present is removed, anything else is updated.
func ValueChangeModeOf(changes []ChangeEntry) ValueChangeMode {
	hasCurrent, hasServer := false, false
	for _, c := range changes {
		if c.CurrentValue != nil && *c.CurrentValue != "" {
			hasCurrent = true
		}
		if c.ServerValue != nil && *c.ServerValue != "" {
			hasServer = true
		}
	}
	switch {
	case hasServer && !hasCurrent:
		return ModeNew
	case hasCurrent && !hasServer:
		return ModeRemoved
	default:
		return ModeUpdated
	}
}
