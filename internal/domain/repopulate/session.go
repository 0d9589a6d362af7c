package repopulate

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/repopulate/internal/platform/fhir"
)

const (
	SessionOpen      = "open"
	SessionCommitted = "committed"
)

// Session is one reconciliation of a current response against a freshly
// populated server response. Only the inputs and the selected keys are
// stored; items, headings and valid keys are derived from them.
type Session struct {
	ID            uuid.UUID                   `json:"id"`
	Status        string                      `json:"status"`
	CreatedBy     string                      `json:"createdBy,omitempty"`
	Questionnaire *fhir.Questionnaire         `json:"questionnaire"`
	Current       *fhir.QuestionnaireResponse `json:"currentResponse"`
	Server        *fhir.QuestionnaireResponse `json:"serverResponse"`
	SelectedKeys  []string                    `json:"selectedKeys"`
	Result        *fhir.QuestionnaireResponse `json:"result,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
	ExpiresAt     time.Time                   `json:"expiresAt"`
	CommittedAt   *time.Time                  `json:"committedAt,omitempty"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Reconciliation is the derived view of a session's inputs.
type Reconciliation struct {
	Items     *ItemMap
	Headings  []Heading
	Selection *Selection
}

// Reconcile derives items, headings and selection for the session. A nil
// SelectedKeys means every valid key is selected.
func (s *Session) Reconcile() *Reconciliation {
	items := BuildItemsToRepopulate(s.Questionnaire, s.Current, s.Server)
	headings := GroupByHeading(items)
	valid := ValidKeys(headings)

	sel := NewSelection(valid)
	if s.SelectedKeys != nil {
		sel = RestoreSelection(valid, s.SelectedKeys)
	}
	return &Reconciliation{Items: items, Headings: headings, Selection: sel}
}

// SessionSummary is the list view of a session.
type SessionSummary struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	Items       int        `json:"items"`
	Selectable  int        `json:"selectable"`
	Selected    int        `json:"selected"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CommittedAt *time.Time `json:"committedAt,omitempty"`
}

func (s *Session) Summary(r *Reconciliation) SessionSummary {
	return SessionSummary{
		ID:          s.ID,
		Status:      s.Status,
		CreatedBy:   s.CreatedBy,
		Items:       r.Items.Len(),
		Selectable:  len(r.Selection.Valid()),
		Selected:    len(r.Selection.Selected()),
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
		CommittedAt: s.CommittedAt,
	}
}
