package repopulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/repopulate/internal/platform/fhir"
	"github.com/ehr/repopulate/internal/platform/websocket"
)

var (
	ErrNothingSelected = errors.New("no items selected for repopulation")
	ErrSessionClosed   = errors.New("repopulate session is already committed")
)

// EventBusy is published on the session topic around a commit.
const EventBusy = "repopulate.busy"

// ServiceConfig tunes session behaviour.
type ServiceConfig struct {
	SessionTTL   time.Duration
	TombstoneURL string
	Formatter    fhir.AnswerFormatter
}

type Service struct {
	sessions  SessionRepository
	tx        Transactor
	publisher websocket.EventPublisher
	formatter fhir.AnswerFormatter
	ttl       time.Duration
	tombstone string
	logger    zerolog.Logger
	now       func() time.Time

	// serializes mutations per session for the in-memory store
	locks sync.Map
}

func NewService(sessions SessionRepository, logger zerolog.Logger, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.TombstoneURL == "" {
		cfg.TombstoneURL = DefaultTombstoneURL
	}
	if cfg.Formatter == nil {
		cfg.Formatter = fhir.NewDefaultFormatter(time.UTC)
	}
	return &Service{
		sessions:  sessions,
		tx:        noTx{},
		formatter: cfg.Formatter,
		ttl:       cfg.SessionTTL,
		tombstone: cfg.TombstoneURL,
		logger:    logger,
		now:       time.Now,
	}
}

// SetTransactor makes mutations run inside a database transaction.
func (s *Service) SetTransactor(tx Transactor) {
	s.tx = tx
}

// SetPublisher attaches the publisher used for busy-state events.
func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

// SessionTopic is the websocket topic for one session.
func SessionTopic(id uuid.UUID) string {
	return "RepopulateSession/" + id.String()
}

// =========== Sessions ===========

type CreateSessionInput struct {
	Questionnaire *fhir.Questionnaire
	Current       *fhir.QuestionnaireResponse
	Server        *fhir.QuestionnaireResponse
	CreatedBy     string
}

func (s *Service) Create(ctx context.Context, in CreateSessionInput) (*Session, *Reconciliation, error) {
	if in.Questionnaire == nil {
		return nil, nil, fmt.Errorf("questionnaire is required")
	}
	if in.Server == nil {
		return nil, nil, fmt.Errorf("serverResponse is required")
	}
	current := in.Current
	if current == nil {
		current = &fhir.QuestionnaireResponse{ResourceType: "QuestionnaireResponse"}
	}

	now := s.now().UTC()
	sess := &Session{
		ID:            uuid.New(),
		Status:        SessionOpen,
		CreatedBy:     in.CreatedBy,
		Questionnaire: in.Questionnaire,
		Current:       current,
		Server:        in.Server,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	rec := sess.Reconcile()
	sess.SelectedKeys = rec.Selection.Selected().Sorted()

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info().
		Str("session_id", sess.ID.String()).
		Int("items", rec.Items.Len()).
		Int("selectable", len(sess.SelectedKeys)).
		Msg("repopulate session created")
	return sess, rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, *Reconciliation, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return sess, sess.Reconcile(), nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]SessionSummary, int, error) {
	sessions, total, err := s.sessions.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Summary(sess.Reconcile()))
	}
	return out, total, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.locks.Delete(id)
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// =========== Changes ===========

// ChangesView is everything a client needs to render the selection dialog.
type ChangesView struct {
	SessionID uuid.UUID     `json:"sessionId"`
	Status    string        `json:"status"`
	Headings  []HeadingView `json:"headings"`
}

type HeadingView struct {
	Index   int        `json:"index"`
	Heading string     `json:"heading"`
	Items   []ItemView `json:"items"`
}

type ItemView struct {
	Index        int             `json:"index"`
	LinkID       string          `json:"linkId"`
	Text         string          `json:"text,omitempty"`
	ParentText   string          `json:"parentText,omitempty"`
	Repeating    bool            `json:"repeating"`
	Mode         ValueChangeMode `json:"mode"`
	State        SelectionState  `json:"state"`
	Changes      []ChangeEntry   `json:"changes,omitempty"`
	Rows         []RowView       `json:"rows,omitempty"`
	SelectedRows int             `json:"selectedRows,omitempty"`
	ValidRows    int             `json:"validRows,omitempty"`
}

type RowView struct {
	RowChanges
	State SelectionState `json:"state"`
}

func (s *Service) Changes(ctx context.Context, id uuid.UUID) (*ChangesView, error) {
	sess, rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.changesView(sess, rec), nil
}

func (s *Service) changesView(sess *Session, rec *Reconciliation) *ChangesView {
	view := &ChangesView{SessionID: sess.ID, Status: sess.Status, Headings: []HeadingView{}}
	selected := rec.Selection.Selected()
	valid := rec.Selection.Valid()

	for h, heading := range rec.Headings {
		hv := HeadingView{Index: h, Heading: heading.Text}
		for p, entry := range heading.Items {
			item := entry.Item
			changes := item.Changes(s.formatter)
			iv := ItemView{
				Index:      p,
				LinkID:     entry.LinkID,
				ParentText: item.ParentItemText,
				Repeating:  item.IsRepeating(),
				Mode:       ValueChangeModeOf(changes),
				State:      rec.Selection.State(h, p),
			}
			if item.QItem != nil {
				iv.Text = item.QItem.Text
			}
			if iv.Repeating {
				for _, row := range GroupChangesByRow(changes) {
					iv.Rows = append(iv.Rows, RowView{
						RowChanges: row,
						State:      rec.Selection.RowState(h, p, row.RowIndex),
					})
				}
				iv.SelectedRows, iv.ValidRows = ChildEntryCounts(h, p, selected, valid)
			} else {
				iv.Changes = changes
			}
			hv.Items = append(hv.Items, iv)
		}
		view.Headings = append(view.Headings, hv)
	}
	return view
}

// =========== Selection ===========

// SelectionView reports the selection after a mutation. Changed is false
// when the addressed key was not selectable.
type SelectionView struct {
	Changed  bool     `json:"changed"`
	Selected []string `json:"selected"`
	Valid    []string `json:"valid"`
}

// Toggle flips an item, or one of its rows when child is set.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID, heading, parent int, child *int) (*SelectionView, error) {
	return s.mutate(ctx, id, func(sel *Selection) bool {
		if child != nil {
			return sel.ToggleRow(heading, parent, *child)
		}
		return sel.Toggle(heading, parent)
	})
}

func (s *Service) SelectAll(ctx context.Context, id uuid.UUID) (*SelectionView, error) {
	return s.mutate(ctx, id, func(sel *Selection) bool {
		sel.SelectAll()
		return true
	})
}

func (s *Service) UnselectAll(ctx context.Context, id uuid.UUID) (*SelectionView, error) {
	return s.mutate(ctx, id, func(sel *Selection) bool {
		sel.UnselectAll()
		return true
	})
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*Selection) bool) (*SelectionView, error) {
	unlock := s.lock(id)
	defer unlock()

	var view *SelectionView
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sess, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if sess.Status != SessionOpen {
			return ErrSessionClosed
		}
		rec := sess.Reconcile()
		changed := fn(rec.Selection)
		view = &SelectionView{
			Changed:  changed,
			Selected: rec.Selection.Selected().Sorted(),
			Valid:    rec.Selection.Valid().Sorted(),
		}
		if !changed {
			return nil
		}
		sess.SelectedKeys = view.Selected
		sess.UpdatedAt = s.now().UTC()
		return s.sessions.Update(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// =========== Commit ===========

// Commit filters the session's items by the current selection and merges
// them into the current response. An empty selection returns
// ErrNothingSelected without merging. Busy events bracket the merge.
func (s *Service) Commit(ctx context.Context, id uuid.UUID) (*fhir.QuestionnaireResponse, error) {
	unlock := s.lock(id)
	defer unlock()

	var merged *fhir.QuestionnaireResponse
	busy := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sess, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if sess.Status != SessionOpen {
			return ErrSessionClosed
		}
		rec := sess.Reconcile()
		if rec.Selection.Empty() {
			s.logger.Info().Str("session_id", id.String()).Msg("repopulate commit with nothing selected")
			return ErrNothingSelected
		}

		s.publishBusy(ctx, id, true)
		busy = true

		filtered := FilterItems(rec.Headings, rec.Selection.Selected(), rec.Items, s.tombstone)
		merged = RepopulateResponse(sess.Questionnaire, sess.Current, filtered)

		now := s.now().UTC()
		sess.Result = merged
		sess.Status = SessionCommitted
		sess.UpdatedAt = now
		sess.CommittedAt = &now
		if err := s.sessions.Update(ctx, sess); err != nil {
			return fmt.Errorf("store result: %w", err)
		}

		s.logger.Info().
			Str("session_id", id.String()).
			Int("selected", len(sess.SelectedKeys)).
			Int("items", filtered.Len()).
			Msg("repopulate session committed")
		return nil
	})
	if busy {
		s.publishBusy(context.WithoutCancel(ctx), id, false)
	}
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *Service) publishBusy(ctx context.Context, id uuid.UUID, busy bool) {
	if s.publisher == nil {
		return
	}
	data, _ := json.Marshal(map[string]bool{"busy": busy})
	err := s.publisher.Publish(ctx, websocket.Event{
		Type:         EventBusy,
		Topic:        SessionTopic(id),
		ResourceType: "RepopulateSession",
		ResourceID:   id.String(),
		Timestamp:    s.now().UTC(),
		Data:         data,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", id.String()).Bool("busy", busy).Msg("publish busy event failed")
	}
}

func (s *Service) lock(id uuid.UUID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
