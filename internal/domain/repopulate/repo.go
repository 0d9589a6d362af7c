package repopulate

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("repopulate session not found")

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Session, int, error)
}

// Transactor scopes a unit of work. The in-memory store runs fn directly.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// =========== In-memory Session Repository ===========

type memorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemorySessionRepo stores sessions in process memory. Stored values are
// copied on the way in and out.
func NewMemorySessionRepo() SessionRepository {
	return &memorySessionRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (r *memorySessionRepo) Create(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = copySession(s)
	return nil
}

func (r *memorySessionRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(s), nil
}

func (r *memorySessionRepo) Update(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	r.sessions[s.ID] = copySession(s)
	return nil
}

func (r *memorySessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepo) List(_ context.Context, limit, offset int) ([]*Session, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []*Session{}, total, nil
	}
	end := min(offset+limit, total)
	out := make([]*Session, 0, end-offset)
	for _, s := range all[offset:end] {
		out = append(out, copySession(s))
	}
	return out, total, nil
}

// copySession copies the mutable top-level fields. The FHIR documents are
// never mutated after creation so they are shared.
func copySession(s *Session) *Session {
	c := *s
	if s.SelectedKeys != nil {
		c.SelectedKeys = append([]string{}, s.SelectedKeys...)
	}
	return &c
}
