package repopulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/repopulate/internal/platform/db"
	"github.com/ehr/repopulate/internal/platform/fhir"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

func (r *sessionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const sessionCols = `id, status, created_by, questionnaire, current_response, server_response,
	selected_keys, result, created_at, updated_at, expires_at, committed_at`

func (r *sessionRepoPG) scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var createdBy *string
	var q, current, server, result []byte
	err := row.Scan(&s.ID, &s.Status, &createdBy, &q, &current, &server,
		&s.SelectedKeys, &result, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt, &s.CommittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if createdBy != nil {
		s.CreatedBy = *createdBy
	}
	if s.SelectedKeys == nil {
		s.SelectedKeys = []string{}
	}

	s.Questionnaire = &fhir.Questionnaire{}
	if err := json.Unmarshal(q, s.Questionnaire); err != nil {
		return nil, fmt.Errorf("decode questionnaire: %w", err)
	}
	s.Current = &fhir.QuestionnaireResponse{}
	if err := json.Unmarshal(current, s.Current); err != nil {
		return nil, fmt.Errorf("decode current response: %w", err)
	}
	s.Server = &fhir.QuestionnaireResponse{}
	if err := json.Unmarshal(server, s.Server); err != nil {
		return nil, fmt.Errorf("decode server response: %w", err)
	}
	if result != nil {
		s.Result = &fhir.QuestionnaireResponse{}
		if err := json.Unmarshal(result, s.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &s, nil
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	q, err := json.Marshal(s.Questionnaire)
	if err != nil {
		return fmt.Errorf("encode questionnaire: %w", err)
	}
	current, err := json.Marshal(s.Current)
	if err != nil {
		return fmt.Errorf("encode current response: %w", err)
	}
	server, err := json.Marshal(s.Server)
	if err != nil {
		return fmt.Errorf("encode server response: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO repopulate_sessions (id, status, created_by, questionnaire, current_response,
			server_response, selected_keys, created_at, updated_at, expires_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.Status, s.CreatedBy, q, current, server,
		s.SelectedKeys, s.CreatedAt, s.UpdatedAt, s.ExpiresAt)
	return err
}

// GetByID locks the row when called inside a transaction so concurrent
// toggles on one session apply in order.
func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT ` + sessionCols + ` FROM repopulate_sessions WHERE id = $1`
	if db.TxFromContext(ctx) != nil {
		query += ` FOR UPDATE`
	}
	return r.scanSession(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *sessionRepoPG) Update(ctx context.Context, s *Session) error {
	var result []byte
	if s.Result != nil {
		var err error
		if result, err = json.Marshal(s.Result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE repopulate_sessions SET status=$2, selected_keys=$3, result=$4,
			updated_at=$5, committed_at=$6
		WHERE id = $1`,
		s.ID, s.Status, s.SelectedKeys, result, s.UpdatedAt, s.CommittedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM repopulate_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepoPG) List(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM repopulate_sessions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+sessionCols+` FROM repopulate_sessions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
