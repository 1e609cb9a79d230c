// Package store is the persistence layer: forms and responses as rows with
// JSON columns for the nested definition, submit tokens as single-use rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/formloom/formloom/model"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: version conflict")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateForm inserts an empty draft owned by the given author and returns it.
func (s *Store) CreateForm(ctx context.Context, ownerID, title string) (model.Form, error) {
	form := model.Form{
		ID:        uuid.NewString(),
		Version:   1,
		OwnerID:   ownerID,
		Title:     title,
		Questions: []model.Question{},
		Settings:  model.FormSettings{ShowBranding: true},
		Status:    model.StatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	questions, settings, err := marshalForm(form)
	if err != nil {
		return model.Form{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form (id, version, owner_id, title, description, questions, settings, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		form.ID, form.Version, form.OwnerID, form.Title, form.Description,
		questions, settings, form.Status, form.CreatedAt, form.UpdatedAt,
	)
	if err != nil {
		return model.Form{}, err
	}
	return form, nil
}

func (s *Store) GetForm(ctx context.Context, id string) (form model.Form, err error) {
	var questions, settings string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, version, owner_id, title, description, questions, settings, status, created_at, updated_at
		FROM form
		WHERE id = ?`,
		id,
	).Scan(
		&form.ID, &form.Version, &form.OwnerID, &form.Title, &form.Description,
		&questions, &settings, &form.Status, &form.CreatedAt, &form.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Form{}, ErrNotFound
	}
	if err != nil {
		return model.Form{}, err
	}

	err = unmarshalForm(&form, questions, settings)
	return form, err
}

func (s *Store) ListForms(ctx context.Context, ownerID string) ([]model.Form, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, title, description, status, created_at, updated_at
		FROM form
		WHERE owner_id = ?
		ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f := model.Form{OwnerID: ownerID}
		err = rows.Scan(&f.ID, &f.Version, &f.Title, &f.Description, &f.Status, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

// SaveForm writes the full definition back, bumping the version with an
// optimistic lock: a stale in-memory version loses with ErrConflict. The new
// version is returned so the caller can keep saving without re-reading.
func (s *Store) SaveForm(ctx context.Context, form model.Form) (int, error) {
	questions, settings, err := marshalForm(form)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE form
		SET
			version = version+1,
			title = ?,
			description = ?,
			questions = ?,
			settings = ?,
			status = ?,
			updated_at = ?
		WHERE	id = ?
			AND version = ?`,
		form.Title, form.Description, questions, settings, form.Status, time.Now(),
		form.ID, form.Version,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n < 1 {
		// distinguish a missing row from a lost race
		var exists int
		err = s.db.QueryRowContext(ctx, `SELECT 1 FROM form WHERE id = ?`, form.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		return 0, ErrConflict
	}
	return form.Version + 1, nil
}

func (s *Store) DeleteForm(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM form_response WHERE form_id = ?`, id)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM submit_token WHERE form_id = ?`, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM form WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return ErrNotFound
	}

	return tx.Commit()
}

func (s *Store) InsertResponse(ctx context.Context, resp model.Response) (string, error) {
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_response (id, form_id, answers, completed, flagged, referrer, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, resp.FormID, string(answers), resp.Completed, resp.Flagged, resp.Referrer, resp.SubmittedAt,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListResponses(ctx context.Context, formID string) ([]model.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, answers, completed, flagged, referrer, submitted_at
		FROM form_response
		WHERE form_id = ?
		ORDER BY submitted_at`,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		r := model.Response{}
		var answers string
		err = rows.Scan(&r.ID, &r.FormID, &answers, &r.Completed, &r.Flagged, &r.Referrer, &r.SubmittedAt)
		if err != nil {
			return nil, err
		}
		err = json.Unmarshal([]byte(answers), &r.Answers)
		if err != nil {
			return nil, err
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// CountResponses counts accepted responses for cap enforcement. Honeypot
// flagged rows are kept for inspection but do not count against the cap.
func (s *Store) CountResponses(ctx context.Context, formID string) (count int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM form_response
		WHERE form_id = ?
			AND NOT flagged`,
		formID,
	).Scan(&count)
	return count, err
}

func (s *Store) InsertSubmitToken(ctx context.Context, id, formID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submit_token (id, form_id, expiration) VALUES (?, ?, ?)`,
		id, formID, expiresAt,
	)
	return err
}

// ConsumeSubmitToken deletes the token row and returns its expiration; a
// second consume of the same id fails with ErrNotFound.
func (s *Store) ConsumeSubmitToken(ctx context.Context, id, formID string) (expiration time.Time, err error) {
	err = s.db.QueryRowContext(ctx, `
		DELETE FROM submit_token
		WHERE id = ?
			AND form_id = ?
		RETURNING expiration`,
		id, formID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	return expiration, err
}

func marshalForm(form model.Form) (questions, settings string, err error) {
	q, err := json.Marshal(form.Questions)
	if err != nil {
		return "", "", err
	}
	s, err := json.Marshal(form.Settings)
	if err != nil {
		return "", "", err
	}
	return string(q), string(s), nil
}

func unmarshalForm(form *model.Form, questions, settings string) error {
	err := json.Unmarshal([]byte(questions), &form.Questions)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(settings), &form.Settings)
}
