package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
)

// RosterRepository keeps the tracked handles in the tracked_students table.
type RosterRepository struct {
	conn *Connection
}

// NewRosterRepository creates a roster backed by conn.
func NewRosterRepository(conn *Connection) *RosterRepository {
	return &RosterRepository{conn: conn}
}

var _ student.Directory = (*RosterRepository)(nil)

// Handles returns the tracked handles in insertion order.
func (r *RosterRepository) Handles(ctx context.Context) ([]student.Handle, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT handle
		FROM tracked_students
		ORDER BY position, id
	`)
	if err != nil {
		return nil, shared.WrapError("student", "Handles", shared.ErrExternalService, "failed to query roster", err)
	}

	raw, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, shared.WrapError("student", "Handles", shared.ErrExternalService, "failed to scan roster", err)
	}

	return student.NormalizeHandles(raw), nil
}

// Add appends a handle to the end of the roster.
func (r *RosterRepository) Add(ctx context.Context, handle student.Handle) error {
	if err := handle.Validate(); err != nil {
		return err
	}

	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO tracked_students (handle, position)
		SELECT $1, COALESCE(MAX(position), 0) + 1
		FROM tracked_students
	`, handle.String())
	if IsUniqueViolation(err) {
		return shared.ErrHandleExists
	}
	if err != nil {
		return fmt.Errorf("postgres: add %s: %w", handle, err)
	}
	return nil
}

// Remove deletes a handle, matching case-insensitively.
func (r *RosterRepository) Remove(ctx context.Context, handle student.Handle) error {
	tag, err := r.conn.Pool().Exec(ctx, `
		DELETE FROM tracked_students
		WHERE LOWER(handle) = LOWER($1)
	`, handle.String())
	if err != nil {
		return fmt.Errorf("postgres: remove %s: %w", handle, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrHandleNotFound
	}
	return nil
}

// Import appends every handle not tracked yet, in order, in one
// transaction. It returns how many were added.
func (r *RosterRepository) Import(ctx context.Context, handles []student.Handle) (int, error) {
	added := 0
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, h := range handles {
			if err := h.Validate(); err != nil {
				return fmt.Errorf("%s: %w", h, err)
			}
			tag, err := tx.Exec(ctx, `
				INSERT INTO tracked_students (handle, position)
				SELECT $1, COALESCE(MAX(position), 0) + 1
				FROM tracked_students
				ON CONFLICT ((LOWER(handle))) DO NOTHING
			`, h.String())
			if err != nil {
				return fmt.Errorf("postgres: import %s: %w", h, err)
			}
			added += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
