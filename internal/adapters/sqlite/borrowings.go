package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

const borrowingColumns = `id, chemical_id, user_id, quantity, purpose, status, requested_at, approved_by, borrowed_at, due_at, returned_at`

func scanBorrowing(row rowScanner) (*entities.Borrowing, error) {
	var b entities.Borrowing
	var status string
	var borrowed, due, returned sql.NullTime
	err := row.Scan(&b.ID, &b.ChemicalID, &b.UserID, &b.Quantity, &b.Purpose, &status,
		&b.RequestedAt, &b.ApprovedBy, &borrowed, &due, &returned)
	if err != nil {
		return nil, err
	}
	b.Status = entities.BorrowingStatus(status)
	b.BorrowedAt = timePtr(borrowed)
	b.DueAt = timePtr(due)
	b.ReturnedAt = timePtr(returned)
	return &b, nil
}

// CreateBorrowing inserts a borrowing.
func (s *Store) CreateBorrowing(ctx context.Context, b *entities.Borrowing) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO borrowings (`+borrowingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.ChemicalID, b.UserID, b.Quantity, b.Purpose, string(b.Status), b.RequestedAt,
		b.ApprovedBy, nullTime(b.BorrowedAt), nullTime(b.DueAt), nullTime(b.ReturnedAt))
	return translate("borrowing "+b.ID, err)
}

// GetBorrowing returns one borrowing.
func (s *Store) GetBorrowing(ctx context.Context, id string) (*entities.Borrowing, error) {
	b, err := scanBorrowing(s.db.QueryRowContext(ctx,
		`SELECT `+borrowingColumns+` FROM borrowings WHERE id = ?`, id))
	if err != nil {
		return nil, translate("borrowing "+id, err)
	}
	return b, nil
}

// TransitionBorrowing updates the lifecycle fields of b only while its stored
// status is still from, and moves stockDelta of its chemical in the same
// transaction.
func (s *Store) TransitionBorrowing(ctx context.Context, b *entities.Borrowing, from entities.BorrowingStatus, stockDelta float64) (*entities.Chemical, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE borrowings
		SET status = ?, approved_by = ?, borrowed_at = ?, due_at = ?, returned_at = ?
		WHERE id = ? AND status = ?
	`, string(b.Status), b.ApprovedBy, nullTime(b.BorrowedAt), nullTime(b.DueAt), nullTime(b.ReturnedAt),
		b.ID, string(from))
	if err != nil {
		return nil, translate("borrowing "+b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("borrowing %s: %w", b.ID, err)
	}
	if n == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM borrowings WHERE id = ?`, b.ID).Scan(&current)
		if err != nil {
			return nil, translate("borrowing "+b.ID, err)
		}
		return nil, fmt.Errorf("%w: borrowing %s is %s, not %s", entities.ErrInvalidTransition, b.ID, current, from)
	}

	c, err := scanChemical(tx.QueryRowContext(ctx,
		`SELECT `+chemicalColumns+` FROM chemicals WHERE id = ?`, b.ChemicalID))
	if err != nil {
		return nil, translate("chemical "+b.ChemicalID, err)
	}
	if stockDelta != 0 {
		if c.Quantity+stockDelta < 0 {
			return nil, fmt.Errorf("%w: %s has %.2f %s left", entities.ErrInsufficientStock, c.Name, c.Quantity, c.Unit)
		}
		c.Quantity += stockDelta
		if _, err := tx.ExecContext(ctx, `UPDATE chemicals SET quantity = ? WHERE id = ?`, c.Quantity, c.ID); err != nil {
			return nil, translate("chemical "+c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing borrowing %s: %w", b.ID, err)
	}
	return c, nil
}

// ListBorrowings returns borrowings matching filter in insertion order.
func (s *Store) ListBorrowings(ctx context.Context, filter entities.BorrowingFilter) ([]entities.Borrowing, error) {
	var where []string
	var args []any
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + borrowingColumns + ` FROM borrowings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying borrowings: %w", err)
	}
	defer rows.Close()

	var out []entities.Borrowing
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning borrowing: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
