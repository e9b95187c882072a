package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

const chemicalColumns = `id, name, formula, cas_number, quantity, unit, location, hazard, expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChemical(row rowScanner) (*entities.Chemical, error) {
	var c entities.Chemical
	var expires sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Formula, &c.CASNumber, &c.Quantity, &c.Unit,
		&c.Location, &c.Hazard, &expires, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ExpiresAt = timePtr(expires)
	return &c, nil
}

// ListAll returns id and name of every chemical in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]entities.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM chemicals ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entities.CatalogEntry
	for rows.Next() {
		var e entities.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create inserts a chemical.
func (s *Store) Create(ctx context.Context, c *entities.Chemical) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chemicals (`+chemicalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Formula, c.CASNumber, c.Quantity, c.Unit, c.Location, c.Hazard,
		nullTime(c.ExpiresAt), c.CreatedAt, c.UpdatedAt)
	return translate("chemical "+c.ID, err)
}

// Get returns one chemical.
func (s *Store) Get(ctx context.Context, id string) (*entities.Chemical, error) {
	c, err := scanChemical(s.db.QueryRowContext(ctx,
		`SELECT `+chemicalColumns+` FROM chemicals WHERE id = ?`, id))
	if err != nil {
		return nil, translate("chemical "+id, err)
	}
	return c, nil
}

// Update replaces the fields of a chemical.
func (s *Store) Update(ctx context.Context, c *entities.Chemical) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chemicals
		SET name = ?, formula = ?, cas_number = ?, quantity = ?, unit = ?, location = ?,
		    hazard = ?, expires_at = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Formula, c.CASNumber, c.Quantity, c.Unit, c.Location, c.Hazard,
		nullTime(c.ExpiresAt), c.UpdatedAt, c.ID)
	if err != nil {
		return translate("chemical "+c.ID, err)
	}
	return requireAffected(res, "chemical "+c.ID)
}

// Delete removes a chemical.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chemicals WHERE id = ?`, id)
	if err != nil {
		return translate("chemical "+id, err)
	}
	return requireAffected(res, "chemical "+id)
}

// List returns every chemical in insertion order.
func (s *Store) List(ctx context.Context) ([]entities.Chemical, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chemicalColumns+` FROM chemicals ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying chemicals: %w", err)
	}
	defer rows.Close()

	var out []entities.Chemical
	for rows.Next() {
		c, err := scanChemical(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chemical: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// AdjustQuantity adds delta to the stock inside one transaction.
func (s *Store) AdjustQuantity(ctx context.Context, id string, delta float64) (*entities.Chemical, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := scanChemical(tx.QueryRowContext(ctx,
		`SELECT `+chemicalColumns+` FROM chemicals WHERE id = ?`, id))
	if err != nil {
		return nil, translate("chemical "+id, err)
	}
	if c.Quantity+delta < 0 {
		return nil, fmt.Errorf("%w: %s has %.2f %s left", entities.ErrInsufficientStock, c.Name, c.Quantity, c.Unit)
	}

	c.Quantity += delta
	if _, err := tx.ExecContext(ctx, `UPDATE chemicals SET quantity = ? WHERE id = ?`, c.Quantity, id); err != nil {
		return nil, translate("chemical "+id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing stock change: %w", err)
	}
	return c, nil
}
