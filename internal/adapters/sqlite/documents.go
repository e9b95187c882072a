package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

const documentColumns = `id, chemical_id, original_name, stored_name, label, distance, status, size, uploaded_by, created_at, updated_at`

func scanDocument(row rowScanner) (*entities.SDSDocument, error) {
	var d entities.SDSDocument
	var chemicalID sql.NullString
	var status string
	err := row.Scan(&d.ID, &chemicalID, &d.OriginalName, &d.StoredName, &d.Label, &d.Distance,
		&status, &d.Size, &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.ChemicalID = chemicalID.String
	d.Status = entities.SDSStatus(status)
	return &d, nil
}

// SaveDocument inserts or replaces an SDS record.
func (s *Store) SaveDocument(ctx context.Context, d *entities.SDSDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sds_documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chemical_id = excluded.chemical_id,
			label = excluded.label,
			distance = excluded.distance,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, d.ID, nullString(d.ChemicalID), d.OriginalName, d.StoredName, d.Label, d.Distance,
		string(d.Status), d.Size, d.UploadedBy, d.CreatedAt, d.UpdatedAt)
	return translate("sds document "+d.ID, err)
}

// GetDocument returns one SDS record.
func (s *Store) GetDocument(ctx context.Context, id string) (*entities.SDSDocument, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM sds_documents WHERE id = ?`, id))
	if err != nil {
		return nil, translate("sds document "+id, err)
	}
	return d, nil
}

// ListDocuments returns SDS records matching filter in insertion order.
func (s *Store) ListDocuments(ctx context.Context, filter entities.SDSFilter) ([]entities.SDSDocument, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ChemicalID != "" {
		where = append(where, "chemical_id = ?")
		args = append(args, filter.ChemicalID)
	}

	query := `SELECT ` + documentColumns + ` FROM sds_documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sds documents: %w", err)
	}
	defer rows.Close()

	var out []entities.SDSDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sds document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DeleteDocument removes an SDS record.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sds_documents WHERE id = ?`, id)
	if err != nil {
		return translate("sds document "+id, err)
	}
	return requireAffected(res, "sds document "+id)
}
