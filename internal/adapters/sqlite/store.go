// Package sqlite provides the relational persistence adapter.
// It implements the repository ports on database/sql with the mattn/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// Store implements the repository ports with SQLite persistence.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path and applies the schema.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "./data/chemstock.db"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer at a time keeps transactions simple
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chemicals (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		formula TEXT NOT NULL DEFAULT '',
		cas_number TEXT NOT NULL DEFAULT '',
		quantity REAL NOT NULL CHECK (quantity >= 0),
		unit TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		hazard TEXT NOT NULL DEFAULT '',
		expires_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sds_documents (
		id TEXT PRIMARY KEY,
		chemical_id TEXT REFERENCES chemicals(id) ON DELETE SET NULL,
		original_name TEXT NOT NULL,
		stored_name TEXT NOT NULL,
		label TEXT NOT NULL,
		distance INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		uploaded_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sds_chemical ON sds_documents(chemical_id);
	CREATE INDEX IF NOT EXISTS idx_sds_status ON sds_documents(status);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		push_token TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		number TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS lecturers (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		number TEXT NOT NULL UNIQUE
	);
	CREATE TABLE IF NOT EXISTS students (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		number TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS borrowings (
		id TEXT PRIMARY KEY,
		chemical_id TEXT NOT NULL REFERENCES chemicals(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		quantity REAL NOT NULL,
		purpose TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		requested_at DATETIME NOT NULL,
		approved_by TEXT NOT NULL DEFAULT '',
		borrowed_at DATETIME,
		due_at DATETIME,
		returned_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_borrowings_user ON borrowings(user_id);
	CREATE INDEX IF NOT EXISTS idx_borrowings_status ON borrowings(status);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// translate maps driver errors onto domain errors.
func translate(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, entities.ErrNotFound)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w", what, entities.ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w: foreign key constraint failed", what, entities.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, entities.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ProfileLookups maps every role to its profile table: admins and lab
// assistants share the staff table.
func (s *Store) ProfileLookups() map[entities.Role]ports.ProfileLookup {
	staff := &ProfileTable{db: s.db, table: "staff"}
	return map[entities.Role]ports.ProfileLookup{
		entities.RoleAdmin:        staff,
		entities.RoleLabAssistant: staff,
		entities.RoleLecturer:     &ProfileTable{db: s.db, table: "lecturers"},
		entities.RoleStudent:      &ProfileTable{db: s.db, table: "students"},
	}
}

// ProfileTable implements ports.ProfileLookup over one profile table.
type ProfileTable struct {
	db    *sql.DB
	table string
}

// FindProfileID returns the profile number of userID.
func (p *ProfileTable) FindProfileID(ctx context.Context, userID string) (string, error) {
	var number string
	err := p.db.QueryRowContext(ctx, "SELECT number FROM "+p.table+" WHERE user_id = ?", userID).Scan(&number)
	if err != nil {
		return "", translate(p.table+" profile of "+userID, err)
	}
	return number, nil
}

// CreateProfile stores the profile number of userID.
func (p *ProfileTable) CreateProfile(ctx context.Context, userID, number string) error {
	_, err := p.db.ExecContext(ctx, "INSERT INTO "+p.table+" (user_id, number) VALUES (?, ?)", userID, number)
	return translate(p.table+" profile "+number, err)
}
