package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"attendance-scanner/internal/models"
)

const participantSchema = `
CREATE TABLE IF NOT EXISTS participant (
	srn       TEXT PRIMARY KEY,
	entry     TEXT,
	dinner    TEXT,
	snacks    TEXT,
	breakfast TEXT
)`

// SQLiteParticipantRepository implements ParticipantRepository on a local SQLite file
type SQLiteParticipantRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the participant table exists
func OpenSQLite(ctx context.Context, path string) (*SQLiteParticipantRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	r := NewSQLiteParticipantRepository(db)
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewSQLiteParticipantRepository wraps an open database handle
func NewSQLiteParticipantRepository(db *sql.DB) *SQLiteParticipantRepository {
	return &SQLiteParticipantRepository{db: db}
}

// EnsureSchema creates the participant table when missing
func (r *SQLiteParticipantRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, participantSchema); err != nil {
		return fmt.Errorf("create participant table: %w", err)
	}
	return nil
}

// Provision inserts participants with no flags set. Existing rows are left untouched.
func (r *SQLiteParticipantRepository) Provision(ctx context.Context, srns ...string) error {
	for _, srn := range srns {
		if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO participant (srn) VALUES (?)`, srn); err != nil {
			return fmt.Errorf("provision participant %s: %w", srn, err)
		}
	}
	return nil
}

// Lookup fetches a single participant by SRN
func (r *SQLiteParticipantRepository) Lookup(ctx context.Context, srn string) (*models.Participant, error) {
	var rec participantRecord
	var entry, dinner, snacks, breakfast sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT srn, entry, dinner, snacks, breakfast FROM participant WHERE srn = ?`, srn,
	).Scan(&rec.SRN, &entry, &dinner, &snacks, &breakfast)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}

	rec.Entry, rec.Dinner, rec.Snacks, rec.Breakfast = entry.String, dinner.String, snacks.String, breakfast.String
	return rec.toModel(), nil
}

// MarkDone sets the category column to "done"
func (r *SQLiteParticipantRepository) MarkDone(ctx context.Context, srn string, category models.Category) (*models.Participant, error) {
	column, err := categoryColumn(category)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE participant SET %s = ? WHERE srn = ?`, column), models.FlagDone, srn)
	if err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update participant: %w", err)
	}
	if n == 0 {
		return nil, ErrParticipantNotFound
	}

	return r.Lookup(ctx, srn)
}

// Ping checks the database handle
func (r *SQLiteParticipantRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database handle
func (r *SQLiteParticipantRepository) Close() error {
	return r.db.Close()
}

// categoryColumn maps a category to its column name. Column names cannot be
// bound as parameters, so only whitelisted values reach the query text.
func categoryColumn(c models.Category) (string, error) {
	switch c {
	case models.CategoryEntry:
		return "entry", nil
	case models.CategoryDinner:
		return "dinner", nil
	case models.CategorySnacks:
		return "snacks", nil
	case models.CategoryBreakfast:
		return "breakfast", nil
	}
	return "", fmt.Errorf("%w: %q", models.ErrUnknownCategory, c)
}
