package sqlite

import (
	"context"
	"database/sql"
	"errors"
)

const metaSchemaVersion = "schema_version"

// currentSchemaVersion is bumped whenever preference keys change meaning.
const currentSchemaVersion = "1"

// SchemaVersion returns the stored schema version, or "" for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaSchemaVersion).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// EnsureSchemaVersion records the current schema version and reports whether
// the database was created by this call.
func (s *Store) EnsureSchemaVersion(ctx context.Context) (created bool, err error) {
	v, err := s.SchemaVersion(ctx)
	if err != nil {
		return false, err
	}
	if v == currentSchemaVersion {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, metaSchemaVersion, currentSchemaVersion)
	return v == "", err
}
