package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaV1 string

// migrations[i] moves a database from user_version i to i+1.
var migrations = []string{schemaV1}

// ErrSchemaMismatch is returned when the database was written by a newer build.
var ErrSchemaMismatch = errors.New("history schema is newer than this build")

func migrate(ctx context.Context, s *Store) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("%w: %s is at version %d, this build knows %d",
			ErrSchemaMismatch, s.path, version, len(migrations))
	}
	for next := version; next < len(migrations); next++ {
		if err := withBusyRetry(ctx, func() error { return applyMigration(ctx, s, next) }); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, s *Store, from int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", from+1, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migrations[from]); err != nil {
		return fmt.Errorf("apply migration %d: %w", from+1, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", from+1)); err != nil {
		return fmt.Errorf("set user_version %d: %w", from+1, err)
	}
	return tx.Commit()
}
