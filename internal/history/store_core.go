package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"reelkey/internal/config"
)

// Store records harvest and download runs in a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyAttempts   = 5
	busyBackoff    = 10 * time.Millisecond
	busyMaxBackoff = 200 * time.Millisecond
)

// connectionPragmas run on every pooled connection, not just the first.
var connectionPragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"}

// Open creates cfg.History.Path if needed and migrates it to the current schema.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("history store requires config")
	}
	dbPath := strings.TrimSpace(cfg.History.Path)
	if dbPath == "" {
		return nil, errors.New("history.path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	query := url.Values{"_pragma": connectionPragmas}
	db, err := sql.Open("sqlite", dbPath+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := migrate(context.Background(), store); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isBusy(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.Code()&0xff == sqlite3.SQLITE_BUSY
}

// withBusyRetry reruns op with doubling backoff while SQLite reports the
// database as locked past busy_timeout.
func withBusyRetry(ctx context.Context, op func() error) error {
	delay := busyBackoff
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || !isBusy(err) || attempt == busyAttempts {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyMaxBackoff)
	}
}
