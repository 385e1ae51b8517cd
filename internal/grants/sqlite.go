package grants

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

const (
	KeyPath        = "path"
	KeyBusyTimeout = "busy_timeout"
)

// SQLiteDefaults returns the default configuration for the SQLite grant
// source.
func SQLiteDefaults() map[string]string {
	return map[string]string{
		KeyPath:        "~/.streamgate/grants.db",
		KeyBusyTimeout: "5000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS actor_grants (
    actor_id INTEGER NOT NULL,
    realm    TEXT NOT NULL,
    grant_id INTEGER NOT NULL,
    PRIMARY KEY (actor_id, realm, grant_id)
);
`

// SQLite stores per-actor grant rows in a SQLite database. The file may
// be shared with the sqlite catalog backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a SQLite grant source from a configuration map.
func NewSQLite(config map[string]string) (*SQLite, error) {
	config = storage.MergeConfig(SQLiteDefaults(), config)

	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("sqlite", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to create directory", err)
	}

	busyTimeout := storage.GetString(config, KeyBusyTimeout, "5000")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%s", path, busyTimeout)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to open database", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to initialize schema", err)
	}

	slog.Info("sqlite grant source initialized", "path", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) GrantsFor(ctx context.Context, actor visibility.Actor) (visibility.GrantSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT realm, grant_id FROM actor_grants WHERE actor_id = ? ORDER BY realm, grant_id`,
		actor.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite grants for actor %d: %w", actor.ID, err)
	}
	defer rows.Close()

	set := visibility.GrantSet{}
	for rows.Next() {
		var (
			realm string
			id    int64
		)
		if err := rows.Scan(&realm, &id); err != nil {
			return nil, fmt.Errorf("sqlite grants scan: %w", err)
		}
		set[realm] = append(set[realm], id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite grants rows: %w", err)
	}
	return set, nil
}

func (s *SQLite) Grant(ctx context.Context, actorID int64, ref visibility.GrantRef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO actor_grants (actor_id, realm, grant_id) VALUES (?, ?, ?)`,
		actorID, ref.Realm, ref.ID)
	if err != nil {
		return fmt.Errorf("sqlite grant: %w", err)
	}
	return nil
}

func (s *SQLite) Revoke(ctx context.Context, actorID int64, ref visibility.GrantRef) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM actor_grants WHERE actor_id = ? AND realm = ? AND grant_id = ?`,
		actorID, ref.Realm, ref.ID)
	if err != nil {
		return fmt.Errorf("sqlite revoke: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
