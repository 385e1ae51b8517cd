// Package sqlite provides a SQLite-backed content catalog.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/okanca/streamgate/internal/catalog/physical"
	"github.com/okanca/streamgate/internal/storage"
	"github.com/okanca/streamgate/internal/visibility"
)

const (
	KeyPath        = "path"
	KeyJournalMode = "journal_mode"
	KeyBusyTimeout = "busy_timeout"
	KeyCacheSize   = "cache_size"
)

func init() {
	physical.Register("sqlite", NewFactory, Defaults)
}

// Defaults returns the default configuration for the SQLite backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:        "~/.streamgate/catalog.db",
		KeyJournalMode: "wal",
		KeyBusyTimeout: "5000",
		KeyCacheSize:   "-64000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
    target_type     TEXT NOT NULL,
    target_id       INTEGER NOT NULL,
    visibility      TEXT,
    post_visibility INTEGER,
    recipient_user  INTEGER,
    recipient_group INTEGER,
    group_id        INTEGER,
    PRIMARY KEY (target_type, target_id)
);

CREATE TABLE IF NOT EXISTS item_grants (
    target_type TEXT NOT NULL,
    target_id   INTEGER NOT NULL,
    realm       TEXT NOT NULL,
    grant_id    INTEGER NOT NULL,
    PRIMARY KEY (target_type, target_id, realm, grant_id),
    FOREIGN KEY (target_type, target_id) REFERENCES items(target_type, target_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_items_recipient_user ON items(target_type, recipient_user);
CREATE INDEX IF NOT EXISTS idx_items_recipient_group ON items(target_type, recipient_group);
CREATE INDEX IF NOT EXISTS idx_grants_ref ON item_grants(realm, grant_id);
`

// NewFactory creates a new SQLite backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("sqlite", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to create directory", err)
	}

	journalMode := storage.GetString(config, KeyJournalMode, "wal")
	busyTimeout := storage.GetString(config, KeyBusyTimeout, "5000")
	cacheSize := storage.GetString(config, KeyCacheSize, "-64000")

	dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_busy_timeout=%s&_cache_size=%s&_foreign_keys=on",
		path, journalMode, busyTimeout, cacheSize)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to initialize schema", err)
	}

	slog.Info("sqlite catalog initialized", "path", path, "journal_mode", journalMode)
	return &Backend{db: db}, nil
}

// Backend is a SQLite implementation of physical.Backend. Predicates
// are rendered to parameterized WHERE clauses so the database evaluates
// them with its indexes.
type Backend struct {
	db     *sql.DB
	closed atomic.Bool
}

func (b *Backend) Put(ctx context.Context, item visibility.Item) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite put: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := putInTx(ctx, tx, item); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *Backend) PutBatch(ctx context.Context, items []visibility.Item) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite put batch: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, item := range items {
		if err := putInTx(ctx, tx, item); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putInTx(ctx context.Context, tx *sql.Tx, item visibility.Item) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO items (target_type, target_id, visibility, post_visibility, recipient_user, recipient_group, group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (target_type, target_id) DO UPDATE SET
			visibility = excluded.visibility,
			post_visibility = excluded.post_visibility,
			recipient_user = excluded.recipient_user,
			recipient_group = excluded.recipient_group,
			group_id = excluded.group_id`,
		string(item.Target), item.TargetID,
		nullString(string(item.Visibility)),
		item.PostVisibility, item.RecipientUser, item.RecipientGroup, item.Group,
	)
	if err != nil {
		return fmt.Errorf("sqlite put item: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM item_grants WHERE target_type = ? AND target_id = ?`,
		string(item.Target), item.TargetID); err != nil {
		return fmt.Errorf("sqlite put grants: %w", err)
	}
	for _, g := range item.Grants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_grants (target_type, target_id, realm, grant_id) VALUES (?, ?, ?, ?)`,
			string(item.Target), item.TargetID, g.Realm, g.ID); err != nil {
			return fmt.Errorf("sqlite put grants: %w", err)
		}
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, target visibility.TargetType, id int64) (visibility.Item, error) {
	if b.closed.Load() {
		return visibility.Item{}, physical.ErrClosed
	}
	row := b.db.QueryRowContext(ctx, `
		SELECT target_type, target_id, visibility, post_visibility, recipient_user, recipient_group, group_id
		FROM items WHERE target_type = ? AND target_id = ?`,
		string(target), id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return visibility.Item{}, physical.ErrNotFound
	}
	if err != nil {
		return visibility.Item{}, fmt.Errorf("sqlite get: %w", err)
	}
	if err := b.loadGrants(ctx, &item); err != nil {
		return visibility.Item{}, err
	}
	return item, nil
}

func (b *Backend) Delete(ctx context.Context, target visibility.TargetType, id int64) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM items WHERE target_type = ? AND target_id = ?`, string(target), id); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

func (b *Backend) Find(ctx context.Context, target visibility.TargetType, pred visibility.Predicate) ([]visibility.Item, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	where, args, err := renderPredicate(pred)
	if err != nil {
		return nil, fmt.Errorf("sqlite find: %w", err)
	}
	query := `
		SELECT target_type, target_id, visibility, post_visibility, recipient_user, recipient_group, group_id
		FROM items WHERE target_type = ? AND (` + where + `) ORDER BY target_id`
	rows, err := b.db.QueryContext(ctx, query, append([]any{string(target)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite find: %w", err)
	}
	defer rows.Close()

	var items []visibility.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite find scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite find rows: %w", err)
	}
	for i := range items {
		if err := b.loadGrants(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (b *Backend) Count(ctx context.Context, target visibility.TargetType) (int64, error) {
	if b.closed.Load() {
		return 0, physical.ErrClosed
	}
	var n int64
	err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE target_type = ?`, string(target)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}

func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var n int64
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	return &physical.Stats{Items: n, BackendType: "sqlite"}, nil
}

func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) loadGrants(ctx context.Context, item *visibility.Item) error {
	rows, err := b.db.QueryContext(ctx,
		`SELECT realm, grant_id FROM item_grants WHERE target_type = ? AND target_id = ? ORDER BY realm, grant_id`,
		string(item.Target), item.TargetID)
	if err != nil {
		return fmt.Errorf("sqlite load grants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g visibility.GrantRef
		if err := rows.Scan(&g.Realm, &g.ID); err != nil {
			return fmt.Errorf("sqlite load grants: %w", err)
		}
		item.Grants = append(item.Grants, g)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (visibility.Item, error) {
	var (
		item       visibility.Item
		targetType string
		vis        sql.NullString
		postVis    sql.NullInt64
		recipUser  sql.NullInt64
		recipGroup sql.NullInt64
		groupID    sql.NullInt64
	)
	if err := s.Scan(&targetType, &item.TargetID, &vis, &postVis, &recipUser, &recipGroup, &groupID); err != nil {
		return visibility.Item{}, err
	}
	item.Target = visibility.TargetType(targetType)
	if vis.Valid {
		item.Visibility = visibility.Level(vis.String)
	}
	if postVis.Valid {
		item.PostVisibility = &postVis.Int64
	}
	if recipUser.Valid {
		item.RecipientUser = &recipUser.Int64
	}
	if recipGroup.Valid {
		item.RecipientGroup = &recipGroup.Int64
	}
	if groupID.Valid {
		item.Group = &groupID.Int64
	}
	return item, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
