package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type localItem struct {
	bun.BaseModel `bun:"table:local_storage"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLiteStorage persists items in a single SQLite table so a session survives restarts
type SQLiteStorage struct {
	db *bun.DB
}

// OpenSQLite opens (or creates) the database at path and makes sure the table exists
func OpenSQLite(ctx context.Context, path string) (*SQLiteStorage, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases consistent and serializes writers
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().Model((*localItem)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create local storage table: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var item localItem
	err := s.db.NewSelect().Model(&item).Where("key = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return item.Value, true, nil
}

func (s *SQLiteStorage) SetItem(ctx context.Context, key, value string) error {
	item := &localItem{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().
		Model(item).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) RemoveItem(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().Model((*localItem)(nil)).Where("key = ?", key).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

// Close releases the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
