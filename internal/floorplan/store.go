package floorplan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"waitify/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const keyPrefix = "floorPlan-"

const schema = `
CREATE TABLE IF NOT EXISTS floor_plans (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// SQLiteStorage keeps one serialized layout per location in a single-file
// key/value table.
type SQLiteStorage struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open floorplan db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init floorplan schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Load returns the stored layout for the location. A missing key yields an
// empty plan; a value that no longer parses is logged and also yields an
// empty plan rather than an error.
func (s *SQLiteStorage) Load(ctx context.Context, location string) ([]models.FloorItem, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM floor_plans WHERE key = ?`, keyPrefix+location)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var items []models.FloorItem
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		log.Printf("floorplan parse failed location=%s: %v", location, err)
		return nil, nil
	}
	return items, nil
}

func (s *SQLiteStorage) Save(ctx context.Context, location string, items []models.FloorItem) error {
	if items == nil {
		items = []models.FloorItem{}
	}
	value, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO floor_plans (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, keyPrefix+location, string(value), time.Now().UTC())
	return err
}

func (s *SQLiteStorage) Delete(ctx context.Context, location string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM floor_plans WHERE key = ?`, keyPrefix+location)
	return err
}
