package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/portfolio-collage/backend/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no portfolio item has the requested slug.
var ErrNotFound = errors.New("portfolio item not found")

// Store defines the interface for portfolio content storage.
type Store interface {
	List(ctx context.Context) ([]*models.PortfolioItem, error)
	Get(ctx context.Context, slug string) (*models.PortfolioItem, error)
	Save(ctx context.Context, item *models.PortfolioItem) error
	Delete(ctx context.Context, slug string) error
	Count(ctx context.Context) (int, error)
}

const createItemsTable = `
CREATE TABLE IF NOT EXISTS portfolio_items (
	slug       TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0,
	body       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

const createPositionIndex = `CREATE INDEX IF NOT EXISTS idx_items_position ON portfolio_items(position)`

// SQLiteStore implements Store on a SQLite file. Items are kept as JSON
// documents; slug, title and position are mirrored into columns for
// ordering and lookups.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the content database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating content directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening content database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		createItemsTable,
		createPositionIndex,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing content database: %w", err)
		}
	}

	fmt.Printf("[ContentStore] Opened %s\n", path)
	return &SQLiteStore{db: db, path: path}, nil
}

// List returns every item in display order.
func (s *SQLiteStore) List(ctx context.Context) ([]*models.PortfolioItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM portfolio_items ORDER BY position, slug`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.PortfolioItem, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item, err := decodeItem(body)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get retrieves one item by slug.
func (s *SQLiteStore) Get(ctx context.Context, slug string) (*models.PortfolioItem, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM portfolio_items WHERE slug = ?`, slug).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", slug, err)
	}
	return decodeItem(body)
}

// Save validates and upserts an item.
func (s *SQLiteStore) Save(ctx context.Context, item *models.PortfolioItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item %s: %w", item.Slug, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolio_items (slug, title, position, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			position = excluded.position,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, item.Slug, item.Title, item.Position, string(body), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving item %s: %w", item.Slug, err)
	}
	return nil
}

// Delete removes an item by slug.
func (s *SQLiteStore) Delete(ctx context.Context, slug string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM portfolio_items WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", slug, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", slug, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return nil
}

// Count returns the number of stored items.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM portfolio_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeItem(body string) (*models.PortfolioItem, error) {
	var item models.PortfolioItem
	if err := json.Unmarshal([]byte(body), &item); err != nil {
		return nil, fmt.Errorf("decoding item: %w", err)
	}
	return &item, nil
}
