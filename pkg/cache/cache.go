// Package cache persists search results, comparisons, price histories and tracked products
// in a SQLite database.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"spedify/pkg/models"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	tableSearch     = "search_results"
	tableComparison = "comparisons"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS search_results (
		cache_key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		scraped_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comparisons (
		cache_key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		scraped_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_key TEXT NOT NULL,
		price_display TEXT NOT NULL,
		platform TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		formatted_time TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_key ON price_history (product_key, id)`,
	`CREATE TABLE IF NOT EXISTS tracked_products (
		product_key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		detail_url TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

func New(dbPath string, ttl time.Duration, log *zap.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// :memory: databases exist per connection
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Cache{db: db, ttl: ttl, log: log, now: time.Now}, nil
}

func (c *Cache) GetSearch(query string) (*models.SearchResult, bool) {
	var res models.SearchResult
	if !c.get(tableSearch, query, &res) {
		return nil, false
	}
	return &res, true
}

func (c *Cache) SetSearch(query string, res *models.SearchResult) {
	c.set(tableSearch, query, res, res.GeneratedAt)
}

func (c *Cache) GetComparison(detailURL string) (*models.ComparisonResult, bool) {
	var res models.ComparisonResult
	if !c.get(tableComparison, detailURL, &res) {
		return nil, false
	}
	return &res, true
}

func (c *Cache) SetComparison(detailURL string, res *models.ComparisonResult) {
	c.set(tableComparison, detailURL, res, res.GeneratedAt)
}

func (c *Cache) get(table, key string, dst any) bool {
	var data string
	var scrapedAt time.Time

	err := c.db.QueryRow(
		fmt.Sprintf(`SELECT data, scraped_at FROM %s WHERE cache_key = ?`, table),
		key,
	).Scan(&data, &scrapedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			c.log.Warn("cache read failed", zap.String("table", table), zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if c.now().Sub(scrapedAt) > c.ttl {
		return false
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		c.log.Warn("cache entry unreadable", zap.String("table", table), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) set(table, key string, v any, at time.Time) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache encode failed", zap.String("table", table), zap.String("key", key), zap.Error(err))
		return
	}
	if at.IsZero() {
		at = c.now()
	}

	_, err = c.db.Exec(
		fmt.Sprintf(`INSERT INTO %s (cache_key, data, scraped_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(cache_key)
		 DO UPDATE SET data = excluded.data, scraped_at = excluded.scraped_at`, table),
		key, string(data), at.UTC(),
	)
	if err != nil {
		c.log.Warn("cache write failed", zap.String("table", table), zap.String("key", key), zap.Error(err))
	}
}

// AppendHistory stores p as the newest point of the product's history.
func (c *Cache) AppendHistory(productKey string, p models.PriceHistoryPoint) error {
	_, err := c.db.Exec(
		`INSERT INTO price_history (product_key, price_display, platform, recorded_at, formatted_time)
		 VALUES (?, ?, ?, ?, ?)`,
		productKey, p.PriceDisplay, p.Platform, p.Timestamp.UTC(), p.FormattedTime,
	)
	if err != nil {
		return fmt.Errorf("append history for %s: %w", productKey, err)
	}
	return nil
}

// History returns the product's points oldest first. An unknown key yields an empty history.
func (c *Cache) History(productKey string) ([]models.PriceHistoryPoint, error) {
	rows, err := c.db.Query(
		`SELECT price_display, platform, recorded_at, formatted_time
		 FROM price_history WHERE product_key = ? ORDER BY id`,
		productKey,
	)
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", productKey, err)
	}
	defer rows.Close()

	var points []models.PriceHistoryPoint
	for rows.Next() {
		var p models.PriceHistoryPoint
		if err := rows.Scan(&p.PriceDisplay, &p.Platform, &p.Timestamp, &p.FormattedTime); err != nil {
			return nil, fmt.Errorf("scan history for %s: %w", productKey, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Track registers p, replacing an earlier registration under the same key.
func (c *Cache) Track(p models.TrackedProduct) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = c.now()
	}
	_, err := c.db.Exec(
		`INSERT INTO tracked_products (product_key, name, detail_url, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(product_key)
		 DO UPDATE SET name = excluded.name, detail_url = excluded.detail_url`,
		p.ProductKey, p.Name, p.DetailURL, p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("track %s: %w", p.ProductKey, err)
	}
	return nil
}

func (c *Cache) Tracked() ([]models.TrackedProduct, error) {
	rows, err := c.db.Query(`SELECT product_key, name, detail_url, created_at FROM tracked_products ORDER BY created_at, product_key`)
	if err != nil {
		return nil, fmt.Errorf("list tracked products: %w", err)
	}
	defer rows.Close()

	var out []models.TrackedProduct
	for rows.Next() {
		var p models.TrackedProduct
		if err := rows.Scan(&p.ProductKey, &p.Name, &p.DetailURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracked product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *Cache) Close() error {
	return c.db.Close()
}
