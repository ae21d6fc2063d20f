package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Cache persists reverse-geocode results in a local sqlite file so repeat
// runs over the same coordinates skip the network. NOT_FOUND answers are
// cached too; dead coordinates stay dead between runs.
type Cache struct {
	db      *sql.DB
	ttlDays int
}

// OpenCache opens (and migrates) the cache at path. ttlDays <= 0 disables
// expiry.
func OpenCache(path string, ttlDays int) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "geocode: cache exec %s", pragma)
		}
	}

	c := &Cache{db: db, ttlDays: ttlDays}
	if err := c.migrate(); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return c, nil
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS reverse_cache (
	coord_hash   TEXT PRIMARY KEY,
	street       TEXT NOT NULL DEFAULT '',
	kelurahan    TEXT NOT NULL DEFAULT '',
	kecamatan    TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	province     TEXT NOT NULL DEFAULT '',
	full_address TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (c *Cache) migrate() error {
	_, err := c.db.Exec(cacheMigration)
	return eris.Wrap(err, "geocode: cache migrate")
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// cacheKey hashes the coordinate rounded to 5 decimals (~1m) plus the
// response language.
func cacheKey(lat, lon float64, lang string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%.5f|%.5f|%s", lat, lon, lang))
	return fmt.Sprintf("%x", h)
}

// lookup returns the cached result for key, or nil when absent or expired.
func (c *Cache) lookup(ctx context.Context, key string) (*Result, error) {
	query := `SELECT street, kelurahan, kecamatan, city, province, full_address, source, status
		FROM reverse_cache WHERE coord_hash = ?`
	args := []any{key}
	if c.ttlDays > 0 {
		query += " AND cached_at > datetime('now', ?)"
		args = append(args, fmt.Sprintf("-%d days", c.ttlDays))
	}

	var r Result
	var status string
	err := c.db.QueryRowContext(ctx, query, args...).Scan(
		&r.Street, &r.Kelurahan, &r.Kecamatan, &r.City, &r.Province, &r.FullAddress, &r.Source, &status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "geocode: cache lookup")
	}
	r.Status = Status(status)
	return &r, nil
}

// store upserts a result under key, refreshing cached_at.
func (c *Cache) store(ctx context.Context, key string, result *Result) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO reverse_cache (coord_hash, street, kelurahan, kecamatan, city, province, full_address, source, status, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (coord_hash) DO UPDATE SET
			street = excluded.street,
			kelurahan = excluded.kelurahan,
			kecamatan = excluded.kecamatan,
			city = excluded.city,
			province = excluded.province,
			full_address = excluded.full_address,
			source = excluded.source,
			status = excluded.status,
			cached_at = datetime('now')`,
		key, result.Street, result.Kelurahan, result.Kecamatan, result.City,
		result.Province, result.FullAddress, result.Source, string(result.Status),
	)
	return eris.Wrap(err, "geocode: cache store")
}
