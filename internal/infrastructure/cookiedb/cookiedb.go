// Package cookiedb loads the Open Cookie Database into an in-memory SQLite
// table and answers read-only lookups by cookie name.
package cookiedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

const schema = `
CREATE TABLE cookies (
	id               TEXT,
	name             TEXT NOT NULL,
	platform         TEXT NOT NULL,
	category         TEXT,
	domain           TEXT,
	description      TEXT,
	retention_period TEXT,
	data_controller  TEXT,
	privacy_link     TEXT,
	wildcard         INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX idx_cookies_name ON cookies(name);
CREATE INDEX idx_cookies_wildcard ON cookies(wildcard);
`

// record mirrors one element of the Open Cookie Database JSON.
type record struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	Cookie          string `json:"cookie"`
	Domain          string `json:"domain"`
	Description     string `json:"description"`
	RetentionPeriod string `json:"retentionPeriod"`
	DataController  string `json:"dataController"`
	PrivacyLink     string `json:"privacyLink"`
	WildcardMatch   string `json:"wildcardMatch"`
}

// DB is a read-only cookie knowledge base.
type DB struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	count  int
}

// Load reads the JSON database at path into a fresh in-memory table.
func Load(ctx context.Context, path string, logger *zap.SugaredLogger) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrCookieDBUnavailable, err)
	}
	return LoadJSON(ctx, data, logger)
}

// LoadJSON builds the knowledge base from raw JSON ({platform: [record, ...]}).
func LoadJSON(ctx context.Context, data []byte, logger *zap.SugaredLogger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var platforms map[string][]record
	if err := json.Unmarshal(data, &platforms); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", sharedErrors.ErrCookieDBUnavailable, err)
	}

	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", sharedErrors.ErrCookieDBUnavailable, err)
	}
	// Every pooled connection would otherwise get its own empty memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", sharedErrors.ErrCookieDBUnavailable, err)
	}

	n, err := insertAll(ctx, db, platforms)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrCookieDBUnavailable, err)
	}

	logger.Infow("cookie database loaded", "cookies", n, "platforms", len(platforms))
	return &DB{db: db, logger: logger, count: n}, nil
}

func insertAll(ctx context.Context, db *sql.DB, platforms map[string][]record) (n int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cookies
		(id, name, platform, category, domain, description, retention_period, data_controller, privacy_link, wildcard)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	names := make([]string, 0, len(platforms))
	for platform := range platforms {
		names = append(names, platform)
	}
	sort.Strings(names)

	for _, platform := range names {
		for _, rec := range platforms[platform] {
			if rec.Cookie == "" {
				continue
			}
			wildcard := 0
			if rec.WildcardMatch == "1" || strings.EqualFold(rec.WildcardMatch, "true") {
				wildcard = 1
			}
			if _, err = stmt.ExecContext(ctx, rec.ID, rec.Cookie, platform, rec.Category, rec.Domain,
				rec.Description, rec.RetentionPeriod, rec.DataController, rec.PrivacyLink, wildcard); err != nil {
				return 0, fmt.Errorf("insert %s: %w", rec.Cookie, err)
			}
			n++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Len returns the number of cookie records loaded.
func (d *DB) Len() int { return d.count }

// Close releases the database.
func (d *DB) Close() error { return d.db.Close() }

// Lookup finds knowledge for a cookie name. Exact names win; otherwise the
// longest wildcard entry that prefixes the name is used.
func (d *DB) Lookup(name string) (finding.CookieKnowledge, bool) {
	k, err := d.lookup(context.Background(), name)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			d.logger.Warnw("cookie lookup failed", "cookie", name, "error", err)
		}
		return finding.CookieKnowledge{}, false
	}
	return k, true
}

func (d *DB) lookup(ctx context.Context, name string) (finding.CookieKnowledge, error) {
	const cols = `platform, category, data_controller, description, retention_period, privacy_link`

	row := d.db.QueryRowContext(ctx, `SELECT `+cols+` FROM cookies WHERE name = ? ORDER BY platform LIMIT 1`, name)
	k, err := scanKnowledge(row)
	if err == nil || !errors.Is(err, sql.ErrNoRows) {
		return k, err
	}

	row = d.db.QueryRowContext(ctx, `SELECT `+cols+` FROM cookies
		WHERE wildcard = 1 AND substr(?, 1, length(name)) = name
		ORDER BY length(name) DESC, platform LIMIT 1`, name)
	return scanKnowledge(row)
}

func scanKnowledge(row *sql.Row) (finding.CookieKnowledge, error) {
	var k finding.CookieKnowledge
	var category, controller, description, retention, link sql.NullString
	if err := row.Scan(&k.Platform, &category, &controller, &description, &retention, &link); err != nil {
		return finding.CookieKnowledge{}, err
	}
	k.Category = category.String
	k.DataController = controller.String
	k.Description = description.String
	k.RetentionPeriod = retention.String
	k.PrivacyLink = link.String
	return k, nil
}
