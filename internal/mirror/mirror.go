// Package mirror implements Reeves' registry mirror cache: a small
// modernc.org/sqlite index over a read-only package registry mirror on
// disk, built once per Corpus Orchestrator run so "enumerate latest
// non-yanked versions" never re-walks the mirror's own index format.
package mirror

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
	"golang.org/x/mod/semver"

	reeveserrors "github.com/reeves-dev/reeves/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS packages (
	name    TEXT NOT NULL,
	version TEXT NOT NULL,
	yanked  BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (name, version)
);
CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name);
`

// Entry is one package@version the mirror's index knows about.
type Entry struct {
	Name    string
	Version string
	Yanked  bool
}

// Cache wraps an in-memory sqlite database built by scanning a mirror's
// index once, then queried repeatedly during enumeration.
type Cache struct {
	db *sql.DB
}

// Open creates an in-memory cache database (the mirror's own index files
// are the durable source of truth; this cache is rebuilt every run).
func Open() (*Cache, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, reeveserrors.Store("failed to open mirror cache database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, reeveserrors.Store("failed to create mirror cache schema", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Insert records one mirror index entry. Called once per package@version
// while scanning the mirror's on-disk index.
func (c *Cache) Insert(e Entry) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO packages (name, version, yanked) VALUES (?, ?, ?)`,
		e.Name, e.Version, e.Yanked,
	)
	if err != nil {
		return reeveserrors.Store(fmt.Sprintf("failed to insert mirror entry %s@%s", e.Name, e.Version), err)
	}
	return nil
}

// InsertBatch inserts many entries inside a single transaction, for the
// one-time scan of the mirror's full index.
func (c *Cache) InsertBatch(entries []Entry) error {
	tx, err := c.db.Begin()
	if err != nil {
		return reeveserrors.Store("failed to begin mirror cache batch insert", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO packages (name, version, yanked) VALUES (?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return reeveserrors.Store("failed to prepare mirror cache insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Name, e.Version, e.Yanked); err != nil {
			_ = tx.Rollback()
			return reeveserrors.Store(fmt.Sprintf("failed to insert mirror entry %s@%s", e.Name, e.Version), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return reeveserrors.Store("failed to commit mirror cache batch insert", err)
	}
	return nil
}

// LatestNonYanked returns, for every package name, the single highest
// version that is not yanked, ordered by true semantic-version precedence
// rather than lexical string order (so 0.10.0 beats 0.9.0). Packages whose
// every version is yanked are omitted.
func (c *Cache) LatestNonYanked() ([]Entry, error) {
	rows, err := c.db.Query(`
		SELECT name, version
		FROM packages
		WHERE NOT yanked
		ORDER BY name
	`)
	if err != nil {
		return nil, reeveserrors.Store("failed to query non-yanked versions", err)
	}
	defer rows.Close()

	latest := make(map[string]string)
	var order []string
	for rows.Next() {
		var name, version string
		if err := rows.Scan(&name, &version); err != nil {
			return nil, reeveserrors.Store("failed to scan mirror cache row", err)
		}
		current, seen := latest[name]
		if !seen {
			order = append(order, name)
		}
		if !seen || versionLess(current, version) {
			latest[name] = version
		}
	}
	if err := rows.Err(); err != nil {
		return nil, reeveserrors.Store("failed to iterate mirror cache rows", err)
	}

	entries := make([]Entry, 0, len(order))
	for _, name := range order {
		entries = append(entries, Entry{Name: name, Version: latest[name]})
	}
	return entries, nil
}

// versionLess reports whether a precedes b. It prefers true semantic-version
// comparison (golang.org/x/mod/semver, which requires a "v" prefix) and
// falls back to lexical string comparison for versions that aren't valid
// semver, so an odd registry entry never aborts the whole comparison.
func versionLess(a, b string) bool {
	va, vb := canonicalSemver(a), canonicalSemver(b)
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb) < 0
	}
	return a < b
}

func canonicalSemver(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		return "v" + v
	}
	return v
}
