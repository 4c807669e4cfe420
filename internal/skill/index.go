// Package skill implements a read-only skill catalogue additive to the
// main MCP tool table: declared per-workflow skills plus every document
// and resource, indexed into a modernc.org/sqlite FTS5 virtual table.
// The index lives in its own database: incremental FTS5 updates would
// be destroyed by the channel store's append-only write pattern if they
// shared storage.
package skill

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Category classifies an indexed entry.
const (
	CategorySkill    = "skill"
	CategoryDocument = "document"
	CategoryResource = "resource"
)

// Entry is a piece of content to index.
type Entry struct {
	Path     string // "skill:<name>", "documents/<path>", or "resources/<id>"
	Title    string
	Content  string
	Category string
}

// Result is a ranked full-text search hit.
type Result struct {
	Path     string  `json:"path"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Category string  `json:"category"`
	Rank     float64 `json:"rank"`
}

// Skill is a declared skill's catalogue entry (name and title, as shown
// by skill_list).
type Skill struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

const schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS entries USING fts5(
	path,
	title,
	content,
	category,
	tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS entry_meta (
	path TEXT PRIMARY KEY,
	checksum TEXT,
	indexed_at TEXT
);
`

// Index wraps a dedicated SQLite FTS5 database used by skill_list and
// skill_search.
type Index struct {
	db     *sql.DB
	mu     sync.RWMutex
	skills []Skill
}

// Open opens (or creates) the skill index database at dbPath.
func Open(dbPath string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("skill: create index dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("skill: open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("skill: init schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Index inserts or replaces e in the FTS5 table.
func (x *Index) Index(e Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("skill: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, e.Path); err != nil {
		return fmt.Errorf("skill: delete old entry: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO entries (path, title, content, category) VALUES (?, ?, ?, ?)`,
		e.Path, e.Title, e.Content, e.Category,
	); err != nil {
		return fmt.Errorf("skill: insert entry: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO entry_meta (path, checksum, indexed_at) VALUES (?, ?, ?)`,
		e.Path, checksumString(e.Content), now,
	); err != nil {
		return fmt.Errorf("skill: upsert meta: %w", err)
	}
	return tx.Commit()
}

// IndexIfChanged indexes e only if its content checksum changed since
// the last call. Returns true if (re)indexed.
func (x *Index) IndexIfChanged(e Entry) (bool, error) {
	newSum := checksumString(e.Content)
	x.mu.RLock()
	var existing string
	err := x.db.QueryRow(`SELECT checksum FROM entry_meta WHERE path = ?`, e.Path).Scan(&existing)
	x.mu.RUnlock()
	if err == nil && existing == newSum {
		return false, nil
	}
	if err := x.Index(e); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes path from the index.
func (x *Index) Remove(path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	tx, err := x.db.Begin()
	if err != nil {
		return fmt.Errorf("skill: begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM entry_meta WHERE path = ?`, path); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveByPrefix removes every entry whose path starts with prefix.
func (x *Index) RemoveByPrefix(prefix string) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	tx, err := x.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("skill: begin tx: %w", err)
	}
	defer tx.Rollback()
	res, err := tx.Exec(`DELETE FROM entries WHERE path >= ? AND path < ?`, prefix, prefix+"\xff")
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if _, err := tx.Exec(`DELETE FROM entry_meta WHERE path >= ? AND path < ?`, prefix, prefix+"\xff"); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// SetSkills replaces the declared-skill catalogue returned by List.
// Indexing of their bodies happens separately via Index/IndexIfChanged.
func (x *Index) SetSkills(skills []Skill) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.skills = append([]Skill(nil), skills...)
}

// List returns the declared skills (skill_list).
func (x *Index) List() []Skill {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]Skill(nil), x.skills...)
}

// Search runs an FTS5 query across skills, documents, and resources
// (skill_search), optionally narrowed to one category.
func (x *Index) Search(query, category string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	ftsQuery := sanitizeFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if category != "" {
		rows, err = x.db.Query(`
			SELECT path, title, snippet(entries, 2, '>>>', '<<<', '...', 40), category, rank
			FROM entries WHERE entries MATCH ? AND category = ? ORDER BY rank LIMIT ?
		`, ftsQuery, category, limit)
	} else {
		rows, err = x.db.Query(`
			SELECT path, title, snippet(entries, 2, '>>>', '<<<', '...', 40), category, rank
			FROM entries WHERE entries MATCH ? ORDER BY rank LIMIT ?
		`, ftsQuery, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("skill: search: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet, &r.Category, &r.Rank); err != nil {
			return nil, fmt.Errorf("skill: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IndexedPaths returns every path currently indexed.
func (x *Index) IndexedPaths() ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	rows, err := x.db.Query(`SELECT path FROM entry_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Close closes the underlying database.
func (x *Index) Close() error { return x.db.Close() }

func sanitizeFTSQuery(q string) string {
	replacer := strings.NewReplacer(
		"\"", "", "'", "", "(", "", ")", "",
		"*", "", ":", "", "^", "", "{", "", "}", "",
	)
	cleaned := replacer.Replace(q)
	words := strings.Fields(cleaned)
	var tokens []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" && w != "AND" && w != "OR" && w != "NOT" && w != "NEAR" {
			tokens = append(tokens, w)
		}
	}
	if len(tokens) == 0 {
		return ""
	}
	return strings.Join(tokens, " ")
}

func checksumString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
