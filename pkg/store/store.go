// Package store keeps imported issues in a local SQLite database and answers
// the facet count, facet value search and issue list queries the browser
// needs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/saimonmoore/sonarqube/pkg/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS issues (
	key TEXT PRIMARY KEY,
	rule TEXT NOT NULL,
	severity TEXT NOT NULL,
	severity_rank INTEGER NOT NULL,
	component TEXT NOT NULL DEFAULT '',
	project TEXT NOT NULL DEFAULT '',
	line INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	resolution TEXT NOT NULL DEFAULT '',
	effort TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS issue_tags (
	issue_key TEXT NOT NULL REFERENCES issues(key) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	PRIMARY KEY (issue_key, tag)
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_issues_severity ON issues(severity);
CREATE INDEX IF NOT EXISTS idx_issues_rule ON issues(rule);
CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project);
CREATE INDEX IF NOT EXISTS idx_issues_created ON issues(created_at);
CREATE INDEX IF NOT EXISTS idx_issue_tags_tag ON issue_tags(tag);
`

// Store is a SQLite-backed issue index.
type Store struct {
	db   *sql.DB
	path string
}

// ImportInfo describes the last ReplaceIssues call.
type ImportInfo struct {
	Source     string    `json:"source"`
	Count      int       `json:"count"`
	ImportedAt time.Time `json:"imported_at"`
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database location given to Open.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceIssues swaps the whole issue set for issues in one transaction and
// records source as the import origin.
func (s *Store) ReplaceIssues(ctx context.Context, source string, issues []model.Issue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM issue_tags`); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM issues`); err != nil {
		return fmt.Errorf("clear issues: %w", err)
	}

	insertIssue, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO issues
		(key, rule, severity, severity_rank, component, project, line, message, author,
		 type, status, resolution, effort, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare issue insert: %w", err)
	}
	defer insertIssue.Close()

	insertTag, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO issue_tags (issue_key, tag) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tag insert: %w", err)
	}
	defer insertTag.Close()

	for _, issue := range issues {
		_, err := insertIssue.ExecContext(ctx,
			issue.Key, issue.Rule, string(issue.Severity), issue.Severity.Rank(),
			issue.Component, issue.Project, issue.Line, issue.Message, issue.Author,
			string(issue.Type), string(issue.Status), issue.Resolution, issue.Effort,
			unixOrZero(issue.CreationDate.Time), unixOrZero(issue.UpdateDate.Time),
		)
		if err != nil {
			return fmt.Errorf("insert issue %s: %w", issue.Key, err)
		}
		for _, tag := range issue.Tags {
			if _, err := insertTag.ExecContext(ctx, issue.Key, tag); err != nil {
				return fmt.Errorf("insert tag %s on %s: %w", tag, issue.Key, err)
			}
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for k, v := range map[string]string{
		"source":      source,
		"count":       fmt.Sprint(len(issues)),
		"imported_at": now,
	} {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("record import %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// LastImport returns details of the last import, or ok=false if the
// database has never been populated.
func (s *Store) LastImport(ctx context.Context) (info ImportInfo, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return ImportInfo{}, false, fmt.Errorf("query import info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return ImportInfo{}, false, fmt.Errorf("scan import info: %w", err)
		}
		switch k {
		case "source":
			info.Source = v
			ok = true
		case "count":
			fmt.Sscan(v, &info.Count)
		case "imported_at":
			info.ImportedAt, _ = time.Parse(time.RFC3339, v)
		}
	}
	return info, ok, rows.Err()
}

// Count returns the number of stored issues.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count issues: %w", err)
	}
	return n, nil
}

// ErrNotFound is returned by GetIssue for unknown keys.
var ErrNotFound = errors.New("issue not found")

// GetIssue loads a single issue by key.
func (s *Store) GetIssue(ctx context.Context, key string) (model.Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE key = ?`, key)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Issue{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return model.Issue{}, err
	}
	list := []model.Issue{issue}
	if err := s.attachTags(ctx, list); err != nil {
		return model.Issue{}, err
	}
	return list[0], nil
}

const issueColumns = `issues.key, issues.rule, issues.severity, issues.component, issues.project,
	issues.line, issues.message, issues.author, issues.type, issues.status, issues.resolution,
	issues.effort, issues.created_at, issues.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (model.Issue, error) {
	var (
		issue              model.Issue
		severity, typ, st  string
		createdAt, updated int64
	)
	err := row.Scan(&issue.Key, &issue.Rule, &severity, &issue.Component, &issue.Project,
		&issue.Line, &issue.Message, &issue.Author, &typ, &st, &issue.Resolution,
		&issue.Effort, &createdAt, &updated)
	if err != nil {
		return model.Issue{}, err
	}
	issue.Severity = model.Severity(severity)
	issue.Type = model.IssueType(typ)
	issue.Status = model.Status(st)
	issue.CreationDate = timestampFromUnix(createdAt)
	issue.UpdateDate = timestampFromUnix(updated)
	return issue, nil
}

// attachTags fills the Tags of issues in place.
func (s *Store) attachTags(ctx context.Context, issues []model.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	index := make(map[string]int, len(issues))
	args := make([]any, len(issues))
	for i, issue := range issues {
		index[issue.Key] = i
		args[i] = issue.Key
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT issue_key, tag FROM issue_tags WHERE issue_key IN (`+placeholders(len(args))+`) ORDER BY tag`,
		args...)
	if err != nil {
		return fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, tag string
		if err := rows.Scan(&key, &tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if i, ok := index[key]; ok {
			issues[i].Tags = append(issues[i].Tags, tag)
		}
	}
	return rows.Err()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timestampFromUnix(sec int64) model.Timestamp {
	if sec == 0 {
		return model.Timestamp{}
	}
	return model.Timestamp{Time: time.Unix(sec, 0).UTC()}
}
