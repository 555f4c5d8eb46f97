package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Build is the summary of one structure map build. Trees themselves are
// never persisted; every build starts from scratch.
type Build struct {
	RunID           string
	Root            string
	Timestamp       time.Time
	FileCount       int
	ModuleCount     int
	PackageCount    int
	EdgeCount       int
	CyclicGroups    int
	UnresolvedCount int
	ExcludedCount   int
	MaxLevel        int
	Duration        time.Duration
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveBuild records b. Saving the same run id twice overwrites the row.
func (s *Store) SaveBuild(b Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(b.RunID) == "" {
		return fmt.Errorf("build run id must not be empty")
	}
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now().UTC()
	}

	query := `
INSERT INTO builds (
  run_id, root, ts_utc, file_count, module_count, package_count, edge_count,
  cyclic_group_count, unresolved_count, excluded_count, max_level, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  root=excluded.root,
  ts_utc=excluded.ts_utc,
  file_count=excluded.file_count,
  module_count=excluded.module_count,
  package_count=excluded.package_count,
  edge_count=excluded.edge_count,
  cyclic_group_count=excluded.cyclic_group_count,
  unresolved_count=excluded.unresolved_count,
  excluded_count=excluded.excluded_count,
  max_level=excluded.max_level,
  duration_ms=excluded.duration_ms
`
	return s.withRetry("save build", func() error {
		_, err := s.db.Exec(query,
			b.RunID,
			b.Root,
			b.Timestamp.UTC().Format(time.RFC3339Nano),
			b.FileCount,
			b.ModuleCount,
			b.PackageCount,
			b.EdgeCount,
			b.CyclicGroups,
			b.UnresolvedCount,
			b.ExcludedCount,
			b.MaxLevel,
			b.Duration.Milliseconds(),
		)
		return err
	})
}

// LoadBuilds returns the builds of root, newest first. A zero since loads
// every build; a non-positive limit means no limit.
func (s *Store) LoadBuilds(root string, since time.Time, limit int) ([]Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  run_id, root, ts_utc, file_count, module_count, package_count, edge_count,
  cyclic_group_count, unresolved_count, excluded_count, max_level, duration_ms
FROM builds
WHERE root = ?`
	args := []any{root}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc DESC, run_id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load builds", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builds := make([]Build, 0)
	for rows.Next() {
		var (
			b          Build
			tsRaw      string
			durationMS int64
		)
		if err := rows.Scan(
			&b.RunID,
			&b.Root,
			&tsRaw,
			&b.FileCount,
			&b.ModuleCount,
			&b.PackageCount,
			&b.EdgeCount,
			&b.CyclicGroups,
			&b.UnresolvedCount,
			&b.ExcludedCount,
			&b.MaxLevel,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan build row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse build timestamp %q: %w", tsRaw, err)
		}
		b.Timestamp = ts.UTC()
		b.Duration = time.Duration(durationMS) * time.Millisecond
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build rows: %w", err)
	}
	return builds, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
