package macpp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultCheckpointCapacity is the number of iterations buffered between
// flushes.
const DefaultCheckpointCapacity = 10000

// Row is the full parameter vector after one iteration.
type Row struct {
	Iteration int       `json:"iteration"`
	LambdaC   []float64 `json:"lambda_c"`
	Mu0       []float64 `json:"mu0"`
	H         []float64 `json:"h"`
	LambdaO   []float64 `json:"lambda_o"`
}

// CheckpointHeader names the columns of every Row.
type CheckpointHeader struct {
	RunID          string   `json:"run_id"`
	ParentTypes    []string `json:"parent_types"`
	OffspringTypes []string `json:"offspring_types"`
	UnrelatedTypes []string `json:"unrelated_types"`
}

// Checkpoint is the persisted history of a run, every iteration included.
type Checkpoint struct {
	CheckpointHeader
	Rows []Row
}

// CheckpointSink persists flushed rows. After each Write the destination
// must hold the whole history written so far.
type CheckpointSink interface {
	Write(ctx context.Context, rows []Row) error
	Close() error
}

// checkpointBuffer is a fixed capacity buffer of rows. Appends and the
// flush-and-clear are serialised so a flush never races an append.
type checkpointBuffer struct {
	mu   sync.Mutex
	rows []Row
}

func newCheckpointBuffer(capacity int) *checkpointBuffer {
	if capacity < 1 {
		capacity = DefaultCheckpointCapacity
	}
	return &checkpointBuffer{rows: make([]Row, 0, capacity)}
}

// append stores r and reports whether the buffer is now full.
func (b *checkpointBuffer) append(r Row) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = append(b.rows, r)
	return len(b.rows) == cap(b.rows)
}

func (b *checkpointBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// flush writes the buffered rows to sink and clears the buffer. On error the
// rows stay buffered.
func (b *checkpointBuffer) flush(ctx context.Context, sink CheckpointSink) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.rows)
	if n == 0 {
		return 0, nil
	}
	if err := sink.Write(ctx, b.rows); err != nil {
		return 0, err
	}
	b.rows = b.rows[:0]
	return n, nil
}

// OpenCheckpointSink picks the backend from the file extension: .db, .sqlite
// and .sqlite3 use SQLite, anything else is a JSON file.
func OpenCheckpointSink(path string, header CheckpointHeader) (CheckpointSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: checkpoint path is empty", ErrConfiguration)
	}
	if isSQLitePath(path) {
		return NewSQLiteSink(path, header)
	}
	return NewJSONSink(path, header)
}

func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// LoadCheckpoint reads a checkpoint written by either backend.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	if isSQLitePath(path) {
		return loadSQLiteCheckpoint(path)
	}
	v, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cj checkpointJSON
	if err := json.Unmarshal(v, &cj); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return &Checkpoint{CheckpointHeader: cj.CheckpointHeader, Rows: cj.Rows}, nil
}

// JSONSink rewrites a single JSON document with the cumulative history on
// every flush. The file is replaced atomically.
type JSONSink struct {
	path    string
	header  CheckpointHeader
	history []Row
}

// NewJSONSink creates the parent directory and an empty checkpoint file.
func NewJSONSink(path string, header CheckpointHeader) (*JSONSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	s := &JSONSink{path: path, header: header}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONSink) Write(_ context.Context, rows []Row) error {
	s.history = append(s.history, cloneRows(rows)...)
	return s.persist()
}

func (s *JSONSink) Close() error { return nil }

func (s *JSONSink) persist() error {
	v, err := json.Marshal(&checkpointJSON{CheckpointHeader: s.header, Rows: s.history})
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return writeFileAtomic(s.path, v)
}

func writeFileAtomic(path string, v []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(v); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// SQLiteSink appends rows to a SQLite table, one transaction per flush.
// Opening it clears rows left by an earlier run at the same path.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens or creates the database at path.
func NewSQLiteSink(path string, header CheckpointHeader) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS header (id INTEGER PRIMARY KEY CHECK (id = 1), payload BLOB NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS rows (iteration INTEGER PRIMARY KEY, payload BLOB NOT NULL)`,
		`DELETE FROM rows`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare checkpoint tables: %w", err)
		}
	}
	payload, err := json.Marshal(header)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO header (id, payload) VALUES (1, ?)`, payload); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, rows []Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO rows (iteration, payload) VALUES (?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range rows {
		payload, err := json.Marshal(r)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode row %d: %w", r.Iteration, err)
		}
		if _, err := stmt.ExecContext(ctx, r.Iteration, payload); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d: %w", r.Iteration, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

func loadSQLiteCheckpoint(path string) (*Checkpoint, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	cp := &Checkpoint{}
	var header []byte
	if err := db.QueryRow(`SELECT payload FROM header WHERE id = 1`).Scan(&header); err != nil {
		return nil, fmt.Errorf("select header: %w", err)
	}
	if err := json.Unmarshal(header, &cp.CheckpointHeader); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	rows, err := db.Query(`SELECT payload FROM rows ORDER BY iteration`)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var r Row
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		cp.Rows = append(cp.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return cp, nil
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}
