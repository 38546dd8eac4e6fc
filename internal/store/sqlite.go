package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/headwinds/internal/agent"
	"github.com/nvandessel/headwinds/internal/analysis"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Run is the stored summary of one simulation run.
type Run struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	Status            string          `json:"status"`
	Seed              uint64          `json:"seed"`
	Agents            int             `json:"agents"`
	StepsRequested    int             `json:"steps_requested"`
	StepsCompleted    int             `json:"steps_completed"`
	PostProbability   float64         `json:"post_probability"`
	DecayRate         float64         `json:"decay_rate"`
	ReinforcementRate float64         `json:"reinforcement_rate"`
	Dim               int             `json:"dim"`
	VocabSize         int             `json:"vocab_size"`
	Messages          int             `json:"messages"`
	Deliveries        int             `json:"deliveries"`
	Elapsed           time.Duration   `json:"elapsed"`
	Config            json.RawMessage `json:"config,omitempty"`
}

// RunData is everything recorded for a run besides its summary row.
type RunData struct {
	Messages  []agent.Message
	Strengths []analysis.WordStrength
	Usage     []analysis.WordCount
}

// SQLiteRunStore persists runs in a SQLite database.
type SQLiteRunStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the results database in dir.
func Open(dir string) (*SQLiteRunStore, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	return OpenPath(DatabasePath(dir) + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
}

// OpenPath opens a database by driver DSN, e.g. ":memory:" in tests.
func OpenPath(dsn string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; also keeps a :memory: database on one connection.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dsn}, nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// SaveRun stores run and its data in a single transaction and returns the
// new run ID. run.ID is ignored, a zero CreatedAt is set to now and the
// name is passed through SanitizeRunName.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run Run, data RunData) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusCompleted
	}
	run.Name = SanitizeRunName(run.Name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (name, created_at, status, seed, agents, steps_requested, steps_completed,
			post_probability, decay_rate, reinforcement_rate, dim, vocab_size,
			messages, deliveries, elapsed_ms, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Name, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Status, int64(run.Seed),
		run.Agents, run.StepsRequested, run.StepsCompleted,
		run.PostProbability, run.DecayRate, run.ReinforcementRate, run.Dim, run.VocabSize,
		run.Messages, run.Deliveries, run.Elapsed.Milliseconds(), nullJSON(run.Config))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	if err := insertMessages(ctx, tx, id, data.Messages); err != nil {
		return 0, err
	}
	if err := insertStrengths(ctx, tx, id, data.Strengths); err != nil {
		return 0, err
	}
	if err := insertUsage(ctx, tx, id, data.Usage); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, runID int64, msgs []agent.Message) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (run_id, id, step, sender, content, vector) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		content, err := json.Marshal(m.Content)
		if err != nil {
			return fmt.Errorf("failed to encode message %d content: %w", m.ID, err)
		}
		vector, err := json.Marshal(m.Vector)
		if err != nil {
			return fmt.Errorf("failed to encode message %d vector: %w", m.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, m.ID, m.Step, m.Sender, string(content), string(vector)); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", m.ID, err)
		}
	}
	return nil
}

func insertStrengths(ctx context.Context, tx *sql.Tx, runID int64, strengths []analysis.WordStrength) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO word_strengths (run_id, word, mean, median, stddev, min, max) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare strength insert: %w", err)
	}
	defer stmt.Close()

	for _, ws := range strengths {
		if _, err := stmt.ExecContext(ctx, runID, ws.Word, ws.Mean, ws.Median, ws.StdDev, ws.Min, ws.Max); err != nil {
			return fmt.Errorf("failed to insert strength for %q: %w", ws.Word, err)
		}
	}
	return nil
}

func insertUsage(ctx context.Context, tx *sql.Tx, runID int64, usage []analysis.WordCount) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO word_usage (run_id, word, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, wc := range usage {
		if _, err := stmt.ExecContext(ctx, runID, wc.Word, wc.Count); err != nil {
			return fmt.Errorf("failed to insert usage for %q: %w", wc.Word, err)
		}
	}
	return nil
}

const runColumns = `id, name, created_at, status, seed, agents, steps_requested, steps_completed,
	post_probability, decay_rate, reinforcement_rate, dim, vocab_size,
	messages, deliveries, elapsed_ms, config`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r         Run
		createdAt string
		seed      int64
		elapsedMS int64
		config    sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &createdAt, &r.Status, &seed, &r.Agents,
		&r.StepsRequested, &r.StepsCompleted, &r.PostProbability, &r.DecayRate,
		&r.ReinforcementRate, &r.Dim, &r.VocabSize, &r.Messages, &r.Deliveries,
		&elapsedMS, &config)
	if err != nil {
		return Run{}, err
	}

	r.Seed = uint64(seed)
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	if config.Valid && config.String != "" {
		r.Config = json.RawMessage(config.String)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Run{}, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	return r, nil
}

// ListRuns returns every stored run, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or ErrRunNotFound.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	return &r, nil
}

// LoadMessages returns a run's message log in posting order.
func (s *SQLiteRunStore) LoadMessages(ctx context.Context, runID int64) ([]agent.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, step, sender, content, vector FROM messages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []agent.Message
	for rows.Next() {
		var (
			m               agent.Message
			content, vector string
		)
		if err := rows.Scan(&m.ID, &m.Step, &m.Sender, &content, &vector); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
			return nil, fmt.Errorf("failed to decode message %d content: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(vector), &m.Vector); err != nil {
			return nil, fmt.Errorf("failed to decode message %d vector: %w", m.ID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LoadStrengths returns a run's word-strength summary, strongest first.
func (s *SQLiteRunStore) LoadStrengths(ctx context.Context, runID int64) ([]analysis.WordStrength, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT word, mean, median, stddev, min, max FROM word_strengths
		 WHERE run_id = ? ORDER BY mean DESC, word`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query word strengths: %w", err)
	}
	defer rows.Close()

	var out []analysis.WordStrength
	for rows.Next() {
		var ws analysis.WordStrength
		if err := rows.Scan(&ws.Word, &ws.Mean, &ws.Median, &ws.StdDev, &ws.Min, &ws.Max); err != nil {
			return nil, fmt.Errorf("failed to scan word strength: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// LoadUsage returns a run's word usage counts, most used first.
func (s *SQLiteRunStore) LoadUsage(ctx context.Context, runID int64) ([]analysis.WordCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT word, count FROM word_usage WHERE run_id = ? ORDER BY count DESC, word`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query word usage: %w", err)
	}
	defer rows.Close()

	var out []analysis.WordCount
	for rows.Next() {
		var wc analysis.WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan word usage: %w", err)
		}
		out = append(out, wc)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything recorded for it.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// Path returns the DSN the store was opened with.
func (s *SQLiteRunStore) Path() string { return s.dbPath }
