package neural

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
)

// RunStore provides SQLite persistence for finished runs and their retention matrices.
type RunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	config RunStoreConfig
}

// RunStoreConfig configures the run store.
type RunStoreConfig struct {
	// DBPath is the SQLite database path.
	DBPath string `json:"dbPath"`

	// DefaultLimit caps ListRuns when no limit is given.
	DefaultLimit int `json:"defaultLimit"`
}

// DefaultRunStoreConfig returns the default configuration.
func DefaultRunStoreConfig() RunStoreConfig {
	return RunStoreConfig{
		DBPath:       ":memory:",
		DefaultLimit: 20,
	}
}

// NewRunStore opens (and if needed creates) a run store.
func NewRunStore(config RunStoreConfig) (*RunStore, error) {
	db, err := sql.Open("sqlite", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	store := &RunStore{
		db:     db,
		config: config,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *RunStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			seed INTEGER NOT NULL,
			seq_len INTEGER NOT NULL,
			vocab_size INTEGER NOT NULL,
			config_json TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS retention (
			run_id TEXT NOT NULL,
			stage_index INTEGER NOT NULL,
			trained_task TEXT NOT NULL,
			eval_index INTEGER NOT NULL,
			eval_task TEXT NOT NULL,
			accuracy REAL NOT NULL,
			PRIMARY KEY (run_id, stage_index, eval_index),
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
		CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a run, assigning an ID and timestamp when missing.
// It returns the run ID.
func (s *RunStore) SaveRun(run *domainNeural.RunRecord) (string, error) {
	if run.Retention == nil {
		return "", fmt.Errorf("%w: run has no retention matrix", domainNeural.ErrIncompleteMatrix)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, model, seed, seq_len, vocab_size, config_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Model, run.Seed, run.SeqLen, run.VocabSize,
		string(run.Config), run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM retention WHERE run_id = ?", run.ID); err != nil {
		return "", fmt.Errorf("failed to delete old retention rows: %w", err)
	}

	m := run.Retention
	tasks, stages := m.Tasks(), m.Stages()
	for si, trained := range stages {
		for ei, evaluated := range tasks {
			_, err = tx.Exec(`
				INSERT INTO retention
				(run_id, stage_index, trained_task, eval_index, eval_task, accuracy)
				VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, si, trained, ei, evaluated, m.At(si, ei),
			)
			if err != nil {
				return "", fmt.Errorf("failed to insert retention row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// GetRun retrieves a run by ID. It returns nil when no such run exists.
func (s *RunStore) GetRun(runID string) (*domainNeural.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT run_id, model, seed, seq_len, vocab_size, config_json, created_at
		FROM runs WHERE run_id = ?`, runID)

	var run domainNeural.RunRecord
	var configJSON sql.NullString
	var createdMs int64
	err := row.Scan(&run.ID, &run.Model, &run.Seed, &run.SeqLen, &run.VocabSize, &configJSON, &createdMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.CreatedAt = time.UnixMilli(createdMs)
	if configJSON.Valid && configJSON.String != "" {
		run.Config = []byte(configJSON.String)
	}

	matrix, err := s.loadRetention(run.ID, run.Model)
	if err != nil {
		return nil, err
	}
	run.Retention = matrix
	return &run, nil
}

func (s *RunStore) loadRetention(runID, model string) (*domainNeural.RetentionMatrix, error) {
	rows, err := s.db.Query(`
		SELECT stage_index, trained_task, eval_index, eval_task, accuracy
		FROM retention WHERE run_id = ? ORDER BY stage_index, eval_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query retention: %w", err)
	}
	defer rows.Close()

	var tasks, stages []string
	var scores [][]float64
	for rows.Next() {
		var stageIndex, evalIndex int
		var trained, evaluated string
		var accuracy float64
		if err := rows.Scan(&stageIndex, &trained, &evalIndex, &evaluated, &accuracy); err != nil {
			return nil, fmt.Errorf("failed to scan retention row: %w", err)
		}
		if stageIndex == len(stages) {
			stages = append(stages, trained)
			scores = append(scores, nil)
		}
		if stageIndex == 0 {
			tasks = append(tasks, evaluated)
		}
		scores[stageIndex] = append(scores[stageIndex], accuracy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read retention rows: %w", err)
	}

	matrix := domainNeural.NewRetentionMatrix(model, tasks)
	for i, trained := range stages {
		if err := matrix.Record(trained, scores[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", domainNeural.ErrIncompleteMatrix, err)
		}
	}
	matrix.Freeze()
	return matrix, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]domainNeural.RunSummary, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT r.run_id, r.model, r.seed, r.created_at,
		       (SELECT COUNT(DISTINCT stage_index) FROM retention t WHERE t.run_id = r.run_id)
		FROM runs r ORDER BY r.created_at DESC, r.run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []domainNeural.RunSummary
	for rows.Next() {
		var summary domainNeural.RunSummary
		var createdMs int64
		if err := rows.Scan(&summary.ID, &summary.Model, &summary.Seed, &createdMs, &summary.Stages); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summary.CreatedAt = time.UnixMilli(createdMs)
		runs = append(runs, summary)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}
