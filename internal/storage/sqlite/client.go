package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/websage/backend/internal/storage/models"
	"github.com/websage/backend/pkg/logger"
)

// Client records extraction batches and answer history. This is session
// bookkeeping for display, not a knowledge base; the index itself is never
// persisted here.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS extraction_batches (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		strategy TEXT NOT NULL,
		method TEXT,
		url_count INTEGER NOT NULL,
		success_count INTEGER NOT NULL,
		segment_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_batches_session ON extraction_batches(session_id);
	CREATE INDEX IF NOT EXISTS idx_batches_created ON extraction_batches(created_at);

	CREATE TABLE IF NOT EXISTS batch_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		FOREIGN KEY (batch_id) REFERENCES extraction_batches(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_batch_urls_batch ON batch_urls(batch_id);

	CREATE TABLE IF NOT EXISTS answer_history (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_answers_session ON answer_history(session_id);
	CREATE INDEX IF NOT EXISTS idx_answers_created ON answer_history(created_at);

	CREATE TABLE IF NOT EXISTS answer_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		answer_id TEXT NOT NULL,
		source_url TEXT,
		segment_id TEXT,
		score REAL,
		FOREIGN KEY (answer_id) REFERENCES answer_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sources_answer ON answer_sources(answer_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Database schema initialized")

	return nil
}

func (c *Client) InsertBatch(batch *models.ExtractionBatch, urls []models.BatchURL) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO extraction_batches (id, session_id, strategy, method, url_count, success_count, segment_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.SessionID, batch.Strategy, batch.Method,
		batch.URLCount, batch.SuccessCount, batch.SegmentCount,
		batch.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for _, u := range urls {
		_, err = tx.Exec(
			`INSERT INTO batch_urls (batch_id, url, status, error) VALUES (?, ?, ?, ?)`,
			batch.ID, u.URL, u.Status, u.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to insert batch url: %w", err)
		}
	}

	return tx.Commit()
}

func (c *Client) InsertAnswer(record *models.AnswerRecord, sources []models.AnswerSource) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO answer_history (id, session_id, question, answer, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.SessionID, record.Question, record.Answer,
		record.LatencyMS, record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert answer: %w", err)
	}

	for _, s := range sources {
		_, err = tx.Exec(
			`INSERT INTO answer_sources (answer_id, source_url, segment_id, score) VALUES (?, ?, ?, ?)`,
			record.ID, s.SourceURL, s.SegmentID, s.Score,
		)
		if err != nil {
			return fmt.Errorf("failed to insert answer source: %w", err)
		}
	}

	return tx.Commit()
}

func (c *Client) ListAnswers(sessionID string, limit int) ([]models.AnswerRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.Query(
		`SELECT id, session_id, question, answer, latency_ms, created_at
		 FROM answer_history WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var records []models.AnswerRecord
	for rows.Next() {
		var r models.AnswerRecord
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Question, &r.Answer, &r.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) ListBatches(sessionID string, limit int) ([]models.ExtractionBatch, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.Query(
		`SELECT id, session_id, strategy, method, url_count, success_count, segment_count, created_at
		 FROM extraction_batches WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []models.ExtractionBatch
	for rows.Next() {
		var b models.ExtractionBatch
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.SessionID, &b.Strategy, &b.Method, &b.URLCount, &b.SuccessCount, &b.SegmentCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.CreatedAt = time.Unix(createdAt, 0)
		batches = append(batches, b)
	}

	return batches, rows.Err()
}
