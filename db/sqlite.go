package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        model_version TEXT NOT NULL,
        churn_prediction INTEGER NOT NULL,
        churn_probability REAL NOT NULL,
        risk_level TEXT NOT NULL,
        features TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `

// Prediction is one served prediction as stored in the log
type Prediction struct {
	ID               int64     `json:"id"`
	RequestID        string    `json:"request_id"`
	ModelVersion     string    `json:"model_version"`
	ChurnPrediction  int       `json:"churn_prediction"`
	ChurnProbability float64   `json:"churn_probability"`
	RiskLevel        string    `json:"risk_level"`
	Features         string    `json:"features"`
	CreatedAt        time.Time `json:"created_at"`
}

// PredictionLog persists served predictions to SQLite. Writes go through a
// bounded queue drained by Run so request handlers never wait on disk.
type PredictionLog struct {
	database *sql.DB
	logger   *zap.Logger
	queue    chan Prediction

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the prediction log at path
func Open(path string, queueSize int, logger *zap.Logger) (*PredictionLog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, err
	}

	return &PredictionLog{
		database: database,
		logger:   logger,
		queue:    make(chan Prediction, queueSize),
	}, nil
}

// Record queues p for writing. It never blocks: when the queue is full the
// record is dropped and reported as false.
func (l *PredictionLog) Record(p Prediction) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	select {
	case l.queue <- p:
		return true
	default:
		l.logger.Warn("prediction log queue is full, dropping record", zap.String("request_id", p.RequestID))
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left
func (l *PredictionLog) Run(ctx context.Context) error {
	for {
		select {
		case p := <-l.queue:
			l.write(p)
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.mu.Unlock()
			for {
				select {
				case p := <-l.queue:
					l.write(p)
				default:
					return nil
				}
			}
		}
	}
}

func (l *PredictionLog) write(p Prediction) {
	if err := l.Save(p); err != nil {
		l.logger.Error("failed to write prediction log", zap.String("request_id", p.RequestID), zap.Error(err))
	}
}

// Save writes p synchronously
func (l *PredictionLog) Save(p Prediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := l.database.Exec(`
        INSERT INTO predictions (
            request_id, model_version, churn_prediction, churn_probability,
            risk_level, features, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.RequestID, p.ModelVersion, p.ChurnPrediction, p.ChurnProbability,
		p.RiskLevel, p.Features, p.CreatedAt)
	return err
}

// Recent returns the newest predictions first
func (l *PredictionLog) Recent(limit int) ([]Prediction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.database.Query(`
        SELECT id, request_id, model_version, churn_prediction, churn_probability,
               risk_level, features, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]Prediction, 0, limit)
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.RequestID, &p.ModelVersion, &p.ChurnPrediction,
			&p.ChurnProbability, &p.RiskLevel, &p.Features, &p.CreatedAt); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// RiskCounts counts logged predictions per risk level
func (l *PredictionLog) RiskCounts() (map[string]int, error) {
	rows, err := l.database.Query(`
        SELECT risk_level, COUNT(*)
        FROM predictions
        GROUP BY risk_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying database. Call it after Run has returned.
func (l *PredictionLog) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return l.database.Close()
}
