// Package store keeps the prediction log the serving API writes and the
// dashboard reads, backed by SQLite.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Prediction is one served inference.
type Prediction struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Digit      int       `json:"digit"`
	Confidence float64   `json:"confidence"`
	Model      string    `json:"model"`
	Source     string    `json:"source"`
}

// Open opens (or creates) the prediction log at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			digit INTEGER NOT NULL,
			confidence DOUBLE NOT NULL,
			model TEXT NOT NULL,
			source TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordPrediction inserts one prediction and returns its id.
func (s *Store) RecordPrediction(digit int, confidence float64, model, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO predictions (id, digit, confidence, model, source) VALUES (?, ?, ?, ?, ?)",
		id, digit, confidence, model, source)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(limit int) ([]Prediction, error) {
	rows, err := s.db.Query(
		"SELECT id, created_at, digit, confidence, model, source FROM predictions ORDER BY created_at DESC, id LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.Digit, &p.Confidence, &p.Model, &p.Source); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountByDigit returns how many predictions landed on each digit.
func (s *Store) CountByDigit() (map[int]int, error) {
	rows, err := s.db.Query("SELECT digit, COUNT(*) FROM predictions GROUP BY digit")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var digit, count int
		if err := rows.Scan(&digit, &count); err != nil {
			return nil, err
		}
		out[digit] = count
	}
	return out, rows.Err()
}
