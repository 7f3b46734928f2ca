package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"quiz-starter-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    theme TEXT NOT NULL,
    theme_id TEXT NOT NULL,
    score INTEGER NOT NULL,
    total_questions INTEGER NOT NULL,
    date TEXT NOT NULL,
    time_elapsed INTEGER NOT NULL,
    results TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id);
`

// HistoryLedger is a single-file durable implementation of app.HistoryLedger.
// rowid keeps insertion order, which is the ledger's chronological order.
type HistoryLedger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*HistoryLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &HistoryLedger{db: db}, nil
}

func (l *HistoryLedger) Close() error {
	return l.db.Close()
}

func (l *HistoryLedger) Append(ctx context.Context, userID string, record domain.HistoryRecord) error {
	results, err := json.Marshal(record.QuestionResults)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO history (id, user_id, theme, theme_id, score, total_questions, date, time_elapsed, results)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, userID, record.Theme, record.ThemeID, record.Score,
		record.TotalQuestions, record.Date, record.TimeElapsed, string(results))
	return err
}

func (l *HistoryLedger) ReadAll(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, theme, theme_id, score, total_questions, date, time_elapsed, results
		 FROM history WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		record := domain.HistoryRecord{UserID: userID}
		var results string
		if err := rows.Scan(&record.ID, &record.Theme, &record.ThemeID, &record.Score,
			&record.TotalQuestions, &record.Date, &record.TimeElapsed, &results); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(results), &record.QuestionResults); err != nil {
			// A malformed results blob keeps the record's totals usable.
			record.QuestionResults = nil
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (l *HistoryLedger) Users(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM history ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// CorrectFirst flips the first failed entry for questionText in the user's
// oldest matching record and bumps that record's score, inside a transaction.
func (l *HistoryLedger) CorrectFirst(ctx context.Context, userID, questionText string) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, score, results FROM history WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return false, err
	}

	var matchID string
	var matchScore int
	var matchResults []domain.QuestionResult
	for rows.Next() {
		var id, results string
		var score int
		if err := rows.Scan(&id, &score, &results); err != nil {
			rows.Close()
			return false, err
		}
		var parsed []domain.QuestionResult
		if err := json.Unmarshal([]byte(results), &parsed); err != nil {
			continue
		}
		wrapped := []domain.HistoryRecord{{Score: score, QuestionResults: parsed}}
		if domain.CorrectFirstFailure(wrapped, questionText) >= 0 {
			matchID = id
			matchScore = wrapped[0].Score
			matchResults = wrapped[0].QuestionResults
			break
		}
	}
	rows.Close()
	if matchID == "" {
		return false, nil
	}

	updated, err := json.Marshal(matchResults)
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE history SET score = ?, results = ? WHERE id = ?`,
		matchScore, string(updated), matchID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (l *HistoryLedger) Clear(ctx context.Context, userID string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?`, userID)
	return err
}
