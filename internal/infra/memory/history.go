package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-starter-service/internal/domain"
)

// HistoryLedger is an in-memory implementation of app.HistoryLedger.
// Insertion order is chronological order.
type HistoryLedger struct {
	mu      sync.RWMutex
	records map[string][]domain.HistoryRecord
}

func NewHistoryLedger() *HistoryLedger {
	return &HistoryLedger{records: make(map[string][]domain.HistoryRecord)}
}

func (l *HistoryLedger) Append(_ context.Context, userID string, record domain.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[userID] = append(l.records[userID], record)
	return nil
}

func (l *HistoryLedger) ReadAll(_ context.Context, userID string) ([]domain.HistoryRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyRecords(l.records[userID]), nil
}

func (l *HistoryLedger) Users(_ context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	users := make([]string, 0, len(l.records))
	for user := range l.records {
		users = append(users, user)
	}
	sort.Strings(users)
	return users, nil
}

func (l *HistoryLedger) CorrectFirst(_ context.Context, userID, questionText string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.CorrectFirstFailure(l.records[userID], questionText) >= 0, nil
}

func (l *HistoryLedger) Clear(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, userID)
	return nil
}

func copyRecords(records []domain.HistoryRecord) []domain.HistoryRecord {
	out := make([]domain.HistoryRecord, len(records))
	copy(out, records)
	for i := range out {
		results := make([]domain.QuestionResult, len(out[i].QuestionResults))
		copy(results, out[i].QuestionResults)
		out[i].QuestionResults = results
	}
	return out
}
