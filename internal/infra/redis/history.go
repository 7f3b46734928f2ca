package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"quiz-starter-service/internal/domain"
)

const historyNamespace = "quiz_history"

// HistoryLedger stores each user's history as a JSON array under
// quiz_history:{userID}. Two processes appending for the same user race with
// last-write-wins semantics, the documented single-user trade-off.
type HistoryLedger struct {
	client *redis.Client
}

func NewHistoryLedger(client *redis.Client) *HistoryLedger {
	return &HistoryLedger{client: client}
}

func historyKey(userID string) string {
	return historyNamespace + ":" + userID
}

func (l *HistoryLedger) Append(ctx context.Context, userID string, record domain.HistoryRecord) error {
	records, err := l.load(ctx, userID)
	if err != nil {
		return err
	}
	return l.save(ctx, userID, append(records, record))
}

func (l *HistoryLedger) ReadAll(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	return l.load(ctx, userID)
}

func (l *HistoryLedger) Users(ctx context.Context) ([]string, error) {
	prefix := historyNamespace + ":"
	var users []string
	iter := l.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		users = append(users, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}

func (l *HistoryLedger) CorrectFirst(ctx context.Context, userID, questionText string) (bool, error) {
	records, err := l.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if domain.CorrectFirstFailure(records, questionText) < 0 {
		return false, nil
	}
	return true, l.save(ctx, userID, records)
}

func (l *HistoryLedger) Clear(ctx context.Context, userID string) error {
	return l.client.Del(ctx, historyKey(userID)).Err()
}

// load tolerates malformed stored values by treating them as empty history.
func (l *HistoryLedger) load(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	data, err := l.client.Get(ctx, historyKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []domain.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil
	}
	return records, nil
}

func (l *HistoryLedger) save(ctx context.Context, userID string, records []domain.HistoryRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, historyKey(userID), data, 0).Err()
}
