package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-starter-service/internal/domain"
)

// TopicLoader loads topic question data from Postgres. Questions are stored
// as JSONB in the shape the file catalog uses, so both backends produce
// identical quizzes.
type TopicLoader struct {
	pool *pgxpool.Pool
}

func NewTopicLoader(pool *pgxpool.Pool) *TopicLoader {
	return &TopicLoader{pool: pool}
}

func (l *TopicLoader) LoadTopic(ctx context.Context, topicID string) (domain.Quiz, error) {
	var title string
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT title, data FROM topics WHERE id=$1`, topicID).Scan(&title, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load topic: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal topic: %w", err)
	}
	return domain.Quiz{ID: topicID, Title: title, Questions: questions}, nil
}
