package redis

import (
	"context"
	"testing"
	"time"

	"quiz-starter-service/internal/catalog"
	"quiz-starter-service/internal/domain"
)

type countingLoader struct {
	catalog.Loader
	calls int
}

func (l *countingLoader) LoadTopic(ctx context.Context, topicID string) (domain.Quiz, error) {
	l.calls++
	return l.Loader.LoadTopic(ctx, topicID)
}

func TestTopicCacheCachesInRedis(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{Loader: catalog.NewStaticLoader(map[string]domain.Quiz{
		"html": {ID: "html", Title: "HTML", Questions: []domain.Question{
			{Text: "q", Options: []string{"a", "b"}, Answer: domain.SingleAnswer(1)},
		}},
	})}
	cache := NewTopicCache(newTestClient(t), loader, time.Minute)

	quiz, err := cache.GetTopic(ctx, "html")
	if err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(quiz.Questions) != 1 || quiz.Title != "HTML" {
		t.Fatalf("unexpected quiz: %+v", quiz)
	}

	quiz, err = cache.GetTopic(ctx, "html")
	if err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if quiz.Questions[0].Answer.Normalized()[0] != 1 {
		t.Fatalf("answer key lost through cache round trip: %+v", quiz.Questions[0].Answer)
	}
}
