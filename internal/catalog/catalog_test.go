package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-starter-service/internal/domain"
)

func writeTopicDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manifest := `{"topics":[{"id":"html","title":"HTML Basics"},{"id":"css","title":"CSS"}]}`
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	topic := `[
		{"question":"What does HTML stand for?","options":["HyperText Markup Language","Home Tool"],"answer":0},
		{"question":"Pick the block elements","options":["div","span","p","b"],"answer":[0,2]}
	]`
	if err := os.WriteFile(filepath.Join(dir, "html.json"), []byte(topic), 0o644); err != nil {
		t.Fatalf("write topic: %v", err)
	}
	return dir
}

func TestFileLoaderLoadsTopicWithManifestTitle(t *testing.T) {
	loader := NewFileLoader(writeTopicDir(t))

	quiz, err := loader.LoadTopic(context.Background(), "html")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if quiz.ID != "html" || quiz.Title != "HTML Basics" {
		t.Fatalf("unexpected quiz identity: %+v", quiz)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	if quiz.Questions[0].Answer.IsMulti() {
		t.Fatalf("first question should be single-answer")
	}
	if !quiz.Questions[1].Answer.IsMulti() {
		t.Fatalf("second question should be multi-answer")
	}
}

func TestFileLoaderMissingTopic(t *testing.T) {
	loader := NewFileLoader(writeTopicDir(t))
	_, err := loader.LoadTopic(context.Background(), "nope")
	if !errors.Is(err, domain.ErrTopicNotFound) {
		t.Fatalf("expected ErrTopicNotFound, got %v", err)
	}
}

func TestFileLoaderTopics(t *testing.T) {
	loader := NewFileLoader(writeTopicDir(t))
	topics, err := loader.Topics(context.Background())
	if err != nil {
		t.Fatalf("topics: %v", err)
	}
	if len(topics) != 2 || topics[0].ID != "html" || topics[1].Title != "CSS" {
		t.Fatalf("unexpected topics: %+v", topics)
	}
}

type countingLoader struct {
	Loader
	calls int
}

func (l *countingLoader) LoadTopic(ctx context.Context, topicID string) (domain.Quiz, error) {
	l.calls++
	return l.Loader.LoadTopic(ctx, topicID)
}

func TestRepositoryCachesLoads(t *testing.T) {
	loader := &countingLoader{Loader: NewStaticLoader(map[string]domain.Quiz{
		"html": {ID: "html", Title: "HTML", Questions: []domain.Question{
			{Text: "q", Options: []string{"a", "b"}, Answer: domain.SingleAnswer(0)},
		}},
	})}
	repo := NewRepository(loader, 5*time.Minute)

	if _, err := repo.GetTopic(context.Background(), "html"); err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache.
	if _, err := repo.GetTopic(context.Background(), "html"); err != nil {
		t.Fatalf("get topic: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewRepository(NewStaticLoader(nil), time.Minute)
	_, err := repo.GetTopic(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTopicNotFound) {
		t.Fatalf("expected ErrTopicNotFound, got %v", err)
	}
}
