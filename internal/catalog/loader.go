package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"quiz-starter-service/internal/domain"
)

// Loader fetches topic content from a backing store (files, Postgres, etc).
type Loader interface {
	LoadTopic(ctx context.Context, topicID string) (domain.Quiz, error)
}

// TopicInfo is one manifest entry.
type TopicInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Manifest lists the topics a catalog directory offers.
type Manifest struct {
	Topics []TopicInfo `json:"topics"`
}

// FileLoader reads topics from a directory holding manifest.json plus one
// {topicID}.json question file per topic.
type FileLoader struct {
	dir string
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{dir: dir}
}

// Topics returns the manifest entries, for topic listings.
func (l *FileLoader) Topics(_ context.Context) ([]TopicInfo, error) {
	manifest, err := l.manifest()
	if err != nil {
		return nil, err
	}
	return manifest.Topics, nil
}

func (l *FileLoader) LoadTopic(_ context.Context, topicID string) (domain.Quiz, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, topicID+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Quiz{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("read topic %s: %w", topicID, err)
	}

	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse topic %s: %w", topicID, err)
	}

	title := topicID
	if manifest, err := l.manifest(); err == nil {
		for _, topic := range manifest.Topics {
			if topic.ID == topicID && topic.Title != "" {
				title = topic.Title
				break
			}
		}
	}
	return domain.Quiz{ID: topicID, Title: title, Questions: questions}, nil
}

// manifest is optional; without one, topic IDs double as titles.
func (l *FileLoader) manifest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, "manifest.json"))
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

// StaticLoader serves topics from an in-memory map (tests, demos, and the
// built-in sample catalog).
type StaticLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticLoader(quizzes map[string]domain.Quiz) *StaticLoader {
	return &StaticLoader{quizzes: quizzes}
}

func (l *StaticLoader) LoadTopic(_ context.Context, topicID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[topicID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrTopicNotFound
}
