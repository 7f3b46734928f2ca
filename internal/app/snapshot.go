package app

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"quiz-starter-service/internal/domain"
)

// KV abstracts how snapshots are stored (in-memory, Redis, etc). Reads report
// presence explicitly so absent and empty values cannot be confused.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by stores that can wipe every key under a
// prefix; used when clearing all of a user's in-progress attempts.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

const progressNamespace = "quiz_progress"

func snapshotKey(userID, quizID string) string {
	return progressNamespace + ":" + userID + ":" + quizID
}

// SnapshotStore serializes session snapshots keyed by (user, quiz). One
// snapshot per user per topic, so concurrent attempts across topics never
// collide.
type SnapshotStore struct {
	kv     KV
	logger *zap.Logger
}

func NewSnapshotStore(kv KV, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{kv: kv, logger: logger}
}

// Save overwrites any prior snapshot for the snapshot's (user, quiz) key.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, snapshotKey(snap.UserID, snap.QuizID), data)
}

// Load returns the last saved snapshot. Absent, unreadable, or malformed
// values all report absent; a corrupt snapshot must never block a fresh start.
func (s *SnapshotStore) Load(ctx context.Context, userID, quizID string) (domain.Snapshot, bool) {
	key := snapshotKey(userID, quizID)
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		if err != nil {
			s.logger.Debug("snapshot read failed, treating as absent", zap.String("key", key), zap.Error(err))
		}
		return domain.Snapshot{}, false
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Debug("snapshot malformed, treating as absent", zap.String("key", key), zap.Error(err))
		return domain.Snapshot{}, false
	}
	return snap, true
}

// Clear removes the snapshot for one (user, quiz) pair.
func (s *SnapshotStore) Clear(ctx context.Context, userID, quizID string) error {
	return s.kv.Delete(ctx, snapshotKey(userID, quizID))
}

// ClearUser removes every in-progress snapshot a user has, across topics.
func (s *SnapshotStore) ClearUser(ctx context.Context, userID string) error {
	if pd, ok := s.kv.(PrefixDeleter); ok {
		return pd.DeletePrefix(ctx, progressNamespace+":"+userID+":")
	}
	return nil
}
