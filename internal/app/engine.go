package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quiz-starter-service/internal/domain"
)

// HistoryLedger is the append-only per-user record of completed attempts.
// CorrectFirst is the sole permitted mutation, scoped to revision mode.
type HistoryLedger interface {
	Append(ctx context.Context, userID string, record domain.HistoryRecord) error
	ReadAll(ctx context.Context, userID string) ([]domain.HistoryRecord, error)
	Users(ctx context.Context) ([]string, error)
	CorrectFirst(ctx context.Context, userID, questionText string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

// Options tunes session behavior. Zero RevealDelay advances synchronously
// after grading, which tests rely on; the server default is set from config.
type Options struct {
	QuestionSeconds int
	TickInterval    time.Duration
	RevealDelay     time.Duration
	Now             func() time.Time
}

// DefaultOptions matches the original product behavior: 15 seconds per
// question, 1-second ticks, 800 ms correctness reveal.
func DefaultOptions() Options {
	return Options{
		QuestionSeconds: 15,
		TickInterval:    time.Second,
		RevealDelay:     800 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	if o.QuestionSeconds <= 0 {
		o.QuestionSeconds = 15
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Engine creates sessions bound to a snapshot store and a history ledger.
// Each session is an explicit object owned by the caller; the engine holds no
// per-attempt state, so concurrent sessions are safe.
type Engine struct {
	snapshots *SnapshotStore
	ledger    HistoryLedger
	logger    *zap.Logger
	opts      Options
}

func NewEngine(snapshots *SnapshotStore, ledger HistoryLedger, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		snapshots: snapshots,
		ledger:    ledger,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// Start begins or resumes an attempt at quiz for userID. A restorable
// unfinished snapshot re-enters the saved question with prior answers intact
// and a fresh countdown; a finished snapshot re-enters Finished with the
// score recomputed from stored answers rather than trusted. Anything absent
// or malformed starts fresh at question zero. An empty quiz starts nothing.
func (e *Engine) Start(ctx context.Context, quiz domain.Quiz, userID string) (*Session, error) {
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrEmptyQuiz
	}

	s := &Session{
		quiz:          quiz,
		userID:        userID,
		phase:         PhaseNotStarted,
		questionTimer: newQuestionTimer(e.opts.QuestionSeconds, e.opts.TickInterval),
		clock:         newSessionTimer(e.opts.Now),
		snapshots:     e.snapshots,
		ledger:        e.ledger,
		logger:        e.logger,
		now:           e.opts.Now,
		revealDelay:   e.opts.RevealDelay,
		subscribers:   make(map[chan Event]struct{}),
	}

	snap, ok := e.snapshots.Load(ctx, userID, quiz.ID)
	if ok && e.restore(ctx, s, snap) {
		return s, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseInQuestion
	s.current = 0
	s.clock.Start()
	s.persistLocked(ctx)
	s.startQuestionTimerLocked()
	return s, nil
}

// restore reconstitutes a session from a snapshot. Returns false when the
// snapshot does not fit the quiz, in which case the caller starts fresh.
func (e *Engine) restore(ctx context.Context, s *Session, snap domain.Snapshot) bool {
	total := len(s.quiz.Questions)
	answers := snap.Answers
	if len(answers) > total {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Finished {
		s.answers = answers
		s.score = domain.RecomputeScore(answers, s.quiz.Questions)
		s.current = total - 1
		s.phase = PhaseFinished
		if snap.CompletedElapsed != nil {
			elapsed := *snap.CompletedElapsed
			s.completedElapsed = &elapsed
		} else if snap.StartedAt > 0 {
			s.clock.StartAt(time.Unix(snap.StartedAt, 0))
			s.clock.Stop()
			elapsed := s.clock.Elapsed()
			s.completedElapsed = &elapsed
		} else {
			zero := 0
			s.completedElapsed = &zero
		}
		// Re-persist with the recomputed score so a partial or corrupt
		// write cannot survive another reload.
		s.persistLocked(ctx)
		e.logger.Debug("restored finished session",
			zap.String("user", s.userID), zap.String("quiz", s.quiz.ID), zap.Int("score", s.score))
		return true
	}

	if snap.CurrentQuestion < 0 || snap.CurrentQuestion >= total {
		return false
	}
	if len(answers) > snap.CurrentQuestion+1 {
		answers = answers[:snap.CurrentQuestion+1]
	}

	s.answers = answers
	s.score = snap.Score
	s.current = snap.CurrentQuestion
	s.phase = PhaseInQuestion
	if snap.StartedAt > 0 {
		s.clock.StartAt(time.Unix(snap.StartedAt, 0))
	} else {
		s.clock.Start()
	}
	s.startQuestionTimerLocked()
	e.logger.Debug("resumed session",
		zap.String("user", s.userID), zap.String("quiz", s.quiz.ID), zap.Int("question", s.current))
	return true
}

// Ledger exposes the history ledger for reporting consumers.
func (e *Engine) Ledger() HistoryLedger {
	return e.ledger
}

// Snapshots exposes the snapshot store, e.g. for data-reset requests.
func (e *Engine) Snapshots() *SnapshotStore {
	return e.snapshots
}
