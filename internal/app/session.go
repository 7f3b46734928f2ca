package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-starter-service/internal/domain"
)

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseInQuestion
	PhaseGrading
	PhaseFinished
)

// Session drives one user's attempt at one quiz, question by question, under
// the per-question countdown. All mutation goes through the mutex; the timers
// are the only asynchronous entry points, and a generation counter makes a
// late timer callback a no-op once a manual submission has landed first.
type Session struct {
	quiz   domain.Quiz
	userID string

	mu               sync.Mutex
	phase            Phase
	current          int
	answers          [][]int
	score            int
	completedElapsed *int
	generation       int

	questionTimer *questionTimer
	clock         *sessionTimer
	snapshots     *SnapshotStore
	ledger        HistoryLedger
	logger        *zap.Logger
	now           func() time.Time
	revealDelay   time.Duration

	subscribers map[chan Event]struct{}
}

// Quiz returns the quiz this session runs.
func (s *Session) Quiz() domain.Quiz {
	return s.quiz
}

// UserID returns the owning user.
func (s *Session) UserID() string {
	return s.userID
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentIndex returns the active question position.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Score returns the last graded score. Authoritative only once finished.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Answers returns a copy of the recorded answers so far.
func (s *Session) Answers() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]int, len(s.answers))
	for i, a := range s.answers {
		if a != nil {
			out[i] = append([]int(nil), a...)
		}
	}
	return out
}

// Elapsed returns whole seconds since the attempt started.
func (s *Session) Elapsed() int {
	return s.clock.Elapsed()
}

// CurrentQuestion returns the rendering view of the active question.
func (s *Session) CurrentQuestion() QuestionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionViewLocked()
}

// Summary returns the final result view. Meaningful once finished.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

// SubmitAnswer records a manual submission for the active question. An empty
// selection is rejected with domain.ErrNoSelection and changes nothing. On
// acceptance the question timer is cancelled synchronously, the normalized
// selection is persisted, and the session enters Grading; the advance fires
// after the reveal delay.
func (s *Session) SubmitAnswer(ctx context.Context, selection []int) (GradeView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseFinished:
		return GradeView{}, domain.ErrSessionFinished
	case PhaseInQuestion:
	default:
		return GradeView{}, domain.ErrNotAcceptingAnswers
	}
	if len(selection) == 0 {
		return GradeView{}, domain.ErrNoSelection
	}

	// First event wins: cancel the countdown before touching state so a
	// pending expiry that already fired sees a stale generation and bails.
	s.questionTimer.Stop()
	s.generation++

	s.setAnswerLocked(s.current, domain.Normalize(selection))
	s.persistLocked(ctx)

	s.phase = PhaseGrading
	grade := s.gradeViewLocked(false)
	s.broadcastLocked(Event{Type: EventGraded, Payload: grade})

	if s.revealDelay > 0 {
		gen := s.generation
		time.AfterFunc(s.revealDelay, func() { s.afterReveal(gen) })
	} else {
		s.advanceLocked(ctx)
	}
	return grade, nil
}

// Reset aborts the attempt from any state: timers stopped, counters zeroed,
// persisted snapshot cleared, and the session re-enters the first question
// with a fresh countdown. The next state change persists again.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.questionTimer.Stop()
	s.generation++
	s.clock.Reset()

	s.current = 0
	s.score = 0
	s.answers = nil
	s.completedElapsed = nil

	if err := s.snapshots.Clear(ctx, s.userID, s.quiz.ID); err != nil {
		s.logger.Warn("failed to clear snapshot on reset",
			zap.String("user", s.userID), zap.String("quiz", s.quiz.ID), zap.Error(err))
	}

	s.phase = PhaseInQuestion
	s.clock.Start()
	s.broadcastLocked(Event{Type: EventQuestion, Payload: s.questionViewLocked()})
	s.startQuestionTimerLocked()
}

// Subscribe returns a channel of session events, primed with the current
// state. The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	var initial Event
	if s.phase == PhaseFinished {
		initial = Event{Type: EventFinished, Payload: s.summaryLocked()}
	} else {
		initial = Event{Type: EventQuestion, Payload: s.questionViewLocked()}
	}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the timers without touching persisted state, for when the
// consumer goes away mid-attempt.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questionTimer.Stop()
	s.generation++
}

func (s *Session) startQuestionTimerLocked() {
	s.generation++
	gen := s.generation
	s.questionTimer.Start(
		func(remaining int) { s.handleTick(gen, remaining) },
		func() { s.handleTimeout(gen) },
	)
}

func (s *Session) handleTick(gen, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.phase != PhaseInQuestion {
		return
	}
	s.broadcastLocked(Event{Type: EventTick, Payload: TickView{
		Index:     s.current,
		Remaining: remaining,
		Elapsed:   s.clock.Elapsed(),
	}})
}

// handleTimeout is the expiry path: an empty answer is recorded (bypassing
// the must-select rule) and the session advances with no reveal delay.
func (s *Session) handleTimeout(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.phase != PhaseInQuestion {
		return
	}
	s.generation++

	s.setAnswerLocked(s.current, []int{})
	ctx := context.Background()
	s.persistLocked(ctx)

	s.phase = PhaseGrading
	s.broadcastLocked(Event{Type: EventGraded, Payload: s.gradeViewLocked(true)})
	s.advanceLocked(ctx)
}

func (s *Session) afterReveal(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.phase != PhaseGrading {
		return
	}
	s.advanceLocked(context.Background())
}

// advanceLocked moves past the just-graded question: either into the next
// question with a fresh countdown, or into Finished with the score recomputed
// from the recorded answers, the snapshot persisted, and a history record
// committed.
func (s *Session) advanceLocked(ctx context.Context) {
	if s.current < len(s.quiz.Questions)-1 {
		s.current++
		s.phase = PhaseInQuestion
		s.persistLocked(ctx)
		s.broadcastLocked(Event{Type: EventQuestion, Payload: s.questionViewLocked()})
		s.startQuestionTimerLocked()
		return
	}

	s.score = domain.RecomputeScore(s.answers, s.quiz.Questions)
	s.questionTimer.Stop()
	s.generation++
	s.clock.Stop()
	elapsed := s.clock.Elapsed()
	s.completedElapsed = &elapsed
	s.phase = PhaseFinished
	s.persistLocked(ctx)

	record := s.buildRecordLocked()
	if err := s.ledger.Append(ctx, s.userID, record); err != nil {
		s.logger.Warn("failed to append history record",
			zap.String("user", s.userID), zap.String("quiz", s.quiz.ID), zap.Error(err))
	}
	if s.quiz.IsRevision() {
		s.applyRevisionCorrectionsLocked(ctx)
	}

	s.broadcastLocked(Event{Type: EventFinished, Payload: s.summaryLocked()})
}

// applyRevisionCorrectionsLocked flips the first failed historical entry for
// every revision question answered correctly here. The record appended for
// this session is already correct for those questions, so it never absorbs
// its own correction.
func (s *Session) applyRevisionCorrectionsLocked(ctx context.Context) {
	for i, question := range s.quiz.Questions {
		var answer []int
		if i < len(s.answers) {
			answer = s.answers[i]
		}
		if !domain.IsCorrect(answer, question.Answer.Normalized()) {
			continue
		}
		if _, err := s.ledger.CorrectFirst(ctx, s.userID, question.Text); err != nil {
			s.logger.Warn("failed to apply revision correction",
				zap.String("user", s.userID), zap.String("question", question.Text), zap.Error(err))
		}
	}
}

func (s *Session) setAnswerLocked(index int, answer []int) {
	for len(s.answers) <= index {
		s.answers = append(s.answers, nil)
	}
	s.answers[index] = answer
}

// persistLocked checkpoints after every state change. A write failure is
// logged and the session continues in memory; only resume-after-reload is at
// risk, never the live attempt.
func (s *Session) persistLocked(ctx context.Context) {
	snap := domain.Snapshot{
		QuizID:           s.quiz.ID,
		UserID:           s.userID,
		CurrentQuestion:  s.current,
		Answers:          s.answers,
		Score:            s.score,
		Finished:         s.phase == PhaseFinished,
		CompletedElapsed: s.completedElapsed,
	}
	if started := s.clock.StartedAt(); !started.IsZero() {
		snap.StartedAt = started.Unix()
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		s.logger.Warn("failed to save session snapshot",
			zap.String("user", s.userID), zap.String("quiz", s.quiz.ID), zap.Error(err))
	}
}

func (s *Session) buildRecordLocked() domain.HistoryRecord {
	results := make([]domain.QuestionResult, len(s.quiz.Questions))
	for i, question := range s.quiz.Questions {
		var answer []int
		if i < len(s.answers) {
			answer = s.answers[i]
		}
		results[i] = domain.QuestionResult{
			Question:      question.Text,
			Options:       question.Options,
			CorrectAnswer: question.Answer,
			UserAnswer:    answer,
			IsCorrect:     domain.IsCorrect(answer, question.Answer.Normalized()),
		}
	}
	elapsed := 0
	if s.completedElapsed != nil {
		elapsed = *s.completedElapsed
	}
	return domain.HistoryRecord{
		ID:              uuid.NewString(),
		UserID:          s.userID,
		Theme:           s.quiz.Title,
		ThemeID:         s.quiz.ID,
		Score:           s.score,
		TotalQuestions:  len(s.quiz.Questions),
		Date:            s.now().UTC().Format(time.RFC3339),
		TimeElapsed:     elapsed,
		QuestionResults: results,
	}
}

func (s *Session) questionViewLocked() QuestionView {
	if s.current >= len(s.quiz.Questions) {
		return QuestionView{}
	}
	question := s.quiz.Questions[s.current]
	var selected []int
	if s.current < len(s.answers) && s.answers[s.current] != nil {
		selected = append([]int(nil), s.answers[s.current]...)
	}
	return QuestionView{
		Index:     s.current,
		Total:     len(s.quiz.Questions),
		Text:      question.Text,
		Options:   question.Options,
		Multi:     question.Answer.IsMulti(),
		Selected:  selected,
		TimeLimit: s.questionTimer.budget,
	}
}

func (s *Session) gradeViewLocked(timedOut bool) GradeView {
	question := s.quiz.Questions[s.current]
	var selected []int
	if s.current < len(s.answers) && s.answers[s.current] != nil {
		selected = append([]int(nil), s.answers[s.current]...)
	}
	return GradeView{
		Index:          s.current,
		Selected:       selected,
		CorrectOptions: question.Answer.Normalized(),
		Correct:        domain.IsCorrect(selected, question.Answer.Normalized()),
		TimedOut:       timedOut,
	}
}

func (s *Session) summaryLocked() Summary {
	total := len(s.quiz.Questions)
	pct := domain.Percentage(s.score, total)
	elapsed := s.clock.Elapsed()
	if s.completedElapsed != nil {
		elapsed = *s.completedElapsed
	}
	return Summary{
		QuizID:     s.quiz.ID,
		UserID:     s.userID,
		Score:      s.score,
		Total:      total,
		Percentage: pct,
		Tier:       domain.TierFor(pct).String(),
		Elapsed:    elapsed,
	}
}

func (s *Session) broadcastLocked(event Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest pending event rather than block the session
			// on a slow consumer.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
