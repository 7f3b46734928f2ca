package domain

import "encoding/json"

// RevisionQuizID marks quizzes synthesized from previously failed questions.
// Completing one corrects history instead of only adding to it.
const RevisionQuizID = "revision"

// AnswerKey is the correct-answer reference for a question. Topic data encodes
// it either as a bare index (single answer) or an array of indices
// (multi-answer); both collapse into a normalized index set on ingestion so
// grading never branches on shape.
type AnswerKey struct {
	indices []int
}

// SingleAnswer builds a key for a question with one correct option.
func SingleAnswer(index int) AnswerKey {
	return AnswerKey{indices: []int{index}}
}

// MultiAnswer builds a key for a select-all-that-apply question.
func MultiAnswer(indices ...int) AnswerKey {
	return AnswerKey{indices: Normalize(indices)}
}

// Normalized returns the answer indices in ascending order.
func (k AnswerKey) Normalized() []int {
	return Normalize(k.indices)
}

// IsMulti reports whether more than one option must be selected.
func (k AnswerKey) IsMulti() bool {
	return len(k.indices) > 1
}

// UnmarshalJSON accepts both the single-index and index-array encodings.
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		k.indices = []int{single}
		return nil
	}
	var many []int
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	k.indices = Normalize(many)
	return nil
}

// MarshalJSON preserves the compact encoding: a bare index for single-answer
// keys, an array otherwise.
func (k AnswerKey) MarshalJSON() ([]byte, error) {
	normalized := k.Normalized()
	if len(normalized) == 1 {
		return json.Marshal(normalized[0])
	}
	return json.Marshal(normalized)
}

// Question is one catalog entry. Answer indices are offsets into Options.
type Question struct {
	Text    string    `json:"question"`
	Options []string  `json:"options"`
	Answer  AnswerKey `json:"answer"`
}

// Quiz is an immutable, ordered set of questions for one topic.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// IsRevision reports whether this quiz replays previously missed questions.
func (q Quiz) IsRevision() bool {
	return q.ID == RevisionQuizID
}

// Snapshot is the persisted form of an in-progress or finished attempt,
// sufficient to resume after a reload. Answers uses nil for an unanswered
// question and an empty non-nil slice for a timed-out one; the distinction
// survives the JSON round trip as null vs [].
type Snapshot struct {
	QuizID           string  `json:"quizId"`
	UserID           string  `json:"userId"`
	CurrentQuestion  int     `json:"currentQuestion"`
	Answers          [][]int `json:"userAnswers"`
	Score            int     `json:"score"`
	StartedAt        int64   `json:"startTime"`
	Finished         bool    `json:"finished"`
	CompletedElapsed *int    `json:"completedElapsed"`
}

// QuestionResult captures the per-question outcome inside a history record.
type QuestionResult struct {
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer AnswerKey `json:"correctAnswer"`
	UserAnswer    []int     `json:"userAnswer"`
	IsCorrect     bool      `json:"isCorrect"`
}

// HistoryRecord is the finalized, ledgered outcome of one completed attempt.
// Records are append-only; the only permitted mutation is the revision-mode
// correction applied through CorrectFirstFailure.
type HistoryRecord struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Theme           string           `json:"theme"`
	ThemeID         string           `json:"themeId"`
	Score           int              `json:"score"`
	TotalQuestions  int              `json:"totalQuestions"`
	Date            string           `json:"date"`
	TimeElapsed     int              `json:"timeElapsed"`
	QuestionResults []QuestionResult `json:"questionResults"`
}

// CorrectFirstFailure flips the first failed entry matching questionText
// (exact match) to correct and bumps that record's score by one. Later
// duplicates are left untouched. Returns the index of the modified record,
// or -1 when nothing matched.
func CorrectFirstFailure(records []HistoryRecord, questionText string) int {
	for i := range records {
		for j := range records[i].QuestionResults {
			result := &records[i].QuestionResults[j]
			if result.Question == questionText && !result.IsCorrect {
				result.IsCorrect = true
				records[i].Score++
				return i
			}
		}
	}
	return -1
}

// FeedbackTier is the coarse banding of a percentage score.
type FeedbackTier int

const (
	TierKeepPracticing FeedbackTier = iota
	TierGood
	TierExcellent
)

func (t FeedbackTier) String() string {
	switch t {
	case TierExcellent:
		return "Excellent!"
	case TierGood:
		return "Can do better"
	default:
		return "Keep practicing!"
	}
}
