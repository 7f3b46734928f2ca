package app

// EventType labels session events delivered to subscribers.
type EventType string

const (
	EventQuestion EventType = "question"
	EventTick     EventType = "tick"
	EventGraded   EventType = "graded"
	EventFinished EventType = "finished"
)

// Event is one session lifecycle notification. Payload is a QuestionView,
// TickView, GradeView, or Summary depending on Type.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// QuestionView is what the rendering layer needs to show a question.
type QuestionView struct {
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Multi     bool     `json:"multi"`
	Selected  []int    `json:"selected,omitempty"`
	TimeLimit int      `json:"timeLimit"`
}

// TickView carries the countdown display state, once per second.
type TickView struct {
	Index     int `json:"index"`
	Remaining int `json:"remaining"`
	Elapsed   int `json:"elapsed"`
}

// GradeView reveals per-option correctness after a submission or timeout.
type GradeView struct {
	Index          int   `json:"index"`
	Selected       []int `json:"selected"`
	CorrectOptions []int `json:"correctOptions"`
	Correct        bool  `json:"correct"`
	TimedOut       bool  `json:"timedOut"`
}

// Summary is the final result of a completed attempt.
type Summary struct {
	QuizID     string `json:"quizId"`
	UserID     string `json:"userId"`
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Tier       string `json:"tier"`
	Elapsed    int    `json:"elapsed"`
}
