package domain

import "errors"

var (
	// ErrNoSelection is returned when an answer is submitted with nothing selected.
	ErrNoSelection = errors.New("at least one option must be selected")
	// ErrNotAcceptingAnswers is returned when a submission lands outside the answering window.
	ErrNotAcceptingAnswers = errors.New("session is not accepting answers")
	// ErrSessionFinished is returned for submissions against a completed attempt.
	ErrSessionFinished = errors.New("session already finished")
	// ErrEmptyQuiz indicates the topic produced no questions; no session is started.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrTopicNotFound indicates the requested topic does not exist in the catalog.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrNoFailedQuestions means revision mode has nothing to replay.
	ErrNoFailedQuestions = errors.New("no missed questions to revise")
)
