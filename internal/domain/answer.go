package domain

import (
	"math"
	"sort"
)

// Normalize returns the selection as a fresh ascending slice. Duplicates are
// not expected but tolerated; a nil or empty selection normalizes to an empty
// slice. Pure and total, it never fails on any input.
func Normalize(selection []int) []int {
	normalized := make([]int, len(selection))
	copy(normalized, selection)
	sort.Ints(normalized)
	return normalized
}

// IsCorrect grades a selection against the correct answer set. Both sides are
// normalized first, so submission order never matters; equal-length sorted
// sequences must then match position by position, which keeps the check
// duplicate-sensitive. An empty selection (unanswered or timed out) only
// matches an empty answer set, which no real question has.
func IsCorrect(userAnswer, correctAnswer []int) bool {
	user := Normalize(userAnswer)
	correct := Normalize(correctAnswer)
	if len(user) != len(correct) {
		return false
	}
	for i := range user {
		if user[i] != correct[i] {
			return false
		}
	}
	return true
}

// RecomputeScore derives the score purely from stored answers. It is the
// single scoring path for both live completion and restored sessions, so the
// two can never disagree. Missing answers count as empty.
func RecomputeScore(answers [][]int, questions []Question) int {
	score := 0
	for i, question := range questions {
		var answer []int
		if i < len(answers) {
			answer = answers[i]
		}
		if IsCorrect(answer, question.Answer.Normalized()) {
			score++
		}
	}
	return score
}

// Percentage converts a score into a rounded 0-100 value.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// TierFor bands a percentage into a feedback tier.
func TierFor(percentage int) FeedbackTier {
	switch {
	case percentage >= 80:
		return TierExcellent
	case percentage >= 60:
		return TierGood
	default:
		return TierKeepPracticing
	}
}
