package report

import (
	"sort"

	"quiz-starter-service/internal/domain"
)

// RevisionSetLimit caps the number of previously-missed questions replayed in
// one revision quiz.
const RevisionSetLimit = 20

// UserStats summarizes one user's ledger for the dashboard.
type UserStats struct {
	TotalGames     int `json:"totalGames"`
	AveragePercent int `json:"averagePercent"`
	BestPercent    int `json:"bestPercent"`
}

// StatsFor computes dashboard headline numbers from a user's history.
func StatsFor(records []domain.HistoryRecord) UserStats {
	stats := UserStats{TotalGames: len(records)}
	if len(records) == 0 {
		return stats
	}
	sum := 0
	for _, record := range records {
		pct := domain.Percentage(record.Score, record.TotalQuestions)
		sum += pct
		if pct > stats.BestPercent {
			stats.BestPercent = pct
		}
	}
	stats.AveragePercent = (sum + len(records)/2) / len(records)
	return stats
}

// ThemeStat aggregates a user's attempts at one theme.
type ThemeStat struct {
	Theme          string `json:"theme"`
	Games          int    `json:"games"`
	AveragePercent int    `json:"averagePercent"`
}

// ThemeBreakdown groups history by theme. The average is the ratio of total
// correct answers to total questions across attempts, not an average of
// per-game percentages.
func ThemeBreakdown(records []domain.HistoryRecord) []ThemeStat {
	type totals struct {
		games, score, questions int
	}
	byTheme := make(map[string]*totals)
	for _, record := range records {
		t, ok := byTheme[record.Theme]
		if !ok {
			t = &totals{}
			byTheme[record.Theme] = t
		}
		t.games++
		t.score += record.Score
		t.questions += record.TotalQuestions
	}

	stats := make([]ThemeStat, 0, len(byTheme))
	for theme, t := range byTheme {
		stats = append(stats, ThemeStat{
			Theme:          theme,
			Games:          t.games,
			AveragePercent: domain.Percentage(t.score, t.questions),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Theme < stats[j].Theme })
	return stats
}

// LeaderboardEntry ranks one user by cumulative accuracy.
type LeaderboardEntry struct {
	UserID         string `json:"userId"`
	AveragePercent int    `json:"averagePercent"`
	Games          int    `json:"games"`
}

// Leaderboard ranks users by average percentage, descending, capped at limit.
// Ties break by game count, then user ID, so the ordering is stable.
func Leaderboard(byUser map[string][]domain.HistoryRecord, limit int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(byUser))
	for userID, records := range byUser {
		if len(records) == 0 {
			continue
		}
		score, questions := 0, 0
		for _, record := range records {
			score += record.Score
			questions += record.TotalQuestions
		}
		entries = append(entries, LeaderboardEntry{
			UserID:         userID,
			AveragePercent: domain.Percentage(score, questions),
			Games:          len(records),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AveragePercent != entries[j].AveragePercent {
			return entries[i].AveragePercent > entries[j].AveragePercent
		}
		if entries[i].Games != entries[j].Games {
			return entries[i].Games > entries[j].Games
		}
		return entries[i].UserID < entries[j].UserID
	})

	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// FailedQuestions collects the questions a user previously missed, in ledger
// order, capped at limit.
func FailedQuestions(records []domain.HistoryRecord, limit int) []domain.Question {
	var failed []domain.Question
	for _, record := range records {
		for _, result := range record.QuestionResults {
			if result.IsCorrect {
				continue
			}
			failed = append(failed, domain.Question{
				Text:    result.Question,
				Options: result.Options,
				Answer:  result.CorrectAnswer,
			})
			if limit > 0 && len(failed) == limit {
				return failed
			}
		}
	}
	return failed
}

// BuildRevisionQuiz assembles the revision-mode quiz from a user's failures.
// Reports false when there is nothing to revise.
func BuildRevisionQuiz(records []domain.HistoryRecord) (domain.Quiz, bool) {
	failed := FailedQuestions(records, RevisionSetLimit)
	if len(failed) == 0 {
		return domain.Quiz{}, false
	}
	return domain.Quiz{
		ID:        domain.RevisionQuizID,
		Title:     "Revision",
		Questions: failed,
	}, true
}
