package domain

import "time"

// User is a quiz player identified by a unique display name.
// Users are created on first score submission and never renamed or deleted.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Question models a multiple-choice question with a canonical correct answer.
type Question struct {
	ID            int64    `json:"id"`
	Text          string   `json:"question_text"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty_level,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
}

// Attempt is one submitted answer paired with the canonical answer for its
// question. Attempts exist only while a submission is being scored.
type Attempt struct {
	QuestionID int64
	Submitted  string
	Canonical  string
}

// ScoreRecord is the persisted outcome of one quiz session. Records are
// append-only: a user may accumulate many per category.
type ScoreRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// LeaderboardRow is a raw top-scores row: a score joined with its owner.
type LeaderboardRow struct {
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// UserAggregate summarizes one user across all their score records.
type UserAggregate struct {
	Name             string  `json:"name"`
	CategoriesPlayed int     `json:"categoriesPlayed"`
	AvgScore         float64 `json:"avgScore"`
}

// CategoryBest is a user's highest score in one category.
type CategoryBest struct {
	Category  string `json:"category"`
	BestScore int    `json:"bestScore"`
}

// UserBest is the highest score one user reached in a fixed category.
type UserBest struct {
	Name     string `json:"name"`
	TopScore int    `json:"topScore"`
}

// UserSummary aggregates a single user's attempt history.
type UserSummary struct {
	Name     string  `json:"name"`
	Attempts int     `json:"attempts"`
	AvgScore float64 `json:"avgScore"`
}

// AnswerSubmission is one answer in a submit request.
type AnswerSubmission struct {
	QuestionID     int64  `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
}

// TopUsersSort selects the ordering of the top-users aggregate.
type TopUsersSort int

const (
	// SortByAvgScore orders by average score descending (the default).
	SortByAvgScore TopUsersSort = iota
	// SortByName orders by display name ascending.
	SortByName
	// SortByCategories orders by distinct-category count descending.
	SortByCategories
)

// ParseTopUsersSort maps a caller-supplied sort key to an ordering.
// Unrecognized keys fall back to average score, matching the query layer.
func ParseTopUsersSort(key string) TopUsersSort {
	switch key {
	case "name":
		return SortByName
	case "categories":
		return SortByCategories
	default:
		return SortByAvgScore
	}
}
