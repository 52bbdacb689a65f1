package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"cricket-trivia-service/internal/domain"
	"cricket-trivia-service/internal/ranking"
	"cricket-trivia-service/internal/scoring"
)

// ScoreStore abstracts the relational store holding users and score records.
type ScoreStore interface {
	// FindUserByName returns ErrNoData when no user has that exact name.
	FindUserByName(ctx context.Context, name string) (domain.User, error)
	// CreateUser returns ErrNameTaken when a concurrent insert won the
	// unique-name race.
	CreateUser(ctx context.Context, name string) (domain.User, error)
	InsertScore(ctx context.Context, userID int64, category string, score int) (int64, error)
	TopScores(ctx context.Context) ([]domain.LeaderboardRow, error)
	TopUsersByAverage(ctx context.Context, sort domain.TopUsersSort) ([]domain.UserAggregate, error)
	BestScoresByUser(ctx context.Context, name string) ([]domain.CategoryBest, error)
	BestScoresByCategory(ctx context.Context, category string) ([]domain.UserBest, error)
	UserSummary(ctx context.Context, name string) (domain.UserSummary, error)
}

// QuestionRepository serves the question catalog.
type QuestionRepository interface {
	Categories(ctx context.Context) ([]string, error)
	QuestionsByCategory(ctx context.Context, category string) ([]domain.Question, error)
	QuestionByID(ctx context.Context, id int64) (domain.Question, error)
}

// AnswerKeyRepository loads the questionID -> canonical answer map for a
// category (from cache/backing store).
type AnswerKeyRepository interface {
	AnswerKey(ctx context.Context, category string) (map[int64]string, error)
}

// TriviaService contains the quiz use cases: scoring submissions and
// serving the question catalog and leaderboard views.
type TriviaService struct {
	scores     ScoreStore
	questions  QuestionRepository
	answerKeys AnswerKeyRepository
	feed       *Feed
}

func NewTriviaService(scores ScoreStore, questions QuestionRepository, answerKeys AnswerKeyRepository) *TriviaService {
	return &TriviaService{
		scores:     scores,
		questions:  questions,
		answerKeys: answerKeys,
		feed:       NewFeed(),
	}
}

// RankedRow is a leaderboard row with its assigned competition rank.
type RankedRow struct {
	Rank int `json:"rank"`
	domain.LeaderboardRow
}

// Categories lists quiz categories. Zero categories is ErrNoData.
func (s *TriviaService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.questions.Categories(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(categories) == 0 {
		return nil, domain.ErrNoData
	}
	return categories, nil
}

// QuestionsByCategory returns the shuffled question set for one category.
func (s *TriviaService) QuestionsByCategory(ctx context.Context, category string) ([]domain.Question, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: missing category", domain.ErrInvalidInput)
	}
	questions, err := s.questions.QuestionsByCategory(ctx, category)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoData
	}
	return questions, nil
}

// QuestionByID returns a single question.
func (s *TriviaService) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	question, err := s.questions.QuestionByID(ctx, id)
	if err != nil {
		return domain.Question{}, storageErr(err)
	}
	return question, nil
}

// Submit scores a finished quiz session and records the result under the
// given display name, creating the user on first submission. The returned
// value is the persisted integer percentage.
func (s *TriviaService) Submit(ctx context.Context, name, category string, answers []domain.AnswerSubmission) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(category) == "" || len(answers) == 0 {
		return 0, fmt.Errorf("%w: name, category and answers are required", domain.ErrInvalidInput)
	}

	key, err := s.answerKeys.AnswerKey(ctx, category)
	if err != nil {
		return 0, storageErr(err)
	}
	if len(key) == 0 {
		return 0, domain.ErrNoData
	}

	attempts := make([]domain.Attempt, 0, len(answers))
	for _, answer := range answers {
		canonical, ok := key[answer.QuestionID]
		if !ok {
			return 0, fmt.Errorf("%w: question %d is not in category %q", domain.ErrInvalidInput, answer.QuestionID, category)
		}
		if answer.SelectedAnswer != "" && scoring.Normalize(answer.SelectedAnswer) == "" {
			// Non-empty input that strips to nothing is scored as a miss.
			log.Printf("submission for question %d normalizes to empty, counting as no match", answer.QuestionID)
		}
		attempts = append(attempts, domain.Attempt{
			QuestionID: answer.QuestionID,
			Submitted:  answer.SelectedAnswer,
			Canonical:  canonical,
		})
	}

	percentage, err := scoring.Score(scoring.MatchAttempts(attempts))
	if err != nil {
		return 0, err
	}

	user, err := s.resolveUser(ctx, name)
	if err != nil {
		return 0, err
	}
	if _, err := s.scores.InsertScore(ctx, user.ID, category, percentage); err != nil {
		return 0, storageErr(err)
	}

	s.publishLeaderboard(ctx)
	return percentage, nil
}

// Leaderboard returns the ranked top raw scores.
func (s *TriviaService) Leaderboard(ctx context.Context) ([]RankedRow, error) {
	rows, err := s.scores.TopScores(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNoData
	}
	return rankRows(rows), nil
}

// TopUsers returns the top users by average score, ordered by the supplied
// sort key ("score", "name", "categories"); unrecognized keys fall back to
// average score descending.
func (s *TriviaService) TopUsers(ctx context.Context, sortKey string) ([]domain.UserAggregate, error) {
	aggregates, err := s.scores.TopUsersByAverage(ctx, domain.ParseTopUsersSort(sortKey))
	if err != nil {
		return nil, storageErr(err)
	}
	if len(aggregates) == 0 {
		return nil, domain.ErrNoData
	}
	return aggregates, nil
}

// UserPerformance returns a user's best score per category.
func (s *TriviaService) UserPerformance(ctx context.Context, name string) ([]domain.CategoryBest, error) {
	bests, err := s.scores.BestScoresByUser(ctx, name)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(bests) == 0 {
		return nil, domain.ErrNoData
	}
	return bests, nil
}

// CategoryPerformance returns the best score per user within one category.
func (s *TriviaService) CategoryPerformance(ctx context.Context, category string) ([]domain.UserBest, error) {
	bests, err := s.scores.BestScoresByCategory(ctx, category)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(bests) == 0 {
		return nil, domain.ErrNoData
	}
	return bests, nil
}

// UserSummary returns a user's attempt count and average percentage.
func (s *TriviaService) UserSummary(ctx context.Context, name string) (domain.UserSummary, error) {
	if strings.TrimSpace(name) == "" {
		return domain.UserSummary{}, fmt.Errorf("%w: missing name", domain.ErrInvalidInput)
	}
	summary, err := s.scores.UserSummary(ctx, name)
	if err != nil {
		return domain.UserSummary{}, storageErr(err)
	}
	if summary.Attempts == 0 {
		return domain.UserSummary{}, domain.ErrNoData
	}
	return summary, nil
}

// Subscribe returns a channel receiving the ranked leaderboard after every
// accepted submission. The caller must invoke the cancel function.
func (s *TriviaService) Subscribe(ctx context.Context) (<-chan []RankedRow, func()) {
	ch, cancel := s.feed.subscribe()
	if rows, err := s.Leaderboard(ctx); err == nil {
		s.feed.send(ch, rows)
	}
	return ch, cancel
}

// resolveUser finds a user by exact display name, creating one if absent.
// Losing the create race to a concurrent submission is expected: the
// resolver retries the lookup once and returns the winner's identity.
func (s *TriviaService) resolveUser(ctx context.Context, name string) (domain.User, error) {
	user, err := s.scores.FindUserByName(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNoData) {
		return domain.User{}, storageErr(err)
	}

	user, err = s.scores.CreateUser(ctx, name)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, domain.ErrNameTaken) {
		user, err = s.scores.FindUserByName(ctx, name)
		if err != nil {
			return domain.User{}, storageErr(err)
		}
		return user, nil
	}
	return domain.User{}, storageErr(err)
}

func (s *TriviaService) publishLeaderboard(ctx context.Context) {
	rows, err := s.Leaderboard(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoData) {
			log.Printf("leaderboard feed refresh failed: %v", err)
		}
		return
	}
	s.feed.broadcast(rows)
}

func rankRows(rows []domain.LeaderboardRow) []RankedRow {
	scores := make([]int, len(rows))
	for i, row := range rows {
		scores[i] = row.Score
	}
	ranks := ranking.AssignInts(scores)

	ranked := make([]RankedRow, len(rows))
	for i, row := range rows {
		ranked[i] = RankedRow{Rank: ranks[i], LeaderboardRow: row}
	}
	return ranked
}

// storageErr passes domain sentinels through and wraps everything else
// (driver failures, timeouts) as storage-unavailable.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNoData),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyAttemptSet),
		errors.Is(err, domain.ErrNameTaken):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
}
