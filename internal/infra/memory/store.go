package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"cricket-trivia-service/internal/domain"
)

// Store is an in-memory implementation of the score and question stores,
// used in tests and for running the server without Postgres.
type Store struct {
	mu          sync.Mutex
	nextUserID  int64
	nextScoreID int64
	usersByName map[string]domain.User
	usersByID   map[int64]domain.User
	scores      []domain.ScoreRecord
	questions   []domain.Question
	clock       func() time.Time
	lastStamp   time.Time
}

func NewStore(questions []domain.Question) *Store {
	return &Store{
		usersByName: make(map[string]domain.User),
		usersByID:   make(map[int64]domain.User),
		questions:   questions,
		clock:       time.Now,
	}
}

// NewStoreWithClock is test-only for deterministic timestamps.
func NewStoreWithClock(questions []domain.Question, now func() time.Time) *Store {
	s := NewStore(questions)
	s.clock = now
	return s
}

func (s *Store) FindUserByName(_ context.Context, name string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByName[name]
	if !ok {
		return domain.User{}, domain.ErrNoData
	}
	return user, nil
}

func (s *Store) CreateUser(_ context.Context, name string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usersByName[name]; ok {
		return domain.User{}, domain.ErrNameTaken
	}
	s.nextUserID++
	user := domain.User{ID: s.nextUserID, Name: name}
	s.usersByName[name] = user
	s.usersByID[user.ID] = user
	return user, nil
}

func (s *Store) InsertScore(_ context.Context, userID int64, category string, score int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextScoreID++

	// Timestamps never go backwards with insertion order.
	now := s.clock()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = now

	s.scores = append(s.scores, domain.ScoreRecord{
		ID:        s.nextScoreID,
		UserID:    userID,
		Category:  category,
		Score:     score,
		Timestamp: now,
	})
	return s.nextScoreID, nil
}

func (s *Store) TopScores(_ context.Context) ([]domain.LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]domain.LeaderboardRow, 0, len(s.scores))
	for _, record := range s.scores {
		rows = append(rows, domain.LeaderboardRow{
			Name:      s.usersByID[record.UserID].Name,
			Category:  record.Category,
			Score:     record.Score,
			Timestamp: record.Timestamp,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Timestamp.After(rows[j].Timestamp)
	})
	if len(rows) > 10 {
		rows = rows[:10]
	}
	return rows, nil
}

func (s *Store) TopUsersByAverage(_ context.Context, sortKey domain.TopUsersSort) ([]domain.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type bucket struct {
		total      int
		count      int
		categories map[string]struct{}
	}
	buckets := make(map[int64]*bucket)
	for _, record := range s.scores {
		b, ok := buckets[record.UserID]
		if !ok {
			b = &bucket{categories: make(map[string]struct{})}
			buckets[record.UserID] = b
		}
		b.total += record.Score
		b.count++
		b.categories[record.Category] = struct{}{}
	}

	aggregates := make([]domain.UserAggregate, 0, len(buckets))
	for userID, b := range buckets {
		aggregates = append(aggregates, domain.UserAggregate{
			Name:             s.usersByID[userID].Name,
			CategoriesPlayed: len(b.categories),
			AvgScore:         round2(float64(b.total) / float64(b.count)),
		})
	}

	switch sortKey {
	case domain.SortByName:
		sort.SliceStable(aggregates, func(i, j int) bool { return aggregates[i].Name < aggregates[j].Name })
	case domain.SortByCategories:
		sort.SliceStable(aggregates, func(i, j int) bool {
			return aggregates[i].CategoriesPlayed > aggregates[j].CategoriesPlayed
		})
	default:
		sort.SliceStable(aggregates, func(i, j int) bool { return aggregates[i].AvgScore > aggregates[j].AvgScore })
	}
	if len(aggregates) > 10 {
		aggregates = aggregates[:10]
	}
	return aggregates, nil
}

func (s *Store) BestScoresByUser(_ context.Context, name string) ([]domain.CategoryBest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByName[name]
	if !ok {
		return nil, nil
	}
	best := make(map[string]int)
	for _, record := range s.scores {
		if record.UserID != user.ID {
			continue
		}
		if current, ok := best[record.Category]; !ok || record.Score > current {
			best[record.Category] = record.Score
		}
	}

	rows := make([]domain.CategoryBest, 0, len(best))
	for category, score := range best {
		rows = append(rows, domain.CategoryBest{Category: category, BestScore: score})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].BestScore > rows[j].BestScore })
	return rows, nil
}

func (s *Store) BestScoresByCategory(_ context.Context, category string) ([]domain.UserBest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := make(map[int64]int)
	for _, record := range s.scores {
		if record.Category != category {
			continue
		}
		if current, ok := best[record.UserID]; !ok || record.Score > current {
			best[record.UserID] = record.Score
		}
	}

	rows := make([]domain.UserBest, 0, len(best))
	for userID, score := range best {
		rows = append(rows, domain.UserBest{Name: s.usersByID[userID].Name, TopScore: score})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TopScore > rows[j].TopScore })
	if len(rows) > 10 {
		rows = rows[:10]
	}
	return rows, nil
}

func (s *Store) UserSummary(_ context.Context, name string) (domain.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByName[name]
	if !ok {
		return domain.UserSummary{}, domain.ErrNoData
	}
	total, count := 0, 0
	for _, record := range s.scores {
		if record.UserID == user.ID {
			total += record.Score
			count++
		}
	}
	if count == 0 {
		return domain.UserSummary{}, domain.ErrNoData
	}
	return domain.UserSummary{
		Name:     name,
		Attempts: count,
		AvgScore: round2(float64(total) / float64(count)),
	}, nil
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	var categories []string
	for _, question := range s.questions {
		if _, ok := seen[question.Category]; ok {
			continue
		}
		seen[question.Category] = struct{}{}
		categories = append(categories, question.Category)
		if len(categories) == 10 {
			break
		}
	}
	return categories, nil
}

func (s *Store) QuestionsByCategory(_ context.Context, category string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var questions []domain.Question
	for _, question := range s.questions {
		if question.Category == category {
			questions = append(questions, question)
			if len(questions) == 20 {
				break
			}
		}
	}
	return questions, nil
}

func (s *Store) QuestionByID(_ context.Context, id int64) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, question := range s.questions {
		if question.ID == id {
			return question, nil
		}
	}
	return domain.Question{}, domain.ErrNoData
}

// LoadAnswerKey makes Store usable as the cache-miss source behind the
// answer-key caches.
func (s *Store) LoadAnswerKey(_ context.Context, category string) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := make(map[int64]string)
	for _, question := range s.questions {
		if question.Category == category {
			key[question.ID] = question.CorrectAnswer
		}
	}
	return key, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
