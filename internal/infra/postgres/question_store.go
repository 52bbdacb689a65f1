package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cricket-trivia-service/internal/domain"
)

// QuestionStore reads the question catalog from Postgres over a pgx pool.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT category FROM questions LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// QuestionsByCategory picks up to 20 random questions and shuffles each
// question's option order so the correct answer never sits in a fixed slot.
func (s *QuestionStore) QuestionsByCategory(ctx context.Context, category string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question_text, category, difficulty_level, correct_answer, option_1, option_2, option_3, option_4
		 FROM questions WHERE category=$1 ORDER BY random() LIMIT 20`, category)
	if err != nil {
		return nil, fmt.Errorf("questions by category: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		rand.Shuffle(len(question.Options), func(i, j int) {
			question.Options[i], question.Options[j] = question.Options[j], question.Options[i]
		})
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

func (s *QuestionStore) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, question_text, category, difficulty_level, correct_answer, option_1, option_2, option_3, option_4
		 FROM questions WHERE id=$1`, id)
	question, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrNoData
	}
	if err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var o1, o2, o3, o4 string
	if err := row.Scan(&q.ID, &q.Text, &q.Category, &q.Difficulty, &q.CorrectAnswer, &o1, &o2, &o3, &o4); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	q.Options = []string{o1, o2, o3, o4}
	return q, nil
}

// AnswerKeySource loads per-category answer keys; it is the cache-miss
// loader behind the redis/memory answer-key caches.
type AnswerKeySource struct {
	pool *pgxpool.Pool
}

func NewAnswerKeySource(pool *pgxpool.Pool) *AnswerKeySource {
	return &AnswerKeySource{pool: pool}
}

func (s *AnswerKeySource) LoadAnswerKey(ctx context.Context, category string) (map[int64]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, correct_answer FROM questions WHERE category=$1`, category)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	key := make(map[int64]string)
	for rows.Next() {
		var id int64
		var canonical string
		if err := rows.Scan(&id, &canonical); err != nil {
			return nil, fmt.Errorf("scan answer key: %w", err)
		}
		key[id] = canonical
	}
	return key, rows.Err()
}
