package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"cricket-trivia-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID   int64  `bun:"user_id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type scoreRow struct {
	bun.BaseModel `bun:"table:user_scores"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	Category  string    `bun:"category,notnull"`
	Score     int       `bun:"score,notnull"`
	Timestamp time.Time `bun:"timestamp,nullzero,notnull,default:current_timestamp"`
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// ScoreStore persists users and score records in Postgres via bun.
type ScoreStore struct {
	db *bun.DB
}

func NewScoreStore(db *bun.DB) *ScoreStore {
	return &ScoreStore{db: db}
}

func (s *ScoreStore) FindUserByName(ctx context.Context, name string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNoData
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return domain.User{ID: row.ID, Name: row.Name}, nil
}

func (s *ScoreStore) CreateUser(ctx context.Context, name string) (domain.User, error) {
	row := userRow{Name: name}
	if _, err := s.db.NewInsert().Model(&row).Returning("user_id").Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return domain.User{}, domain.ErrNameTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return domain.User{ID: row.ID, Name: row.Name}, nil
}

func (s *ScoreStore) InsertScore(ctx context.Context, userID int64, category string, score int) (int64, error) {
	row := scoreRow{UserID: userID, Category: category, Score: score}
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert score: %w", err)
	}
	return row.ID, nil
}

func (s *ScoreStore) TopScores(ctx context.Context) ([]domain.LeaderboardRow, error) {
	var rows []domain.LeaderboardRow
	err := s.db.NewSelect().
		TableExpr("user_scores AS s").
		ColumnExpr("u.name AS name, s.category AS category, s.score AS score, s.timestamp AS timestamp").
		Join("JOIN users AS u ON u.user_id = s.user_id").
		OrderExpr("s.score DESC, s.timestamp DESC").
		Limit(10).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	return rows, nil
}

func (s *ScoreStore) TopUsersByAverage(ctx context.Context, sort domain.TopUsersSort) ([]domain.UserAggregate, error) {
	order := "avg_score DESC"
	switch sort {
	case domain.SortByName:
		order = "name ASC"
	case domain.SortByCategories:
		order = "categories_played DESC"
	}

	var rows []domain.UserAggregate
	err := s.db.NewSelect().
		TableExpr("users AS u").
		ColumnExpr("u.name AS name").
		ColumnExpr("COUNT(DISTINCT s.category) AS categories_played").
		ColumnExpr("ROUND(AVG(s.score), 2) AS avg_score").
		Join("JOIN user_scores AS s ON s.user_id = u.user_id").
		GroupExpr("u.user_id, u.name").
		OrderExpr(order).
		Limit(10).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	return rows, nil
}

func (s *ScoreStore) BestScoresByUser(ctx context.Context, name string) ([]domain.CategoryBest, error) {
	var rows []domain.CategoryBest
	err := s.db.NewSelect().
		TableExpr("user_scores AS s").
		ColumnExpr("s.category AS category, MAX(s.score) AS best_score").
		Join("JOIN users AS u ON u.user_id = s.user_id").
		Where("u.name = ?", name).
		GroupExpr("s.category").
		OrderExpr("best_score DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("user performance: %w", err)
	}
	return rows, nil
}

func (s *ScoreStore) BestScoresByCategory(ctx context.Context, category string) ([]domain.UserBest, error) {
	var rows []domain.UserBest
	err := s.db.NewSelect().
		TableExpr("user_scores AS s").
		ColumnExpr("u.name AS name, MAX(s.score) AS top_score").
		Join("JOIN users AS u ON u.user_id = s.user_id").
		Where("s.category = ?", category).
		GroupExpr("u.name").
		OrderExpr("top_score DESC").
		Limit(10).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("category performance: %w", err)
	}
	return rows, nil
}

func (s *ScoreStore) UserSummary(ctx context.Context, name string) (domain.UserSummary, error) {
	var summary domain.UserSummary
	err := s.db.NewSelect().
		TableExpr("user_scores AS s").
		ColumnExpr("u.name AS name, COUNT(*) AS attempts, ROUND(AVG(s.score), 2) AS avg_score").
		Join("JOIN users AS u ON u.user_id = s.user_id").
		Where("u.name = ?", name).
		GroupExpr("u.user_id, u.name").
		Scan(ctx, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserSummary{}, domain.ErrNoData
	}
	if err != nil {
		return domain.UserSummary{}, fmt.Errorf("user summary: %w", err)
	}
	return summary, nil
}
