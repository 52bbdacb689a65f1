package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/uptrace/bun"

	"cricket-trivia-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int64  `bun:"id,pk,autoincrement"`
	Text          string `bun:"question_text,notnull"`
	Category      string `bun:"category,notnull"`
	Difficulty    string `bun:"difficulty_level,notnull"`
	CorrectAnswer string `bun:"correct_answer,notnull"`
	Option1       string `bun:"option_1,notnull"`
	Option2       string `bun:"option_2,notnull"`
	Option3       string `bun:"option_3,notnull"`
	Option4       string `bun:"option_4,notnull"`
}

// SeedQuestions inserts the given questions unless the catalog already has
// rows, so reseeding an existing database is a no-op.
func SeedQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) error {
	count, err := db.NewSelect().Model((*questionRow)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count > 0 {
		log.Printf("question catalog already has %d rows, skipping seed", count)
		return nil
	}

	rows := make([]questionRow, 0, len(questions))
	for _, question := range questions {
		options := make([]string, 4)
		copy(options, question.Options)
		rows = append(rows, questionRow{
			Text:          question.Text,
			Category:      question.Category,
			Difficulty:    question.Difficulty,
			CorrectAnswer: question.CorrectAnswer,
			Option1:       options[0],
			Option2:       options[1],
			Option3:       options[2],
			Option4:       options[3],
		})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	log.Printf("seeded %d questions", len(rows))
	return nil
}
