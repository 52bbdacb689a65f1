package cli

import (
	"github.com/spf13/cobra"

	"cricket-trivia-service/internal/config"
	"cricket-trivia-service/internal/infra/postgres"
)

// NewSeedCmd loads the sample question set into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the question catalog with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			db := postgres.OpenDB(cfg.Postgres.URL)
			defer db.Close()

			return postgres.SeedQuestions(cmd.Context(), db, sampleQuestions())
		},
	}
}
