package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"cricket-trivia-service/internal/app"
	"cricket-trivia-service/internal/config"
	"cricket-trivia-service/internal/domain"
	"cricket-trivia-service/internal/infra/memory"
	pgstore "cricket-trivia-service/internal/infra/postgres"
	rediscache "cricket-trivia-service/internal/infra/redis"
	transport "cricket-trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		scores    app.ScoreStore
		questions app.QuestionRepository
		answerSrc memory.AnswerKeySource
		pool      *pgxpool.Pool
	)
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		db := pgstore.OpenDB(cfg.Postgres.URL)
		defer db.Close()

		scores = pgstore.NewScoreStore(db)
		questions = pgstore.NewQuestionStore(pool)
		answerSrc = pgstore.NewAnswerKeySource(pool)
	} else {
		// No Postgres configured: run everything off the sample question set.
		store := memory.NewStore(sampleQuestions())
		scores = store
		questions = store
		answerSrc = store
	}

	keyTTL := config.TTLDuration(cfg.AnswerKey.TTL, 10*time.Minute)
	var answerKeys app.AnswerKeyRepository
	if redisClient != nil {
		answerKeys = rediscache.NewAnswerKeyCache(redisClient, answerSrc, keyTTL)
	} else {
		answerKeys = memory.NewAnswerKeyCache(answerSrc, keyTTL)
	}

	service := app.NewTriviaService(scores, questions, answerKeys)
	requestTimeout := config.TTLDuration(cfg.Server.RequestTimeout, 5*time.Second)
	handler := transport.NewHandler(service, requestTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions is a minimal catalog for running without Postgres; the
// seed command loads the same set into the database.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            1,
			Text:          "Who has scored the most ODI centuries?",
			Category:      "Players",
			Difficulty:    "medium",
			CorrectAnswer: "Sachin Tendulkar",
			Options:       []string{"Virat Kohli", "Ricky Ponting", "Jacques Kallis", "Sachin Tendulkar"},
		},
		{
			ID:            2,
			Text:          "Which country won the first Cricket World Cup in 1975?",
			Category:      "History",
			Difficulty:    "easy",
			CorrectAnswer: "West Indies",
			Options:       []string{"Australia", "England", "West Indies", "India"},
		},
		{
			ID:            3,
			Text:          "Who holds the record for the highest individual Test score?",
			Category:      "Records",
			Difficulty:    "medium",
			CorrectAnswer: "Brian Lara",
			Options:       []string{"Brian Lara", "Matthew Hayden", "Don Bradman", "Virender Sehwag"},
		},
		{
			ID:            4,
			Text:          "How many players are on the field per side?",
			Category:      "Rules",
			Difficulty:    "easy",
			CorrectAnswer: "Eleven",
			Options:       []string{"Nine", "Ten", "Eleven", "Twelve"},
		},
	}
}
