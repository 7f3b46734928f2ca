package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-starter-service/internal/app"
	"quiz-starter-service/internal/catalog"
	"quiz-starter-service/internal/config"
	"quiz-starter-service/internal/domain"
	"quiz-starter-service/internal/infra/memory"
	pgloader "quiz-starter-service/internal/infra/postgres"
	redisinfra "quiz-starter-service/internal/infra/redis"
	"quiz-starter-service/internal/infra/sqlite"
	transport "quiz-starter-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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

	logger, err := newLogger(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Topic content: Postgres when configured, a topic directory otherwise,
	// falling back to the built-in sample catalog.
	var loader catalog.Loader
	var lister transport.TopicLister
	switch {
	case pool != nil:
		loader = pgloader.NewTopicLoader(pool)
	case cfg.Topics.Dir != "":
		fileLoader := catalog.NewFileLoader(cfg.Topics.Dir)
		loader = fileLoader
		lister = fileLoader
	default:
		loader = catalog.NewStaticLoader(sampleTopics())
	}

	topicTTL := config.TTLDuration(cfg.Topics.TTL, 10*time.Minute)
	var topics transport.TopicSource
	if redisClient != nil {
		topics = redisinfra.NewTopicCache(redisClient, loader, topicTTL)
	} else {
		topics = catalog.NewRepository(loader, topicTTL)
	}

	// Snapshots follow Redis when available so resume works across restarts.
	var kv app.KV = memory.NewKV()
	if redisClient != nil {
		kv = redisinfra.NewKV(redisClient, redisTTL)
	}
	snapshots := app.NewSnapshotStore(kv, logger)

	// History prefers Redis, then the SQLite file, then process memory.
	var ledger app.HistoryLedger
	switch {
	case redisClient != nil:
		ledger = redisinfra.NewHistoryLedger(redisClient)
	case cfg.SQLite.Path != "":
		sqliteLedger, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer sqliteLedger.Close()
		ledger = sqliteLedger
	default:
		ledger = memory.NewHistoryLedger()
	}

	opts := app.DefaultOptions()
	if cfg.Session.QuestionSeconds > 0 {
		opts.QuestionSeconds = cfg.Session.QuestionSeconds
	}
	if cfg.Session.RevealDelay != "" {
		opts.RevealDelay = config.TTLDuration(cfg.Session.RevealDelay, opts.RevealDelay)
	}
	engine := app.NewEngine(snapshots, ledger, logger, opts)

	wsHandler := transport.NewWSHandler(engine, topics, logger)
	api := transport.NewAPIHandler(engine, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/export", api.ServeExport)
	mux.HandleFunc("/dashboard", api.ServeDashboard)
	mux.HandleFunc("/history", api.ServeHistory)
	mux.HandleFunc("/topics", transport.TopicsHandler(lister, logger))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// sampleTopics seeds a runnable catalog when neither Postgres nor a topic
// directory is configured.
func sampleTopics() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"html": {
			ID:    "html",
			Title: "HTML",
			Questions: []domain.Question{
				{
					Text:    "What does HTML stand for?",
					Options: []string{"HyperText Markup Language", "Home Tool Markup Language", "Hyperlinks and Text Markup Language"},
					Answer:  domain.SingleAnswer(0),
				},
				{
					Text:    "Which of these are valid HTML elements?",
					Options: []string{"<article>", "<block>", "<section>", "<area51>"},
					Answer:  domain.MultiAnswer(0, 2),
				},
			},
		},
		"css": {
			ID:    "css",
			Title: "CSS",
			Questions: []domain.Question{
				{
					Text:    "Which property controls text size?",
					Options: []string{"font-style", "font-size", "text-size"},
					Answer:  domain.SingleAnswer(1),
				},
			},
		},
	}
}
