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

	"weld-academy-service/internal/app"
	"weld-academy-service/internal/config"
	"weld-academy-service/internal/domain"
	"weld-academy-service/internal/infra/bankfile"
	"weld-academy-service/internal/infra/memory"
	pgstore "weld-academy-service/internal/infra/postgres"
	rediscache "weld-academy-service/internal/infra/redis"
	"weld-academy-service/internal/logger"
	"weld-academy-service/internal/metrics"
	transport "weld-academy-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the placement service",
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
	log := logger.New(cfg.Logger)
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
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
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader := bankLoader(cfg, pool, log)
	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bank app.BankRepository
	if redisClient != nil {
		bank = rediscache.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewBankRepository(loader, bankTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = rediscache.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var users app.UserRepository
	var results app.ResultRepository
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		users = pgstore.NewUserStore(db)
		results = pgstore.NewResultStore(db)
	} else {
		users = memory.NewUserStore(sampleUsers()...)
		results = memory.NewResultStore()
	}

	collector := metrics.NewCollector()
	service := app.NewPlacementService(bank, sessions, users, results,
		app.WithLogger(log),
		app.WithObserver(collector),
		app.WithLatency(config.TTLDuration(cfg.Grading.Latency, 0)),
	)
	limiter := transport.NewUserLimiter(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst)

	mux := http.NewServeMux()
	transport.NewHandler(service, limiter, log).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service, limiter, log).ServeWS)
	mux.Handle("GET /metrics", collector.Handler())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting placement service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// bankLoader prefers the database, then the YAML artifact, then the built-in bank.
func bankLoader(cfg config.Config, pool *pgxpool.Pool, log *zap.Logger) memory.BankLoader {
	switch {
	case pool != nil:
		log.Info("question bank source", zap.String("source", "postgres"))
		return pgstore.NewBankLoader(pool)
	case cfg.Bank.Path != "":
		log.Info("question bank source", zap.String("source", cfg.Bank.Path))
		return bankfile.NewLoader(cfg.Bank.Path)
	default:
		log.Info("question bank source", zap.String("source", "built-in"))
		return memory.NewStaticBankLoader(domain.DefaultBank())
	}
}

// sampleUsers are the demo accounts served when no database is configured.
func sampleUsers() []domain.User {
	return []domain.User{
		{
			ID:        "user-maria",
			Name:      "Maria",
			AvatarURL: "https://picsum.photos/seed/maria/100/100",
			Role:      domain.RoleLearner,
			Badges:    domain.NewBadgeSet(),
			Profile: domain.CommunityProfile{
				Headline: "Aspiring CWI Inspector",
				Bio:      "Eager to learn code and inspection science. Currently focused on AWS D1.1 fundamentals and visual inspection techniques.",
			},
			Stats:            domain.UserStats{ChallengeStreak: 1, HelpfulPosts: 3},
			OnboardingStatus: domain.OnboardingPending,
		},
		{
			ID:        "user-jamal",
			Name:      "Jamal",
			AvatarURL: "https://picsum.photos/seed/jamal/100/100",
			Role:      domain.RoleMentor,
			Badges: domain.NewBadgeSet(
				domain.Badge{Key: domain.BadgeFoundationVerified, EarnedAt: time.Date(2023, 10, 15, 10, 0, 0, 0, time.UTC)},
				domain.Badge{Key: domain.BadgeClauseMaster, EarnedAt: time.Date(2023, 11, 20, 14, 30, 0, 0, time.UTC)},
				domain.Badge{Key: domain.BadgeTopContributor, EarnedAt: time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC)},
			),
			Profile: domain.CommunityProfile{
				Headline: "Senior CWI | Academy Mentor",
				Bio:      "10+ years of experience in structural and pipeline inspection. Passionate about mentoring the next generation of inspectors and raising the bar for quality.",
			},
			Stats:            domain.UserStats{ChallengeStreak: 7, HelpfulPosts: 82},
			OnboardingStatus: domain.OnboardingComplete,
		},
	}
}
