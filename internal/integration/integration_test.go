package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"weld-academy-service/internal/app"
	"weld-academy-service/internal/domain"
	pgstore "weld-academy-service/internal/infra/postgres"
	pgmigrations "weld-academy-service/internal/infra/postgres/migrations"
	infraredis "weld-academy-service/internal/infra/redis"
)

func TestPlacementEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateAndSeed(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	bank := infraredis.NewBankRepository(redisClient, pgstore.NewBankLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	users := pgstore.NewUserStore(db)
	results := pgstore.NewResultStore(db)
	service := app.NewPlacementService(bank, sessions, users, results)

	session, err := service.StartSession(ctx, "user-maria")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	questions, err := service.SelectTopic(ctx, session.ID(), domain.TopicAll)
	if err != nil {
		t.Fatalf("select topic: %v", err)
	}
	if len(questions) != 5 || questions[0].ID != "q1" {
		t.Fatalf("expected bank order from postgres, got %d questions", len(questions))
	}
	for _, q := range questions {
		option := q.CorrectOptionID
		if q.ID == "q2" {
			option = "q2a1"
		}
		if _, err := service.RecordAnswer(ctx, session.ID(), q.ID, option); err != nil {
			t.Fatalf("record %s: %v", q.ID, err)
		}
	}

	outcome, err := service.Submit(ctx, session.ID())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Result.Score != 4 || !outcome.Result.Passed || !outcome.Awarded {
		t.Fatalf("expected passing 4/5 with badge, got %+v", outcome)
	}

	stored, err := users.GetUser(ctx, "user-maria")
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	badge, ok := stored.Badges.Get(domain.BadgeFoundationVerified)
	if !ok || badge.Evidence == "" {
		t.Fatalf("expected persisted foundation badge, got %+v", stored.Badges.List())
	}

	again, err := service.Grade(ctx, app.GradeRequest{
		UserID:  "user-maria",
		Answers: domain.AnswerSet{"q1": "q1a2", "q2": "q2a3", "q3": "q3a3", "q4": "q4a2", "q5": "q5a2"},
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if again.Awarded || again.Badges.Len() != 1 {
		t.Fatalf("badge must not be awarded twice, got %+v", again)
	}

	history, err := results.ListResults(ctx, "user-maria")
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(history) != 2 || history[0].ID != outcome.Result.ID {
		t.Fatalf("expected two results oldest first, got %+v", history)
	}
	if len(history[0].MissedTopics) != 1 || history[0].MissedTopics[0] != domain.TopicVisualInspection {
		t.Fatalf("expected visual inspection miss, got %v", history[0].MissedTopics)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "academy", "POSTGRES_PASSWORD": "academypass", "POSTGRES_DB": "academy"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://academy:academypass@%s:%s/academy?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	// postgres accepts connections a moment after the port opens
	var err error
	for i := 0; i < 20; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := pgstore.ReplaceBank(ctx, db, "test", domain.DefaultBank()); err != nil {
		t.Fatalf("seed bank: %v", err)
	}
	users := pgstore.NewUserStore(db)
	if err := users.SaveUser(ctx, domain.User{ID: "user-maria", Name: "Maria", Role: domain.RoleLearner}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return db
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
