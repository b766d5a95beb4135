package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"weld-academy-service/internal/domain"
	"weld-academy-service/internal/infra/memory"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{BankLoader: memory.NewStaticBankLoader(domain.DefaultBank())}
	repo := NewBankRepository(client, loader, time.Minute)

	bank, err := repo.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(BankKey) {
		t.Fatalf("expected bank cached under %s", BankKey)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.Questions(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached) != len(bank) || cached[4].CorrectOptionID != "q5a2" || cached[2].Topic != domain.TopicCodeNavigation {
		t.Fatalf("cached bank differs: %+v", cached)
	}

	// Expiry forces a reload.
	mr.FastForward(2 * time.Minute)
	_, _ = repo.Questions(context.Background())
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls=%d", loader.calls)
	}

	if err := repo.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(BankKey) {
		t.Fatalf("expected key removed")
	}
}

func TestBankRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	repo := NewBankRepository(client, memory.NewStaticBankLoader(domain.DefaultBank()), time.Minute)
	bank, err := repo.Questions(context.Background())
	if err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
	if len(bank) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(bank))
	}
}

func TestBankRepositoryIgnoresInvalidCachedBank(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	bank := domain.DefaultBank()
	dup := append(bank[:2:2], bank[0])
	raw, err := json.Marshal(dup)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := mr.Set(BankKey, string(raw)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	loader := &countingLoader{BankLoader: memory.NewStaticBankLoader(domain.DefaultBank())}
	repo := NewBankRepository(newClient(mr), loader, time.Minute)

	got, err := repo.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader fallback, calls=%d", loader.calls)
	}
	if len(got) != 5 || domain.ValidateBank(got) != nil {
		t.Fatalf("expected the loaded bank, got %d questions", len(got))
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
