package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"weld-academy-service/internal/domain"
)

// BankLoader fetches the question bank from a backing store (file, Postgres, ...).
type BankLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

// BankKey holds the JSON-encoded bank shared by every instance.
const BankKey = "placement:bank"

// BankRepository caches the question bank in Redis and falls back to a loader on cache miss.
// Cache errors are treated as misses; the loader stays authoritative.
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) Questions(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := r.fromCache(ctx); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(BankKey, func() (interface{}, error) {
		// Re-check cache in case another instance filled it.
		if bank, ok := r.fromCache(ctx); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateBank(bank); err != nil {
			return nil, err
		}

		if raw, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, BankKey, raw, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank so the next call reloads it.
func (r *BankRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, BankKey).Err()
}

// fromCache treats an undecodable or invalid cached bank as a miss.
func (r *BankRepository) fromCache(ctx context.Context) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, BankKey).Bytes()
	if err != nil {
		return nil, false
	}
	var bank []domain.Question
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, false
	}
	if domain.ValidateBank(bank) != nil {
		return nil, false
	}
	return bank, true
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
