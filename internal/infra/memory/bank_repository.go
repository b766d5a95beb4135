package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"weld-academy-service/internal/domain"
)

// BankLoader fetches the question bank from a backing store (file, Postgres, ...).
type BankLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

const bankKey = "bank"

// BankRepository caches the bank with TTL to avoid repeated loads.
// A zero TTL caches forever, which suits a bank loaded once at startup.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	bank      []domain.Question
	loaded    bool
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) Questions(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := r.cached(r.clock()); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(bankKey, func() (interface{}, error) {
		now := r.clock()
		if bank, ok := r.cached(now); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadBank(ctx)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateBank(bank); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.bank = bank
		r.loaded = true
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *BankRepository) cached(now time.Time) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return nil, false
	}
	if r.ttl > 0 && !r.expiresAt.After(now) {
		return nil, false
	}
	return r.bank, true
}

// StaticBankLoader is a simple loader backed by a fixed slice (useful for tests/demos).
type StaticBankLoader struct {
	bank []domain.Question
}

func NewStaticBankLoader(bank []domain.Question) *StaticBankLoader {
	return &StaticBankLoader{bank: bank}
}

func (l *StaticBankLoader) LoadBank(_ context.Context) ([]domain.Question, error) {
	if len(l.bank) == 0 {
		return nil, domain.ErrEmptyBank
	}
	return append([]domain.Question(nil), l.bank...), nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
