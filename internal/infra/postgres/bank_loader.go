package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"weld-academy-service/internal/domain"
)

// BankLoader loads question JSONB rows from Postgres in bank order.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM placement_questions ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	defer rows.Close()

	var bank []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		bank = append(bank, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	if len(bank) == 0 {
		return nil, domain.ErrEmptyBank
	}
	return bank, nil
}
