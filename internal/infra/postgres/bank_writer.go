package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"weld-academy-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:placement_questions"`

	ID          string          `bun:"id,pk"`
	Position    int             `bun:"position"`
	BankVersion string          `bun:"bank_version"`
	Data        json.RawMessage `bun:"data,type:jsonb"`
}

// ReplaceBank swaps the stored bank for questions in a single transaction.
func ReplaceBank(ctx context.Context, db *bun.DB, version string, questions []domain.Question) error {
	if err := domain.ValidateBank(questions); err != nil {
		return err
	}

	rows := make([]questionRow, 0, len(questions))
	for i, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		rows = append(rows, questionRow{ID: q.ID, Position: i, BankVersion: version, Data: data})
	}

	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("clear bank: %w", err)
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert bank: %w", err)
		}
		return nil
	})
}
