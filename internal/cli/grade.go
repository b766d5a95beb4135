package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"weld-academy-service/internal/config"
	"weld-academy-service/internal/domain"
	"weld-academy-service/internal/logger"
	"weld-academy-service/internal/placement"
)

// NewGradeCmd grades an answers file offline against the configured bank.
func NewGradeCmd(configPath *string) *cobra.Command {
	var (
		userID      string
		answersPath string
	)
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade an answers JSON file and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Logger)
			defer log.Sync()

			answers, err := readAnswers(answersPath)
			if err != nil {
				return err
			}

			var pool *pgxpool.Pool
			if cfg.Postgres.URL != "" {
				pool, err = pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
				if err != nil {
					return err
				}
				defer pool.Close()
			}
			bank, err := bankLoader(cfg, pool, log).LoadBank(cmd.Context())
			if err != nil {
				return err
			}
			if err := domain.ValidateBank(bank); err != nil {
				return err
			}

			grader := placement.NewGrader()
			result := grader.Grade(userID, answers, bank, time.Now())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id recorded on the result")
	cmd.Flags().StringVar(&answersPath, "answers", "", "JSON object of question id to option id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func readAnswers(path string) (domain.AnswerSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var answers domain.AnswerSet
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers %s: %w", path, err)
	}
	if answers == nil {
		answers = domain.AnswerSet{}
	}
	return answers, nil
}
