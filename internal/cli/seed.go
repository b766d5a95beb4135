package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"weld-academy-service/internal/config"
	"weld-academy-service/internal/infra/bankfile"
	pgstore "weld-academy-service/internal/infra/postgres"
	"weld-academy-service/internal/logger"
)

// NewSeedBankCmd copies the YAML question bank into Postgres.
func NewSeedBankCmd(configPath *string) *cobra.Command {
	var (
		bankPath    string
		sampleUsers bool
	)
	cmd := &cobra.Command{
		Use:   "seed-bank",
		Short: "Load the question bank file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Logger)
			defer log.Sync()

			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			path := bankPath
			if path == "" {
				path = cfg.Bank.Path
			}
			if path == "" {
				return fmt.Errorf("no bank file: set bank.path or --file")
			}

			doc, err := bankfile.ReadFile(path)
			if err != nil {
				return err
			}
			if err := runMigrations(cmd.Context(), cfg, log); err != nil {
				return err
			}

			db := openBunDB(cfg.Postgres.URL)
			defer db.Close()
			if err := pgstore.ReplaceBank(cmd.Context(), db, doc.Version, doc.Questions); err != nil {
				return err
			}
			log.Info("question bank seeded", zap.String("version", doc.Version), zap.Int("questions", len(doc.Questions)))

			if sampleUsers {
				if err := seedSampleUsers(cmd, pgstore.NewUserStore(db)); err != nil {
					return err
				}
				log.Info("sample users seeded")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bankPath, "file", "", "bank YAML file (defaults to bank.path)")
	cmd.Flags().BoolVar(&sampleUsers, "sample-users", false, "also upsert the demo user accounts")
	return cmd
}

func seedSampleUsers(cmd *cobra.Command, users *pgstore.UserStore) error {
	for _, u := range sampleUsers() {
		if err := users.SaveUser(cmd.Context(), u); err != nil {
			return err
		}
	}
	return nil
}
