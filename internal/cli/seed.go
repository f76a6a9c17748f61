package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"quran-quiz-bot/internal/infra/memory"
	"quran-quiz-bot/internal/infra/postgres"
)

// NewSeedCmd loads a content dataset into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var dataset string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load chapters, verses and translations from a JSON dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if dataset == "" {
				dataset = cfg.Content.Dataset
			}
			if dataset == "" {
				return errors.New("no dataset: pass --dataset or set content.dataset")
			}

			ds, err := memory.LoadDataset(dataset)
			if err != nil {
				return err
			}
			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if err := migrateDB(ctx, db); err != nil {
				return err
			}
			report, err := postgres.Seed(ctx, db, ds)
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "content seeded",
				"chapters", report.Chapters,
				"verses", report.Verses,
				"translations", report.Translations,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset JSON file, defaults to content.dataset")
	return cmd
}
