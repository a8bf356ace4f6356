package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/config"
	"github.com/thepriyanshumishra/scamshield-web/internal/export"
	"github.com/thepriyanshumishra/scamshield-web/internal/repository"
)

func main() {
	var configPath string
	var outDir string

	rootCmd := &cobra.Command{
		Use:   "scamshield-export",
		Short: "Export training datasets from collected analyses",
		Long: `Writes two JSONL datasets from verified and user-agreed analyses:
a classifier dataset ({text, label}) and an explanation dataset
({input, output}), plus a summary of the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(configPath, outDir)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "configs/config.yml", "path to config file")
	rootCmd.Flags().StringVar(&outDir, "out", "./data/export", "output directory for dataset files")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExport(configPath, outDir string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := repository.NewSQLiteDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	exporter := export.NewExporter(repository.NewAnalysisRepository(db, logger), logger)
	summary, err := exporter.WriteJSONL(outDir)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d classifier rows and %d explanation rows to %s\n",
		summary.ClassifierRows, summary.ExplanationRows, outDir)
	return nil
}
