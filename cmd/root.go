package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "thyroid-cli",
	Short: "Thyroid disease classification pipeline",
	Long:  "Ingests patient records, validates and transforms them, trains a gradient boosted classifier, publishes it to a versioned model registry and serves predictions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
