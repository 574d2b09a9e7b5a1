package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/objectstore"
	"github.com/sells-group/thyroid-cli/internal/pipeline"
	"github.com/sells-group/thyroid-cli/internal/registry"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the training pipeline and publish a model version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("train"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mirror, err := initMirror()
		if err != nil {
			return err
		}

		p := pipeline.New(cfg, st, st, registry.NewResolver(cfg.Registry.Root), mirror)
		run, err := p.Run(ctx)
		if run != nil {
			fmt.Fprint(os.Stdout, pipeline.FormatRunSummary(*run))
		}
		if err != nil {
			return eris.Wrap(err, "training run")
		}

		zap.L().Info("training complete",
			zap.String("run_id", run.ID),
			zap.Int("version", run.Result.Version),
			zap.Float64("f1_test_score", run.Result.TestF1),
		)
		return nil
	},
}

// initMirror returns the registry mirror, or nil when none is configured.
func initMirror() (pipeline.Mirror, error) {
	if !cfg.Registry.Mirror.Enabled() {
		zap.L().Debug("registry mirror not configured")
		return nil, nil
	}
	m, err := objectstore.New(cfg.Registry.Mirror)
	if err != nil {
		return nil, err
	}
	zap.L().Info("registry mirror enabled",
		zap.String("endpoint", cfg.Registry.Mirror.Endpoint),
		zap.String("bucket", cfg.Registry.Mirror.Bucket),
	)
	return m, nil
}

func init() {
	rootCmd.AddCommand(trainCmd)
}
