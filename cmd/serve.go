package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/thyroid-cli/internal/predict"
	"github.com/sells-group/thyroid-cli/internal/registry"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve predictions from the latest model version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if serveWatch {
			cfg.Server.Watch = true
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		resolver := registry.NewResolver(cfg.Registry.Root)
		p, err := predict.Load(resolver)
		if err != nil {
			return eris.Wrap(err, "load model")
		}
		srv := predict.NewServer(cfg.Server, p)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Server.Port)
		})
		if cfg.Server.Watch {
			g.Go(func() error {
				return predict.Watch(gctx, resolver, srv)
			})
		}
		return ignoreCanceled(g.Wait())
	},
}

func ignoreCanceled(err error) error {
	if eris.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload when a new model version is published")
	rootCmd.AddCommand(serveCmd)
}
