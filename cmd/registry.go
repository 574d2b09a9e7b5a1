package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/objectstore"
	"github.com/sells-group/thyroid-cli/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the model registry",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published model versions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolver := registry.NewResolver(cfg.Registry.Root)
		versions, err := resolver.Versions()
		if err != nil {
			return eris.Wrap(err, "registry list")
		}
		if len(versions) == 0 {
			fmt.Fprintln(os.Stderr, "No model versions published.")
		} else {
			formatVersions(os.Stdout, resolver, versions)
		}

		if remote, _ := cmd.Flags().GetBool("remote"); remote {
			if !cfg.Registry.Mirror.Enabled() {
				return eris.New("registry mirror is not configured (THYROID_REGISTRY_MIRROR_ENDPOINT)")
			}
			m, err := objectstore.New(cfg.Registry.Mirror)
			if err != nil {
				return err
			}
			keys, err := m.Versions(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "registry list: mirror")
			}
			fmt.Fprintf(os.Stdout, "\nMirrored versions in %s: %v\n", cfg.Registry.Mirror.Bucket, keys)
		}
		return nil
	},
}

var registryCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove staging directories left by interrupted publishes",
	RunE: func(_ *cobra.Command, _ []string) error {
		removed, err := registry.NewResolver(cfg.Registry.Root).CleanStaging()
		if err != nil {
			return eris.Wrap(err, "registry clean")
		}
		zap.L().Info("registry cleaned", zap.String("root", cfg.Registry.Root), zap.Int("removed", removed))
		return nil
	},
}

// formatVersions writes one row per version, marking the latest.
func formatVersions(out io.Writer, resolver *registry.Resolver, versions []int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tDIR\tLATEST")
	latest := versions[len(versions)-1]
	for _, v := range versions {
		dir, err := resolver.VersionDir(v)
		if err != nil {
			dir = "?"
		}
		mark := ""
		if v == latest {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", v, dir, mark)
	}
	_ = w.Flush()
}

func init() {
	registryListCmd.Flags().Bool("remote", false, "also list versions present in the registry mirror")
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryCleanCmd)
	rootCmd.AddCommand(registryCmd)
}
