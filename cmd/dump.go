package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/fetcher"
)

var (
	dumpFile      string
	dumpFormat    string
	dumpCharset   string
	dumpDelimiter string
	dumpSheet     string
	dumpDrop      bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Load a patient CSV or XLSX file into the document store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("dump"); err != nil {
			return err
		}
		opts, err := dumpOptions()
		if err != nil {
			return err
		}

		docs, err := fetcher.ReadDocuments(ctx, dumpFile, opts)
		if err != nil {
			return eris.Wrap(err, "read source file")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		db, coll := cfg.Source.Database, cfg.Source.Collection
		if dumpDrop {
			removed, err := st.DeleteCollection(ctx, db, coll)
			if err != nil {
				return eris.Wrap(err, "drop collection")
			}
			zap.L().Info("collection dropped", zap.String("collection", coll), zap.Int64("documents", removed))
		}

		inserted, err := st.InsertDocuments(ctx, db, coll, docs)
		if err != nil {
			return eris.Wrap(err, "insert documents")
		}

		zap.L().Info("dump complete",
			zap.String("file", dumpFile),
			zap.String("database", db),
			zap.String("collection", coll),
			zap.Int64("inserted", inserted),
		)
		return nil
	},
}

func dumpOptions() (fetcher.Options, error) {
	opts := fetcher.Options{
		Format:    fetcher.Format(dumpFormat),
		Charset:   dumpCharset,
		SheetName: dumpSheet,
	}
	switch r := []rune(dumpDelimiter); len(r) {
	case 0:
	case 1:
		opts.Delimiter = r[0]
	default:
		return opts, eris.Errorf("delimiter must be a single character, got %q", dumpDelimiter)
	}
	return opts, nil
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFile, "file", "", "path to the source CSV or XLSX file (required)")
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "", "source format: csv or xlsx (default from extension)")
	dumpCmd.Flags().StringVar(&dumpCharset, "charset", "", "CSV text encoding, e.g. latin1 (default utf-8)")
	dumpCmd.Flags().StringVar(&dumpDelimiter, "delimiter", "", "CSV field delimiter (default ,)")
	dumpCmd.Flags().StringVar(&dumpSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	dumpCmd.Flags().BoolVar(&dumpDrop, "drop", false, "delete the collection before loading")
	_ = dumpCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(dumpCmd)
}
