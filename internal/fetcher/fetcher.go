// Package fetcher reads tabular patient source files (CSV or XLSX) into
// documents ready for the document store.
package fetcher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thyroid-cli/internal/model"
)

// Format is a supported source file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Options configures how a source file is read.
type Options struct {
	Format    Format // detected from the extension when empty
	Charset   string // CSV only
	Delimiter rune   // CSV only
	SheetName string // XLSX only
}

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".data", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("fetcher: cannot infer format of %s", path)
	}
}

// StreamRows opens path and streams its rows, header first.
func StreamRows(ctx context.Context, path string, opts Options) (<-chan []string, <-chan error, func() error, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, nil, nil, err
		}
	}

	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		rows, errs := StreamCSV(ctx, f, CSVOptions{
			Delimiter:  opts.Delimiter,
			Charset:    opts.Charset,
			LazyQuotes: true,
			TrimSpace:  true,
		})
		return rows, errs, f.Close, nil
	case FormatXLSX:
		rows, errs := StreamXLSX(ctx, path, XLSXOptions{SheetName: opts.SheetName})
		return rows, errs, func() error { return nil }, nil
	default:
		return nil, nil, nil, eris.Errorf("fetcher: unsupported format %q", format)
	}
}

// ReadDocuments reads every data row of path as a document keyed by the
// header row. Empty cells become nulls and numeric cells become JSON
// numbers; everything else, including the "?" marker, stays a string.
func ReadDocuments(ctx context.Context, path string, opts Options) ([]model.Document, error) {
	rowCh, errCh, closeFn, err := StreamRows(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	defer closeFn() //nolint:errcheck

	var header []string
	var docs []model.Document
	var convErr error
	line := 0
	for row := range rowCh {
		line++
		if convErr != nil {
			continue
		}
		if header == nil {
			header, convErr = headerFrom(row)
			continue
		}
		if isBlank(row) {
			continue
		}
		if len(row) > len(header) {
			convErr = eris.Errorf("fetcher: %s line %d has %d fields, header has %d", path, line, len(row), len(header))
			continue
		}

		var d model.Document
		for i, name := range header {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			d.Set(name, ParseValue(cell))
		}
		docs = append(docs, d)
	}
	for e := range errCh {
		if e != nil {
			return nil, e
		}
	}
	if convErr != nil {
		return nil, convErr
	}
	if header == nil {
		return nil, eris.Errorf("fetcher: %s has no header row", path)
	}

	zap.L().Debug("fetcher: source read",
		zap.String("path", path),
		zap.Int("rows", len(docs)),
		zap.Int("columns", len(header)),
	)
	return docs, nil
}

func headerFrom(row []string) ([]string, error) {
	seen := make(map[string]bool, len(row))
	header := make([]string, len(row))
	for i, name := range row {
		name = strings.TrimPrefix(name, "\ufeff")
		if name == "" {
			return nil, eris.Errorf("fetcher: header column %d is empty", i)
		}
		if seen[name] {
			return nil, eris.Errorf("fetcher: duplicate header column %q", name)
		}
		seen[name] = true
		header[i] = name
	}
	return header, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// ParseValue converts a raw cell to a document value.
func ParseValue(cell string) any {
	switch {
	case cell == "":
		return nil
	case jsonNumber.MatchString(cell):
		return json.Number(cell)
	default:
		return cell
	}
}
