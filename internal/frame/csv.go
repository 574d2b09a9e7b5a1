package frame

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// ReadCSV reads a comma-separated table with a header row. Empty cells are
// read as null.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	f, err := New(header)
	if err != nil {
		return nil, err
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		row := make([]Cell, len(record))
		for i, v := range record {
			if v == "" {
				row[i] = NA
			} else {
				row[i] = Str(v)
			}
		}
		if err := f.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ReadCSVFile reads a CSV table from path.
func ReadCSVFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer file.Close() //nolint:errcheck

	f, err := ReadCSV(file)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: parse %s", path)
	}
	return f, nil
}

// WriteCSV writes the frame with a header row. Nulls are written as empty cells.
func (f *Frame) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.names); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	record := make([]string, len(f.names))
	for i := 0; i < f.rows; i++ {
		for j := range f.cols {
			c := f.cols[j][i]
			if c.Null {
				record[j] = ""
			} else {
				record[j] = c.Value
			}
		}
		if err := writer.Write(record); err != nil {
			return eris.Wrapf(err, "csv: write row %d", i)
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "csv: flush")
}

// WriteCSVFile writes the frame to path, creating parent directories and
// replacing any existing file.
func (f *Frame) WriteCSVFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "csv: create dir for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	if err := f.WriteCSV(file); err != nil {
		file.Close() //nolint:errcheck,gosec
		return eris.Wrapf(err, "csv: write %s", path)
	}
	return eris.Wrapf(file.Close(), "csv: close %s", path)
}
