// Package frame provides a small column-ordered table of nullable string
// cells, the tabular currency passed between pipeline stages.
package frame

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thyroid-cli/internal/model"
)

// ErrNoColumns is returned when an operation leaves a frame without columns.
var ErrNoColumns = eris.New("frame: no columns left")

// Cell is a single nullable value.
type Cell struct {
	Value string
	Null  bool
}

// Str returns a non-null cell.
func Str(s string) Cell { return Cell{Value: s} }

// NA is the null cell.
var NA = Cell{Null: true}

// Frame is a table with named, ordered columns. Cells are stored column-major.
type Frame struct {
	names []string
	pos   map[string]int
	cols  [][]Cell
	rows  int
}

// New creates an empty frame with the given columns.
func New(columns []string) (*Frame, error) {
	f := &Frame{
		names: make([]string, 0, len(columns)),
		pos:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := f.pos[c]; dup {
			return nil, eris.Errorf("frame: duplicate column %q", c)
		}
		f.pos[c] = len(f.names)
		f.names = append(f.names, c)
		f.cols = append(f.cols, nil)
	}
	return f, nil
}

// AppendRow adds one row; len(row) must equal the number of columns.
func (f *Frame) AppendRow(row []Cell) error {
	if len(row) != len(f.names) {
		return eris.Errorf("frame: row has %d cells, want %d", len(row), len(f.names))
	}
	for i, c := range row {
		f.cols[i] = append(f.cols[i], c)
	}
	f.rows++
	return nil
}

// FromDocuments builds a frame from documents. Columns are the union of
// document keys in first-seen order; absent keys become null cells.
func FromDocuments(docs []model.Document) (*Frame, error) {
	var columns []string
	seen := make(map[string]bool)
	for _, d := range docs {
		for _, fld := range d.Fields {
			if !seen[fld.Key] {
				seen[fld.Key] = true
				columns = append(columns, fld.Key)
			}
		}
	}

	f, err := New(columns)
	if err != nil {
		return nil, err
	}
	for i, d := range docs {
		row := make([]Cell, len(columns))
		for j := range row {
			row[j] = NA
		}
		for _, fld := range d.Fields {
			c, err := cellFromValue(fld.Value)
			if err != nil {
				return nil, eris.Wrapf(err, "frame: document %d field %q", i, fld.Key)
			}
			row[f.pos[fld.Key]] = c
		}
		if err := f.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func cellFromValue(v any) (Cell, error) {
	switch x := v.(type) {
	case nil:
		return NA, nil
	case string:
		return Str(x), nil
	case json.Number:
		return Str(x.String()), nil
	case float64:
		if math.IsNaN(x) {
			return NA, nil
		}
		return Str(strconv.FormatFloat(x, 'f', -1, 64)), nil
	case float32:
		return Str(strconv.FormatFloat(float64(x), 'f', -1, 32)), nil
	case int:
		return Str(strconv.Itoa(x)), nil
	case int64:
		return Str(strconv.FormatInt(x, 10)), nil
	case int32:
		return Str(strconv.FormatInt(int64(x), 10)), nil
	case bool:
		return Str(strconv.FormatBool(x)), nil
	default:
		return NA, eris.Errorf("unsupported value type %T", v)
	}
}

// Columns returns a copy of the column names.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.names) }

// HasColumn reports whether the frame has the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.pos[name]
	return ok
}

// Column returns the cells of a column. The slice must not be modified.
func (f *Frame) Column(name string) ([]Cell, error) {
	i, ok := f.pos[name]
	if !ok {
		return nil, eris.Errorf("frame: no column %q", name)
	}
	return f.cols[i], nil
}

// Row returns the cells of row i in column order.
func (f *Frame) Row(i int) []Cell {
	row := make([]Cell, len(f.names))
	for j := range f.cols {
		row[j] = f.cols[j][i]
	}
	return row
}

// Floats parses a column as float64. Null cells become NaN; any other
// unparseable cell is an error.
func (f *Frame) Floats(name string) ([]float64, error) {
	cells, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		if c.Null {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "frame: column %q row %d", name, i)
		}
		out[i] = v
	}
	return out, nil
}

// NullFraction returns the share of null cells in a column. An empty frame
// has a null fraction of 0.
func (f *Frame) NullFraction(name string) (float64, error) {
	cells, err := f.Column(name)
	if err != nil {
		return 0, err
	}
	if len(cells) == 0 {
		return 0, nil
	}
	var n int
	for _, c := range cells {
		if c.Null {
			n++
		}
	}
	return float64(n) / float64(len(cells)), nil
}

// NullifyValue replaces every cell equal to sentinel with null, in place.
// It returns the number of replaced cells.
func (f *Frame) NullifyValue(sentinel string) int {
	var n int
	for _, col := range f.cols {
		for i := range col {
			if !col[i].Null && col[i].Value == sentinel {
				col[i] = NA
				n++
			}
		}
	}
	return n
}

// Drop returns a new frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []string
	for _, n := range f.names {
		if !drop[n] {
			keep = append(keep, n)
		}
	}
	out, _ := f.Select(keep...)
	return out
}

// Select returns a new frame holding only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out, err := New(names)
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		j, ok := f.pos[n]
		if !ok {
			return nil, eris.Errorf("frame: no column %q", n)
		}
		out.cols[i] = append([]Cell(nil), f.cols[j]...)
	}
	out.rows = f.rows
	return out, nil
}

// Take returns a new frame holding the rows at the given indices, in order.
func (f *Frame) Take(indices []int) (*Frame, error) {
	out, err := New(f.names)
	if err != nil {
		return nil, err
	}
	for j, col := range f.cols {
		dst := make([]Cell, len(indices))
		for k, i := range indices {
			if i < 0 || i >= f.rows {
				return nil, eris.Errorf("frame: row index %d out of range [0,%d)", i, f.rows)
			}
			dst[k] = col[i]
		}
		out.cols[j] = dst
	}
	out.rows = len(indices)
	return out, nil
}
