package learn

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thyroid-cli/internal/frame"
)

// sortedCategories returns the sorted distinct non-null values of cells and
// whether a null was seen.
func sortedCategories(cells []frame.Cell) ([]string, bool) {
	seen := make(map[string]bool)
	var hasNull bool
	for _, c := range cells {
		if c.Null {
			hasNull = true
			continue
		}
		seen[c.Value] = true
	}
	cats := make([]string, 0, len(seen))
	for v := range seen {
		cats = append(cats, v)
	}
	sort.Strings(cats)
	return cats, hasNull
}

func indexOf(cats []string, v string) int {
	i := sort.SearchStrings(cats, v)
	if i < len(cats) && cats[i] == v {
		return i
	}
	return -1
}

// OrdinalEncoder maps each category of a column to its rank among the
// sorted categories seen during Fit. Nulls encode to NaN. Unknown
// categories are an error.
type OrdinalEncoder struct {
	Columns    []string   `json:"columns"`
	Categories [][]string `json:"categories"`
}

// Fit learns the categories of each column.
func (e *OrdinalEncoder) Fit(f *frame.Frame) error {
	e.Categories = make([][]string, len(e.Columns))
	for i, name := range e.Columns {
		cells, err := f.Column(name)
		if err != nil {
			return eris.Wrap(err, "ordinal encoder: fit")
		}
		e.Categories[i], _ = sortedCategories(cells)
	}
	return nil
}

// Transform returns one output column per input column.
func (e *OrdinalEncoder) Transform(f *frame.Frame) ([][]float64, error) {
	if len(e.Categories) != len(e.Columns) {
		return nil, eris.New("ordinal encoder: not fitted")
	}
	out := make([][]float64, len(e.Columns))
	for i, name := range e.Columns {
		cells, err := f.Column(name)
		if err != nil {
			return nil, eris.Wrap(err, "ordinal encoder: transform")
		}
		col := make([]float64, len(cells))
		for r, c := range cells {
			if c.Null {
				col[r] = math.NaN()
				continue
			}
			idx := indexOf(e.Categories[i], c.Value)
			if idx < 0 {
				return nil, eris.Errorf("ordinal encoder: unknown category %q in column %q", c.Value, name)
			}
			col[r] = float64(idx)
		}
		out[i] = col
	}
	return out, nil
}

// OneHotEncoder expands each column into one indicator per category seen
// during Fit. A null seen during Fit becomes its own category, placed last.
// Unknown categories encode to all zeros.
type OneHotEncoder struct {
	Columns    []string   `json:"columns"`
	Categories [][]string `json:"categories"`
	HasNull    []bool     `json:"has_null"`
}

// Fit learns the categories of each column.
func (e *OneHotEncoder) Fit(f *frame.Frame) error {
	e.Categories = make([][]string, len(e.Columns))
	e.HasNull = make([]bool, len(e.Columns))
	for i, name := range e.Columns {
		cells, err := f.Column(name)
		if err != nil {
			return eris.Wrap(err, "one-hot encoder: fit")
		}
		e.Categories[i], e.HasNull[i] = sortedCategories(cells)
	}
	return nil
}

// Width is the number of output columns.
func (e *OneHotEncoder) Width() int {
	var w int
	for i, cats := range e.Categories {
		w += len(cats)
		if e.HasNull[i] {
			w++
		}
	}
	return w
}

// Transform returns the indicator columns, grouped by input column.
func (e *OneHotEncoder) Transform(f *frame.Frame) ([][]float64, error) {
	if len(e.Categories) != len(e.Columns) || len(e.HasNull) != len(e.Columns) {
		return nil, eris.New("one-hot encoder: not fitted")
	}
	var out [][]float64
	for i, name := range e.Columns {
		cells, err := f.Column(name)
		if err != nil {
			return nil, eris.Wrap(err, "one-hot encoder: transform")
		}
		width := len(e.Categories[i])
		if e.HasNull[i] {
			width++
		}
		group := make([][]float64, width)
		for k := range group {
			group[k] = make([]float64, len(cells))
		}
		for r, c := range cells {
			switch {
			case c.Null && e.HasNull[i]:
				group[width-1][r] = 1
			case c.Null:
			default:
				if idx := indexOf(e.Categories[i], c.Value); idx >= 0 {
					group[idx][r] = 1
				}
			}
		}
		out = append(out, group...)
	}
	return out, nil
}

// LabelEncoder maps class labels to integers by sorted order.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// ObjectKind identifies a persisted LabelEncoder.
func (*LabelEncoder) ObjectKind() string { return "label_encoder" }

// Fit learns the sorted set of labels. Null labels are an error.
func (e *LabelEncoder) Fit(labels []frame.Cell) error {
	cats, hasNull := sortedCategories(labels)
	if hasNull {
		return eris.New("label encoder: null label")
	}
	if len(cats) == 0 {
		return eris.New("label encoder: no labels")
	}
	e.Classes = cats
	return nil
}

// Transform encodes labels. Labels not seen during Fit are an error.
func (e *LabelEncoder) Transform(labels []frame.Cell) ([]float64, error) {
	out := make([]float64, len(labels))
	for i, c := range labels {
		if c.Null {
			return nil, eris.Errorf("label encoder: null label at row %d", i)
		}
		idx := indexOf(e.Classes, c.Value)
		if idx < 0 {
			return nil, eris.Errorf("label encoder: unseen label %q", c.Value)
		}
		out[i] = float64(idx)
	}
	return out, nil
}

// Inverse decodes an encoded class back to its label.
func (e *LabelEncoder) Inverse(class int) (string, error) {
	if class < 0 || class >= len(e.Classes) {
		return "", eris.Errorf("label encoder: class %d out of range [0,%d)", class, len(e.Classes))
	}
	return e.Classes[class], nil
}
