package learn

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/thyroid-cli/internal/frame"
)

// ColumnTransformer encodes a frame into a numeric matrix. Output columns
// are the ordinal-encoded columns, then the one-hot indicators, then every
// remaining input column passed through as a number, in input order.
type ColumnTransformer struct {
	Ordinal     OrdinalEncoder `json:"ordinal"`
	OneHot      OneHotEncoder  `json:"onehot"`
	Passthrough []string       `json:"passthrough"`
}

// NewColumnTransformer returns an unfitted transformer.
func NewColumnTransformer(ordinal, onehot []string) *ColumnTransformer {
	return &ColumnTransformer{
		Ordinal: OrdinalEncoder{Columns: append([]string(nil), ordinal...)},
		OneHot:  OneHotEncoder{Columns: append([]string(nil), onehot...)},
	}
}

// ObjectKind identifies a persisted ColumnTransformer.
func (*ColumnTransformer) ObjectKind() string { return "column_transformer" }

// Fit learns the encoders' categories and the passthrough columns.
func (ct *ColumnTransformer) Fit(f *frame.Frame) error {
	used := make(map[string]bool)
	for _, c := range ct.Ordinal.Columns {
		used[c] = true
	}
	for _, c := range ct.OneHot.Columns {
		if used[c] {
			return eris.Errorf("column transformer: column %q assigned to two encoders", c)
		}
		used[c] = true
	}

	if err := ct.Ordinal.Fit(f); err != nil {
		return err
	}
	if err := ct.OneHot.Fit(f); err != nil {
		return err
	}

	ct.Passthrough = ct.Passthrough[:0]
	for _, c := range f.Columns() {
		if !used[c] {
			ct.Passthrough = append(ct.Passthrough, c)
		}
	}
	return nil
}

// Width is the number of output columns.
func (ct *ColumnTransformer) Width() int {
	return len(ct.Ordinal.Columns) + ct.OneHot.Width() + len(ct.Passthrough)
}

// Transform applies the fitted encoders. It never refits.
func (ct *ColumnTransformer) Transform(f *frame.Frame) (*mat.Dense, error) {
	if f.NumRows() == 0 {
		return nil, eris.New("column transformer: empty frame")
	}

	ord, err := ct.Ordinal.Transform(f)
	if err != nil {
		return nil, err
	}
	hot, err := ct.OneHot.Transform(f)
	if err != nil {
		return nil, err
	}

	cols := make([][]float64, 0, ct.Width())
	cols = append(cols, ord...)
	cols = append(cols, hot...)
	for _, name := range ct.Passthrough {
		vals, err := f.Floats(name)
		if err != nil {
			return nil, eris.Wrap(err, "column transformer: passthrough")
		}
		cols = append(cols, vals)
	}
	if len(cols) == 0 {
		return nil, eris.New("column transformer: no output columns")
	}

	out := mat.NewDense(f.NumRows(), len(cols), nil)
	for j, col := range cols {
		out.SetCol(j, col)
	}
	return out, nil
}
