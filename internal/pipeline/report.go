package pipeline

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/thyroid-cli/internal/model"
)

// Validation report keys.
const (
	KeyMissingValuesBase   = "missing_values_within_base_dataset"
	KeyMissingValuesTrain  = "missing_values_within_train_dataset"
	KeyMissingValuesTest   = "missing_values_within_test_dataset"
	KeyMissingColumnsTrain = "missing_columns_within_train_dataset"
	KeyMissingColumnsTest  = "missing_columns_within_test_dataset"
	KeyDriftTrain          = "data_drift_within_train_dataset"
	KeyDriftTest           = "data_drift_within_test_dataset"
)

// ColumnDrift is the outcome of the two-sample test for one column.
type ColumnDrift struct {
	Column           string  `yaml:"-"`
	PValue           float64 `yaml:"pvalue"`
	SameDistribution bool    `yaml:"same_distribution"`
}

type reportEntry struct {
	key     string
	columns []string
	drift   []ColumnDrift
}

// Report accumulates validation findings under stable keys. Entries are
// written in the order they were first set.
type Report struct {
	entries []reportEntry
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

func (r *Report) entry(key string) *reportEntry {
	for i := range r.entries {
		if r.entries[i].key == key {
			return &r.entries[i]
		}
	}
	r.entries = append(r.entries, reportEntry{key: key})
	return &r.entries[len(r.entries)-1]
}

// SetColumns records a list of column names under key.
func (r *Report) SetColumns(key string, columns []string) {
	e := r.entry(key)
	e.columns = append([]string{}, columns...)
	e.drift = nil
}

// SetDrift records per-column drift results under key.
func (r *Report) SetDrift(key string, drift []ColumnDrift) {
	e := r.entry(key)
	e.drift = append([]ColumnDrift{}, drift...)
	e.columns = nil
}

// Keys returns the recorded keys in insertion order.
func (r *Report) Keys() []string {
	keys := make([]string, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.key
	}
	return keys
}

// Has reports whether key was recorded.
func (r *Report) Has(key string) bool {
	for _, e := range r.entries {
		if e.key == key {
			return true
		}
	}
	return false
}

// Columns returns the column list recorded under key.
func (r *Report) Columns(key string) ([]string, bool) {
	for _, e := range r.entries {
		if e.key == key && e.drift == nil {
			return e.columns, true
		}
	}
	return nil, false
}

// Drift returns the drift results recorded under key.
func (r *Report) Drift(key string) ([]ColumnDrift, bool) {
	for _, e := range r.entries {
		if e.key == key && e.drift != nil {
			return e.drift, true
		}
	}
	return nil, false
}

// MarshalYAML renders the report as a mapping in insertion order. Drift
// entries become a mapping of column name to result.
func (r *Report) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range r.entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key}

		var valNode yaml.Node
		if e.drift != nil {
			valNode = yaml.Node{Kind: yaml.MappingNode}
			for _, d := range e.drift {
				var res yaml.Node
				if err := res.Encode(d); err != nil {
					return nil, eris.Wrapf(err, "report: encode drift for %s", d.Column)
				}
				valNode.Content = append(valNode.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Column}, &res)
			}
		} else {
			cols := e.columns
			if cols == nil {
				cols = []string{}
			}
			if err := valNode.Encode(cols); err != nil {
				return nil, eris.Wrapf(err, "report: encode %s", e.key)
			}
		}
		root.Content = append(root.Content, keyNode, &valNode)
	}
	return root, nil
}

// FormatRunSummary renders a human-readable summary of a finished run.
func FormatRunSummary(run model.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Training Run: %s\n", run.ID)
	fmt.Fprintf(&b, "Artifacts: %s\n", run.ArtifactDir)
	fmt.Fprintf(&b, "Status: %s\n", run.Status)
	fmt.Fprintf(&b, "Started: %s\n\n", run.CreatedAt.Format("2006-01-02 15:04:05"))

	if run.Result == nil {
		b.WriteString("No result recorded.\n")
		return b.String()
	}
	res := run.Result

	b.WriteString("## Scores\n")
	fmt.Fprintf(&b, "- Train F1: %.4f\n", res.TrainF1)
	fmt.Fprintf(&b, "- Test F1: %.4f\n", res.TestF1)
	if res.ModelPath != "" {
		fmt.Fprintf(&b, "- Registry version: %d\n", res.Version)
	}
	b.WriteString("\n")

	b.WriteString("## Stages\n")
	for _, s := range res.Stages {
		fmt.Fprintf(&b, "- %s: %s (%dms)\n", s.Name, s.Status, s.Duration)
		if s.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", s.Error)
		}
	}

	if res.Error != "" {
		fmt.Fprintf(&b, "\nError: %s\n", res.Error)
	}
	return b.String()
}
