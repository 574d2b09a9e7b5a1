package learn

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// hessianFloor keeps second-order gradients strictly positive.
const hessianFloor = 1e-16

// BoosterParams are the hyperparameters of a GradientBoostingClassifier.
type BoosterParams struct {
	NumClass            int     `json:"num_class"`
	NEstimators         int     `json:"n_estimators"`
	MaxDepth            int     `json:"max_depth"`
	LearningRate        float64 `json:"learning_rate"`
	Lambda              float64 `json:"lambda"`
	MinChildWeight      float64 `json:"min_child_weight"`
	EarlyStoppingRounds int     `json:"early_stopping_rounds"`
	BaseScore           float64 `json:"base_score"`
	Seed                uint64  `json:"seed"`
}

// DefaultBoosterParams returns the stock multi-class softmax settings.
func DefaultBoosterParams(numClass int) BoosterParams {
	return BoosterParams{
		NumClass:       numClass,
		NEstimators:    100,
		MaxDepth:       6,
		LearningRate:   0.3,
		Lambda:         1,
		MinChildWeight: 1,
		BaseScore:      0.5,
	}
}

// EvalSet is a held-out set scored after every boosting round.
type EvalSet struct {
	X *mat.Dense
	Y []float64
}

// EvalRound records the evaluation metrics of one round.
type EvalRound struct {
	Round    int     `json:"round"`
	MError   float64 `json:"merror"`
	MLogLoss float64 `json:"mlogloss"`
}

// GradientBoostingClassifier is a multi-class softmax booster of
// second-order regression trees, one tree per class per round.
type GradientBoostingClassifier struct {
	Params        BoosterParams `json:"params"`
	Trees         [][]Tree      `json:"trees"`
	BestIteration int           `json:"best_iteration"`
	EvalLog       []EvalRound   `json:"eval_log,omitempty"`
	NumFeatures   int           `json:"num_features"`
}

// NewGradientBoostingClassifier returns an unfitted classifier.
func NewGradientBoostingClassifier(params BoosterParams) *GradientBoostingClassifier {
	return &GradientBoostingClassifier{Params: params}
}

// ObjectKind identifies a persisted GradientBoostingClassifier.
func (*GradientBoostingClassifier) ObjectKind() string { return "gradient_boosting_classifier" }

func checkLabels(y []float64, numClass int) error {
	for i, v := range y {
		if v != math.Trunc(v) || v < 0 || int(v) >= numClass {
			return eris.Errorf("booster: label %v at row %d is not a class in [0,%d)", v, i, numClass)
		}
	}
	return nil
}

// Fit trains the booster on x and y. When eval is non-nil, merror and
// mlogloss are computed on it after every round; with EarlyStoppingRounds
// set, training stops once mlogloss has not improved for that many rounds
// and the trees after the best round are discarded.
func (m *GradientBoostingClassifier) Fit(x *mat.Dense, y []float64, eval *EvalSet) error {
	p := m.Params
	if p.NumClass < 2 {
		return eris.Errorf("booster: num_class %d must be at least 2", p.NumClass)
	}
	if p.NEstimators < 1 {
		return eris.Errorf("booster: n_estimators %d must be positive", p.NEstimators)
	}
	rows, feats := x.Dims()
	if rows != len(y) {
		return eris.Errorf("booster: %d rows but %d labels", rows, len(y))
	}
	if err := checkLabels(y, p.NumClass); err != nil {
		return err
	}
	if eval != nil {
		er, ef := eval.X.Dims()
		if ef != feats || er != len(eval.Y) {
			return eris.Errorf("booster: eval set shape %dx%d with %d labels does not match %d features", er, ef, len(eval.Y), feats)
		}
		if err := checkLabels(eval.Y, p.NumClass); err != nil {
			return eris.Wrap(err, "booster: eval set")
		}
	}

	cols := make([][]float64, feats)
	for f := range cols {
		cols[f] = mat.Col(nil, f, x)
	}
	builder := newTreeBuilder(cols, p.MaxDepth, p.Lambda, p.MinChildWeight, p.LearningRate)

	k := p.NumClass
	margin := newMargins(rows, k, p.BaseScore)
	var evalMargin []float64
	if eval != nil {
		evalMargin = newMargins(len(eval.Y), k, p.BaseScore)
	}

	m.NumFeatures = feats
	m.Trees = m.Trees[:0]
	m.EvalLog = m.EvalLog[:0]
	m.BestIteration = 0
	best := math.Inf(1)

	grad := make([][]float64, k)
	hess := make([][]float64, k)
	for c := range grad {
		grad[c] = make([]float64, rows)
		hess[c] = make([]float64, rows)
	}
	prob := make([]float64, k)

	for round := 0; round < p.NEstimators; round++ {
		for i := 0; i < rows; i++ {
			softmax(margin[i*k:(i+1)*k], prob)
			label := int(y[i])
			for c := 0; c < k; c++ {
				target := 0.0
				if c == label {
					target = 1
				}
				grad[c][i] = prob[c] - target
				hess[c][i] = math.Max(2*prob[c]*(1-prob[c]), hessianFloor)
			}
		}

		trees := make([]Tree, k)
		for c := 0; c < k; c++ {
			trees[c] = builder.build(grad[c], hess[c])
		}
		m.Trees = append(m.Trees, trees)
		addTrees(margin, x, trees)

		if eval == nil {
			m.BestIteration = round
			continue
		}

		addTrees(evalMargin, eval.X, trees)
		rec := EvalRound{
			Round:    round,
			MError:   marginError(evalMargin, eval.Y, k),
			MLogLoss: marginLogLoss(evalMargin, eval.Y, k),
		}
		m.EvalLog = append(m.EvalLog, rec)

		if rec.MLogLoss < best {
			best = rec.MLogLoss
			m.BestIteration = round
		}
		if p.EarlyStoppingRounds > 0 && round-m.BestIteration >= p.EarlyStoppingRounds {
			zap.L().Debug("booster: early stopping",
				zap.Int("round", round),
				zap.Int("best_iteration", m.BestIteration),
				zap.Float64("best_mlogloss", best),
			)
			break
		}
	}

	if eval != nil && p.EarlyStoppingRounds > 0 {
		m.Trees = m.Trees[:m.BestIteration+1]
	}
	return nil
}

func newMargins(rows, k int, base float64) []float64 {
	out := make([]float64, rows*k)
	for i := range out {
		out[i] = base
	}
	return out
}

func addTrees(margin []float64, x *mat.Dense, trees []Tree) {
	rows, _ := x.Dims()
	k := len(trees)
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		for c, t := range trees {
			margin[i*k+c] += t.Predict(row)
		}
	}
}

func softmax(margin, dst []float64) {
	maxV := math.Inf(-1)
	for _, v := range margin {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	for c, v := range margin {
		dst[c] = math.Exp(v - maxV)
		sum += dst[c]
	}
	for c := range dst {
		dst[c] /= sum
	}
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func marginError(margin, y []float64, k int) float64 {
	if len(y) == 0 {
		return 0
	}
	var wrong int
	for i, label := range y {
		if argmax(margin[i*k:(i+1)*k]) != int(label) {
			wrong++
		}
	}
	return float64(wrong) / float64(len(y))
}

func marginLogLoss(margin, y []float64, k int) float64 {
	if len(y) == 0 {
		return 0
	}
	prob := make([]float64, k)
	var loss float64
	for i, label := range y {
		softmax(margin[i*k:(i+1)*k], prob)
		loss -= math.Log(math.Max(prob[int(label)], logLossEps))
	}
	return loss / float64(len(y))
}

// margins returns the raw per-class scores of one row.
func (m *GradientBoostingClassifier) margins(row []float64) []float64 {
	k := m.Params.NumClass
	out := make([]float64, k)
	for c := range out {
		out[c] = m.Params.BaseScore
	}
	for _, trees := range m.Trees {
		for c, t := range trees {
			out[c] += t.Predict(row)
		}
	}
	return out
}

// PredictRow returns the most probable class of row.
func (m *GradientBoostingClassifier) PredictRow(row []float64) (int, error) {
	if len(m.Trees) == 0 {
		return 0, eris.New("booster: not fitted")
	}
	if len(row) != m.NumFeatures {
		return 0, eris.Errorf("booster: row has %d features, want %d", len(row), m.NumFeatures)
	}
	return argmax(m.margins(row)), nil
}

// Predict returns the most probable class of every row of x.
func (m *GradientBoostingClassifier) Predict(x *mat.Dense) ([]float64, error) {
	rows, _ := x.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		c, err := m.PredictRow(x.RawRowView(i))
		if err != nil {
			return nil, eris.Wrapf(err, "booster: predict row %d", i)
		}
		out[i] = float64(c)
	}
	return out, nil
}

// PredictProba returns the class probabilities of row.
func (m *GradientBoostingClassifier) PredictProba(row []float64) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, eris.New("booster: not fitted")
	}
	if len(row) != m.NumFeatures {
		return nil, eris.Errorf("booster: row has %d features, want %d", len(row), m.NumFeatures)
	}
	prob := make([]float64, m.Params.NumClass)
	softmax(m.margins(row), prob)
	return prob, nil
}
