package pipeline

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/thyroid-cli/internal/learn"
	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/storage"
)

// splitFeatures returns every column but the last as features and the last
// column as labels.
func splitFeatures(arr *mat.Dense) (*mat.Dense, []float64, error) {
	rows, cols := arr.Dims()
	if cols < 2 {
		return nil, nil, eris.Errorf("train: array has %d columns, need features and a target", cols)
	}
	x := mat.DenseCopyOf(arr.Slice(0, rows, 0, cols-1))
	y := mat.Col(nil, cols-1, arr)
	return x, y, nil
}

// boosterParams maps the configured hyperparameters onto the booster.
func boosterParams(cfg model.BoosterConfig) learn.BoosterParams {
	p := learn.DefaultBoosterParams(cfg.NumClass)
	if cfg.NEstimators > 0 {
		p.NEstimators = cfg.NEstimators
	}
	if cfg.MaxDepth > 0 {
		p.MaxDepth = cfg.MaxDepth
	}
	if cfg.LearningRate > 0 {
		p.LearningRate = cfg.LearningRate
	}
	if cfg.Lambda > 0 {
		p.Lambda = cfg.Lambda
	}
	if cfg.MinChildWeight > 0 {
		p.MinChildWeight = cfg.MinChildWeight
	}
	p.EarlyStoppingRounds = cfg.EarlyStoppingRounds
	p.Seed = cfg.Seed
	return p
}

// Train fits the classifier on the transformed train array, scores it on
// both arrays and applies the quality gates. The model is saved only when
// both gates pass.
func Train(cfg model.TrainerConfig, transformation model.TransformationArtifact) (model.TrainerArtifact, error) {
	log := zap.L().With(zap.String("stage", model.StageTrainer))

	trainArr, err := storage.LoadArray(transformation.TrainArrayPath)
	if err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: load train array")
	}
	testArr, err := storage.LoadArray(transformation.TestArrayPath)
	if err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: load test array")
	}
	xTrain, yTrain, err := splitFeatures(trainArr)
	if err != nil {
		return model.TrainerArtifact{}, err
	}
	xTest, yTest, err := splitFeatures(testArr)
	if err != nil {
		return model.TrainerArtifact{}, err
	}

	clf := learn.NewGradientBoostingClassifier(boosterParams(cfg.Booster))
	if err := clf.Fit(xTrain, yTrain, &learn.EvalSet{X: xTest, Y: yTest}); err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: fit classifier")
	}

	predTrain, err := clf.Predict(xTrain)
	if err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: predict train")
	}
	predTest, err := clf.Predict(xTest)
	if err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: predict test")
	}
	trainF1, err := learn.F1Weighted(yTrain, predTrain)
	if err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: score train")
	}
	testF1, err := learn.F1Weighted(yTest, predTest)
	if err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: score test")
	}

	log.Info("train: classifier scored",
		zap.Float64("model.score.train", trainF1),
		zap.Float64("model.score.test", testF1),
		zap.Int("model.best_iteration", clf.BestIteration),
		zap.Int("model.rounds", len(clf.Trees)),
	)

	if err := checkGates(trainF1, testF1, cfg.ExpectedScore, cfg.OverfittingThreshold); err != nil {
		return model.TrainerArtifact{}, err
	}

	if err := storage.SaveObject(cfg.ModelPath, clf); err != nil {
		return model.TrainerArtifact{}, eris.Wrap(err, "train: save model")
	}
	return model.TrainerArtifact{
		ModelPath: cfg.ModelPath,
		TrainF1:   trainF1,
		TestF1:    testF1,
	}, nil
}

// checkGates rejects a model whose test score is below expected, then one
// whose train/test gap exceeds the overfitting threshold.
func checkGates(trainF1, testF1, expected, overfitting float64) error {
	if testF1 < expected {
		return &GateError{Gate: GateExpectedScore, Score: testF1, Threshold: expected, Err: ErrModelNotGoodEnough}
	}
	if gap := math.Abs(trainF1 - testF1); gap > overfitting {
		return &GateError{Gate: GateOverfitting, Score: gap, Threshold: overfitting, Err: ErrOverfitting}
	}
	return nil
}
