package model

import "path/filepath"

// Artifact file names.
const (
	FeatureStoreFileName  = "thyroid.csv"
	TrainFileName         = "train.csv"
	TestFileName          = "test.csv"
	ReportFileName        = "report.yaml"
	TrainArrayFileName    = "train.arr"
	TestArrayFileName     = "test.arr"
	TransformerFileName   = "transformer.json"
	TargetEncoderFileName = "target_encoder.json"
	ModelFileName         = "model.json"
)

// Stage names, also used as artifact sub-directories.
const (
	StageIngestion      = "data_ingestion"
	StageValidation     = "data_validation"
	StageTransformation = "data_transformation"
	StageTrainer        = "model_trainer"
	StageRegister       = "model_register"
)

// Registry sub-directories of a version.
const (
	TransformerDirName   = "transformer"
	TargetEncoderDirName = "target_encoder"
	ModelDirName         = "model"
)

// IngestionConfig holds the parameters and output paths of data ingestion.
type IngestionConfig struct {
	Database         string
	Collection       string
	Dir              string
	FeatureStorePath string
	TrainPath        string
	TestPath         string
	TestSize         float64
	Seed             uint64
}

// NewIngestionConfig derives the ingestion paths from the run directory.
func NewIngestionConfig(run TrainingRun, database, collection string, testSize float64, seed uint64) IngestionConfig {
	dir := filepath.Join(run.ArtifactDir, StageIngestion)
	return IngestionConfig{
		Database:         database,
		Collection:       collection,
		Dir:              dir,
		FeatureStorePath: filepath.Join(dir, "feature_store", FeatureStoreFileName),
		TrainPath:        filepath.Join(dir, "dataset", TrainFileName),
		TestPath:         filepath.Join(dir, "dataset", TestFileName),
		TestSize:         testSize,
		Seed:             seed,
	}
}

// ValidationConfig holds the parameters and output paths of data validation.
type ValidationConfig struct {
	Dir              string
	ReportPath       string
	BaseFilePath     string
	MissingThreshold float64
	DriftPValue      float64
}

// NewValidationConfig derives the validation paths from the run directory.
func NewValidationConfig(run TrainingRun, baseFilePath string, missingThreshold, driftPValue float64) ValidationConfig {
	dir := filepath.Join(run.ArtifactDir, StageValidation)
	return ValidationConfig{
		Dir:              dir,
		ReportPath:       filepath.Join(dir, ReportFileName),
		BaseFilePath:     baseFilePath,
		MissingThreshold: missingThreshold,
		DriftPValue:      driftPValue,
	}
}

// TransformationConfig holds the parameters and output paths of data
// transformation.
type TransformationConfig struct {
	Dir               string
	TransformerPath   string
	TargetEncoderPath string
	TrainArrayPath    string
	TestArrayPath     string
	KNNNeighbors      int
	TestSize          float64
	Seed              uint64
}

// NewTransformationConfig derives the transformation paths from the run directory.
func NewTransformationConfig(run TrainingRun, knnNeighbors int, testSize float64, seed uint64) TransformationConfig {
	dir := filepath.Join(run.ArtifactDir, StageTransformation)
	return TransformationConfig{
		Dir:               dir,
		TransformerPath:   filepath.Join(dir, TransformerDirName, TransformerFileName),
		TargetEncoderPath: filepath.Join(dir, TargetEncoderDirName, TargetEncoderFileName),
		TrainArrayPath:    filepath.Join(dir, "transformed", TrainArrayFileName),
		TestArrayPath:     filepath.Join(dir, "transformed", TestArrayFileName),
		KNNNeighbors:      knnNeighbors,
		TestSize:          testSize,
		Seed:              seed,
	}
}

// BoosterConfig holds the gradient-boosted tree hyperparameters.
type BoosterConfig struct {
	NumClass            int
	NEstimators         int
	MaxDepth            int
	LearningRate        float64
	Lambda              float64
	MinChildWeight      float64
	EarlyStoppingRounds int
	Seed                uint64
}

// TrainerConfig holds the parameters and output path of model training.
type TrainerConfig struct {
	Dir                  string
	ModelPath            string
	ExpectedScore        float64
	OverfittingThreshold float64
	Booster              BoosterConfig
}

// NewTrainerConfig derives the trainer paths from the run directory.
func NewTrainerConfig(run TrainingRun, expectedScore, overfittingThreshold float64, booster BoosterConfig) TrainerConfig {
	dir := filepath.Join(run.ArtifactDir, StageTrainer)
	return TrainerConfig{
		Dir:                  dir,
		ModelPath:            filepath.Join(dir, ModelDirName, ModelFileName),
		ExpectedScore:        expectedScore,
		OverfittingThreshold: overfittingThreshold,
		Booster:              booster,
	}
}
