package model

// IngestionArtifact records the files written by data ingestion.
type IngestionArtifact struct {
	FeatureStorePath string `json:"feature_store_file_path"`
	TrainPath        string `json:"train_file_path"`
	TestPath         string `json:"test_file_path"`
}

// ValidationArtifact records the report written by data validation.
type ValidationArtifact struct {
	ReportPath string `json:"report_file_path"`
}

// TransformationArtifact records the arrays and fitted objects written by
// data transformation.
type TransformationArtifact struct {
	TransformerPath   string `json:"transform_object_path"`
	TargetEncoderPath string `json:"target_encoder_path"`
	TrainArrayPath    string `json:"transformed_train_path"`
	TestArrayPath     string `json:"transformed_test_path"`
}

// TrainerArtifact records the persisted model and its scores.
type TrainerArtifact struct {
	ModelPath string  `json:"model_path"`
	TrainF1   float64 `json:"f1_train_score"`
	TestF1    float64 `json:"f1_test_score"`
}

// RegistryArtifact records the published registry version.
type RegistryArtifact struct {
	Version int    `json:"version"`
	Dir     string `json:"dir"`
}
