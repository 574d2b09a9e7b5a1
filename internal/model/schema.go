package model

// Dataset columns.
const (
	TargetColumn         = "Class"
	ReferralSourceColumn = "referral_source"

	// IDField is the internal identifier the document store attaches to
	// every record.
	IDField = "_id"

	// MissingSentinel marks an unknown value in the raw dataset.
	MissingSentinel = "?"
)

// NumericalColumns are the continuous attributes checked for drift.
var NumericalColumns = []string{"age", "T3", "TT4", "T4U", "FTI"}

// FlagColumns are the binary/categorical clinical flags, ordinal-encoded.
var FlagColumns = []string{
	"sex",
	"on_thyroxine",
	"query_on_thyroxine",
	"on_antithyroid_medication",
	"sick",
	"pregnant",
	"thyroid_surgery",
	"I131_treatment",
	"query_hypothyroid",
	"query_hyperthyroid",
	"lithium",
	"goitre",
	"tumor",
	"hypopituitary",
	"psych",
}

// OneHotColumns are one-hot encoded.
var OneHotColumns = []string{ReferralSourceColumn}
