package model

import "strconv"

// PatientRecord is one prediction request row.
type PatientRecord struct {
	Age                     int     `json:"age" form:"age"`
	Sex                     string  `json:"sex" form:"sex"`
	OnThyroxine             string  `json:"on_thyroxine" form:"on_thyroxine"`
	QueryOnThyroxine        string  `json:"query_on_thyroxine" form:"query_on_thyroxine"`
	OnAntithyroidMedication string  `json:"on_antithyroid_medication" form:"on_antithyroid_medication"`
	Sick                    string  `json:"sick" form:"sick"`
	Pregnant                string  `json:"pregnant" form:"pregnant"`
	ThyroidSurgery          string  `json:"thyroid_surgery" form:"thyroid_surgery"`
	I131Treatment           string  `json:"I131_treatment" form:"I131_treatment"`
	QueryHypothyroid        string  `json:"query_hypothyroid" form:"query_hypothyroid"`
	QueryHyperthyroid       string  `json:"query_hyperthyroid" form:"query_hyperthyroid"`
	Lithium                 string  `json:"lithium" form:"lithium"`
	Goitre                  string  `json:"goitre" form:"goitre"`
	Tumor                   string  `json:"tumor" form:"tumor"`
	Hypopituitary           string  `json:"hypopituitary" form:"hypopituitary"`
	Psych                   string  `json:"psych" form:"psych"`
	T3                      float64 `json:"T3" form:"T3"`
	TT4                     float64 `json:"TT4" form:"TT4"`
	T4U                     float64 `json:"T4U" form:"T4U"`
	FTI                     float64 `json:"FTI" form:"FTI"`
	ReferralSource          string  `json:"referral_source" form:"referral_source"`
}

// PatientColumns lists the request fields in dataset column order.
var PatientColumns = []string{
	"age", "sex", "on_thyroxine", "query_on_thyroxine", "on_antithyroid_medication",
	"sick", "pregnant", "thyroid_surgery", "I131_treatment", "query_hypothyroid",
	"query_hyperthyroid", "lithium", "goitre", "tumor", "hypopituitary", "psych",
	"T3", "TT4", "T4U", "FTI", "referral_source",
}

// Values returns the record's cells aligned with PatientColumns.
func (p PatientRecord) Values() []string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		strconv.Itoa(p.Age), p.Sex, p.OnThyroxine, p.QueryOnThyroxine, p.OnAntithyroidMedication,
		p.Sick, p.Pregnant, p.ThyroidSurgery, p.I131Treatment, p.QueryHypothyroid,
		p.QueryHyperthyroid, p.Lithium, p.Goitre, p.Tumor, p.Hypopituitary, p.Psych,
		num(p.T3), num(p.TT4), num(p.T4U), num(p.FTI), p.ReferralSource,
	}
}
