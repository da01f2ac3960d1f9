package domain

import "strings"

// MetricInput is the text triple scored by the metrics engine.
// Empty Original and Summary values are valid and score as defined edge cases.
type MetricInput struct {
	Original string `json:"original"`
	Summary  string `json:"summary"`

	// Reference is nil when the caller did not supply a reference summary.
	// A non-nil blank string means one was supplied but left empty.
	Reference *string `json:"reference,omitempty"`
}

// ReferenceStatus tags which branch of ReferenceResult applies.
type ReferenceStatus string

const (
	// ReferenceNotSupplied means the caller did not ask for reference scoring.
	ReferenceNotSupplied ReferenceStatus = "not_supplied"
	// ReferenceEmpty means a reference was supplied but is blank.
	ReferenceEmpty ReferenceStatus = "empty"
	// ReferenceScored means Scores holds ROUGE/BLEU values.
	ReferenceScored ReferenceStatus = "scored"
)

// ReferenceScores compares a summary against a human reference.
// All values lie in [0,1] and are rounded to 3 decimals.
type ReferenceScores struct {
	Rouge1F1       float64 `json:"rouge1_f1"`
	RougeLF1       float64 `json:"rougeL_f1"`
	BLEU           float64 `json:"bleu"`
	EditSimilarity float64 `json:"edit_similarity"`
}

// ReferenceResult is the tagged outcome of reference scoring.
// Scores is non-nil only when Status is ReferenceScored.
type ReferenceResult struct {
	Status ReferenceStatus  `json:"status"`
	Scores *ReferenceScores `json:"scores,omitempty"`
}

// NotSupplied returns the result for an evaluation without a reference.
func NotSupplied() ReferenceResult { return ReferenceResult{Status: ReferenceNotSupplied} }

// EmptyReference returns the result for a blank reference.
func EmptyReference() ReferenceResult { return ReferenceResult{Status: ReferenceEmpty} }

// Scored wraps computed reference scores.
func Scored(scores ReferenceScores) ReferenceResult {
	return ReferenceResult{Status: ReferenceScored, Scores: &scores}
}

// ReferenceOutcomeFor classifies an optional reference text without scoring it.
// The boolean is true when the reference should be scored.
func ReferenceOutcomeFor(reference *string) (ReferenceResult, bool) {
	switch {
	case reference == nil:
		return NotSupplied(), false
	case strings.TrimSpace(*reference) == "":
		return EmptyReference(), false
	default:
		return ReferenceResult{Status: ReferenceScored}, true
	}
}

// Clone returns a copy that shares no pointers with r.
func (r ReferenceResult) Clone() ReferenceResult {
	if r.Scores == nil {
		return r
	}
	s := *r.Scores
	return ReferenceResult{Status: r.Status, Scores: &s}
}

// MetricResult is the fixed record of scores for one evaluation.
type MetricResult struct {
	// CompressionRatio is the percentage word-count reduction; negative when
	// the summary is longer than the original.
	CompressionRatio float64 `json:"compression_ratio"`

	// ReadabilityGrade is the Flesch-Kincaid grade of the summary.
	ReadabilityGrade float64 `json:"readability_grade"`

	// EntityRetention is the percentage of original named entities found verbatim in the summary.
	EntityRetention float64 `json:"entity_retention"`

	Reference ReferenceResult `json:"reference"`
}
