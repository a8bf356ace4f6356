package models

import "time"

// ScamCategory is the set of categories the remote reasoner may assign.
type ScamCategory = string

const (
	CategoryBankScam    ScamCategory = "bank scam"
	CategoryJobScam     ScamCategory = "job scam"
	CategoryCourierScam ScamCategory = "courier scam"
	CategoryLotteryScam ScamCategory = "lottery scam"
	CategoryPhishing    ScamCategory = "phishing"
	CategoryNormal      ScamCategory = "normal message"

	// CategoryUncertain is assigned when only the local model scored the
	// message and no semantic category is available.
	CategoryUncertain ScamCategory = "uncertain"
)

// ValidCategories is the set of categories accepted from the remote reasoner.
var ValidCategories = map[ScamCategory]bool{
	CategoryBankScam:    true,
	CategoryJobScam:     true,
	CategoryCourierScam: true,
	CategoryLotteryScam: true,
	CategoryPhishing:    true,
	CategoryNormal:      true,
}

// Final labels for an analysis record.
const (
	LabelScam       = "scam"
	LabelSafe       = "safe"
	LabelUnresolved = "unresolved"
)

// User feedback values.
const (
	FeedbackNone     = "none"
	FeedbackAgree    = "agree"
	FeedbackDisagree = "disagree"
)

// HighlightedPhrase marks a verbatim substring of the message the remote
// reasoner considered dangerous.
type HighlightedPhrase struct {
	Phrase string `json:"phrase"`
	Danger string `json:"danger"` // "high" or "medium"
}

// RemoteVerdict is the structured result returned by the remote reasoner.
type RemoteVerdict struct {
	Probability         float64             `json:"probability"`
	Category            ScamCategory        `json:"category"`
	RedFlags            []string            `json:"red_flags"`
	HighlightedPhrases  []HighlightedPhrase `json:"highlighted_phrases,omitempty"`
	PsychologyExplainer string              `json:"psychology_explainer,omitempty"`
	Advice              string              `json:"advice"`
}

// AnalysisRecord is one row in the training-data store, created per scan.
// RawText is immutable after creation; Feedback is set at most once;
// FinalLabel may change exactly once via the second-review path.
type AnalysisRecord struct {
	ID                  string     `db:"id" json:"id"`
	RawText             string     `db:"raw_text" json:"raw_text"`
	LocalScore          *float64   `db:"local_score" json:"local_score,omitempty"`
	RemoteProbability   *float64   `db:"remote_probability" json:"remote_probability,omitempty"`
	Category            string     `db:"category" json:"category"`
	RedFlags            string     `db:"red_flags" json:"-"` // JSON array string
	PsychologyExplainer string     `db:"psychology_explainer" json:"psychology_explainer,omitempty"`
	Advice              string     `db:"advice" json:"advice"`
	BlendedProbability  float64    `db:"blended_probability" json:"blended_probability"`
	Source              string     `db:"source" json:"source"` // hybrid, remote_only, local_only
	FinalLabel          string     `db:"final_label" json:"final_label"`
	Feedback            string     `db:"feedback" json:"feedback"`
	FeedbackReason      string     `db:"feedback_reason" json:"feedback_reason,omitempty"`
	Verified            bool       `db:"verified" json:"verified"`
	ReviewedAt          *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// LabelFromProbability derives the initial final_label from the blended
// score at creation time.
func LabelFromProbability(probability, threshold float64) string {
	if probability >= threshold {
		return LabelScam
	}
	return LabelSafe
}
