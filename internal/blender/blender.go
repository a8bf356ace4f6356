package blender

import (
	"errors"

	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/models"
)

// ErrAnalysisUnavailable is returned when neither engine produced a score.
// Callers surface it as a retryable failure, never as a silent default.
var ErrAnalysisUnavailable = errors.New("analysis unavailable: both scoring engines failed")

// Source values describing which engines contributed to a result.
const (
	SourceHybrid     = "hybrid"
	SourceRemoteOnly = "remote_only"
	SourceLocalOnly  = "local_only"
)

// localOnlyAdvice is the static notice used when only the local model scored
// the message and no semantic reasoning is available.
const localOnlyAdvice = "Detailed reasoning is unavailable for this message. Treat the score as provisional and do not share personal information if you suspect a scam."

// Result is the blended verdict published to the caller.
type Result struct {
	Probability         float64                    `json:"probability"`
	Category            string                     `json:"category"`
	RedFlags            []string                   `json:"red_flags"`
	HighlightedPhrases  []models.HighlightedPhrase `json:"highlighted_phrases,omitempty"`
	PsychologyExplainer string                     `json:"psychology_explainer,omitempty"`
	Advice              string                     `json:"advice"`
	Source              string                     `json:"source"`

	// appliedBoosts records which calibration rules have already adjusted
	// this result, so re-applying them never double-counts.
	appliedBoosts map[string]bool
}

// BoostRule is one post-blend heuristic adjustment. Adjust receives the
// current probability and the result, and reports the new probability and
// whether the rule applied at all.
type BoostRule struct {
	Name   string
	Adjust func(probability float64, r *Result) (float64, bool)
}

// Blender combines the local and remote scores under a fixed policy. The
// remote engine carries more weight because it has world knowledge the
// local model lacks.
type Blender struct {
	localWeight  float64
	remoteWeight float64
	boosts       []BoostRule
	logger       *zap.Logger
}

// categoryRiskWeight mirrors the per-category calibration weights.
var categoryRiskWeight = map[string]float64{
	models.CategoryBankScam:    1.10,
	models.CategoryPhishing:    1.08,
	models.CategoryLotteryScam: 1.05,
	models.CategoryJobScam:     1.03,
	models.CategoryCourierScam: 1.02,
	models.CategoryNormal:      0.85,
}

// New creates a Blender with the configured weights and the default
// calibration rules.
func New(localWeight, remoteWeight float64, logger *zap.Logger) *Blender {
	return &Blender{
		localWeight:  localWeight,
		remoteWeight: remoteWeight,
		boosts: []BoostRule{
			{
				Name: "category_risk_weight",
				Adjust: func(p float64, r *Result) (float64, bool) {
					w, ok := categoryRiskWeight[r.Category]
					if !ok {
						return p, false
					}
					return p * w, true
				},
			},
			{
				Name: "red_flag_bonus",
				Adjust: func(p float64, r *Result) (float64, bool) {
					if len(r.RedFlags) == 0 {
						return p, false
					}
					return p + 0.04*float64(len(r.RedFlags)), true
				},
			},
			{
				Name: "normal_message_cap",
				Adjust: func(p float64, r *Result) (float64, bool) {
					if r.Category != models.CategoryNormal || p <= 0.15 {
						return p, false
					}
					return 0.15, true
				},
			},
		},
		logger: logger,
	}
}

// Blend combines the available engine outputs. Either input may be nil; if
// both are, it fails with ErrAnalysisUnavailable. The returned probability
// is always clamped to [0,1].
func (b *Blender) Blend(local *float64, remote *models.RemoteVerdict) (*Result, error) {
	switch {
	case local != nil && remote != nil:
		return &Result{
			Probability:         clamp(b.localWeight**local + b.remoteWeight*remote.Probability),
			Category:            remote.Category,
			RedFlags:            remote.RedFlags,
			HighlightedPhrases:  remote.HighlightedPhrases,
			PsychologyExplainer: remote.PsychologyExplainer,
			Advice:              remote.Advice,
			Source:              SourceHybrid,
		}, nil

	case remote != nil:
		return &Result{
			Probability:         clamp(remote.Probability),
			Category:            remote.Category,
			RedFlags:            remote.RedFlags,
			HighlightedPhrases:  remote.HighlightedPhrases,
			PsychologyExplainer: remote.PsychologyExplainer,
			Advice:              remote.Advice,
			Source:              SourceRemoteOnly,
		}, nil

	case local != nil:
		return &Result{
			Probability: clamp(*local),
			Category:    models.CategoryUncertain,
			RedFlags:    []string{},
			Advice:      localOnlyAdvice,
			Source:      SourceLocalOnly,
		}, nil
	}

	return nil, ErrAnalysisUnavailable
}

// Calibrate applies the post-blend boost rules, each at most once per
// result, re-clamping after every adjustment. Calling it again on the same
// result is a no-op.
func (b *Blender) Calibrate(r *Result) {
	if r.appliedBoosts == nil {
		r.appliedBoosts = make(map[string]bool, len(b.boosts))
	}
	for _, rule := range b.boosts {
		if r.appliedBoosts[rule.Name] {
			continue
		}
		adjusted, applied := rule.Adjust(r.Probability, r)
		if !applied {
			continue
		}
		r.appliedBoosts[rule.Name] = true
		r.Probability = clamp(adjusted)
		b.logger.Debug("Calibration rule applied",
			zap.String("rule", rule.Name),
			zap.Float64("probability", r.Probability))
	}
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
