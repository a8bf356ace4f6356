package flywheel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thepriyanshumishra/scamshield-web/internal/blender"
	"github.com/thepriyanshumishra/scamshield-web/internal/fingerprint"
	"github.com/thepriyanshumishra/scamshield-web/internal/groq"
	"github.com/thepriyanshumishra/scamshield-web/internal/models"
	"github.com/thepriyanshumishra/scamshield-web/internal/repository"
)

// ErrInvalidFeedback is returned for a feedback verdict that is neither
// agree nor disagree.
var ErrInvalidFeedback = errors.New("feedback verdict must be agree or disagree")

// RemoteReasoner is the remote engine: semantic classification plus the
// second-review pass used to adjudicate user-flagged mistakes.
type RemoteReasoner interface {
	Analyze(ctx context.Context, text string) (*models.RemoteVerdict, error)
	SecondReview(ctx context.Context, text, userReason string) (string, error)
}

// LocalScorer is the fast local classifier.
type LocalScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// AnalysisResponse is what a scan returns to the caller.
type AnalysisResponse struct {
	AnalysisID string `json:"analysis_id"`
	blender.Result
}

// Engine drives the data flywheel: every scan is recorded, user feedback
// upgrades weak labels, and disagreements trigger a second remote review
// whose verdict becomes verified ground truth.
type Engine struct {
	remote        RemoteReasoner
	local         LocalScorer // nil when the local engine is disabled
	blend         *blender.Blender
	analysisRepo  repository.AnalysisRepository
	logger        *zap.Logger
	remoteTimeout time.Duration
	scamThreshold float64
}

// NewEngine creates a new flywheel engine.
func NewEngine(
	remote RemoteReasoner,
	local LocalScorer,
	blend *blender.Blender,
	analysisRepo repository.AnalysisRepository,
	logger *zap.Logger,
	remoteTimeout time.Duration,
	scamThreshold float64,
) *Engine {
	return &Engine{
		remote:        remote,
		local:         local,
		blend:         blend,
		analysisRepo:  analysisRepo,
		logger:        logger,
		remoteTimeout: remoteTimeout,
		scamThreshold: scamThreshold,
	}
}

// Analyze scores a message with both engines concurrently, blends the
// results, and records the analysis in the background. The blend is the
// join point: both engines complete or explicitly fail before it runs.
//
// Remote transient failures (network, rate limit, timeout) propagate to the
// caller with nothing persisted, so a retry starts clean. Permanent remote
// failures degrade to local-only scoring.
func (e *Engine) Analyze(ctx context.Context, text string) (*AnalysisResponse, error) {
	if _, err := fingerprint.Normalize(text); err != nil {
		return nil, err
	}

	var (
		localScore    *float64
		remoteVerdict *models.RemoteVerdict
		remoteErr     error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if e.local == nil {
			return nil
		}
		score, err := e.local.Score(gctx, text)
		if err != nil {
			e.logger.Warn("Local scorer failed, continuing without it", zap.Error(err))
			return nil
		}
		localScore = &score
		return nil
	})
	g.Go(func() error {
		remoteCtx, cancel := context.WithTimeout(gctx, e.remoteTimeout)
		defer cancel()

		verdict, err := e.remote.Analyze(remoteCtx, text)
		if err != nil {
			remoteErr = err
			return nil
		}
		remoteVerdict = verdict
		return nil
	})
	_ = g.Wait() // worker funcs never return errors; failures are collected above

	if remoteErr != nil {
		if errors.Is(remoteErr, groq.ErrTransient) {
			return nil, fmt.Errorf("remote analysis failed: %w", remoteErr)
		}
		e.logger.Error("Remote reasoner returned an unusable response, falling back to local scoring",
			zap.Error(remoteErr))
	}

	result, err := e.blend.Blend(localScore, remoteVerdict)
	if err != nil {
		return nil, err
	}
	e.blend.Calibrate(result)

	record := e.buildRecord(text, localScore, remoteVerdict, result)

	// Fire-and-forget: the caller's latency never pays for storage I/O, and
	// the write is never cancelled once dispatched.
	go e.saveRecord(record)

	return &AnalysisResponse{AnalysisID: record.ID, Result: *result}, nil
}

func (e *Engine) buildRecord(text string, localScore *float64, remoteVerdict *models.RemoteVerdict, result *blender.Result) *models.AnalysisRecord {
	record := &models.AnalysisRecord{
		ID:                 uuid.NewString(),
		RawText:            text,
		LocalScore:         localScore,
		Category:           result.Category,
		Advice:             result.Advice,
		BlendedProbability: result.Probability,
		Source:             result.Source,
		FinalLabel:         models.LabelFromProbability(result.Probability, e.scamThreshold),
		Feedback:           models.FeedbackNone,
		CreatedAt:          time.Now().UTC(),
	}

	flags, err := json.Marshal(result.RedFlags)
	if err != nil {
		flags = []byte("[]")
	}
	record.RedFlags = string(flags)

	if remoteVerdict != nil {
		record.RemoteProbability = &remoteVerdict.Probability
		record.PsychologyExplainer = remoteVerdict.PsychologyExplainer
	}
	return record
}

func (e *Engine) saveRecord(record *models.AnalysisRecord) {
	if err := e.analysisRepo.Save(record); err != nil {
		e.logger.Error("Failed to save analysis record",
			zap.String("analysis_id", record.ID),
			zap.Error(err))
		return
	}
	e.logger.Debug("Analysis record saved", zap.String("analysis_id", record.ID))
}

// SubmitFeedback records the user's verdict on an analysis. Agreement is
// terminal and marks the record verified immediately. Disagreement stores
// the reason and triggers an asynchronous second review; the user already
// has their original verdict, so nothing waits on it.
func (e *Engine) SubmitFeedback(ctx context.Context, analysisID, verdict, reason string) (*models.AnalysisRecord, error) {
	switch verdict {
	case models.FeedbackAgree:
		if err := e.analysisRepo.RecordAgree(analysisID); err != nil {
			return nil, err
		}
	case models.FeedbackDisagree:
		if err := e.analysisRepo.RecordDisagree(analysisID, reason); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFeedback, verdict)
	}

	record, err := e.analysisRepo.GetByID(analysisID)
	if err != nil {
		return nil, err
	}

	if verdict == models.FeedbackDisagree {
		go e.runSecondReview(record.ID, record.RawText, reason)
	}

	return record, nil
}

// runSecondReview asks the remote reasoner to re-evaluate the message with
// the user's disagreement as extra context. Its label becomes final_label
// unconditionally: the second pass had strictly more context than both the
// original blend and the user's raw disagreement.
func (e *Engine) runSecondReview(analysisID, text, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.remoteTimeout)
	defer cancel()

	label, err := e.remote.SecondReview(ctx, text, reason)
	if err != nil {
		e.logger.Error("Second review failed, record stays unreviewed",
			zap.String("analysis_id", analysisID),
			zap.Error(err))
		return
	}

	if err := e.analysisRepo.ApplySecondReview(analysisID, label); err != nil {
		e.logger.Error("Failed to apply second review",
			zap.String("analysis_id", analysisID),
			zap.Error(err))
		return
	}

	e.logger.Info("Second review applied",
		zap.String("analysis_id", analysisID),
		zap.String("final_label", label))
}
