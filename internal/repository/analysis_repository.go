package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/models"
)

// ErrAnalysisNotFound is returned when no record exists for the given id.
var ErrAnalysisNotFound = errors.New("analysis record not found")

// ErrFeedbackAlreadyRecorded is returned when feedback was already
// submitted for a record. Feedback is accepted at most once, never
// silently overwritten.
var ErrFeedbackAlreadyRecorded = errors.New("feedback already recorded for this analysis")

// AnalysisRepository stores one record per scan and serves the flywheel's
// state transitions.
type AnalysisRepository interface {
	Save(record *models.AnalysisRecord) error
	GetByID(id string) (*models.AnalysisRecord, error)
	RecordAgree(id string) error
	RecordDisagree(id, reason string) error
	ApplySecondReview(id, finalLabel string) error
	ListExportEligible() ([]*models.AnalysisRecord, error)
	Stats() (map[string]interface{}, error)
}

type analysisRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db *sqlx.DB, logger *zap.Logger) AnalysisRepository {
	return &analysisRepository{db: db, logger: logger}
}

// Save inserts a new analysis record.
func (r *analysisRepository) Save(record *models.AnalysisRecord) error {
	_, err := r.db.NamedExec(`
		INSERT INTO analyses (
			id, raw_text, local_score, remote_probability, category,
			red_flags, psychology_explainer, advice,
			blended_probability, source, final_label,
			feedback, feedback_reason, verified, created_at
		) VALUES (
			:id, :raw_text, :local_score, :remote_probability, :category,
			:red_flags, :psychology_explainer, :advice,
			:blended_probability, :source, :final_label,
			:feedback, :feedback_reason, :verified, :created_at
		)`, record)
	if err != nil {
		return fmt.Errorf("failed to save analysis record: %w", err)
	}
	return nil
}

// GetByID returns a single record.
func (r *analysisRepository) GetByID(id string) (*models.AnalysisRecord, error) {
	record := &models.AnalysisRecord{}
	err := r.db.Get(record, `
		SELECT id, raw_text, local_score, remote_probability, category,
		       red_flags, psychology_explainer, advice,
		       blended_probability, source, final_label,
		       feedback, feedback_reason, verified, reviewed_at, created_at
		FROM analyses WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis record: %w", err)
	}
	return record, nil
}

// RecordAgree marks the record as agreed and verified. User agreement is
// itself sufficient ground truth for export. The conditional update makes
// the at-most-once feedback rule atomic against concurrent submissions.
func (r *analysisRepository) RecordAgree(id string) error {
	result, err := r.db.Exec(`
		UPDATE analyses
		SET feedback = $1, verified = 1
		WHERE id = $2 AND feedback = $3`,
		models.FeedbackAgree, id, models.FeedbackNone)
	if err != nil {
		return fmt.Errorf("failed to record agreement: %w", err)
	}
	return r.checkFeedbackUpdate(result, id)
}

// RecordDisagree stores the disagreement and optional reason. It does not
// flip final_label; that is the second review's job.
func (r *analysisRepository) RecordDisagree(id, reason string) error {
	result, err := r.db.Exec(`
		UPDATE analyses
		SET feedback = $1, feedback_reason = $2
		WHERE id = $3 AND feedback = $4`,
		models.FeedbackDisagree, reason, id, models.FeedbackNone)
	if err != nil {
		return fmt.Errorf("failed to record disagreement: %w", err)
	}
	return r.checkFeedbackUpdate(result, id)
}

func (r *analysisRepository) checkFeedbackUpdate(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	// Nothing updated: either the record is missing or feedback exists.
	if _, err := r.GetByID(id); err != nil {
		return err
	}
	return ErrFeedbackAlreadyRecorded
}

// ApplySecondReview overrides final_label with the second review's verdict
// and marks the record verified. The second review is trusted
// unconditionally: it had strictly more context than the original blend.
func (r *analysisRepository) ApplySecondReview(id, finalLabel string) error {
	result, err := r.db.Exec(`
		UPDATE analyses
		SET final_label = $1, verified = 1, reviewed_at = $2
		WHERE id = $3`,
		finalLabel, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to apply second review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

// ListExportEligible returns records eligible for dataset export: verified
// or explicitly agreed. Pending and unresolved-disagree records are
// excluded so training data never contains unresolved disagreement.
func (r *analysisRepository) ListExportEligible() ([]*models.AnalysisRecord, error) {
	var records []*models.AnalysisRecord
	err := r.db.Select(&records, `
		SELECT id, raw_text, local_score, remote_probability, category,
		       red_flags, psychology_explainer, advice,
		       blended_probability, source, final_label,
		       feedback, feedback_reason, verified, reviewed_at, created_at
		FROM analyses
		WHERE verified = 1 OR feedback = $1
		ORDER BY created_at ASC, id ASC`,
		models.FeedbackAgree)
	if err != nil {
		return nil, fmt.Errorf("failed to list export-eligible records: %w", err)
	}
	return records, nil
}

// Stats returns basic statistics about the collected dataset.
func (r *analysisRepository) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total, scam, safe, agreed, disagreed, verified int64
	counts := []struct {
		key   *int64
		query string
		args  []interface{}
	}{
		{&total, "SELECT COUNT(*) FROM analyses", nil},
		{&scam, "SELECT COUNT(*) FROM analyses WHERE final_label = $1", []interface{}{models.LabelScam}},
		{&safe, "SELECT COUNT(*) FROM analyses WHERE final_label = $1", []interface{}{models.LabelSafe}},
		{&agreed, "SELECT COUNT(*) FROM analyses WHERE feedback = $1", []interface{}{models.FeedbackAgree}},
		{&disagreed, "SELECT COUNT(*) FROM analyses WHERE feedback = $1", []interface{}{models.FeedbackDisagree}},
		{&verified, "SELECT COUNT(*) FROM analyses WHERE verified = 1", nil},
	}
	for _, c := range counts {
		if err := r.db.Get(c.key, c.query, c.args...); err != nil {
			return nil, fmt.Errorf("failed to get dataset stats: %w", err)
		}
	}

	stats["total"] = total
	stats["scam"] = scam
	stats["safe"] = safe
	stats["unresolved"] = total - scam - safe
	stats["user_agreed"] = agreed
	stats["user_disagreed"] = disagreed
	stats["verified"] = verified
	return stats, nil
}
