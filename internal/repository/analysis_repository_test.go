package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/models"
)

func newAnalysisRecord(text string) *models.AnalysisRecord {
	local := 0.95
	remote := 0.97
	return &models.AnalysisRecord{
		ID:                 uuid.NewString(),
		RawText:            text,
		LocalScore:         &local,
		RemoteProbability:  &remote,
		Category:           models.CategoryPhishing,
		RedFlags:           `["urgency","suspicious link"]`,
		Advice:             "Do not click the link.",
		BlendedProbability: 0.962,
		Source:             "hybrid",
		FinalLabel:         models.LabelScam,
		Feedback:           models.FeedbackNone,
		CreatedAt:          time.Now().UTC(),
	}
}

func TestSaveAndGetByID(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	record := newAnalysisRecord("URGENT: account blocked, click bit.ly/x")
	require.NoError(t, repo.Save(record))

	got, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.RawText, got.RawText)
	assert.Equal(t, models.LabelScam, got.FinalLabel)
	assert.Equal(t, models.FeedbackNone, got.Feedback)
	assert.False(t, got.Verified)
	require.NotNil(t, got.LocalScore)
	assert.Equal(t, 0.95, *got.LocalScore)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	_, err := repo.GetByID(uuid.NewString())
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestRecordAgreeMarksVerified(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	record := newAnalysisRecord("some scam")
	require.NoError(t, repo.Save(record))
	require.NoError(t, repo.RecordAgree(record.ID))

	got, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackAgree, got.Feedback)
	assert.True(t, got.Verified)
}

func TestFeedbackAtMostOnce(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	record := newAnalysisRecord("some scam")
	require.NoError(t, repo.Save(record))

	require.NoError(t, repo.RecordDisagree(record.ID, "this is my bank's real number"))

	assert.ErrorIs(t, repo.RecordDisagree(record.ID, "again"), ErrFeedbackAlreadyRecorded)
	assert.ErrorIs(t, repo.RecordAgree(record.ID), ErrFeedbackAlreadyRecorded)
}

func TestRecordDisagreeKeepsFinalLabel(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	record := newAnalysisRecord("some scam")
	require.NoError(t, repo.Save(record))
	require.NoError(t, repo.RecordDisagree(record.ID, "looks legit to me"))

	got, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LabelScam, got.FinalLabel, "disagreement alone must not flip the label")
	assert.Equal(t, "looks legit to me", got.FeedbackReason)
	assert.False(t, got.Verified)
}

func TestApplySecondReview(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	record := newAnalysisRecord("some scam")
	require.NoError(t, repo.Save(record))
	require.NoError(t, repo.RecordDisagree(record.ID, ""))
	require.NoError(t, repo.ApplySecondReview(record.ID, models.LabelSafe))

	got, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LabelSafe, got.FinalLabel)
	assert.True(t, got.Verified)
	assert.NotNil(t, got.ReviewedAt)
}

func TestListExportEligible(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	pending := newAnalysisRecord("pending record")
	require.NoError(t, repo.Save(pending))

	agreed := newAnalysisRecord("agreed record")
	require.NoError(t, repo.Save(agreed))
	require.NoError(t, repo.RecordAgree(agreed.ID))

	disagreed := newAnalysisRecord("disagreed, not yet reviewed")
	require.NoError(t, repo.Save(disagreed))
	require.NoError(t, repo.RecordDisagree(disagreed.ID, "reason"))

	reviewed := newAnalysisRecord("disagreed and reviewed")
	require.NoError(t, repo.Save(reviewed))
	require.NoError(t, repo.RecordDisagree(reviewed.ID, "reason"))
	require.NoError(t, repo.ApplySecondReview(reviewed.ID, models.LabelScam))

	eligible, err := repo.ListExportEligible()
	require.NoError(t, err)

	ids := make(map[string]bool, len(eligible))
	for _, rec := range eligible {
		ids[rec.ID] = true
	}
	assert.True(t, ids[agreed.ID])
	assert.True(t, ids[reviewed.ID])
	assert.False(t, ids[pending.ID], "pending records must be excluded")
	assert.False(t, ids[disagreed.ID], "unresolved disagreement must be excluded")
}

func TestStats(t *testing.T) {
	repo := NewAnalysisRepository(newTestDB(t), zap.NewNop())

	record := newAnalysisRecord("some scam")
	require.NoError(t, repo.Save(record))
	require.NoError(t, repo.RecordAgree(record.ID))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["total"])
	assert.Equal(t, int64(1), stats["scam"])
	assert.Equal(t, int64(1), stats["user_agreed"])
	assert.Equal(t, int64(1), stats["verified"])
}
