package blender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/models"
)

func newTestBlender() *Blender {
	return New(0.4, 0.6, zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }

func TestBlendHybrid(t *testing.T) {
	b := newTestBlender()

	remote := &models.RemoteVerdict{
		Probability: 0.97,
		Category:    models.CategoryPhishing,
		RedFlags:    []string{"urgency", "suspicious link"},
		Advice:      "Do not click the link.",
	}

	result, err := b.Blend(floatPtr(0.95), remote)
	require.NoError(t, err)

	assert.InDelta(t, 0.4*0.95+0.6*0.97, result.Probability, 1e-9)
	assert.Equal(t, models.CategoryPhishing, result.Category)
	assert.Equal(t, []string{"urgency", "suspicious link"}, result.RedFlags)
	assert.Equal(t, "Do not click the link.", result.Advice)
	assert.Equal(t, SourceHybrid, result.Source)
}

func TestBlendRemoteOnly(t *testing.T) {
	b := newTestBlender()

	remote := &models.RemoteVerdict{
		Probability: 0.72,
		Category:    models.CategoryJobScam,
		RedFlags:    []string{"unusually high pay"},
		Advice:      "Verify the employer independently.",
	}

	result, err := b.Blend(nil, remote)
	require.NoError(t, err)

	assert.Equal(t, 0.72, result.Probability)
	assert.Equal(t, models.CategoryJobScam, result.Category)
	assert.Equal(t, SourceRemoteOnly, result.Source)
}

func TestBlendLocalOnly(t *testing.T) {
	b := newTestBlender()

	result, err := b.Blend(floatPtr(0.81), nil)
	require.NoError(t, err)

	assert.Equal(t, 0.81, result.Probability)
	assert.Equal(t, models.CategoryUncertain, result.Category)
	assert.Empty(t, result.RedFlags)
	assert.NotEmpty(t, result.Advice)
	assert.Equal(t, SourceLocalOnly, result.Source)
}

func TestBlendNeitherEngineFails(t *testing.T) {
	b := newTestBlender()

	result, err := b.Blend(nil, nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
}

func TestBlendClampsBoundaries(t *testing.T) {
	b := newTestBlender()

	for _, tc := range []struct {
		local  float64
		remote float64
	}{
		{0.0, 0.0},
		{1.0, 1.0},
		{0.0, 1.0},
		{1.0, 0.0},
	} {
		result, err := b.Blend(floatPtr(tc.local), &models.RemoteVerdict{
			Probability: tc.remote,
			Category:    models.CategoryNormal,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Probability, 0.0)
		assert.LessOrEqual(t, result.Probability, 1.0)
	}
}

func TestCalibrateIsIdempotent(t *testing.T) {
	b := newTestBlender()

	remote := &models.RemoteVerdict{
		Probability: 0.60,
		Category:    models.CategoryBankScam,
		RedFlags:    []string{"urgency", "OTP request"},
		Advice:      "Do not share your OTP.",
	}

	result, err := b.Blend(floatPtr(0.50), remote)
	require.NoError(t, err)

	b.Calibrate(result)
	once := result.Probability

	// Re-applying the same rules must not double-count.
	b.Calibrate(result)
	b.Calibrate(result)
	assert.Equal(t, once, result.Probability)
}

func TestCalibrateCapsNormalMessages(t *testing.T) {
	b := newTestBlender()

	result, err := b.Blend(floatPtr(0.7), &models.RemoteVerdict{
		Probability: 0.6,
		Category:    models.CategoryNormal,
	})
	require.NoError(t, err)

	b.Calibrate(result)
	assert.LessOrEqual(t, result.Probability, 0.15)
}

func TestCalibrateReclampsAfterBoost(t *testing.T) {
	b := newTestBlender()

	result, err := b.Blend(floatPtr(0.99), &models.RemoteVerdict{
		Probability: 0.99,
		Category:    models.CategoryBankScam,
		RedFlags:    []string{"a", "b", "c", "d", "e"},
	})
	require.NoError(t, err)

	b.Calibrate(result)
	assert.LessOrEqual(t, result.Probability, 1.0)
}
