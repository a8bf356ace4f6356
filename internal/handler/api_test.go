package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/blender"
	"github.com/thepriyanshumishra/scamshield-web/internal/flywheel"
	"github.com/thepriyanshumishra/scamshield-web/internal/groq"
	"github.com/thepriyanshumishra/scamshield-web/internal/models"
	"github.com/thepriyanshumishra/scamshield-web/internal/repository"
)

type fakeRemote struct {
	verdict *models.RemoteVerdict
	err     error
}

func (f *fakeRemote) Analyze(ctx context.Context, text string) (*models.RemoteVerdict, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.verdict, nil
}

func (f *fakeRemote) SecondReview(ctx context.Context, text, userReason string) (string, error) {
	return models.LabelScam, nil
}

type testEnv struct {
	router       *gin.Engine
	analysisRepo repository.AnalysisRepository
	ledgerRepo   repository.LedgerRepository
}

func newTestEnv(t *testing.T, remote *fakeRemote, groqClient *groq.Client) *testEnv {
	t.Helper()

	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, zap.NewNop()))

	analysisRepo := repository.NewAnalysisRepository(db, zap.NewNop())
	ledgerRepo := repository.NewLedgerRepository(db, zap.NewNop())

	blend := blender.New(0.4, 0.6, zap.NewNop())
	engine := flywheel.NewEngine(remote, nil, blend, analysisRepo, zap.NewNop(), time.Second, 0.5)

	apiHandler := NewHandler(engine, ledgerRepo, analysisRepo, groqClient, nil, nil, zap.NewNop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiHandler.RegisterRoutes(router)

	return &testEnv{router: router, analysisRepo: analysisRepo, ledgerRepo: ledgerRepo}
}

func scamVerdict() *models.RemoteVerdict {
	return &models.RemoteVerdict{
		Probability: 0.97,
		Category:    models.CategoryPhishing,
		RedFlags:    []string{"urgency pressure"},
		Advice:      "Do not click the link.",
	}
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeTextReturnsVerdict(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	rec := postJSON(t, env.router, "/api/v1/analyze/text",
		models.AnalyzeTextRequest{Message: "URGENT: your account is blocked"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp flywheel.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, models.CategoryPhishing, resp.Category)
	assert.Greater(t, resp.Probability, 0.9)
}

func TestAnalyzeTextRejectsBlankMessage(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	rec := postJSON(t, env.router, "/api/v1/analyze/text",
		models.AnalyzeTextRequest{Message: "   \n\t  "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeTextUnavailableWhenRemoteTransient(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{err: fmt.Errorf("rate limited: %w", groq.ErrTransient)}, nil)

	rec := postJSON(t, env.router, "/api/v1/analyze/text",
		models.AnalyzeTextRequest{Message: "hello there"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyzeImageDisabled(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/image", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReportScamAppendsToLedger(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	rec := postJSON(t, env.router, "/api/v1/scams",
		models.ReportScamRequest{Message: "You won the lottery!", Category: models.CategoryLotteryScam})

	require.Equal(t, http.StatusCreated, rec.Code)

	var entry models.LedgerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, int64(1), entry.Sequence)
	assert.Equal(t, models.CategoryLotteryScam, entry.Category)
	assert.NotEmpty(t, entry.PseudoTxID)

	// Evidence log: the same message reported again gets a new entry.
	rec = postJSON(t, env.router, "/api/v1/scams",
		models.ReportScamRequest{Message: "You won the lottery!", Category: models.CategoryLotteryScam})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, int64(2), entry.Sequence)
}

func TestReportScamRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	rec := postJSON(t, env.router, "/api/v1/scams",
		models.ReportScamRequest{Message: "some scam", Category: "ponzi"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListScamsOldestFirst(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	for _, msg := range []string{"first scam", "second scam"} {
		rec := postJSON(t, env.router, "/api/v1/scams",
			models.ReportScamRequest{Message: msg, Category: models.CategoryPhishing})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scams", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Entries []models.LedgerEntry `json:"entries"`
		Total   int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, int64(1), resp.Entries[0].Sequence)
	assert.Equal(t, int64(2), resp.Entries[1].Sequence)
}

func TestFeedbackStatusMapping(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	// Unknown record
	rec := postJSON(t, env.router, "/api/v1/feedback",
		models.FeedbackRequest{AnalysisID: "missing", Verdict: "agree"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Invalid verdict
	rec = postJSON(t, env.router, "/api/v1/feedback",
		models.FeedbackRequest{AnalysisID: "missing", Verdict: "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Create an analysis, wait for the background save, then agree twice.
	rec = postJSON(t, env.router, "/api/v1/analyze/text",
		models.AnalyzeTextRequest{Message: "URGENT: verify your account"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp flywheel.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		_, err := env.analysisRepo.GetByID(resp.AnalysisID)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	rec = postJSON(t, env.router, "/api/v1/feedback",
		models.FeedbackRequest{AnalysisID: resp.AnalysisID, Verdict: "agree"})
	require.Equal(t, http.StatusOK, rec.Code)

	var record models.AnalysisRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, models.FeedbackAgree, record.Feedback)
	assert.True(t, record.Verified)

	rec = postJSON(t, env.router, "/api/v1/feedback",
		models.FeedbackRequest{AnalysisID: resp.AnalysisID, Verdict: "agree"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDatasetStatsIncludesLedger(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	rec := postJSON(t, env.router, "/api/v1/scams",
		models.ReportScamRequest{Message: "scam evidence", Category: models.CategoryPhishing})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dataset/stats", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["ledger_entries"])
	assert.Contains(t, stats, "total")
	assert.Contains(t, stats, "verified")
}

func TestPracticeMessage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"text":"Congratulations! You won a prize.","is_scam":true,"explanation":"Prize bait"}`
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer upstream.Close()

	groqClient, err := groq.NewClient(groq.Config{APIKey: "test-key", BaseURL: upstream.URL}, zap.NewNop())
	require.NoError(t, err)

	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, groqClient)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/practice?force_scam=true", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var practice groq.PracticeMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &practice))
	assert.True(t, practice.IsScam)
	assert.NotEmpty(t, practice.Text)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, &fakeRemote{verdict: scamVerdict()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "disabled", resp["local_engine"])
}
