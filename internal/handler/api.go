package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/blender"
	"github.com/thepriyanshumishra/scamshield-web/internal/fingerprint"
	"github.com/thepriyanshumishra/scamshield-web/internal/flywheel"
	"github.com/thepriyanshumishra/scamshield-web/internal/groq"
	"github.com/thepriyanshumishra/scamshield-web/internal/ml_client"
	"github.com/thepriyanshumishra/scamshield-web/internal/models"
	"github.com/thepriyanshumishra/scamshield-web/internal/ocr_client"
	"github.com/thepriyanshumishra/scamshield-web/internal/repository"
)

const maxImageBytes = 8 << 20

// Handler handles HTTP requests
type Handler struct {
	engine       *flywheel.Engine
	ledgerRepo   repository.LedgerRepository
	analysisRepo repository.AnalysisRepository
	groqClient   *groq.Client
	ocrClient    *ocr_client.Client // nil when OCR is disabled
	mlClient     *ml_client.Client  // nil when the local engine is disabled
	logger       *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	engine *flywheel.Engine,
	ledgerRepo repository.LedgerRepository,
	analysisRepo repository.AnalysisRepository,
	groqClient *groq.Client,
	ocrClient *ocr_client.Client,
	mlClient *ml_client.Client,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:       engine,
		ledgerRepo:   ledgerRepo,
		analysisRepo: analysisRepo,
		groqClient:   groqClient,
		ocrClient:    ocrClient,
		mlClient:     mlClient,
		logger:       logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Analysis
		api.POST("/analyze/text", h.AnalyzeText)
		api.POST("/analyze/image", h.AnalyzeImage)

		// Community scam ledger
		api.POST("/scams", h.ReportScam)
		api.GET("/scams", h.ListScams)

		// Feedback flywheel
		api.POST("/feedback", h.SubmitFeedback)
		api.GET("/dataset/stats", h.DatasetStats)

		// Practice drills
		api.GET("/practice", h.PracticeMessage)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// AnalyzeText runs the dual-engine analysis on a plain text message.
func (h *Handler) AnalyzeText(c *gin.Context) {
	var req models.AnalyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.engine.Analyze(c.Request.Context(), req.Message)
	if err != nil {
		h.writeAnalyzeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// AnalyzeImage extracts text from an uploaded screenshot and runs it
// through the same analysis path as plain text.
func (h *Handler) AnalyzeImage(c *gin.Context) {
	if h.ocrClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image analysis is not enabled"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}

	text, err := h.ocrClient.ExtractText(c.Request.Context(), fileHeader.Filename, imageBytes)
	if err != nil {
		h.logger.Error("OCR extraction failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "text extraction failed"})
		return
	}

	response, err := h.engine.Analyze(c.Request.Context(), text)
	if err != nil {
		h.writeAnalyzeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"extracted_text": text,
		"analysis":       response,
	})
}

func (h *Handler) writeAnalyzeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fingerprint.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
	case errors.Is(err, blender.ErrAnalysisUnavailable), errors.Is(err, groq.ErrTransient):
		h.logger.Error("Analysis unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis temporarily unavailable"})
	default:
		h.logger.Error("Analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
	}
}

// ReportScam fingerprints a confirmed scam message and appends it to the
// community ledger. Repeated reports of the same message are kept; the
// ledger records evidence, not unique messages.
func (h *Handler) ReportScam(c *gin.Context) {
	var req models.ReportScamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Category == "" {
		req.Category = models.CategoryPhishing
	}
	if !models.ValidCategories[req.Category] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category"})
		return
	}

	canonical, err := fingerprint.Normalize(req.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
		return
	}

	entry, err := h.ledgerRepo.Append(fingerprint.Fingerprint(canonical), req.Category)
	if err != nil {
		h.logger.Error("Failed to append to scam ledger", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// ListScams returns the full ledger, oldest first.
func (h *Handler) ListScams(c *gin.Context) {
	entries, err := h.ledgerRepo.ListAll()
	if err != nil {
		h.logger.Error("Failed to list scam ledger", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ledger unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// SubmitFeedback records the user's verdict on a past analysis.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.engine.SubmitFeedback(c.Request.Context(), req.AnalysisID, req.Verdict, req.Reason)
	switch {
	case errors.Is(err, flywheel.ErrInvalidFeedback):
		c.JSON(http.StatusBadRequest, gin.H{"error": "verdict must be agree or disagree"})
		return
	case errors.Is(err, repository.ErrAnalysisNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	case errors.Is(err, repository.ErrFeedbackAlreadyRecorded):
		c.JSON(http.StatusConflict, gin.H{"error": "feedback already recorded"})
		return
	case err != nil:
		h.logger.Error("Failed to submit feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit feedback"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DatasetStats returns counts describing the collected training data.
func (h *Handler) DatasetStats(c *gin.Context) {
	stats, err := h.analysisRepo.Stats()
	if err != nil {
		h.logger.Error("Failed to get dataset stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	ledgerTotal, err := h.ledgerRepo.Count()
	if err != nil {
		h.logger.Error("Failed to count scam ledger", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	stats["ledger_entries"] = ledgerTotal

	c.JSON(http.StatusOK, stats)
}

// PracticeMessage generates a themed drill message for scam-spotting
// practice. ?force_scam=true always yields a scam.
func (h *Handler) PracticeMessage(c *gin.Context) {
	forceScam := c.Query("force_scam") == "true"

	practice, err := h.groqClient.GeneratePractice(c.Request.Context(), forceScam)
	if err != nil {
		h.logger.Error("Failed to generate practice message", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "practice generation unavailable"})
		return
	}

	c.JSON(http.StatusOK, practice)
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	localEngine := "disabled"
	if h.mlClient != nil {
		localEngine = "ok"
		if _, err := h.mlClient.HealthCheck(c.Request.Context()); err != nil {
			localEngine = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "scamshield-web",
		"local_engine": localEngine,
	})
}
