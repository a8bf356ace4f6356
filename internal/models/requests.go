package models

// AnalyzeTextRequest is the body of POST /api/v1/analyze/text.
type AnalyzeTextRequest struct {
	Message string `json:"message" binding:"required"`
}

// ReportScamRequest is the body of POST /api/v1/scams.
type ReportScamRequest struct {
	Message  string `json:"message" binding:"required"`
	Category string `json:"category"`
}

// FeedbackRequest is the body of POST /api/v1/feedback.
type FeedbackRequest struct {
	AnalysisID string `json:"analysis_id" binding:"required"`
	Verdict    string `json:"verdict" binding:"required"`
	Reason     string `json:"reason"`
}
