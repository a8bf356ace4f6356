package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/thepriyanshumishra/scamshield-web/internal/models"
	"github.com/thepriyanshumishra/scamshield-web/internal/repository"
)

// ClassifierRow is one training example for classifier retraining.
type ClassifierRow struct {
	Text  string `json:"text"`
	Label int    `json:"label"` // 1 = scam, 0 = safe
}

// ExplanationRow is one training example for explanation retraining.
type ExplanationRow struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Summary describes one export run.
type Summary struct {
	ExportedAt      time.Time `json:"exported_at"`
	ClassifierRows  int       `json:"classifier_rows"`
	ExplanationRows int       `json:"explanation_rows"`
	ClassifierFile  string    `json:"classifier_file"`
	ExplanationFile string    `json:"explanation_file"`
}

// Exporter produces training datasets from export-eligible analysis
// records. It is a pure read-side projection: it never mutates the store,
// and given a fixed snapshot its output is deterministic.
type Exporter struct {
	analysisRepo repository.AnalysisRepository
	logger       *zap.Logger
}

// NewExporter creates a new dataset exporter.
func NewExporter(analysisRepo repository.AnalysisRepository, logger *zap.Logger) *Exporter {
	return &Exporter{analysisRepo: analysisRepo, logger: logger}
}

// ClassifierRows returns {text, label} pairs for records whose final label
// resolved to scam or safe. Unresolved records carry no trainable label.
func (e *Exporter) ClassifierRows() ([]ClassifierRow, error) {
	records, err := e.analysisRepo.ListExportEligible()
	if err != nil {
		return nil, err
	}

	rows := make([]ClassifierRow, 0, len(records))
	for _, record := range records {
		label, ok := classifierLabel(record.FinalLabel)
		if !ok {
			continue
		}
		rows = append(rows, ClassifierRow{
			Text:  strings.TrimSpace(record.RawText),
			Label: label,
		})
	}
	return rows, nil
}

func classifierLabel(finalLabel string) (int, bool) {
	switch finalLabel {
	case models.LabelScam:
		return 1, true
	case models.LabelSafe:
		return 0, true
	}
	return 0, false
}

// ExplanationRows returns {input, output} pairs for records that carry
// advice, formatted for a small explanation model.
func (e *Exporter) ExplanationRows() ([]ExplanationRow, error) {
	records, err := e.analysisRepo.ListExportEligible()
	if err != nil {
		return nil, err
	}

	rows := make([]ExplanationRow, 0, len(records))
	for _, record := range records {
		if strings.TrimSpace(record.Advice) == "" {
			continue
		}
		rows = append(rows, ExplanationRow{
			Input:  "Message: " + strings.TrimSpace(record.RawText),
			Output: explanationOutput(record),
		})
	}
	return rows, nil
}

func explanationOutput(record *models.AnalysisRecord) string {
	var flags []string
	if err := json.Unmarshal([]byte(record.RedFlags), &flags); err != nil {
		flags = nil
	}
	flagsText := "None"
	if len(flags) > 0 {
		flagsText = strings.Join(flags, ", ")
	}

	psychology := record.PsychologyExplainer
	if psychology == "" {
		psychology = "N/A"
	}

	return fmt.Sprintf("Verdict: %s\nRed Flags: %s\nPsychology: %s\nAdvice: %s",
		strings.ToUpper(record.FinalLabel), flagsText, psychology, record.Advice)
}

// WriteJSONL writes both datasets as line-delimited JSON under dir, plus a
// summary file, and returns the summary.
func (e *Exporter) WriteJSONL(dir string) (*Summary, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	classifierPath := filepath.Join(dir, "classifier_dataset.jsonl")
	classifierRows, err := e.ClassifierRows()
	if err != nil {
		return nil, err
	}
	if err := writeJSONLFile(classifierPath, classifierRows); err != nil {
		return nil, err
	}

	explanationPath := filepath.Join(dir, "explanation_dataset.jsonl")
	explanationRows, err := e.ExplanationRows()
	if err != nil {
		return nil, err
	}
	if err := writeJSONLFile(explanationPath, explanationRows); err != nil {
		return nil, err
	}

	summary := &Summary{
		ExportedAt:      time.Now().UTC(),
		ClassifierRows:  len(classifierRows),
		ExplanationRows: len(explanationRows),
		ClassifierFile:  classifierPath,
		ExplanationFile: explanationPath,
	}

	summaryData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "export_summary.json"), summaryData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export summary: %w", err)
	}

	e.logger.Info("Datasets exported",
		zap.Int("classifier_rows", summary.ClassifierRows),
		zap.Int("explanation_rows", summary.ExplanationRows),
		zap.String("dir", dir))

	return summary, nil
}

func writeJSONLFile[T any](path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}
	return nil
}
