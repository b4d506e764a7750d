package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/platelens/internal/imaging"
	"github.com/vbonduro/platelens/internal/nutrition"
	"github.com/vbonduro/platelens/internal/photostore"
	"github.com/vbonduro/platelens/internal/vision"
)

const photoPrefix = "meal"

// Analysis is the outcome of one uploaded photo.
type Analysis struct {
	PhotoKey    string
	Record      *nutrition.Record
	RawResponse string
	Model       string
	// Compressed reports the re-encoded size and quality that was sent to the model.
	Compressed CompressionInfo
}

type CompressionInfo struct {
	OriginalBytes int
	EncodedBytes  int
	Quality       int
	OverBudget    bool
}

type AnalysisService struct {
	visionAPI vision.Analyzer
	photoStg  photostore.PhotoStore
	budget    imaging.Budget
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAnalysisService wires the pipeline. A zero timeout leaves the vendor
// call bounded only by the caller's context.
func NewAnalysisService(
	visionAPI vision.Analyzer,
	photoStg photostore.PhotoStore,
	budget imaging.Budget,
	timeout time.Duration,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		visionAPI: visionAPI,
		photoStg:  photoStg,
		budget:    budget,
		timeout:   timeout,
		logger:    logger,
	}
}

// Analyze re-encodes the upload to fit the byte budget, stores the original,
// sends the re-encoding to the vision model, and normalizes the reply. The
// only error returned for bad input is *imaging.DecodeError, which also
// covers images too large to decode; vendor failures become an error record.
func (s *AnalysisService) Analyze(ctx context.Context, imageData []byte, mimeType string) (*Analysis, error) {
	s.logger.Info("analysis started", "mime_type", mimeType, "bytes", len(imageData))

	encoded, err := imaging.Reencode(imageData, s.budget)
	if err != nil {
		return nil, err
	}
	if encoded.OverBudget {
		s.logger.Warn("image still over budget at quality floor",
			"bytes", len(encoded.Data), "max_bytes", s.budget.MaxBytes, "quality", encoded.Quality)
	}
	s.logger.Debug("image re-encoded",
		"original_bytes", len(imageData), "encoded_bytes", len(encoded.Data), "quality", encoded.Quality,
		"width", encoded.Width, "height", encoded.Height)

	storageKey, err := s.photoStg.Save(ctx, photoPrefix, mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "storage_key", storageKey)

	analysis := &Analysis{
		PhotoKey: storageKey,
		Compressed: CompressionInfo{
			OriginalBytes: len(imageData),
			EncodedBytes:  len(encoded.Data),
			Quality:       encoded.Quality,
			OverBudget:    encoded.OverBudget,
		},
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.visionAPI.Analyze(callCtx, bytes.NewReader(encoded.Data), "image/jpeg")
	if err != nil {
		s.logger.Error("vision analysis failed", "storage_key", storageKey, "error", err)
		analysis.Record = nutrition.ErrorRecord(errorMessage(err))
		return analysis, nil
	}
	s.logger.Info("vision analysis complete", "model", result.Model, "duration_ms", time.Since(start).Milliseconds())

	analysis.RawResponse = result.RawResponse
	analysis.Model = result.Model
	analysis.Record = nutrition.Normalize(result.RawResponse)

	if n := len(analysis.Record.NutritionLines); n > 0 && !analysis.Record.HasCanonicalNutrition() {
		s.logger.Warn("nutrition lines do not match the canonical breakdown",
			"form", analysis.Record.Form.String(), "lines", n)
	}
	s.logger.Info("analysis complete",
		"dish", analysis.Record.DishName, "form", analysis.Record.Form.String(), "retake", analysis.Record.IsRetake())

	return analysis, nil
}

// errorMessage renders vendor failures the way the page shows them:
// "API Error: <status> - <body>" for HTTP failures, "Error: <cause>" otherwise.
func errorMessage(err error) string {
	var apiErr *vision.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "Error: " + err.Error()
}
