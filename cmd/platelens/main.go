package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/vbonduro/platelens/internal/config"
	"github.com/vbonduro/platelens/internal/imaging"
	"github.com/vbonduro/platelens/internal/logging"
	"github.com/vbonduro/platelens/internal/photostore"
	"github.com/vbonduro/platelens/internal/photostore/local"
	"github.com/vbonduro/platelens/internal/photostore/s3store"
	"github.com/vbonduro/platelens/internal/service"
	"github.com/vbonduro/platelens/internal/vision"
	claudevision "github.com/vbonduro/platelens/internal/vision/claude"
	geminivision "github.com/vbonduro/platelens/internal/vision/gemini"
	ollamavision "github.com/vbonduro/platelens/internal/vision/ollama"
	openaivision "github.com/vbonduro/platelens/internal/vision/openai"
	"github.com/vbonduro/platelens/internal/web"
	"github.com/vbonduro/platelens/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx := context.Background()

	visionAnalyzer, closeVision, err := newVisionAnalyzer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize vision backend", "backend", cfg.VisionBackend, "error", err)
		return
	}
	defer closeVision()

	photoStg, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize photo store", "backend", cfg.PhotoBackend, "error", err)
		return
	}

	budget := imaging.Budget{
		MaxBytes:     cfg.ImageMaxBytes,
		QualityFloor: cfg.ImageQualityFloor,
		MaxPixels:    cfg.ImageMaxPixels,
	}
	analysisService := service.NewAnalysisService(visionAnalyzer, photoStg, budget, cfg.VisionTimeout, logger)
	server := web.NewServer(analysisService, templates.FS, photoStg, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newVisionAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (vision.Analyzer, func(), error) {
	format := vision.ResponseFormat(cfg.ResponseFormat)
	if format != vision.FormatJSON && format != vision.FormatProse {
		return nil, nil, fmt.Errorf("unknown RESPONSE_FORMAT %q", cfg.ResponseFormat)
	}
	prompt := vision.Prompt(format)
	noop := func() {}

	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, nil, fmt.Errorf("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel, "format", format)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel, prompt), noop, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY is required when VISION_BACKEND=gemini")
		}
		analyzer, err := geminivision.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, prompt)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel, "format", format)
		return analyzer, func() {
			if err := analyzer.Close(); err != nil {
				logger.Error("failed to close gemini client", "error", err)
			}
		}, nil
	case "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			return nil, nil, fmt.Errorf("OPENROUTER_API_KEY is required when VISION_BACKEND=openrouter")
		}
		logger.Info("using OpenRouter vision backend", "model", cfg.OpenRouterModel, "format", format)
		headers := map[string]string{
			"HTTP-Referer": "https://github.com/vbonduro/platelens",
			"X-Title":      "PlateLens",
		}
		return openaivision.NewChatAnalyzer(orDefault(cfg.OpenRouterURL, openaivision.OpenRouterURL), cfg.OpenRouterAPIKey, cfg.OpenRouterModel, prompt, headers), noop, nil
	case "grok":
		if cfg.GrokAPIKey == "" {
			return nil, nil, fmt.Errorf("GROK_API_KEY is required when VISION_BACKEND=grok")
		}
		logger.Info("using Grok vision backend", "model", cfg.GrokModel, "format", format)
		return openaivision.NewChatAnalyzer(orDefault(cfg.GrokURL, openaivision.GrokURL), cfg.GrokAPIKey, cfg.GrokModel, prompt, nil), noop, nil
	default:
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel, "format", format)
		return ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel, prompt), noop, nil
	}
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "s3":
		logger.Info("using S3 photo store", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return s3store.NewS3PhotoStore(ctx, s3store.Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		logger.Info("using local photo store", "path", cfg.PhotoPath)
		return local.NewLocalPhotoStore(cfg.PhotoPath)
	}
}

func orDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}
