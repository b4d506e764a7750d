package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultImageMaxBytes keeps re-encoded uploads under the 5 MB image limit
// of the Claude API with some headroom.
const DefaultImageMaxBytes = 4718592 // 4.5 MiB

// DefaultImageMaxPixels bounds decoded upload size (about 160 MB as RGBA).
const DefaultImageMaxPixels = 40_000_000

type Config struct {
	ListenAddr     string
	VisionBackend  string
	ResponseFormat string
	VisionTimeout  time.Duration

	ClaudeAPIKey     string
	ClaudeModel      string
	GeminiAPIKey     string
	GeminiModel      string
	OpenRouterAPIKey string
	OpenRouterModel  string
	OpenRouterURL    string
	GrokAPIKey       string
	GrokModel        string
	GrokURL          string
	OllamaHost       string
	OllamaModel      string

	ImageMaxBytes     int
	ImageQualityFloor int
	ImageMaxPixels    int

	PhotoBackend string
	PhotoPath    string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string

	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment. Variables in a .env file in
// the working directory are loaded first but never override the real
// environment. OPENROUTER_URL and GROK_URL stay empty unless set, leaving
// the vendor defaults to the caller.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		VisionBackend:  getEnv("VISION_BACKEND", "openrouter"),
		ResponseFormat: getEnv("RESPONSE_FORMAT", "json"),
		VisionTimeout:  getDuration("VISION_TIMEOUT", 60*time.Second),

		ClaudeAPIKey:     getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:      getEnv("CLAUDE_MODEL", "claude-3-5-haiku-20241022"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "qwen/qwen3-vl-235b-a22b-instruct"),
		OpenRouterURL:    getEnv("OPENROUTER_URL", ""),
		GrokAPIKey:       getEnv("GROK_API_KEY", ""),
		GrokModel:        getEnv("GROK_MODEL", "grok-4-fast"),
		GrokURL:          getEnv("GROK_URL", ""),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llava"),

		ImageMaxBytes:     getInt("IMAGE_MAX_BYTES", DefaultImageMaxBytes),
		ImageQualityFloor: getInt("IMAGE_QUALITY_FLOOR", 20),
		ImageMaxPixels:    getInt("IMAGE_MAX_PIXELS", DefaultImageMaxPixels),

		PhotoBackend: getEnv("PHOTO_BACKEND", "local"),
		PhotoPath:    getEnv("PHOTO_LOCAL_PATH", "static/uploads"),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3Region:     getEnv("S3_REGION", "auto"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return n
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", val, "default", defaultVal)
		return defaultVal
	}
	return d
}
