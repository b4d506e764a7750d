package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/platelens/internal/vision"
)

func TestOllamaAnalyze(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)

		resp := map[string]interface{}{
			"model":    got["model"],
			"response": `{"dish_name": "Pancakes"}`,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava", vision.JSONPrompt)

	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	result, err := analyzer.Analyze(context.Background(), bytes.NewReader(imageData), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, `{"dish_name": "Pancakes"}`, result.RawResponse)
	assert.Equal(t, "llava", result.Model)
	assert.Equal(t, "json", got["format"])
	assert.Equal(t, false, got["stream"])
}

func TestOllamaAnalyzeProseHasNoFormat(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response": "Pasta"}`))
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava", vision.ProsePrompt)
	_, err := analyzer.Analyze(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")
	require.NoError(t, err)

	_, hasFormat := got["format"]
	assert.False(t, hasFormat)
}

func TestOllamaAnalyzeNetworkError(t *testing.T) {
	analyzer := NewOllamaAnalyzer("http://localhost:99999", "llava", vision.JSONPrompt)

	_, err := analyzer.Analyze(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	assert.Error(t, err)
}

func TestOllamaAnalyzeStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava", vision.JSONPrompt)

	_, err := analyzer.Analyze(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	var apiErr *vision.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestOllamaAnalyzeReadError(t *testing.T) {
	analyzer := NewOllamaAnalyzer("http://localhost:11434", "llava", vision.JSONPrompt)

	_, err := analyzer.Analyze(context.Background(), &errReader{}, "image/jpeg")
	assert.Error(t, err)
}

type errReader struct{}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestOllamaSendsTemperature(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"response": "Toast"}`))
	}))
	defer server.Close()

	analyzer := NewOllamaAnalyzer(server.URL, "llava", vision.ProsePrompt)
	_, err := analyzer.Analyze(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, 0.3, got.Options.Temperature)
	assert.Empty(t, got.Format)
	assert.Len(t, got.Images, 1)
}
