package web

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/platelens/internal/imaging"
	"github.com/vbonduro/platelens/internal/photostore"
	"github.com/vbonduro/platelens/internal/service"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType sniffs JPEG, PNG, GIF and BMP. WebP and TIFF are
// matched on their own signatures first.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// isTIFF reports whether data starts with a little- or big-endian TIFF header.
func isTIFF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	if isTIFF(data) {
		return "image/tiff", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

type indexPage struct {
	Analysis *service.Analysis
	PhotoURL string
	Error    string
}

var pageFiles = []string{"base.html", "pages/index.html"}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.renderPage(w, http.StatusOK, indexPage{}, pageFiles...); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		s.renderError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	if header.Filename == "" {
		s.renderError(w, http.StatusBadRequest, "No file selected")
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		s.renderError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.renderError(w, http.StatusBadRequest, "Unsupported image format")
		return
	}

	analysis, err := s.service.Analyze(r.Context(), imageData, mimeType)
	if err != nil {
		if errors.Is(err, imaging.ErrImageTooLarge) {
			s.renderError(w, http.StatusBadRequest, "The uploaded image is too large to process")
			return
		}
		var decodeErr *imaging.DecodeError
		if errors.As(err, &decodeErr) {
			s.renderError(w, http.StatusBadRequest, "The uploaded file could not be read as an image")
			return
		}
		s.logger.Error("analysis failed", "filename", header.Filename, "error", err)
		s.renderError(w, http.StatusInternalServerError, "Failed to process photo")
		return
	}

	page := indexPage{
		Analysis: analysis,
		PhotoURL: "/photos/" + analysis.PhotoKey,
	}
	if err := s.renderPage(w, http.StatusOK, page, pageFiles...); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	if err := s.renderPage(w, status, indexPage{Error: msg}, pageFiles...); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	reader, mimeType, err := s.photoStore.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, photostore.ErrNotFound) {
			s.logger.Error("get photo failed", "storage_key", key, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "storage_key", key, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
