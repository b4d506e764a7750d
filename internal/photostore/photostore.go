package photostore

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned by Get for unknown storage keys.
var ErrNotFound = errors.New("photo not found")

// PhotoStore keeps uploaded photos so the result page can show them.
type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
}

func MimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ".jpg"
	}
}

func ExtToMimeType(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx == -1 {
		return "image/jpeg"
	}
	switch strings.ToLower(name[idx:]) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}
