package photostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeTypeExtRoundTrip(t *testing.T) {
	for _, mimeType := range []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff"} {
		assert.Equal(t, mimeType, ExtToMimeType("upload"+MimeTypeToExt(mimeType)))
	}
}

func TestExtToMimeTypeFallback(t *testing.T) {
	assert.Equal(t, "image/jpeg", ExtToMimeType("noext"))
	assert.Equal(t, "image/png", ExtToMimeType("UPPER.PNG"))
	assert.Equal(t, "image/tiff", ExtToMimeType("scan.TIF"))
	assert.Equal(t, "image/jpeg", ExtToMimeType("file.heic"))
}
