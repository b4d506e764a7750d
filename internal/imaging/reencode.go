package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultQualityFloor is the lowest JPEG quality the re-encoder tries
	// before giving up on the byte budget.
	DefaultQualityFloor = 20

	// DefaultMaxPixels caps width*height so a small compressed upload cannot
	// expand into gigabytes of decoded pixels.
	DefaultMaxPixels = 40_000_000

	// maxDimension is the largest width or height image/jpeg can encode.
	maxDimension = 1<<16 - 1

	startQuality = 95
	qualityStep  = 10
)

// ErrImageTooLarge is wrapped in a DecodeError when the image header declares
// dimensions beyond what Reencode accepts.
var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// Budget bounds the size of a re-encoded image.
type Budget struct {
	MaxBytes     int
	QualityFloor int
	// MaxPixels limits width*height. Zero means DefaultMaxPixels.
	MaxPixels int
}

// DecodeError reports input bytes that no registered codec could decode, or
// an image too large to decode safely.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Result is the smallest JPEG encoding found for an image.
type Result struct {
	Data    []byte
	Quality int
	Width   int
	Height  int
	// OverBudget is set when even the quality floor could not bring the
	// encoding under Budget.MaxBytes. Data is still the smallest encoding seen.
	OverBudget bool
}

// Reencode decodes data and re-encodes it as JPEG, starting at quality 95 and
// stepping down by 10 until the output fits within budget.MaxBytes or the
// quality reaches budget.QualityFloor. Transparent and paletted images are
// flattened onto white first. Dimensions are checked from the header before
// any pixels are decoded.
func Reencode(data []byte, budget Budget) (*Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if err := checkDimensions(cfg.Width, cfg.Height, budget.MaxPixels); err != nil {
		return nil, &DecodeError{Err: err}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	floor := budget.QualityFloor
	if floor <= 0 {
		floor = DefaultQualityFloor
	}

	img := flatten(src)
	bounds := img.Bounds()

	var (
		buf  bytes.Buffer
		best *Result
	)
	for quality := startQuality; ; quality -= qualityStep {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg at quality %d: %w", quality, err)
		}

		if best == nil || buf.Len() < len(best.Data) {
			best = &Result{
				Data:    bytes.Clone(buf.Bytes()),
				Quality: quality,
				Width:   bounds.Dx(),
				Height:  bounds.Dy(),
			}
		}

		if buf.Len() <= budget.MaxBytes {
			return best, nil
		}
		if quality <= floor {
			best.OverBudget = len(best.Data) > budget.MaxBytes
			return best, nil
		}
	}
}

func checkDimensions(width, height, maxPixels int) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("%w: %dx%d, max side %d", ErrImageTooLarge, width, height, maxDimension)
	}
	if width*height > maxPixels {
		return fmt.Errorf("%w: %dx%d, max %d pixels", ErrImageTooLarge, width, height, maxPixels)
	}
	return nil
}

// flatten returns img unchanged when it is fully opaque and not paletted.
// Otherwise it composites img over an opaque white canvas of the same bounds.
func flatten(img image.Image) image.Image {
	if _, paletted := img.(*image.Paletted); !paletted {
		if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
			return img
		}
	}

	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
