package card

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// ValidateFormat checks that the upload decodes as a supported image.
func ValidateFormat(data []byte) error {
	if len(data) == 0 {
		return &ImageFormatError{Message: "Image data is empty"}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Error("failed to validate image format", "error", err)
		return &ImageFormatError{
			Message: "Unable to process image. Please upload a valid image file (PNG, JPG, WebP, etc.)",
		}
	}

	slog.Debug("image format validated", "format", format, "size_bytes", len(data))
	return nil
}

// Compress re-encodes the image as JPEG and, if still over maxBytes, scales
// it down and lowers quality until it fits. If nothing gets it under the
// ceiling the smallest attempt is returned anyway.
func Compress(data []byte, maxBytes int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	out, err := encodeJPEG(img, jpegQuality)
	if err != nil {
		return nil, err
	}
	if len(out) <= maxBytes {
		slog.Info("image compressed",
			"bytes", len(out), "original_bytes", len(data))
		return out, nil
	}

	// Scale proportionally to the overshoot; area shrinks with the square of
	// the side, hence the square root.
	sizeRatio := float64(len(out)) / float64(maxBytes)
	targetScale := math.Min(0.9, 1.0/math.Sqrt(sizeRatio))

	if targetScale < 0.95 {
		img = scale(img, targetScale)
		out, err = encodeJPEG(img, jpegQuality)
		if err != nil {
			return nil, err
		}
		if len(out) <= maxBytes {
			slog.Info("image resized and compressed",
				"scale", targetScale, "bytes", len(out), "original_bytes", len(data))
			return out, nil
		}
	}

	for _, quality := range []int{75, 65} {
		out, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(out) <= maxBytes {
			slog.Info("image compressed", "quality", quality, "bytes", len(out))
			return out, nil
		}
	}

	slog.Warn("could not compress image below ceiling, returning best effort",
		"max_bytes", maxBytes, "bytes", len(out))
	return out, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func scale(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
