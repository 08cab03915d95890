package card_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/ombulabs/rails-superhero-cards/internal/card"
	"github.com/ombulabs/rails-superhero-cards/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCardConfig() config.CardConfig {
	return config.CardConfig{
		BorderSize:         40,
		TitleAreaHeight:    120,
		FontSize:           60,
		BrandingAreaHeight: 100,
		BrandingText:       "fastruby.io",
		MaxImageBytes:      1024 * 1024,
	}
}

// testPNG returns a w x h solid-color PNG.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// noisyJPEG returns a JPEG with per-pixel noise so it compresses poorly.
func noisyJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(12345)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{
				R: uint8(seed >> 24), G: uint8(seed >> 16), B: uint8(seed >> 8), A: 255,
			})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

// --- ValidateFormat ---

func TestValidateFormat_Empty(t *testing.T) {
	err := card.ValidateFormat(nil)
	var fmtErr *card.ImageFormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Equal(t, "Image data is empty", fmtErr.Message)
}

func TestValidateFormat_Garbage(t *testing.T) {
	err := card.ValidateFormat([]byte("definitely not an image"))
	var fmtErr *card.ImageFormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Contains(t, fmtErr.Message, "Unable to process image")
}

func TestValidateFormat_PNG(t *testing.T) {
	assert.NoError(t, card.ValidateFormat(testPNG(t, 32, 32)))
}

func TestValidateFormat_JPEG(t *testing.T) {
	assert.NoError(t, card.ValidateFormat(noisyJPEG(t, 32, 32)))
}

// --- Compress ---

func TestCompress_SmallImageStaysUnderCeiling(t *testing.T) {
	out, err := card.Compress(testPNG(t, 64, 64), 1024*1024)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), 1024*1024)

	// Output is JPEG.
	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestCompress_ShrinksOversizedImage(t *testing.T) {
	src := noisyJPEG(t, 600, 600)
	ceiling := 64 * 1024

	out, err := card.Compress(src, ceiling)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	// The noisy source cannot fit at full resolution, so it must have been
	// scaled down.
	assert.Less(t, cfg.Width, 600)
	assert.Less(t, cfg.Height, 600)
}

func TestCompress_Undecodable(t *testing.T) {
	_, err := card.Compress([]byte("junk"), 1024)
	assert.Error(t, err)
}

// --- Compose ---

func TestCompose_Dimensions(t *testing.T) {
	cfg := testCardConfig()
	c := card.NewCompositor(cfg)

	srcW, srcH := 200, 150
	src := base64.StdEncoding.EncodeToString(testPNG(t, srcW, srcH))

	out, err := c.Compose(src, "The Refactorer")
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	wantW := srcW + 2*cfg.BorderSize
	wantH := srcH + 2*cfg.BorderSize + cfg.TitleAreaHeight + cfg.BrandingAreaHeight
	assert.Equal(t, wantW, img.Bounds().Dx())
	assert.Equal(t, wantH, img.Bounds().Dy())
}

func TestCompose_Deterministic(t *testing.T) {
	c := card.NewCompositor(testCardConfig())
	src := base64.StdEncoding.EncodeToString(testPNG(t, 100, 100))

	a, err := c.Compose(src, "Gem Guardian")
	require.NoError(t, err)
	b, err := c.Compose(src, "Gem Guardian")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompose_InvalidBase64(t *testing.T) {
	c := card.NewCompositor(testCardConfig())
	_, err := c.Compose("not base64!!!", "title")
	assert.Error(t, err)
}

func TestCompose_EmptyTitle(t *testing.T) {
	c := card.NewCompositor(testCardConfig())
	src := base64.StdEncoding.EncodeToString(testPNG(t, 50, 50))

	out, err := c.Compose(src, "")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
