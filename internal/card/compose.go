// Package card turns generated images into finished collectible cards and
// prepares uploaded photos for the generation pipeline.
package card

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"

	"github.com/ombulabs/rails-superhero-cards/internal/config"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Compositor renders final cards: white border, title area under the image,
// branding line above it. Compose is pure and safe for concurrent use.
type Compositor struct {
	cfg       config.CardConfig
	titleFace font.Face
	brandFace font.Face
}

// NewCompositor builds a Compositor, falling back to the basic bitmap font if
// the embedded typeface cannot be loaded.
func NewCompositor(cfg config.CardConfig) *Compositor {
	return &Compositor{
		cfg:       cfg,
		titleFace: loadFace(float64(cfg.FontSize)),
		brandFace: loadFace(float64(cfg.FontSize) / 2),
	}
}

func loadFace(size float64) font.Face {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		slog.Warn("could not parse embedded font, falling back to default", "error", err)
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		slog.Warn("could not create font face, falling back to default", "error", err)
		return basicfont.Face7x13
	}
	return face
}

// Compose takes a generated image (base64 PNG) and the card title and returns
// the finished card as base64 PNG.
func (c *Compositor) Compose(imageBase64, title string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("decode generated image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode generated image: %w", err)
	}

	bounds := img.Bounds()
	cardWidth := bounds.Dx() + 2*c.cfg.BorderSize
	cardHeight := bounds.Dy() + 2*c.cfg.BorderSize + c.cfg.TitleAreaHeight + c.cfg.BrandingAreaHeight

	cardImg := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(cardImg, cardImg.Bounds(), image.White, image.Point{}, draw.Src)

	imgX := c.cfg.BorderSize
	imgY := c.cfg.BorderSize + c.cfg.BrandingAreaHeight
	draw.Draw(cardImg,
		image.Rect(imgX, imgY, imgX+bounds.Dx(), imgY+bounds.Dy()),
		img, bounds.Min, draw.Src)

	c.drawCentered(cardImg, title, c.titleFace, color.Black,
		cardHeight-c.cfg.BorderSize-c.cfg.TitleAreaHeight, c.cfg.TitleAreaHeight)

	c.drawCentered(cardImg, c.cfg.BrandingText, c.brandFace,
		color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
		c.cfg.BorderSize, c.cfg.BrandingAreaHeight)

	var buf bytes.Buffer
	if err := png.Encode(&buf, cardImg); err != nil {
		return "", fmt.Errorf("encode card: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// drawCentered renders text horizontally centered inside the band starting at
// bandY with the given height.
func (c *Compositor) drawCentered(dst *image.RGBA, text string, face font.Face, col color.Color, bandY, bandHeight int) {
	if text == "" {
		return
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}

	width := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()

	x := (dst.Bounds().Dx() - width) / 2
	y := bandY + (bandHeight-textHeight)/2 + metrics.Ascent.Ceil()

	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
