package service

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/TIANLI0/PersonWatch/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 200 && g>>8 < 60 && b>>8 < 60
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 240 && g>>8 > 240 && b>>8 > 240
}

func TestRenderNoRegionsReturnsInput(t *testing.T) {
	src := whitePNG(t, 64, 48)

	out, err := NewOverlayRenderer("Persona").Render(src, nil)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestRenderDrawsRectangleAtPixelBox(t *testing.T) {
	src := whitePNG(t, 100, 100)
	regions := []model.Region{{
		Category: "person",
		Box:      model.FractionalBox{Top: 0.1, Left: 0.1, Bottom: 0.5, Right: 0.5},
	}}

	out, err := NewOverlayRenderer("Persona").Render(src, regions)
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())

	// 四条边
	assert.True(t, isRed(img.At(10, 35)), "left edge")
	assert.True(t, isRed(img.At(50, 35)), "right edge")
	assert.True(t, isRed(img.At(35, 50)), "bottom edge")
	assert.True(t, isRed(img.At(35, 9)), "top edge")

	// 未填充
	assert.True(t, isWhite(img.At(30, 40)), "inside")
	assert.True(t, isWhite(img.At(80, 80)), "outside")
}

func TestRenderKeepsDimensionsForDegenerateBox(t *testing.T) {
	src := whitePNG(t, 80, 60)
	regions := []model.Region{{
		Category: "person",
		Box:      model.FractionalBox{Top: 0.9, Left: 0.9, Bottom: 0.5, Right: 0.5},
	}}

	out, err := NewOverlayRenderer("Persona").Render(src, regions)
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.Equal(t, image.Rect(0, 0, 80, 60), img.Bounds())
	assert.True(t, isWhite(img.At(60, 45)))
}

func TestRenderUnsupportedImage(t *testing.T) {
	_, err := NewOverlayRenderer("Persona").Render([]byte("definitely not an image"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = NewOverlayRenderer("Persona").Render(nil, []model.Region{{Category: "person"}})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestLabelOrigin(t *testing.T) {
	assert.Equal(t, image.Point{X: 15, Y: 45}, labelOrigin(model.PixelBox{Top: 50, Left: 10, Bottom: 90, Right: 90}))
	// 靠近顶部时放进框内
	assert.Equal(t, image.Point{X: 15, Y: 30}, labelOrigin(model.PixelBox{Top: 10, Left: 10, Bottom: 90, Right: 90}))
	assert.Equal(t, image.Point{X: 5, Y: 15}, labelOrigin(model.PixelBox{Top: 20, Left: 0, Bottom: 90, Right: 90}))
}

func transparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.NRGBA{G: 255}}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func alphaAt(img image.Image, x, y int) uint8 {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
}

func TestRenderKeepsTransparency(t *testing.T) {
	src := transparentPNG(t, 100, 100)
	regions := []model.Region{{
		Category: "person",
		Box:      model.FractionalBox{Top: 0.1, Left: 0.1, Bottom: 0.5, Right: 0.5},
	}}

	out, err := NewOverlayRenderer("Persona").Render(src, regions)
	require.NoError(t, err)

	img := decodePNG(t, out)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())

	assert.Equal(t, uint8(0), alphaAt(img, 30, 40), "inside stays transparent")
	assert.Equal(t, uint8(0), alphaAt(img, 80, 80), "outside stays transparent")

	assert.Equal(t, uint8(255), alphaAt(img, 10, 35), "stroke is opaque")
	assert.True(t, isRed(img.At(10, 35)), "stroke is red")
}

func TestHasAlpha(t *testing.T) {
	assert.True(t, hasAlpha(color.NRGBAModel))
	assert.True(t, hasAlpha(color.NYCbCrAModel))
	assert.True(t, hasAlpha(color.Palette{color.White, color.NRGBA{A: 0}}))

	assert.False(t, hasAlpha(color.YCbCrModel))
	assert.False(t, hasAlpha(color.GrayModel))
	assert.False(t, hasAlpha(color.Palette{color.White, color.Black}))
}
