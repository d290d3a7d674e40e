package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriseal/internal/certificate/models"
	dErrors "veriseal/pkg/domain-errors"
)

func TestMeasureText(t *testing.T) {
	ctx := context.Background()
	r, err := New()
	require.NoError(t, err)

	t.Run("returns positive extent", func(t *testing.T) {
		measured, err := r.MeasureText(ctx, "Jane Doe", 32, "go")
		require.NoError(t, err)
		assert.Greater(t, measured.Width, 0.0)
		assert.Greater(t, measured.Height, 0.0)
	})

	t.Run("width grows with text length", func(t *testing.T) {
		short, err := r.MeasureText(ctx, "Jo", 32, "go")
		require.NoError(t, err)
		long, err := r.MeasureText(ctx, "Jonathan Livingston", 32, "go")
		require.NoError(t, err)
		assert.Greater(t, long.Width, short.Width)
	})

	t.Run("extent grows with font size", func(t *testing.T) {
		small, err := r.MeasureText(ctx, "Jane Doe", 16, "go")
		require.NoError(t, err)
		large, err := r.MeasureText(ctx, "Jane Doe", 48, "go")
		require.NoError(t, err)
		assert.Greater(t, large.Width, small.Width)
		assert.Greater(t, large.Height, small.Height)
	})

	t.Run("unknown family falls back instead of failing", func(t *testing.T) {
		fallback, err := r.MeasureText(ctx, "Jane Doe", 32, "no-such-family")
		require.NoError(t, err)
		regular, err := r.MeasureText(ctx, "Jane Doe", 32, "go")
		require.NoError(t, err)
		assert.Equal(t, regular, fallback)
	})

	t.Run("non-positive font size is an invariant violation", func(t *testing.T) {
		_, err := r.MeasureText(ctx, "Jane Doe", 0, "go")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestRenderLayoutTree(t *testing.T) {
	ctx := context.Background()
	r, err := New()
	require.NoError(t, err)

	t.Run("produces a bitmap at native resolution", func(t *testing.T) {
		out, err := r.RenderLayoutTree(ctx, models.LayoutTree{
			Native: models.Dimensions{Width: 200, Height: 100},
			Texts: []models.PlacedText{
				{Text: "Jane Doe", X: 20, Y: 40, FontSize: 24, FontFamily: "go", Color: "#000000"},
			},
		})
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 200, decoded.Bounds().Dx())
		assert.Equal(t, 100, decoded.Bounds().Dy())
	})

	t.Run("missing background renders on white", func(t *testing.T) {
		out, err := r.RenderLayoutTree(ctx, models.LayoutTree{
			Native: models.Dimensions{Width: 10, Height: 10},
		})
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		red, green, blue, _ := decoded.At(0, 0).RGBA()
		assert.Equal(t, uint32(0xffff), red)
		assert.Equal(t, uint32(0xffff), green)
		assert.Equal(t, uint32(0xffff), blue)
	})

	t.Run("undecodable background degrades to white canvas", func(t *testing.T) {
		out, err := r.RenderLayoutTree(ctx, models.LayoutTree{
			Native:     models.Dimensions{Width: 10, Height: 10},
			Background: []byte("not an image"),
		})
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		red, _, _, _ := decoded.At(5, 5).RGBA()
		assert.Equal(t, uint32(0xffff), red)
	})

	t.Run("background is scaled to native dimensions", func(t *testing.T) {
		out, err := r.RenderLayoutTree(ctx, models.LayoutTree{
			Native:     models.Dimensions{Width: 40, Height: 20},
			Background: encodeSolidPNG(t, 4, 2, color.RGBA{R: 0xff, A: 0xff}),
		})
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 40, decoded.Bounds().Dx())
		red, green, _, _ := decoded.At(20, 10).RGBA()
		assert.Equal(t, uint32(0xffff), red)
		assert.Equal(t, uint32(0), green)
	})

	t.Run("zero dimensions are rejected", func(t *testing.T) {
		_, err := r.RenderLayoutTree(ctx, models.LayoutTree{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRender))
	})
}

func TestEncodeDocument(t *testing.T) {
	ctx := context.Background()
	r, err := New()
	require.NoError(t, err)

	t.Run("wraps a bitmap as a pdf", func(t *testing.T) {
		bitmap, err := r.RenderLayoutTree(ctx, models.LayoutTree{
			Native: models.Dimensions{Width: 50, Height: 30},
		})
		require.NoError(t, err)

		doc, err := r.EncodeDocument(ctx, bitmap, models.Dimensions{Width: 50, Height: 30})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
	})

	t.Run("zero dimensions are rejected", func(t *testing.T) {
		_, err := r.EncodeDocument(ctx, []byte{}, models.Dimensions{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRender))
	})
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}, parseColor("#1a2b3c"))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}, parseColor("#f00"))
	assert.Equal(t, color.Black, parseColor(""))
	assert.Equal(t, color.Black, parseColor("#zzzzzz"))
	assert.Equal(t, color.Black, parseColor("crimson"))
}

func encodeSolidPNG(t *testing.T, width, height int, fill color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
