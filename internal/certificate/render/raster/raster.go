// Package raster implements the rendering surface: font metrics, bitmap
// production from a layout tree, and single-page document encoding. It is the
// only package that knows pixels; everything above it works with the abstract
// Rasterizer port.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/go-pdf/fpdf"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"veriseal/internal/certificate/layout"
	"veriseal/internal/certificate/models"
	dErrors "veriseal/pkg/domain-errors"
)

// Rasterizer renders layout trees with embedded Go fonts. Additional font
// families can be registered at construction time; unknown families fall back
// to the regular face so a typo in a template never fails an export.
type Rasterizer struct {
	mu       sync.Mutex
	fonts    map[string]*opentype.Font
	fallback *opentype.Font
	faces    map[faceKey]font.Face
}

type faceKey struct {
	family string
	size   float64
}

type Option func(*Rasterizer) error

// WithFont registers a TTF font under a family name.
func WithFont(family string, ttf []byte) Option {
	return func(r *Rasterizer) error {
		parsed, err := opentype.Parse(ttf)
		if err != nil {
			return fmt.Errorf("parse font %q: %w", family, err)
		}
		r.fonts[strings.ToLower(family)] = parsed
		return nil
	}
}

// New builds a rasterizer with the embedded Go font family preloaded.
func New(opts ...Option) (*Rasterizer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded bold font: %w", err)
	}
	italic, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse embedded italic font: %w", err)
	}

	r := &Rasterizer{
		fonts: map[string]*opentype.Font{
			"go":        regular,
			"go-bold":   bold,
			"go-italic": italic,
		},
		fallback: regular,
		faces:    make(map[faceKey]font.Face),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Rasterizer) face(family string, size float64) (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := faceKey{family: strings.ToLower(family), size: size}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}

	source, ok := r.fonts[key.family]
	if !ok {
		source = r.fallback
	}
	face, err := opentype.NewFace(source, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build face %q at %v: %w", family, size, err)
	}
	r.faces[key] = face
	return face, nil
}

// MeasureText returns the rendered extent of text at the given native font
// size. Height is the face's full line height (ascent + descent) so vertical
// centering behaves the same for short and tall strings.
func (r *Rasterizer) MeasureText(_ context.Context, text string, fontSize float64, fontFamily string) (layout.Measured, error) {
	if fontSize <= 0 {
		return layout.Measured{}, dErrors.Newf(dErrors.CodeInvariantViolation, "font size must be positive, got %v", fontSize)
	}
	face, err := r.face(fontFamily, fontSize)
	if err != nil {
		return layout.Measured{}, dErrors.Wrap(err, dErrors.CodeRender, "load font face")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	width := font.MeasureString(face, text)
	metrics := face.Metrics()
	return layout.Measured{
		Width:  fixedToFloat(width),
		Height: fixedToFloat(metrics.Ascent + metrics.Descent),
	}, nil
}

// RenderLayoutTree rasterizes the tree at native resolution and returns PNG
// bytes. A missing or undecodable background degrades to a white canvas; the
// caller decides whether that is acceptable.
func (r *Rasterizer) RenderLayoutTree(_ context.Context, tree models.LayoutTree) ([]byte, error) {
	if tree.Native.IsZero() {
		return nil, dErrors.New(dErrors.CodeRender, "layout tree requires native dimensions")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, tree.Native.Width, tree.Native.Height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	if len(tree.Background) > 0 {
		if background, _, err := image.Decode(bytes.NewReader(tree.Background)); err == nil {
			if background.Bounds().Dx() == tree.Native.Width && background.Bounds().Dy() == tree.Native.Height {
				draw.Draw(canvas, canvas.Bounds(), background, background.Bounds().Min, draw.Src)
			} else {
				xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), background, background.Bounds(), draw.Src, nil)
			}
		}
	}

	for _, text := range tree.Texts {
		face, err := r.face(text.FontFamily, text.FontSize)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeRender, "load font face")
		}

		r.mu.Lock()
		ascent := face.Metrics().Ascent
		drawer := font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(parseColor(text.Color)),
			Face: face,
			// X/Y are the text's top-left corner; the drawer wants the
			// baseline.
			Dot: fixed.Point26_6{
				X: floatToFixed(text.X),
				Y: floatToFixed(text.Y) + ascent,
			},
		}
		drawer.DrawString(text.Text)
		r.mu.Unlock()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRender, "encode bitmap")
	}
	return buf.Bytes(), nil
}

// EncodeDocument wraps a PNG bitmap as a one-page PDF sized so one native
// pixel maps to one point. Output resolution is therefore independent of any
// editor viewport.
func (r *Rasterizer) EncodeDocument(_ context.Context, bitmap []byte, native models.Dimensions) ([]byte, error) {
	if native.IsZero() {
		return nil, dErrors.New(dErrors.CodeRender, "document requires native dimensions")
	}

	width := float64(native.Width)
	height := float64(native.Height)

	doc := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: width, Ht: height},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	doc.RegisterImageOptionsReader("certificate", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(bitmap))
	doc.ImageOptions("certificate", 0, 0, width, height, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRender, "encode document")
	}
	return buf.Bytes(), nil
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

// parseColor understands #rgb and #rrggbb; anything else renders black.
func parseColor(raw string) color.Color {
	hexPart := strings.TrimPrefix(raw, "#")
	switch len(hexPart) {
	case 3:
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hexPart[i]
			expanded[2*i+1] = hexPart[i]
		}
		hexPart = string(expanded)
	case 6:
	default:
		return color.Black
	}
	value, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{
		R: uint8(value >> 16),
		G: uint8(value >> 8),
		B: uint8(value),
		A: 0xff,
	}
}
