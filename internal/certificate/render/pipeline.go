// Package render assembles export documents: it resolves the template asset,
// builds the layout tree from filled-in field values, and drives the rasterizer
// to a final single-page document.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veriseal/internal/certificate/layout"
	"veriseal/internal/certificate/models"
	"veriseal/internal/certificate/ports"
	dErrors "veriseal/pkg/domain-errors"
)

const defaultAssetTimeout = 10 * time.Second

// Pipeline renders one certificate at a time. It is stateless between calls
// and safe for concurrent use as long as its rasterizer is.
type Pipeline struct {
	raster       ports.Rasterizer
	assets       ports.AssetLoader
	logger       *slog.Logger
	assetTimeout time.Duration
	tracer       trace.Tracer
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithAssetTimeout bounds how long an export waits for the template image.
func WithAssetTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.assetTimeout = timeout
	}
}

func New(raster ports.Rasterizer, assets ports.AssetLoader, opts ...Option) (*Pipeline, error) {
	if raster == nil {
		return nil, fmt.Errorf("rasterizer is required")
	}
	if assets == nil {
		return nil, fmt.Errorf("asset loader is required")
	}
	p := &Pipeline{
		raster:       raster,
		assets:       assets,
		assetTimeout: defaultAssetTimeout,
		tracer:       otel.Tracer("veriseal/render"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Export renders content onto its template and returns the encoded document.
//
// Missing native dimensions fail immediately: there is no safe default size to
// rasterize at. An asset that times out mid-download degrades to whatever bytes
// arrived (the rasterizer falls back to a blank canvas when they do not decode);
// an asset that never produced a byte fails the export.
func (p *Pipeline) Export(ctx context.Context, template models.Template, content models.CertificateContent) ([]byte, error) {
	ctx, span := p.tracer.Start(ctx, "render.Export", trace.WithAttributes(
		attribute.String("template.id", template.ID.String()),
	))
	defer span.End()

	if template.Native.IsZero() {
		return nil, dErrors.Newf(dErrors.CodeRender, "template %s has no native dimensions", template.ID)
	}

	background, err := p.assets.WaitUntilLoaded(ctx, template.ImageSource, p.assetTimeout)
	if err != nil {
		if len(background) == 0 {
			return nil, dErrors.Wrap(err, dErrors.CodeRender, fmt.Sprintf("template %s asset unavailable", template.ID))
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "template asset incomplete, rendering with partial bytes",
				"template_id", template.ID,
				"bytes_loaded", len(background),
				"error", err,
			)
		}
	}

	tree, err := p.BuildLayoutTree(ctx, template, content, background)
	if err != nil {
		return nil, err
	}

	bitmap, err := p.raster.RenderLayoutTree(ctx, tree)
	if err != nil {
		return nil, err
	}
	return p.raster.EncodeDocument(ctx, bitmap, template.Native)
}

// BuildLayoutTree places every visible, non-empty field value in native pixel
// space. Hidden fields and empty values are omitted entirely.
func (p *Pipeline) BuildLayoutTree(ctx context.Context, template models.Template, content models.CertificateContent, background []byte) (models.LayoutTree, error) {
	tree := models.LayoutTree{
		Native:     template.Native,
		Background: background,
	}

	for _, field := range template.Fields {
		value := content.FieldValues[field.ID]
		if !layout.ShouldRender(field, value) {
			continue
		}

		measured, err := p.raster.MeasureText(ctx, value, field.FontSizeNative, field.FontFamily)
		if err != nil {
			return models.LayoutTree{}, dErrors.Wrap(err, dErrors.CodeRender, fmt.Sprintf("measure field %s", field.ID))
		}
		placement, err := layout.Place(field, measured)
		if err != nil {
			return models.LayoutTree{}, err
		}

		tree.Texts = append(tree.Texts, models.PlacedText{
			Text:       value,
			X:          placement.X,
			Y:          placement.Y,
			FontSize:   field.FontSizeNative,
			FontFamily: field.FontFamily,
			Color:      field.Color,
		})
	}
	return tree, nil
}
