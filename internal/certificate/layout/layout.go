// Package layout computes on-image text placement from anchor points and maps
// between preview (viewport-scaled) and native (template-resolution) pixel
// space. All placement math happens in native space; preview space exists only
// for interactive editing.
package layout

import (
	"veriseal/internal/certificate/models"
	dErrors "veriseal/pkg/domain-errors"
)

// VerticalCenteringFactor optically centers a text line on its anchor. Preview
// and export share this single constant; the editor must show exactly what the
// exported document renders.
const VerticalCenteringFactor = 0.5

// Measured is the rendered extent of a string at the field's native font size,
// as reported by the target rendering surface. The engine consumes metrics; it
// never computes them.
type Measured struct {
	Width  float64
	Height float64
}

// Placement is the top-left corner of the rendered text, in native pixels.
type Placement struct {
	X float64
	Y float64
}

// Place resolves a field's anchor into the top-left render position for a
// string of the given measured extent.
//
// Horizontally the anchor is the alignment reference point: the string's left
// edge for AlignLeft, its center for AlignCenter, its right edge for
// AlignRight. Vertically the anchor is the optical center of the line.
func Place(field models.FieldDefinition, measured Measured) (Placement, error) {
	var x float64
	switch field.TextAlign {
	case AlignLeft:
		x = field.Anchor.X
	case AlignCenter:
		x = field.Anchor.X - measured.Width/2
	case AlignRight:
		x = field.Anchor.X - measured.Width
	default:
		return Placement{}, dErrors.Newf(dErrors.CodeInvariantViolation, "field %s: unknown text align %q", field.ID, field.TextAlign)
	}
	return Placement{
		X: x,
		Y: field.Anchor.Y - measured.Height*VerticalCenteringFactor,
	}, nil
}

// ShouldRender reports whether a field participates in output at all. Hidden
// fields and empty values are skipped entirely, never rendered as blank space.
func ShouldRender(field models.FieldDefinition, value string) bool {
	return field.ShowInOutput && value != ""
}

// Alignment aliases keep call sites in this package readable.
const (
	AlignLeft   = models.AlignLeft
	AlignCenter = models.AlignCenter
	AlignRight  = models.AlignRight
)
