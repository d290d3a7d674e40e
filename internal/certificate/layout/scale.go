package layout

import (
	"veriseal/internal/certificate/models"
	dErrors "veriseal/pkg/domain-errors"
)

// FitScale returns the preview scale for a viewport: the template is scaled to
// fit, but never upscaled beyond native resolution.
func FitScale(viewport, native models.Dimensions) (float64, error) {
	if native.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "native dimensions are required for scaling")
	}
	if viewport.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "viewport dimensions are required for scaling")
	}
	scale := float64(viewport.Width) / float64(native.Width)
	if vertical := float64(viewport.Height) / float64(native.Height); vertical < scale {
		scale = vertical
	}
	if scale > 1 {
		scale = 1
	}
	return scale, nil
}

// ToPreview maps a native-space point into preview space.
func ToPreview(native models.Point, scale float64) models.Point {
	return models.Point{X: native.X * scale, Y: native.Y * scale}
}

// ToNative maps a preview-space point back into native space. Inverse of
// ToPreview within floating-point tolerance for any scale in (0, 1].
func ToNative(preview models.Point, scale float64) models.Point {
	return models.Point{X: preview.X / scale, Y: preview.Y / scale}
}

// DragSession is the explicit state of one anchor drag. The editor creates a
// session when a drag starts, feeds it preview-space pointer positions, and
// persists the resulting native anchor when the drag ends. Nothing about an
// in-flight drag lives in shared state.
type DragSession struct {
	FieldID string
	scale   float64
	anchor  models.Point // native space
}

// BeginDrag opens a drag session for a field at the current preview scale.
func BeginDrag(field models.FieldDefinition, scale float64) (*DragSession, error) {
	if scale <= 0 || scale > 1 {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "drag scale must be in (0, 1], got %v", scale)
	}
	return &DragSession{
		FieldID: field.ID,
		scale:   scale,
		anchor:  field.Anchor,
	}, nil
}

// MoveTo updates the session with a pointer position in preview space and
// returns the anchor in native space.
func (s *DragSession) MoveTo(preview models.Point) models.Point {
	s.anchor = ToNative(preview, s.scale)
	return s.anchor
}

// Anchor returns the current native-space anchor, i.e. the value to persist
// when the drag ends.
func (s *DragSession) Anchor() models.Point {
	return s.anchor
}
