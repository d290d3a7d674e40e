// Package ports defines shared interfaces for the certificate module.
// Interfaces are placed here when consumed by multiple services to avoid
// duplication; single-consumer interfaces stay next to their consumer.
package ports

import (
	"context"
	"log/slog"
	"time"

	"veriseal/internal/certificate/layout"
	"veriseal/internal/certificate/models"
	"veriseal/pkg/attrs"
	id "veriseal/pkg/domain"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/requestcontext"
)

// RecordStore persists certificate records. Implementations must guarantee
// that no two active records share a content hash; Insert returns
// sentinel.ErrConflict (wrapped) when that uniqueness would be violated.
type RecordStore interface {
	// FindActiveByContentHash returns the active record for a content hash,
	// or (nil, nil) when none exists.
	FindActiveByContentHash(ctx context.Context, hash id.ContentHash) (*models.CertificateRecord, error)

	// FindByKey returns the record for a certificate key, or a
	// sentinel.ErrNotFound wrapped error.
	FindByKey(ctx context.Context, key id.CertificateKey) (*models.CertificateRecord, error)

	// Insert creates a new record.
	Insert(ctx context.Context, record *models.CertificateRecord) error

	// Update supersedes a record in place: new key, issuance time, and
	// document URL, same content hash.
	Update(ctx context.Context, certID id.CertificateID, patch models.RecordPatch) (*models.CertificateRecord, error)
}

// BlobStore stores rendered document blobs under caller-chosen names.
type BlobStore interface {
	// Put uploads bytes and returns a retrievable URL.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// Get retrieves previously stored bytes by name.
	Get(ctx context.Context, name string) ([]byte, error)
}

// Rasterizer is the rendering surface: it owns font metrics, bitmap
// production, and the document container format.
type Rasterizer interface {
	// MeasureText returns the rendered extent of text at the given native
	// font size and family.
	MeasureText(ctx context.Context, text string, fontSize float64, fontFamily string) (layout.Measured, error)

	// RenderLayoutTree rasterizes a layout tree at native resolution and
	// returns encoded bitmap bytes.
	RenderLayoutTree(ctx context.Context, tree models.LayoutTree) ([]byte, error)

	// EncodeDocument wraps a bitmap as a single-page document.
	EncodeDocument(ctx context.Context, bitmap []byte, native models.Dimensions) ([]byte, error)
}

// AssetLoader resolves a template image source into bytes, blocking until the
// asset is fully loaded or the timeout elapses. On timeout it returns whatever
// loaded so far together with the error.
type AssetLoader interface {
	WaitUntilLoaded(ctx context.Context, source string, timeout time.Duration) ([]byte, error)
}

// AuditPublisher emits audit events for issuance operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit is a shared helper for logging audit events across certificate
// services. It logs to both the structured logger and the audit publisher if
// available.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, logAttrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		event.RequestID = requestID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Reason == "" {
		event.Reason = attrs.ExtractString(logAttrs, "reason")
	}

	args := append(logAttrs,
		"event", event.Action,
		"log_type", "audit",
	)
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
