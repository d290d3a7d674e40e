package audit

import (
	"context"
	"time"

	id "veriseal/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: certificate issuance, update, revocation.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	// Examples: batch summaries, export failures, duplicate skips.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Publisher id.PublisherID
	Action    string
	// CertificateKey identifies the issuance event the action refers to,
	// when there is one (empty for batch-level events).
	CertificateKey string
	// ContentHash is the logical certificate identity, safe to log: it
	// contains no recoverable recipient data.
	ContentHash string
	Recipient   string
	Reason      string
	RequestID   string
}

// AuditEvent names every action the issuance pipeline emits.
type AuditEvent string

const (
	// Issuance events
	EventCertificateIssued   AuditEvent = "certificate_issued"
	EventCertificateUpdated  AuditEvent = "certificate_updated"
	EventDuplicateSkipped    AuditEvent = "certificate_duplicate_skipped"
	EventItemFailed          AuditEvent = "certificate_item_failed"
	EventBatchCompleted      AuditEvent = "batch_completed"
	EventBatchValidationFail AuditEvent = "batch_validation_failed"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPublisher(ctx context.Context, publisher id.PublisherID) ([]Event, error)
}
