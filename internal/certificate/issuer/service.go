// Package issuer orchestrates batch certificate issuance: validation,
// duplicate classification, per-item rendering and persistence, and the batch
// summary handed back to the caller.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"veriseal/internal/certificate/hash"
	"veriseal/internal/certificate/metrics"
	"veriseal/internal/certificate/models"
	"veriseal/internal/certificate/ports"
	"veriseal/internal/certificate/resolver"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/platform/sentinel"
	"veriseal/pkg/requestcontext"
)

// BatchState is the orchestrator's externally visible phase. A batch only ever
// moves forward: Validating, Classifying, Issuing, then Completed. Failed is
// reachable from Validating alone; once issuing has started, per-item errors
// are recorded in the summary and the batch still completes.
type BatchState string

const (
	StateValidating  BatchState = "validating"
	StateClassifying BatchState = "classifying"
	StateIssuing     BatchState = "issuing"
	StateCompleted   BatchState = "completed"
	StateFailed      BatchState = "failed"
)

// ItemStatus is the per-item outcome.
type ItemStatus string

const (
	ItemIssued  ItemStatus = "issued"
	ItemUpdated ItemStatus = "updated"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// BatchRequest is one issuance submission: a template, the contents to issue
// against it, and the policy for candidates that already have an active record.
type BatchRequest struct {
	Template models.Template
	Contents []models.CertificateContent
	Policy   models.DuplicatePolicy
}

// ItemResult reports what happened to one candidate, in submission order.
type ItemResult struct {
	Index          int               `json:"index"`
	Recipient      string            `json:"recipient"`
	Status         ItemStatus        `json:"status"`
	CertificateKey id.CertificateKey `json:"certificateKey,omitempty"`
	ContentHash    id.ContentHash    `json:"contentHash,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// Summary is the batch outcome. Success is false only when validation failed
// or when a non-empty batch produced not a single issued, updated, or skipped
// certificate.
type Summary struct {
	State          BatchState   `json:"state"`
	IssuedCount    int          `json:"issuedCount"`
	DuplicateCount int          `json:"duplicateCount"`
	FailedCount    int          `json:"failedCount"`
	Items          []ItemResult `json:"items"`
	Success        bool         `json:"success"`
}

// Progress is reported after every state change and every processed item.
// Processed never decreases within a batch.
type Progress struct {
	State     BatchState
	Processed int
	Total     int
}

// ProgressFunc receives progress updates. It is called synchronously from the
// issuing goroutine and must return quickly.
type ProgressFunc func(Progress)

// Classifier partitions candidates into new and duplicate.
type Classifier interface {
	Classify(ctx context.Context, contents []models.CertificateContent) (resolver.Classification, error)
}

// Exporter renders one certificate into an encoded document.
type Exporter interface {
	Export(ctx context.Context, template models.Template, content models.CertificateContent) ([]byte, error)
}

type Service struct {
	classifier Classifier
	exporter   Exporter
	records    ports.RecordStore
	blobs      ports.BlobStore
	publisher  ports.AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(classifier Classifier, exporter Exporter, records ports.RecordStore, blobs ports.BlobStore, opts ...Option) (*Service, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if exporter == nil {
		return nil, fmt.Errorf("exporter is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	s := &Service{
		classifier: classifier,
		exporter:   exporter,
		records:    records,
		blobs:      blobs,
		tracer:     otel.Tracer("veriseal/issuer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run processes one batch. Every certificate in the batch carries the same
// issuance timestamp, pinned once at the start of the run.
//
// Cancellation is honored between items: already persisted certificates stay
// issued, unprocessed items are reported as failed with a cancellation error,
// and the batch completes rather than rolling back.
func (s *Service) Run(ctx context.Context, request BatchRequest, progress ProgressFunc) (Summary, error) {
	started := time.Now()
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	issuedAt := requestcontext.Now(ctx).UTC()

	ctx, span := s.tracer.Start(ctx, "issuer.Run", trace.WithAttributes(
		attribute.Int("batch.size", len(request.Contents)),
		attribute.String("batch.policy", string(request.Policy)),
	))
	defer span.End()

	total := len(request.Contents)
	report := func(state BatchState, processed int) {
		if progress != nil {
			progress(Progress{State: state, Processed: processed, Total: total})
		}
	}

	// Validating: any failure here fails the whole batch before a single
	// write happens.
	report(StateValidating, 0)
	if err := s.validate(ctx, request); err != nil {
		report(StateFailed, 0)
		span.SetStatus(codes.Error, "validation failed")
		s.metrics.ObserveBatch(metrics.OutcomeValidationFailed, time.Since(started))
		return Summary{State: StateFailed, Success: false}, err
	}

	// Classifying.
	report(StateClassifying, 0)
	classification, err := s.classifier.Classify(ctx, request.Contents)
	if err != nil {
		report(StateFailed, 0)
		span.SetStatus(codes.Error, "classification failed")
		s.metrics.ObserveBatch(metrics.OutcomeValidationFailed, time.Since(started))
		return Summary{State: StateFailed, Success: false}, dErrors.Wrap(err, dErrors.CodeClassification, "classify batch")
	}

	// Issuing, in submission order.
	report(StateIssuing, 0)
	items := orderItems(classification, total)
	summary := Summary{State: StateIssuing, Items: make([]ItemResult, 0, total)}
	// keysByHash resolves within-batch repeats to the key issued earlier in
	// this same run.
	keysByHash := make(map[id.ContentHash]id.CertificateKey)
	canceled := false

	for position, item := range items {
		if err := ctx.Err(); err != nil {
			canceled = true
			for _, rest := range items[position:] {
				summary.Items = append(summary.Items, ItemResult{
					Index:     rest.candidate.Index,
					Recipient: rest.candidate.Content.RecipientEmail,
					Status:    ItemFailed,
					Error:     "batch canceled before item was processed",
				})
				summary.FailedCount++
				s.metrics.ObserveItem(metrics.ResultFailed)
			}
			break
		}

		result := s.processItem(ctx, request, item, issuedAt, keysByHash)
		summary.Items = append(summary.Items, result)
		switch result.Status {
		case ItemIssued:
			summary.IssuedCount++
			s.metrics.ObserveItem(metrics.ResultIssued)
		case ItemUpdated:
			summary.DuplicateCount++
			s.metrics.ObserveItem(metrics.ResultUpdated)
		case ItemSkipped:
			summary.DuplicateCount++
			s.metrics.ObserveItem(metrics.ResultSkipped)
		case ItemFailed:
			summary.FailedCount++
			s.metrics.ObserveItem(metrics.ResultFailed)
		}
		report(StateIssuing, position+1)
	}

	summary.State = StateCompleted
	summary.Success = total == 0 || summary.IssuedCount+summary.DuplicateCount > 0
	report(StateCompleted, len(summary.Items))

	outcome := metrics.OutcomeCompleted
	if canceled {
		outcome = metrics.OutcomeCanceled
	}
	s.metrics.ObserveBatch(outcome, time.Since(started))

	ports.LogAudit(ctx, s.logger, s.publisher, audit.Event{
		Category:  audit.CategoryOperations,
		Publisher: batchPublisher(request),
		Action:    string(audit.EventBatchCompleted),
		Reason:    fmt.Sprintf("issued=%d duplicates=%d failed=%d", summary.IssuedCount, summary.DuplicateCount, summary.FailedCount),
	},
		"issued", summary.IssuedCount,
		"duplicates", summary.DuplicateCount,
		"failed", summary.FailedCount,
	)
	return summary, nil
}

func (s *Service) validate(ctx context.Context, request BatchRequest) error {
	fail := func(err error) error {
		ports.LogAudit(ctx, s.logger, s.publisher, audit.Event{
			Category:  audit.CategoryOperations,
			Publisher: batchPublisher(request),
			Action:    string(audit.EventBatchValidationFail),
			Reason:    err.Error(),
		})
		return err
	}

	if !request.Policy.IsValid() {
		return fail(dErrors.Newf(dErrors.CodeValidation, "invalid duplicate policy %q", request.Policy))
	}
	if err := request.Template.Validate(); err != nil {
		return fail(err)
	}
	for index, content := range request.Contents {
		if content.TemplateID != request.Template.ID {
			return fail(dErrors.Newf(dErrors.CodeValidation, "item %d targets template %s, batch template is %s", index, content.TemplateID, request.Template.ID))
		}
		if err := content.ValidateAgainst(request.Template.Fields); err != nil {
			return fail(dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("item %d", index)))
		}
	}
	return nil
}

// batchItem is one candidate plus its classification outcome.
type batchItem struct {
	candidate resolver.Candidate
	duplicate *resolver.DuplicateMatch
}

// orderItems restores submission order across the new/duplicate partition.
func orderItems(classification resolver.Classification, total int) []batchItem {
	byIndex := make([]batchItem, 0, total)
	slots := make(map[int]batchItem, total)
	for _, candidate := range classification.New {
		slots[candidate.Index] = batchItem{candidate: candidate}
	}
	for _, match := range classification.Duplicates {
		match := match
		slots[match.Candidate.Index] = batchItem{candidate: match.Candidate, duplicate: &match}
	}
	for index := 0; index < total; index++ {
		if item, ok := slots[index]; ok {
			byIndex = append(byIndex, item)
		}
	}
	return byIndex
}

func (s *Service) processItem(ctx context.Context, request BatchRequest, item batchItem, issuedAt time.Time, keysByHash map[id.ContentHash]id.CertificateKey) ItemResult {
	result := ItemResult{
		Index:       item.candidate.Index,
		Recipient:   item.candidate.Content.RecipientEmail,
		ContentHash: item.candidate.Hash,
	}

	switch {
	case item.duplicate == nil:
		key, err := s.issueNew(ctx, request, item.candidate, issuedAt)
		if err != nil {
			return s.failItem(ctx, request, result, err)
		}
		keysByHash[item.candidate.Hash] = key
		result.Status = ItemIssued
		result.CertificateKey = key

	case item.duplicate.Existing == nil:
		// Repeat of an earlier candidate in this same batch. The first
		// occurrence owns the issuance; the repeat resolves to its key
		// regardless of policy, since updating a certificate issued
		// milliseconds ago with identical content is a no-op.
		result.Status = ItemSkipped
		result.CertificateKey = keysByHash[item.candidate.Hash]
		s.auditItem(ctx, request, audit.EventDuplicateSkipped, result, "repeated within batch")

	case request.Policy == models.PolicyUpdate:
		key, err := s.updateExisting(ctx, request, item.candidate, item.duplicate.Existing, issuedAt)
		if err != nil {
			return s.failItem(ctx, request, result, err)
		}
		keysByHash[item.candidate.Hash] = key
		result.Status = ItemUpdated
		result.CertificateKey = key
		s.auditItem(ctx, request, audit.EventCertificateUpdated, result, "superseded by re-issuance")

	default:
		result.Status = ItemSkipped
		result.CertificateKey = item.duplicate.Existing.CertificateKey
		keysByHash[item.candidate.Hash] = result.CertificateKey
		s.auditItem(ctx, request, audit.EventDuplicateSkipped, result, "active certificate already exists")
	}
	return result
}

// issueNew renders, stores, and records a brand-new certificate. A uniqueness
// conflict on insert means another writer won the race since classification;
// the item then falls back to duplicate handling under the batch policy.
func (s *Service) issueNew(ctx context.Context, request BatchRequest, candidate resolver.Candidate, issuedAt time.Time) (id.CertificateKey, error) {
	key := hash.DeriveKey(candidate.Hash, issuedAt)
	documentURL, err := s.renderAndStore(ctx, request.Template, candidate.Content, key)
	if err != nil {
		return "", err
	}

	record := &models.CertificateRecord{
		ID:             id.NewCertificateID(),
		ContentHash:    candidate.Hash,
		CertificateKey: key,
		TemplateID:     candidate.Content.TemplateID,
		PublisherID:    candidate.Content.PublisherID,
		RecipientEmail: candidate.Content.RecipientEmail,
		Status:         models.StatusActive,
		IssuedAt:       issuedAt,
		DocumentURL:    documentURL,
	}
	if err := s.records.Insert(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.resolveInsertRace(ctx, request, candidate, issuedAt)
		}
		return "", dErrors.Wrap(err, dErrors.CodePersistence, "insert certificate record")
	}

	s.auditItem(ctx, request, audit.EventCertificateIssued, ItemResult{
		Recipient:      candidate.Content.RecipientEmail,
		CertificateKey: key,
		ContentHash:    candidate.Hash,
	}, "")
	return key, nil
}

func (s *Service) resolveInsertRace(ctx context.Context, request BatchRequest, candidate resolver.Candidate, issuedAt time.Time) (id.CertificateKey, error) {
	existing, err := s.records.FindActiveByContentHash(ctx, candidate.Hash)
	if err != nil || existing == nil {
		return "", dErrors.Newf(dErrors.CodePersistence, "certificate for hash %s raced with another writer", candidate.Hash)
	}
	if request.Policy == models.PolicyUpdate {
		return s.updateExisting(ctx, request, candidate, existing, issuedAt)
	}
	return existing.CertificateKey, nil
}

// updateExisting supersedes the active record in place: new key, new document,
// same content hash. The previously shared verification link goes stale.
func (s *Service) updateExisting(ctx context.Context, request BatchRequest, candidate resolver.Candidate, existing *models.CertificateRecord, issuedAt time.Time) (id.CertificateKey, error) {
	key := hash.DeriveKey(candidate.Hash, issuedAt)
	documentURL, err := s.renderAndStore(ctx, request.Template, candidate.Content, key)
	if err != nil {
		return "", err
	}

	if _, err := s.records.Update(ctx, existing.ID, models.RecordPatch{
		CertificateKey: key,
		IssuedAt:       issuedAt,
		DocumentURL:    documentURL,
	}); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodePersistence, "update certificate record")
	}
	return key, nil
}

func (s *Service) renderAndStore(ctx context.Context, template models.Template, content models.CertificateContent, key id.CertificateKey) (string, error) {
	exportStarted := time.Now()
	document, err := s.exporter.Export(ctx, template, content)
	if err != nil {
		return "", err
	}
	s.metrics.ObserveExport(time.Since(exportStarted))

	documentURL, err := s.blobs.Put(ctx, string(key)+".pdf", document, "application/pdf")
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodePersistence, "store certificate document")
	}
	return documentURL, nil
}

func (s *Service) failItem(ctx context.Context, request BatchRequest, result ItemResult, err error) ItemResult {
	result.Status = ItemFailed
	result.Error = err.Error()
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "batch item failed",
			"index", result.Index,
			"recipient", result.Recipient,
			"error", err,
		)
	}
	s.auditItem(ctx, request, audit.EventItemFailed, result, err.Error())
	return result
}

func (s *Service) auditItem(ctx context.Context, request BatchRequest, action audit.AuditEvent, result ItemResult, reason string) {
	category := audit.CategoryCompliance
	if action == audit.EventDuplicateSkipped || action == audit.EventItemFailed {
		category = audit.CategoryOperations
	}
	ports.LogAudit(ctx, s.logger, s.publisher, audit.Event{
		Category:       category,
		Publisher:      batchPublisher(request),
		Action:         string(action),
		CertificateKey: string(result.CertificateKey),
		ContentHash:    string(result.ContentHash),
		Recipient:      result.Recipient,
		Reason:         reason,
	})
}

func batchPublisher(request BatchRequest) id.PublisherID {
	if len(request.Contents) > 0 {
		return request.Contents[0].PublisherID
	}
	return id.PublisherID{}
}
