// Package handler exposes the issuance and verification HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veriseal/internal/certificate/issuer"
	"veriseal/internal/certificate/models"
	"veriseal/internal/certificate/ports"
	"veriseal/internal/platform/middleware"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	"veriseal/pkg/platform/httputil"
	"veriseal/pkg/platform/middleware/requesttime"
	"veriseal/pkg/platform/sentinel"
	"veriseal/pkg/requestcontext"
)

// maxBatchSize caps one submission. Larger uploads should be split by the
// caller; a single oversized batch holds the issuing loop for too long.
const maxBatchSize = 500

// BatchRunner runs one issuance batch to completion.
type BatchRunner interface {
	Run(ctx context.Context, request issuer.BatchRequest, progress issuer.ProgressFunc) (issuer.Summary, error)
}

// Handler handles certificate issuance and verification endpoints.
type Handler struct {
	logger  *slog.Logger
	issuer  BatchRunner
	records ports.RecordStore
	blobs   ports.BlobStore
	timeout time.Duration
}

type Option func(*Handler)

// WithRequestTimeout bounds each HTTP request; batch issuance is synchronous,
// so this is also the batch deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.timeout = timeout
	}
}

// New creates a certificate Handler.
func New(runner BatchRunner, records ports.RecordStore, blobs ports.BlobStore, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:  logger,
		issuer:  runner,
		records: records,
		blobs:   blobs,
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the certificate routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	certRouter := chi.NewRouter()
	certRouter.Use(middleware.Recovery(h.logger))
	certRouter.Use(middleware.RequestID)
	certRouter.Use(requesttime.Middleware)
	certRouter.Use(middleware.Logger(h.logger))
	certRouter.Use(middleware.Timeout(h.timeout))
	certRouter.Use(middleware.ContentTypeJSON)
	certRouter.Post("/v1/certificates/batch", h.handleIssueBatch)
	certRouter.Get("/v1/certificates/{key}", h.handleGetCertificate)
	certRouter.Get("/v1/certificates/{key}/document", h.handleGetDocument)

	r.Mount("/", certRouter)
}

type batchRequest struct {
	Template     models.Template             `json:"template"`
	Policy       string                      `json:"duplicatePolicy"`
	Certificates []models.CertificateContent `json:"certificates"`
}

// handleIssueBatch runs a batch synchronously and returns the summary. A
// validation failure rejects the whole batch; per-item failures are reported
// inside the summary with status 200.
func (h *Handler) handleIssueBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid batch request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Certificates) > maxBatchSize {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "batch exceeds %d certificates", maxBatchSize))
		return
	}

	policy, err := models.ParseDuplicatePolicy(req.Policy)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.issuer.Run(ctx, issuer.BatchRequest{
		Template: req.Template,
		Contents: req.Certificates,
		Policy:   policy,
	}, nil)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "batch issuance failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "batch issuance failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// handleGetCertificate is the verification endpoint: anyone holding a
// certificate key can confirm what was issued and when.
func (h *Handler) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := id.ParseCertificateKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.records.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "certificate not found"))
			return
		}
		h.logger.ErrorContext(ctx, "certificate lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "certificate lookup failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, record)
}

// handleGetDocument streams the rendered certificate document.
func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, err := id.ParseCertificateKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The record lookup doubles as an existence check: a stale key from a
	// superseded certificate must not serve the new document.
	if _, err := h.records.FindByKey(ctx, key); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "certificate not found"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "certificate lookup failed"))
		return
	}

	document, err := h.blobs.Get(ctx, string(key)+".pdf")
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "certificate document not found"))
			return
		}
		h.logger.ErrorContext(ctx, "document fetch failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "document fetch failed"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}
