package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"veriseal/internal/certificate/models"
	id "veriseal/pkg/domain"
	"veriseal/pkg/platform/sentinel"
)

// PostgresStore persists certificate records in PostgreSQL. The
// one-active-record-per-content-hash invariant is enforced by a partial unique
// index, so the residual race between classification and insert inside one
// batch (or across concurrent batches) resolves to sentinel.ErrConflict
// instead of a second active record.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the backing table and indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS certificates (
			id              UUID PRIMARY KEY,
			content_hash    TEXT NOT NULL,
			certificate_key TEXT NOT NULL UNIQUE,
			template_id     UUID NOT NULL,
			publisher_id    UUID NOT NULL,
			recipient_email TEXT NOT NULL,
			status          TEXT NOT NULL,
			issued_at       TIMESTAMPTZ NOT NULL,
			document_url    TEXT NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS certificates_active_content_hash
			ON certificates (content_hash) WHERE status = 'active';
	`)
	if err != nil {
		return fmt.Errorf("migrate certificates: %w", err)
	}
	return nil
}

const recordColumns = `id, content_hash, certificate_key, template_id, publisher_id, recipient_email, status, issued_at, document_url`

func (s *PostgresStore) FindActiveByContentHash(ctx context.Context, hash id.ContentHash) (*models.CertificateRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM certificates WHERE content_hash = $1 AND status = 'active'`,
		hash.String(),
	)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active by content hash: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) FindByKey(ctx context.Context, key id.CertificateKey) (*models.CertificateRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM certificates WHERE certificate_key = $1`,
		key.String(),
	)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("certificate key %s: %w", key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find by key: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Insert(ctx context.Context, record *models.CertificateRecord) error {
	if record == nil {
		return fmt.Errorf("certificate record is required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificates (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID.String(),
		record.ContentHash.String(),
		record.CertificateKey.String(),
		record.TemplateID.String(),
		record.PublisherID.String(),
		record.RecipientEmail,
		string(record.Status),
		record.IssuedAt,
		record.DocumentURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("active record for content hash %s: %w", record.ContentHash, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, certID id.CertificateID, patch models.RecordPatch) (*models.CertificateRecord, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE certificates
		 SET certificate_key = $2, issued_at = $3, document_url = $4
		 WHERE id = $1
		 RETURNING `+recordColumns,
		certID.String(),
		patch.CertificateKey.String(),
		patch.IssuedAt,
		patch.DocumentURL,
	)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("certificate %s: %w", certID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("update certificate: %w", err)
	}
	return record, nil
}

func scanRecord(row pgx.Row) (*models.CertificateRecord, error) {
	var (
		record         models.CertificateRecord
		certID         string
		contentHash    string
		certificateKey string
		templateID     string
		publisherID    string
		status         string
	)
	err := row.Scan(
		&certID,
		&contentHash,
		&certificateKey,
		&templateID,
		&publisherID,
		&record.RecipientEmail,
		&status,
		&record.IssuedAt,
		&record.DocumentURL,
	)
	if err != nil {
		return nil, err
	}

	parsedID, err := id.ParseCertificateID(certID)
	if err != nil {
		return nil, fmt.Errorf("stored certificate id: %w", err)
	}
	parsedTemplate, err := id.ParseTemplateID(templateID)
	if err != nil {
		return nil, fmt.Errorf("stored template id: %w", err)
	}
	parsedPublisher, err := id.ParsePublisherID(publisherID)
	if err != nil {
		return nil, fmt.Errorf("stored publisher id: %w", err)
	}

	record.ID = parsedID
	record.ContentHash = id.ContentHash(contentHash)
	record.CertificateKey = id.CertificateKey(certificateKey)
	record.TemplateID = parsedTemplate
	record.PublisherID = parsedPublisher
	record.Status = models.CertificateStatus(status)
	return &record, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
