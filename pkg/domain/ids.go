// Package domain holds shared domain primitives: typed identifiers and the
// content-addressing values (ContentHash, CertificateKey) that the issuance
// pipeline is built around. Primitives validate at parse time so downstream
// code never re-checks them.
package domain

import (
	"github.com/google/uuid"

	dErrors "veriseal/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types make cross-assignment a compile error.
type (
	TemplateID    uuid.UUID
	PublisherID   uuid.UUID
	CertificateID uuid.UUID
)

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return parsed, nil
}

// ParseTemplateID validates and returns a TemplateID.
func ParseTemplateID(raw string) (TemplateID, error) {
	parsed, err := parseUUID(raw, "template_id")
	return TemplateID(parsed), err
}

// ParsePublisherID validates and returns a PublisherID.
func ParsePublisherID(raw string) (PublisherID, error) {
	parsed, err := parseUUID(raw, "publisher_id")
	return PublisherID(parsed), err
}

// ParseCertificateID validates and returns a CertificateID.
func ParseCertificateID(raw string) (CertificateID, error) {
	parsed, err := parseUUID(raw, "certificate_id")
	return CertificateID(parsed), err
}

func (id TemplateID) String() string    { return uuid.UUID(id).String() }
func (id PublisherID) String() string   { return uuid.UUID(id).String() }
func (id CertificateID) String() string { return uuid.UUID(id).String() }

func (id TemplateID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PublisherID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewCertificateID generates a fresh certificate record identifier.
func NewCertificateID() CertificateID {
	return CertificateID(uuid.New())
}

// Text marshaling keeps IDs as canonical UUID strings on the wire instead of
// raw byte arrays.

func (id TemplateID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id PublisherID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id CertificateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TemplateID) UnmarshalText(text []byte) error {
	parsed, err := ParseTemplateID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PublisherID) UnmarshalText(text []byte) error {
	parsed, err := ParsePublisherID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CertificateID) UnmarshalText(text []byte) error {
	parsed, err := ParseCertificateID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
