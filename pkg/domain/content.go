package domain

import (
	"encoding/hex"

	dErrors "veriseal/pkg/domain-errors"
)

// ContentHash is the logical identity of a certificate: a lowercase hex SHA-256
// digest over the canonicalized certificate content. It is stable across
// re-issuance; see CertificateKey for the per-issuance identifier.
type ContentHash string

const contentHashHexLen = 64

// ParseContentHash validates a hex-encoded 256-bit digest.
func ParseContentHash(raw string) (ContentHash, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "content hash is required")
	}
	if len(raw) != contentHashHexLen {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "content hash must be %d hex characters", contentHashHexLen)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "content hash is not valid hex")
	}
	return ContentHash(raw), nil
}

func (h ContentHash) String() string { return string(h) }
func (h ContentHash) IsNil() bool    { return h == "" }

// Bytes decodes the digest. Must only be called on a parsed or freshly computed
// hash; an invalid value is a programming error and returns nil.
func (h ContentHash) Bytes() []byte {
	decoded, err := hex.DecodeString(string(h))
	if err != nil {
		return nil
	}
	return decoded
}

// CertificateKey is the public, shareable identifier of one issuance event.
// Unlike ContentHash it changes when a certificate is re-issued (updated), so
// previously shared verification links visibly go stale.
type CertificateKey string

// ParseCertificateKey validates a hex-encoded certificate key.
func ParseCertificateKey(raw string) (CertificateKey, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "certificate key is required")
	}
	if len(raw) != contentHashHexLen {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "certificate key must be %d hex characters", contentHashHexLen)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "certificate key is not valid hex")
	}
	return CertificateKey(raw), nil
}

func (k CertificateKey) String() string { return string(k) }
func (k CertificateKey) IsNil() bool    { return k == "" }
