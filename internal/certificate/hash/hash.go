// Package hash derives the two identities of a certificate: the content hash
// (stable across re-issuance, used for duplicate detection) and the certificate
// key (unique per issuance event, used in shareable verification links).
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strconv"
	"time"

	"veriseal/internal/certificate/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

// Content computes the SHA-256 content hash over the canonical serialization of
// the certificate content. Field values are sorted by field ID, so insertion
// order never affects the digest. Presentation attributes (color, font, anchor
// positions) do not participate: moving a field on the template does not make
// an already issued certificate a different certificate.
//
// Missing template or publisher IDs are a programming error and surface as
// CodeInvariantViolation.
func Content(content models.CertificateContent) (id.ContentHash, error) {
	if content.TemplateID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "content hash requires a template id")
	}
	if content.PublisherID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "content hash requires a publisher id")
	}

	fieldIDs := make([]string, 0, len(content.FieldValues))
	for fieldID := range content.FieldValues {
		fieldIDs = append(fieldIDs, fieldID)
	}
	sort.Strings(fieldIDs)

	h := sha256.New()
	writeFrame(h, content.TemplateID.String())
	writeFrame(h, content.PublisherID.String())
	writeFrame(h, content.RecipientEmail)
	for _, fieldID := range fieldIDs {
		writeFrame(h, fieldID)
		writeFrame(h, content.FieldValues[fieldID])
	}
	return id.ContentHash(hex.EncodeToString(h.Sum(nil))), nil
}

// DeriveKey combines the content hash with the issuance timestamp and digests
// again. The key therefore changes on every (re-)issuance while the content
// hash stays put, so previously shared verification links visibly go stale
// after an update.
func DeriveKey(contentHash id.ContentHash, issuedAt time.Time) id.CertificateKey {
	h := sha256.New()
	h.Write(contentHash.Bytes())
	writeFrame(h, issuedAt.UTC().Format(time.RFC3339Nano))
	return id.CertificateKey(hex.EncodeToString(h.Sum(nil)))
}

// writeFrame length-prefixes each value so adjacent fields cannot collide
// ("ab"+"c" vs "a"+"bc" hash differently).
func writeFrame(w io.Writer, value string) {
	io.WriteString(w, strconv.Itoa(len(value)))
	io.WriteString(w, ":")
	io.WriteString(w, value)
}
