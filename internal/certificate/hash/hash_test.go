package hash

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriseal/internal/certificate/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

func baseContent() models.CertificateContent {
	return models.CertificateContent{
		TemplateID:     id.TemplateID(uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")),
		PublisherID:    id.PublisherID(uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")),
		RecipientEmail: "ada@example.org",
		FieldValues: map[string]string{
			"name":   "Ada Lovelace",
			"course": "Analytical Engines 101",
		},
	}
}

// =============================================================================
// Content Hash Tests
// =============================================================================

func TestContent_Deterministic(t *testing.T) {
	t.Run("equal content hashes equal", func(t *testing.T) {
		a, err := Content(baseContent())
		require.NoError(t, err)
		b, err := Content(baseContent())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("field insertion order does not matter", func(t *testing.T) {
		first := baseContent()
		second := baseContent()
		second.FieldValues = map[string]string{
			"course": "Analytical Engines 101",
			"name":   "Ada Lovelace",
		}
		a, err := Content(first)
		require.NoError(t, err)
		b, err := Content(second)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("produces a parseable 256-bit hex digest", func(t *testing.T) {
		digest, err := Content(baseContent())
		require.NoError(t, err)
		_, err = id.ParseContentHash(digest.String())
		require.NoError(t, err)
	})
}

func TestContent_SensitiveToIdentity(t *testing.T) {
	base, err := Content(baseContent())
	require.NoError(t, err)

	t.Run("different recipient changes hash", func(t *testing.T) {
		changed := baseContent()
		changed.RecipientEmail = "grace@example.org"
		digest, err := Content(changed)
		require.NoError(t, err)
		assert.NotEqual(t, base, digest)
	})

	t.Run("different field value changes hash", func(t *testing.T) {
		changed := baseContent()
		changed.FieldValues["name"] = "Ada King"
		digest, err := Content(changed)
		require.NoError(t, err)
		assert.NotEqual(t, base, digest)
	})

	t.Run("different template changes hash", func(t *testing.T) {
		changed := baseContent()
		changed.TemplateID = id.TemplateID(uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8"))
		digest, err := Content(changed)
		require.NoError(t, err)
		assert.NotEqual(t, base, digest)
	})

	t.Run("adjacent values cannot collide across field boundaries", func(t *testing.T) {
		first := baseContent()
		first.FieldValues = map[string]string{"a": "bc"}
		second := baseContent()
		second.FieldValues = map[string]string{"ab": "c"}
		a, err := Content(first)
		require.NoError(t, err)
		b, err := Content(second)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestContent_MissingIdentifiers(t *testing.T) {
	t.Run("missing template id is an invariant violation", func(t *testing.T) {
		content := baseContent()
		content.TemplateID = id.TemplateID{}
		_, err := Content(content)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("missing publisher id is an invariant violation", func(t *testing.T) {
		content := baseContent()
		content.PublisherID = id.PublisherID{}
		_, err := Content(content)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// =============================================================================
// Key Deriver Tests
// =============================================================================

func TestDeriveKey(t *testing.T) {
	digest, err := Content(baseContent())
	require.NoError(t, err)

	t.Run("same digest and time derive the same key", func(t *testing.T) {
		at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		assert.Equal(t, DeriveKey(digest, at), DeriveKey(digest, at))
	})

	t.Run("different issuance times derive different keys", func(t *testing.T) {
		first := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		second := first.Add(time.Second)
		assert.NotEqual(t, DeriveKey(digest, first), DeriveKey(digest, second))
	})

	t.Run("key differs from the content hash", func(t *testing.T) {
		at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		assert.NotEqual(t, digest.String(), DeriveKey(digest, at).String())
	})

	t.Run("timezone does not leak into the key", func(t *testing.T) {
		at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		offset := at.In(time.FixedZone("plus2", 2*60*60))
		assert.Equal(t, DeriveKey(digest, at), DeriveKey(digest, offset))
	})

	t.Run("derived key parses as a certificate key", func(t *testing.T) {
		at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		_, err := id.ParseCertificateKey(DeriveKey(digest, at).String())
		require.NoError(t, err)
	})
}
