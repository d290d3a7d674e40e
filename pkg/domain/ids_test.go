package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veriseal/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTemplateID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePublisherID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCertificateID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseTemplateID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, TemplateID(valid), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	templateID := TemplateID(uuid.New())
	publisherID := PublisherID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ TemplateID = publisherID   // compile error
	// var _ PublisherID = templateID   // compile error

	assert.NotEqual(t, uuid.UUID(templateID), uuid.UUID(publisherID))
}

func TestParseContentHash(t *testing.T) {
	valid := strings.Repeat("ab", 32)

	t.Run("accepts 64 hex characters", func(t *testing.T) {
		hash, err := ParseContentHash(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, hash.String())
		assert.Len(t, hash.Bytes(), 32)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseContentHash("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseContentHash("abcd")
		require.Error(t, err)
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		_, err := ParseContentHash(strings.Repeat("zz", 32))
		require.Error(t, err)
	})
}

func TestParseCertificateKey(t *testing.T) {
	t.Run("accepts 64 hex characters", func(t *testing.T) {
		key, err := ParseCertificateKey(strings.Repeat("0f", 32))
		require.NoError(t, err)
		assert.False(t, key.IsNil())
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseCertificateKey("")
		require.Error(t, err)
	})
}
