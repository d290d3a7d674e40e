package record

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"veriseal/internal/certificate/models"
	"veriseal/internal/certificate/ports"
	id "veriseal/pkg/domain"
)

const (
	activeHashKeyPrefix = "cert:active:"
	defaultCacheTTL     = 5 * time.Minute
)

// CachedStore decorates a RecordStore with a Redis read-through cache on the
// hot duplicate-check lookup. Bulk issuance hits FindActiveByContentHash once
// per candidate; resubmissions of the same roster are served from cache.
//
// Cache failures degrade to the inner store: a broken Redis never breaks
// classification.
type CachedStore struct {
	inner  ports.RecordStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	// group collapses concurrent misses for the same hash into one inner
	// lookup.
	group singleflight.Group
}

type CacheOption func(*CachedStore)

func WithTTL(ttl time.Duration) CacheOption {
	return func(s *CachedStore) {
		s.ttl = ttl
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(s *CachedStore) {
		s.logger = logger
	}
}

// NewCached wraps an inner store with a Redis cache.
func NewCached(inner ports.RecordStore, client *redis.Client, opts ...CacheOption) *CachedStore {
	s := &CachedStore{
		inner:  inner,
		client: client,
		ttl:    defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CachedStore) FindActiveByContentHash(ctx context.Context, hash id.ContentHash) (*models.CertificateRecord, error) {
	cacheKey := activeHashKeyPrefix + hash.String()

	cached, err := s.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var record models.CertificateRecord
		if unmarshalErr := json.Unmarshal(cached, &record); unmarshalErr == nil {
			return &record, nil
		}
		// Unreadable cache entry: drop it and fall through.
		s.client.Del(ctx, cacheKey)
	} else if !errors.Is(err, redis.Nil) && s.logger != nil {
		s.logger.WarnContext(ctx, "record cache read failed", "error", err)
	}

	result, err, _ := s.group.Do(hash.String(), func() (any, error) {
		record, err := s.inner.FindActiveByContentHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if record != nil {
			if payload, marshalErr := json.Marshal(record); marshalErr == nil {
				if setErr := s.client.Set(ctx, cacheKey, payload, s.ttl).Err(); setErr != nil && s.logger != nil {
					s.logger.WarnContext(ctx, "record cache write failed", "error", setErr)
				}
			}
		}
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.CertificateRecord), nil
}

func (s *CachedStore) FindByKey(ctx context.Context, key id.CertificateKey) (*models.CertificateRecord, error) {
	return s.inner.FindByKey(ctx, key)
}

func (s *CachedStore) Insert(ctx context.Context, record *models.CertificateRecord) error {
	if err := s.inner.Insert(ctx, record); err != nil {
		return err
	}
	s.invalidate(ctx, record.ContentHash)
	return nil
}

func (s *CachedStore) Update(ctx context.Context, certID id.CertificateID, patch models.RecordPatch) (*models.CertificateRecord, error) {
	updated, err := s.inner.Update(ctx, certID, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated.ContentHash)
	return updated, nil
}

func (s *CachedStore) invalidate(ctx context.Context, hash id.ContentHash) {
	if err := s.client.Del(ctx, activeHashKeyPrefix+hash.String()).Err(); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "record cache invalidation failed", "content_hash", hash, "error", err)
	}
}
