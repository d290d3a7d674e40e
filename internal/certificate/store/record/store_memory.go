// Package record persists certificate records. The in-memory store backs unit
// tests and single-process deployments; PostgreSQL is the production backend.
package record

import (
	"context"
	"fmt"
	"sync"

	"veriseal/internal/certificate/models"
	id "veriseal/pkg/domain"
	"veriseal/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.CertificateID]models.CertificateRecord
	byKey   map[id.CertificateKey]id.CertificateID
	// active maps content hash to the single active record carrying it.
	active map[id.ContentHash]id.CertificateID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.CertificateID]models.CertificateRecord),
		byKey:   make(map[id.CertificateKey]id.CertificateID),
		active:  make(map[id.ContentHash]id.CertificateID),
	}
}

func (s *InMemoryStore) FindActiveByContentHash(_ context.Context, hash id.ContentHash) (*models.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	certID, ok := s.active[hash]
	if !ok {
		return nil, nil
	}
	record := s.records[certID]
	return &record, nil
}

func (s *InMemoryStore) FindByKey(_ context.Context, key id.CertificateKey) (*models.CertificateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	certID, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("certificate key %s: %w", key, sentinel.ErrNotFound)
	}
	record := s.records[certID]
	return &record, nil
}

func (s *InMemoryStore) Insert(_ context.Context, record *models.CertificateRecord) error {
	if record == nil {
		return fmt.Errorf("certificate record is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Status == models.StatusActive {
		if _, taken := s.active[record.ContentHash]; taken {
			return fmt.Errorf("active record for content hash %s: %w", record.ContentHash, sentinel.ErrConflict)
		}
	}
	if _, taken := s.byKey[record.CertificateKey]; taken {
		return fmt.Errorf("certificate key %s: %w", record.CertificateKey, sentinel.ErrConflict)
	}

	s.records[record.ID] = *record
	s.byKey[record.CertificateKey] = record.ID
	if record.Status == models.StatusActive {
		s.active[record.ContentHash] = record.ID
	}
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, certID id.CertificateID, patch models.RecordPatch) (*models.CertificateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[certID]
	if !ok {
		return nil, fmt.Errorf("certificate %s: %w", certID, sentinel.ErrNotFound)
	}

	delete(s.byKey, record.CertificateKey)
	record.CertificateKey = patch.CertificateKey
	record.IssuedAt = patch.IssuedAt
	record.DocumentURL = patch.DocumentURL

	s.records[certID] = record
	s.byKey[record.CertificateKey] = certID
	return &record, nil
}
