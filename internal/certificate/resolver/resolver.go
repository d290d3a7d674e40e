// Package resolver classifies prospective certificates against already issued
// ones by content hash. It enforces the core uniqueness invariant: at most one
// active record per content hash.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"veriseal/internal/certificate/hash"
	"veriseal/internal/certificate/models"
	"veriseal/internal/certificate/ports"
	id "veriseal/pkg/domain"
)

// Candidate is one prospective certificate, tagged with its batch position so
// per-item results can be correlated back to the caller's input order.
type Candidate struct {
	Index   int
	Content models.CertificateContent
	Hash    id.ContentHash
}

// DuplicateMatch pairs a candidate with the active record that already carries
// its content hash. The orchestrator decides skip-vs-update.
//
// Existing is nil when the candidate repeats an earlier candidate of the same
// batch: no record exists yet at classification time, but issuing both would
// violate the one-active-record-per-hash invariant. FirstIndex then points at
// the earlier occurrence.
type DuplicateMatch struct {
	Candidate  Candidate
	Existing   *models.CertificateRecord
	FirstIndex int
}

// Classification partitions a batch into new candidates and duplicates.
type Classification struct {
	New        []Candidate
	Duplicates []DuplicateMatch
}

type Service struct {
	records ports.RecordStore
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(records ports.RecordStore, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	svc := &Service{records: records}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Classify hashes every candidate and checks the record store for an active
// record with the same hash. A lookup failure for one candidate never aborts
// the others: the affected candidate defaults to "new" with a logged warning,
// so it is issued rather than silently dropped.
//
// Classification runs before any writes of the batch, so repeats of a hash
// within the same submission are detected here rather than left to race
// against the batch's own inserts.
//
// Hash derivation errors are programming errors (missing identifiers slipped
// past validation) and abort classification entirely.
func (s *Service) Classify(ctx context.Context, contents []models.CertificateContent) (Classification, error) {
	var result Classification
	seen := make(map[id.ContentHash]int, len(contents))

	for index, content := range contents {
		digest, err := hash.Content(content)
		if err != nil {
			return Classification{}, err
		}
		candidate := Candidate{Index: index, Content: content, Hash: digest}

		if firstIndex, repeated := seen[digest]; repeated {
			result.Duplicates = append(result.Duplicates, DuplicateMatch{
				Candidate:  candidate,
				FirstIndex: firstIndex,
			})
			continue
		}
		seen[digest] = index

		existing, err := s.records.FindActiveByContentHash(ctx, digest)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "duplicate lookup failed, treating candidate as new",
					"content_hash", digest,
					"recipient", content.RecipientEmail,
					"error", err,
				)
			}
			result.New = append(result.New, candidate)
			continue
		}
		if existing == nil {
			result.New = append(result.New, candidate)
			continue
		}
		result.Duplicates = append(result.Duplicates, DuplicateMatch{
			Candidate:  candidate,
			Existing:   existing,
			FirstIndex: index,
		})
	}
	return result, nil
}
