// Package models defines the certificate issuance domain model: templates,
// field placement definitions, certificate content (the hashed identity), and
// the issued record lifecycle.
package models

import (
	"strings"
	"time"

	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
)

// TextAlign controls which edge of the rendered string the anchor refers to.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// ParseTextAlign creates a TextAlign from a string, validating it.
func ParseTextAlign(s string) (TextAlign, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "text align cannot be empty")
	}
	a := TextAlign(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid text align: must be 'left', 'center' or 'right'")
	}
	return a, nil
}

// IsValid checks if the alignment is one of the supported enum values.
func (a TextAlign) IsValid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// CertificateStatus is the lifecycle state of an issued certificate record.
type CertificateStatus string

const (
	StatusActive  CertificateStatus = "active"
	StatusRevoked CertificateStatus = "revoked"
	StatusExpired CertificateStatus = "expired"
)

// IsValid checks if the status is one of the supported enum values.
func (s CertificateStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusExpired:
		return true
	}
	return false
}

// DuplicatePolicy decides what the orchestrator does with a candidate whose
// content hash already has an active record.
type DuplicatePolicy string

const (
	// PolicySkip leaves the existing record untouched.
	PolicySkip DuplicatePolicy = "skip"
	// PolicyUpdate supersedes the record in place: new certificate key, new
	// document, same content hash.
	PolicyUpdate DuplicatePolicy = "update"
)

// ParseDuplicatePolicy creates a DuplicatePolicy from a string, validating it.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "duplicate policy cannot be empty")
	}
	p := DuplicatePolicy(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid duplicate policy: must be 'skip' or 'update'")
	}
	return p, nil
}

// IsValid checks if the policy is one of the supported enum values.
func (p DuplicatePolicy) IsValid() bool {
	return p == PolicySkip || p == PolicyUpdate
}

// Point is a position in native template pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions is an explicit width/height pair in native pixels. Export refuses
// to guess dimensions; callers must supply them.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether either dimension is missing or non-positive.
func (d Dimensions) IsZero() bool {
	return d.Width <= 0 || d.Height <= 0
}

// Template is an immutable background image with a native pixel resolution.
// Content addressing depends on templates never changing once certificates
// reference them.
type Template struct {
	ID          id.TemplateID     `json:"id"`
	ImageSource string            `json:"imageSource"`
	Native      Dimensions        `json:"native"`
	Fields      []FieldDefinition `json:"fields"`
}

// Validate checks the template is usable for export.
func (t Template) Validate() error {
	if t.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "template id is required")
	}
	if t.ImageSource == "" {
		return dErrors.New(dErrors.CodeValidation, "template image source is required")
	}
	if t.Native.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "template native dimensions are required")
	}
	for _, field := range t.Fields {
		if err := field.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FieldDefinition is one placeholder on a template.
//
// The anchor is NOT the text's top-left corner. Horizontally it is the
// alignment reference point (left edge, center, or right edge of the rendered
// string); vertically it is the optical center of the text line. This keeps a
// repositioned field stable regardless of how long the filled-in value ends up.
type FieldDefinition struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Anchor         Point     `json:"anchor"`
	TextAlign      TextAlign `json:"textAlign"`
	FontSizeNative float64   `json:"fontSizeNative"`
	FontFamily     string    `json:"fontFamily"`
	Color          string    `json:"color"`
	ShowInOutput   bool      `json:"showInOutput"`
	Required       bool      `json:"required"`
}

// Validate checks structural validity of a field definition.
func (f FieldDefinition) Validate() error {
	if f.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "field id is required")
	}
	if !f.TextAlign.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "field %s: invalid text align %q", f.ID, f.TextAlign)
	}
	if f.FontSizeNative <= 0 {
		return dErrors.Newf(dErrors.CodeValidation, "field %s: font size must be positive", f.ID)
	}
	return nil
}

// CertificateContent is the logical identity of a certificate. Two contents
// that are equal after canonicalizing field order hash identically;
// presentation attributes (color, font) are deliberately absent.
type CertificateContent struct {
	TemplateID     id.TemplateID     `json:"templateId"`
	PublisherID    id.PublisherID    `json:"publisherId"`
	RecipientEmail string            `json:"recipientEmail"`
	FieldValues    map[string]string `json:"fieldValues"`
}

// ValidateAgainst checks that every required field of the template has a
// non-empty value. Whitespace-only values count as empty.
func (c CertificateContent) ValidateAgainst(fields []FieldDefinition) error {
	if c.TemplateID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "template id is required")
	}
	if c.PublisherID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "publisher id is required")
	}
	if c.RecipientEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "recipient email is required")
	}
	for _, field := range fields {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(c.FieldValues[field.ID]) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "required field %q is empty for %s", field.ID, c.RecipientEmail)
		}
	}
	return nil
}

// CertificateRecord is one issued certificate as persisted by the record store.
type CertificateRecord struct {
	ID             id.CertificateID  `json:"id"`
	ContentHash    id.ContentHash    `json:"contentHash"`
	CertificateKey id.CertificateKey `json:"certificateKey"`
	TemplateID     id.TemplateID     `json:"templateId"`
	PublisherID    id.PublisherID    `json:"publisherId"`
	RecipientEmail string            `json:"recipientEmail"`
	Status         CertificateStatus `json:"status"`
	IssuedAt       time.Time         `json:"issuedAt"`
	DocumentURL    string            `json:"documentUrl"`
}

// RecordPatch is the mutable portion applied when a duplicate is superseded in
// place: the logical identity (content hash) never changes, the issuance event
// identity does.
type RecordPatch struct {
	CertificateKey id.CertificateKey
	IssuedAt       time.Time
	DocumentURL    string
}
