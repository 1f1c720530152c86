package models

import (
	"fmt"
	"time"
)

// DocumentKind distinguishes resumes from cover letters. Both share the same
// record shape and lifecycle.
type DocumentKind string

const (
	KindResume      DocumentKind = "resume"
	KindCoverLetter DocumentKind = "coverLetter"
)

// ParseDocumentKind validates a kind received from a client.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case KindResume, KindCoverLetter:
		return DocumentKind(s), nil
	default:
		return "", fmt.Errorf("unknown document type %q", s)
	}
}

// Label is the human-readable name used in response messages.
func (k DocumentKind) Label() string {
	if k == KindCoverLetter {
		return "Cover letter"
	}
	return "Resume"
}

// Document is a resume or cover letter. Content is the free-form structured
// payload authored on the client (personal info, sections, etc.).
type Document struct {
	ID        string                 `json:"id" firestore:"-"`
	Kind      DocumentKind           `json:"type" firestore:"-"`
	UserID    string                 `json:"userId" firestore:"userId"`
	Content   map[string]interface{} `json:"content" firestore:"content"`
	CreatedAt time.Time              `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt" firestore:"updatedAt"`
}

// AdminDocument is a document enriched with the owner's email for the admin listing.
type AdminDocument struct {
	*Document
	UserEmail string `json:"userEmail"`
}
