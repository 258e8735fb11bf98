package assignment

import (
	"crypto/sha1"
	"fmt"
	"time"
)

// uidNamespace is appended to every generated UID so identifiers minted
// here can never alias UIDs produced by another calendar generator.
const uidNamespace = "@ilearning-ics"

// Candidate is the raw per-row extraction result. RawDueText may be
// empty when the listing row carries no visible due date; such
// candidates are either resolved later via deep fetch or dropped.
type Candidate struct {
	Title      string
	RawDueText string
	SourceURL  string
	CourseID   string
}

// Assignment is a fully normalized assignment ready for calendaring.
// DueAt is always non-zero and carries the configured local zone.
type Assignment struct {
	Title     string
	SourceURL string
	CourseID  string
	DueAt     time.Time
}

// UID derives the stable calendar identifier for an assignment.
// Identical (sourceURL, title) pairs always hash to the same UID, which
// is what lets subscribing calendar clients update events in place
// across repeated runs instead of duplicating them.
func UID(sourceURL, title string) string {
	h := sha1.New()
	h.Write([]byte(sourceURL + title))
	return fmt.Sprintf("%x", h.Sum(nil)) + uidNamespace
}
