// Package assignment defines the assignment data model, stable event
// identity, and due-date text normalization.
//
// Normalization is a best-effort two-stage decoder: strip a known
// due-date label (English or Chinese), try an ordered chain of explicit
// date layouts, then fall back to pulling a bare YYYY-M-D token out of
// prose. Failure to find a date is an absence, not an error; callers
// drop such candidates or retry via deep fetch.
package assignment
