package assignment

import (
	"regexp"
	"strings"
	"time"
)

// labelPrefix strips due-date markers like "Due date:" or "繳交期限："
// from the front of a fragment before parsing. Half-width and
// full-width colons are both accepted.
var labelPrefix = regexp.MustCompile(`(?i)^(due date|due|截止時間|繳交期限|截止|到期|期限)[:：]?\s*`)

// dateToken matches a bare YYYY-M-D token with an optional H:MM[:SS]
// time, in either dash or slash form. Used as the loose fallback when
// the surrounding text is prose rather than a clean date.
var dateToken = regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}(?:[ T]\d{1,2}:\d{2}(?::\d{2})?)?`)

// zonedLayouts carry an explicit offset; results are converted into the
// local zone rather than re-stamped.
var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
}

// layouts is the ordered chain tried against label-stripped text.
// Slashed numeric dates are month-first: "03/04/2025" is March 4, not
// April 3.
var layouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"2006-1-2 15:04",
	"2006-1-2",
	"Monday, 2 January 2006, 15:04",
	"Monday, 2 January 2006",
	"2 January 2006, 15:04",
	"2 January 2006",
	"January 2, 2006, 15:04",
	"January 2, 2006",
	"2006年1月2日 15:04",
	"2006年1月2日",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006",
}

// NormalizeDueText resolves a raw due-date fragment into an instant in
// loc. It strips a leading label, walks the layout chain, and finally
// falls back to pulling the first date-shaped token out of surrounding
// prose. The second return is false when no date could be recovered;
// that is a normal outcome, never an error.
func NormalizeDueText(raw string, loc *time.Location) (time.Time, bool) {
	text := strings.TrimSpace(labelPrefix.ReplaceAllString(strings.TrimSpace(raw), ""))
	if text == "" {
		return time.Time{}, false
	}
	if t, ok := parseChain(text, loc); ok {
		return t, true
	}
	if tok := FindDateToken(text); tok != "" {
		if t, ok := parseChain(strings.Replace(tok, "T", " ", 1), loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// FindDateToken returns the first date-shaped token in s, or "".
func FindDateToken(s string) string {
	return dateToken.FindString(s)
}

func parseChain(text string, loc *time.Location) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
