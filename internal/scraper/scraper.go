// Package scraper extracts assignment candidates from course listing
// pages and resolves their due dates.
//
// The site exposes assignments as HTML tables whose exact column layout
// varies by theme and language. Extraction is heuristic: rows are kept
// only when they link to an assignment detail page, and the due-date
// cell is located by scanning cells from the rightmost column inward
// for a due-date keyword, falling back to a generic date-shaped token
// anywhere in the row. Known limitation: an unusual layout that puts a
// "last modified" date after the real due date can win the fallback
// scan; the keyword pass is what keeps this rare in practice.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/clwen/ilearning-ics/internal/assignment"
	"github.com/clwen/ilearning-ics/internal/logger"
)

// Variant selects the link-recognition rules for a site flavor.
type Variant string

const (
	// VariantMoodle targets Moodle-style sites whose assignment index
	// lives at /mod/assign/index.php?id=<course>.
	VariantMoodle Variant = "moodle"
	// VariantEEClass targets ee-class 3.0 sites with homework listings
	// at /course/homework/<course>.
	VariantEEClass Variant = "eeclass"
)

// ParseVariant validates a configured variant name. Empty means moodle.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case VariantMoodle, "":
		return VariantMoodle, nil
	case VariantEEClass:
		return VariantEEClass, nil
	}
	return "", fmt.Errorf("unknown site variant %q (must be %q or %q)", s, VariantMoodle, VariantEEClass)
}

// matchesAssignmentLink reports whether href points at an assignment
// detail page for this variant.
func (v Variant) matchesAssignmentLink(href string) bool {
	if v == VariantEEClass {
		return strings.Contains(href, "/homework")
	}
	return strings.Contains(href, "mod/assign")
}

// ListingRef maps a configured course entry (bare ID, path, or absolute
// URL) to the listing page reference plus the course identifier carried
// into event descriptions.
func (v Variant) ListingRef(entry string) (ref, courseID string) {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "://") || strings.HasPrefix(entry, "/") {
		return entry, courseIDFromURL(entry)
	}
	if v == VariantEEClass {
		return "/course/homework/" + entry, entry
	}
	return "/mod/assign/index.php?id=" + entry, entry
}

func courseIDFromURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) > 0 && segs[len(segs)-1] != "" {
		return segs[len(segs)-1]
	}
	return ref
}

// dueKeyword identifies cells and text blocks that label a due date.
var dueKeyword = regexp.MustCompile(`(?i)(due|截止|繳交|期限|到期)`)

// ExtractRow decides whether a table row represents an assignment and,
// if so, extracts the title, the best-guess due-date text, and the
// absolute detail URL. Pure: no fetching, no mutation.
func ExtractRow(row *goquery.Selection, base *url.URL, v Variant) (assignment.Candidate, bool) {
	link := row.Find("a[href]").First()
	if link.Length() == 0 {
		return assignment.Candidate{}, false
	}
	href, _ := link.Attr("href")
	if !v.matchesAssignmentLink(href) {
		return assignment.Candidate{}, false
	}
	title := strings.TrimSpace(link.Text())
	if title == "" {
		return assignment.Candidate{}, false
	}

	var cells []string
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, normalizeSpace(td.Text()))
	})

	// Rightmost keyword cell wins; due-date columns sit near the end
	// of the row, after text like "Submitted: none".
	due := ""
	for i := len(cells) - 1; i >= 0; i-- {
		if dueKeyword.MatchString(cells[i]) {
			due = cells[i]
			break
		}
	}
	if due == "" {
		due = assignment.FindDateToken(strings.Join(cells, " "))
	}

	return assignment.Candidate{
		Title:      title,
		RawDueText: due,
		SourceURL:  resolveRef(base, href),
	}, true
}

func resolveRef(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fetcher retrieves a page through the authenticated session.
// *session.Session satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Collector drives ExtractRow across a listing page and normalizes the
// surviving candidates.
type Collector struct {
	Variant   Variant
	Zone      *time.Location
	DeepFetch bool
	Fetcher   Fetcher
}

// Collect returns the normalized assignments found on a listing page,
// in row order. Candidates without a resolvable due date are dropped;
// with DeepFetch enabled their detail page is consulted first. A deep
// fetch failing for one candidate never affects the rest.
func (c *Collector) Collect(ctx context.Context, doc *goquery.Document, pageURL, courseID string) []assignment.Assignment {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var out []assignment.Assignment
	seen := make(map[string]bool)
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cand, ok := ExtractRow(row, base, c.Variant)
		if !ok {
			return
		}
		cand.CourseID = courseID

		// The same assignment can be linked from more than one table
		// (e.g. a recent-activity widget); one UID, one event.
		uid := assignment.UID(cand.SourceURL, cand.Title)
		if seen[uid] {
			return
		}
		seen[uid] = true

		due, resolved := assignment.NormalizeDueText(cand.RawDueText, c.Zone)
		if !resolved && c.DeepFetch && c.Fetcher != nil {
			due, resolved = c.deepFetchDue(ctx, cand.SourceURL)
		}
		if !resolved {
			logger.Debug("dropping assignment without due date", logger.Fields{
				"title": cand.Title,
				"url":   cand.SourceURL,
			})
			return
		}

		out = append(out, assignment.Assignment{
			Title:     cand.Title,
			SourceURL: cand.SourceURL,
			CourseID:  cand.CourseID,
			DueAt:     due,
		})
	})
	return out
}

func (c *Collector) deepFetchDue(ctx context.Context, pageURL string) (time.Time, bool) {
	doc, err := c.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		logger.Debug("deep fetch failed", logger.Fields{
			"url":   pageURL,
			"cause": err.Error(),
		})
		return time.Time{}, false
	}
	return DetailDue(doc, c.Zone)
}

// DetailDue scans an assignment detail page for text blocks adjacent to
// due-date labels and normalizes their concatenation. A label is any
// element whose own text nodes carry a due keyword, so mixed content
// like <div>繳交期限: <b>2025-10-01 12:00</b></div> matches on the div.
// When no labeled block exists the whole page text is scanned, which
// leans on the generic token fallback.
func DetailDue(doc *goquery.Document, loc *time.Location) (time.Time, bool) {
	var blocks []string
	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		if !ownTextHasDueKeyword(sel) {
			return
		}
		// The label and the date are often split across sibling
		// elements; widen to the parent block when the labeled element
		// carries no date of its own.
		block := normalizeSpace(sel.Text())
		if assignment.FindDateToken(block) == "" {
			if parent := normalizeSpace(sel.Parent().Text()); parent != "" {
				block = parent
			}
		}
		blocks = append(blocks, block)
	})
	text := strings.Join(blocks, " ")
	if text == "" {
		text = normalizeSpace(doc.Text())
	}
	return assignment.NormalizeDueText(text, loc)
}

// ownTextHasDueKeyword reports whether any of the element's direct text
// nodes (excluding child elements) contains a due-date keyword.
func ownTextHasDueKeyword(sel *goquery.Selection) bool {
	match := false
	sel.Contents().Each(func(_ int, n *goquery.Selection) {
		if goquery.NodeName(n) == "#text" && dueKeyword.MatchString(n.Text()) {
			match = true
		}
	})
	return match
}
