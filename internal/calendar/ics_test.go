package calendar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clwen/ilearning-ics/internal/assignment"
)

func sampleAssignments() []assignment.Assignment {
	due := time.Date(2025, 9, 20, 15, 59, 0, 0, time.UTC)
	return []assignment.Assignment{
		{
			Title:     "Essay 1",
			SourceURL: "https://x.test/a/1",
			CourseID:  "101",
			DueAt:     due,
		},
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	cal := Build(sampleAssignments(), now)
	out := cal.Serialize()

	required := []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + assignment.UID("https://x.test/a/1", "Essay 1"),
		"SUMMARY:[iLearning] Essay 1",
		"DTSTART:20250920T155900Z",
		"DTEND:20250920T155900Z",
		"URL:https://x.test/a/1",
		"BEGIN:VALARM",
		"ACTION:DISPLAY",
		"TRIGGER:-P1D",
		"TRIGGER:-PT3H",
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	for _, field := range required {
		if !strings.Contains(out, field) {
			t.Errorf("serialized calendar missing %q", field)
		}
	}

	// Description carries the source URL and course ID for traceability.
	if !strings.Contains(out, "https://x.test/a/1") || !strings.Contains(out, "101") {
		t.Error("description should reference source URL and course ID")
	}
}

func TestBuild_UIDStableAcrossBuilds(t *testing.T) {
	a := Build(sampleAssignments(), time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC))
	b := Build(sampleAssignments(), time.Date(2025, 9, 2, 9, 30, 0, 0, time.UTC))

	uid := "UID:" + assignment.UID("https://x.test/a/1", "Essay 1")
	if !strings.Contains(a.Serialize(), uid) || !strings.Contains(b.Serialize(), uid) {
		t.Error("UID must not depend on build time")
	}
}

func TestBuild_Empty(t *testing.T) {
	cal := Build(nil, time.Now())
	out := cal.Serialize()
	if strings.Contains(out, "BEGIN:VEVENT") {
		t.Error("empty input should produce no events")
	}
	if !strings.Contains(out, "BEGIN:VCALENDAR") {
		t.Error("even an empty calendar needs the VCALENDAR wrapper")
	}
}

func TestWrite(t *testing.T) {
	cal := Build(sampleAssignments(), time.Now())
	path := filepath.Join(t.TempDir(), "public", "ilearning.ics")

	// Parent directory does not exist yet.
	if err := Write(path, cal); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(first), "BEGIN:VCALENDAR") {
		t.Error("output file missing calendar content")
	}

	// A second run overwrites rather than appends.
	if err := Write(path, cal); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("re-reading output: %v", err)
	}
	if strings.Count(string(second), "BEGIN:VCALENDAR") != 1 {
		t.Error("rewrite should overwrite the file, not append")
	}
}
