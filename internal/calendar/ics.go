// Package calendar maps normalized assignments onto an iCalendar
// document that calendar clients can subscribe to.
package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/clwen/ilearning-ics/internal/assignment"
)

const (
	prodID        = "-//ilearning-ics//ilearning-ics//EN"
	summaryPrefix = "[iLearning] "
)

// alarmTriggers fire one day and three hours before the deadline.
var alarmTriggers = []string{"-P1D", "-PT3H"}

// Build produces one VEVENT per assignment. Start and end both carry
// the due instant (a deadline, not a time range), and the UID is the
// content hash from assignment.UID so re-runs regenerate identical
// identifiers. now stamps DTSTAMP/CREATED/LAST-MODIFIED; those are
// informational and play no part in event identity.
func Build(assignments []assignment.Assignment, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetCalscale("GREGORIAN")

	for _, a := range assignments {
		ev := cal.AddEvent(assignment.UID(a.SourceURL, a.Title))
		ev.SetSummary(summaryPrefix + a.Title)
		ev.SetDtStampTime(now)
		ev.SetCreatedTime(now)
		ev.SetModifiedAt(now)
		ev.SetStartAt(a.DueAt)
		ev.SetEndAt(a.DueAt)
		ev.SetURL(a.SourceURL)
		ev.SetDescription(fmt.Sprintf("來源: %s\n課程ID: %s", a.SourceURL, a.CourseID))

		for _, trigger := range alarmTriggers {
			alarm := ev.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger(trigger)
		}
	}
	return cal
}

// Write serializes the calendar to path, creating the parent directory
// if absent and overwriting any previous run's output.
func Write(path string, cal *ics.Calendar) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(cal.Serialize()), 0o644); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}
