package party

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ScheduleKind distinguishes immediate sessions from scheduled ones.
type ScheduleKind string

const (
	// ScheduleNow marks a session starting immediately, with a voice target.
	ScheduleNow ScheduleKind = "now"
	// ScheduleAt marks a session starting at a fixed future instant.
	ScheduleAt ScheduleKind = "at"
)

// Schedule is the validated, normalized start time of a session.
// StartAt is zero for ScheduleNow. Display is the user-facing rendering of
// the normalization outcome ("now", "tomorrow 09:30", "12/25 20:00").
type Schedule struct {
	Kind    ScheduleKind
	StartAt time.Time
	Display string
}

var (
	timeOfDayRE = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)
	monthDayRE  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})\s+([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)
	fullDateRE  = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})\s+([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)
)

// ParseSchedule validates and normalizes a user-entered start time.
//
// kind is the command-surface selector: "now", "time" (bare time of day), or
// "date" (month/day or full date, both with a time of day).
//
// Normalization rules:
//   - a bare time of day already past today rolls forward to tomorrow
//   - a bare month/day already past this year rolls forward to next year
//   - a fully qualified date in the past is a hard failure, never normalized
func ParseSchedule(kind, timeOfDay, dateTime string, now time.Time) (Schedule, error) {
	switch kind {
	case "now":
		return Schedule{Kind: ScheduleNow, Display: "now"}, nil

	case "time":
		if timeOfDay == "" {
			return Schedule{}, fmt.Errorf("%w: time of day required", ErrBadTimeFormat)
		}
		m := timeOfDayRE.FindStringSubmatch(timeOfDay)
		if m == nil {
			return Schedule{}, fmt.Errorf("%w: want HH:MM, got %q", ErrBadTimeFormat, timeOfDay)
		}
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])

		start := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
		display := fmt.Sprintf("%02d:%02d", hh, mm)
		if !start.After(now) {
			start = start.AddDate(0, 0, 1)
			display = "tomorrow " + display
		}
		return Schedule{Kind: ScheduleAt, StartAt: start, Display: display}, nil

	case "date":
		if dateTime == "" {
			return Schedule{}, fmt.Errorf("%w: date and time required", ErrBadTimeFormat)
		}

		if m := monthDayRE.FindStringSubmatch(dateTime); m != nil {
			month, _ := strconv.Atoi(m[1])
			day, _ := strconv.Atoi(m[2])
			hh, _ := strconv.Atoi(m[3])
			mm, _ := strconv.Atoi(m[4])
			start := time.Date(now.Year(), time.Month(month), day, hh, mm, 0, 0, now.Location())
			// time.Date normalizes out-of-range components (2/31 lands in
			// March); only dates that survive the round trip are real.
			if start.Month() != time.Month(month) || start.Day() != day {
				return Schedule{}, fmt.Errorf("%w: no such date %q", ErrBadTimeFormat, dateTime)
			}
			if !start.After(now) {
				start = start.AddDate(1, 0, 0)
			}
			return Schedule{Kind: ScheduleAt, StartAt: start, Display: displayAt(start)}, nil
		}

		if m := fullDateRE.FindStringSubmatch(dateTime); m != nil {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			hh, _ := strconv.Atoi(m[4])
			mm, _ := strconv.Atoi(m[5])
			start := time.Date(year, time.Month(month), day, hh, mm, 0, 0, now.Location())
			if start.Year() != year || start.Month() != time.Month(month) || start.Day() != day {
				return Schedule{}, fmt.Errorf("%w: no such date %q", ErrBadTimeFormat, dateTime)
			}
			if !start.After(now) {
				// An explicit year is taken literally.
				return Schedule{}, ErrScheduleInPast
			}
			return Schedule{Kind: ScheduleAt, StartAt: start, Display: displayAt(start)}, nil
		}

		return Schedule{}, fmt.Errorf("%w: want MM/DD HH:MM or YYYY/MM/DD HH:MM, got %q", ErrBadTimeFormat, dateTime)

	default:
		return Schedule{}, fmt.Errorf("%w: unknown schedule kind %q", ErrBadTimeFormat, kind)
	}
}

func displayAt(t time.Time) string {
	return fmt.Sprintf("%d/%d %02d:%02d", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}
