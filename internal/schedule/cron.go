// Package schedule parses the 5-field cron expressions used by the GitHub
// Actions trigger and runs probes on that schedule in the foreground.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultExpr fires at 09:00 UTC every Monday and Thursday, often enough to
// stay inside Supabase's seven-day inactivity window.
const DefaultExpr = "0 9 * * 1,4"

// searchHorizon bounds Next for expressions that can never fire (e.g. "0 0 31 2 *").
const searchHorizon = 5 * 366 * 24 * time.Hour

// CronSchedule represents a parsed cron schedule (minute, hour, day, month, weekday)
type CronSchedule struct {
	Minute  map[int]bool // 0-59
	Hour    map[int]bool // 0-23
	Day     map[int]bool // 1-31
	Month   map[int]bool // 1-12
	Weekday map[int]bool // 0-6 (Sunday=0)

	// A day matches if either field matches when both are restricted,
	// and only the restricted one otherwise (POSIX cron semantics).
	dayRestricted     bool
	weekdayRestricted bool
	expr              string
}

// ParseCron parses a 5-field cron expression into a CronSchedule.
// Fields support *, single values, lists, ranges and /step. Weekday 7 is
// accepted as Sunday.
func ParseCron(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression: expected 5 fields, got %d", len(fields))
	}
	minute, err := parseCronField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("minute: %w", err)
	}
	hour, err := parseCronField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("hour: %w", err)
	}
	day, err := parseCronField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("day: %w", err)
	}
	month, err := parseCronField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("month: %w", err)
	}
	weekday, err := parseCronField(fields[4], 0, 7)
	if err != nil {
		return nil, fmt.Errorf("weekday: %w", err)
	}
	if weekday[7] {
		weekday[0] = true
		delete(weekday, 7)
	}
	return &CronSchedule{
		Minute:            minute,
		Hour:              hour,
		Day:               day,
		Month:             month,
		Weekday:           weekday,
		dayRestricted:     !strings.HasPrefix(fields[2], "*"),
		weekdayRestricted: !strings.HasPrefix(fields[4], "*"),
		expr:              strings.Join(fields, " "),
	}, nil
}

// String returns the normalized expression.
func (c *CronSchedule) String() string {
	return c.expr
}

// parseCronField parses a single cron field (supports *, single values, lists, ranges and steps)
func parseCronField(field string, min, max int) (map[int]bool, error) {
	result := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		rangePart, step := part, 1
		if base, stepStr, ok := strings.Cut(part, "/"); ok {
			s, err := strconv.Atoi(stepStr)
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step: %s", part)
			}
			rangePart, step = base, s
		}

		start, end := min, max
		switch {
		case rangePart == "*":
		case strings.Contains(rangePart, "-"):
			rangeParts := strings.Split(rangePart, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			s, err1 := strconv.Atoi(rangeParts[0])
			e, err2 := strconv.Atoi(rangeParts[1])
			if err1 != nil || err2 != nil || s > e || s < min || e > max {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
			start, end = s, e
		default:
			val, err := strconv.Atoi(rangePart)
			if err != nil || val < min || val > max {
				return nil, fmt.Errorf("invalid value: %s", part)
			}
			start = val
			if step == 1 {
				end = val
			}
		}

		for i := start; i <= end; i += step {
			result[i] = true
		}
	}
	return result, nil
}

func (c *CronSchedule) dayMatches(t time.Time) bool {
	dom := c.Day[t.Day()]
	dow := c.Weekday[int(t.Weekday())]
	if c.dayRestricted && c.weekdayRestricted {
		return dom || dow
	}
	return dom && dow
}

// Next returns the next time strictly after 'after' that matches the
// schedule, in after's location. It returns the zero Time if the schedule
// never fires within five years.
func (c *CronSchedule) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.Add(searchHorizon)
	for t.Before(limit) {
		switch {
		case !c.Month[int(t.Month())]:
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		case !c.dayMatches(t):
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
		case !c.Hour[t.Hour()]:
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, t.Location())
		case !c.Minute[t.Minute()]:
			t = t.Add(time.Minute)
		default:
			return t
		}
	}
	return time.Time{}
}

// Upcoming returns the next n fire times after 'after'.
func (c *CronSchedule) Upcoming(after time.Time, n int) []time.Time {
	times := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		next := c.Next(after)
		if next.IsZero() {
			break
		}
		times = append(times, next)
		after = next
	}
	return times
}
