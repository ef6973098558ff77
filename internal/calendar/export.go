package calendar

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/christopherklint97/planr/internal/planner"
)

const (
	productID       = "-//planr//daily plan//EN"
	defaultDuration = time.Hour
)

var (
	slotPattern     = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)?`)
	durationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)
)

// ParseSlot reads the start of a slot label such as "9:00 AM", "14:30" or
// "2pm - 3pm" and returns the hour and minute.
func ParseSlot(label string) (hour, minute int, err error) {
	m := slotPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, fmt.Errorf("unrecognized time slot %q", label)
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	if suffix := strings.ToLower(strings.ReplaceAll(m[3], ".", "")); suffix != "" {
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("invalid 12-hour time %q", label)
		}
		if suffix == "pm" && hour != 12 {
			hour += 12
		}
		if suffix == "am" && hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("time slot out of range %q", label)
	}
	return hour, minute, nil
}

// ParseDuration sums phrases like "1 hour", "30 minutes", "1.5 hours" or
// "1 hour 15 minutes". Unparseable input yields one hour.
func ParseDuration(s string) time.Duration {
	var total time.Duration
	for _, m := range durationPattern.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		unit := strings.ToLower(m[2])
		if strings.HasPrefix(unit, "h") {
			total += time.Duration(n * float64(time.Hour))
		} else {
			total += time.Duration(n * float64(time.Minute))
		}
	}
	if total <= 0 {
		return defaultDuration
	}
	return total
}

// ExportPlan writes plan as a VCALENDAR with one VEVENT per planned task on
// the given date. Tasks whose slot cannot be parsed follow the previous task.
func ExportPlan(w io.Writer, date time.Time, plan planner.Plan, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	stamp := time.Now().UTC()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, loc)
	next := dayStart

	for i, task := range plan.PlannedTasks {
		start := next
		if hour, minute, err := ParseSlot(task.TimeSlot); err == nil {
			start = time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
		}
		end := start.Add(ParseDuration(task.Duration))
		next = end

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%d@planr", date.Format("20060102"), i))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		event.Props.SetText(ical.PropSummary, task.Task)
		if task.Duration != "" {
			event.Props.SetText(ical.PropDescription, "Planned duration: "+task.Duration)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}
