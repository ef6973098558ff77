package calendar

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/planr/internal/planner"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:review\r\n" +
	"DTSTAMP:20260301T000000Z\r\n" +
	"DTSTART:20260302T140000Z\r\n" +
	"DTEND:20260302T150000Z\r\n" +
	"SUMMARY:Design review\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20260301T000000Z\r\n" +
	"DTSTART:20260302T100000Z\r\n" +
	"DTEND:20260302T103000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:tomorrow\r\n" +
	"DTSTAMP:20260301T000000Z\r\n" +
	"DTSTART:20260303T100000Z\r\n" +
	"DTEND:20260303T110000Z\r\n" +
	"SUMMARY:Tomorrow\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestFetchFileFiltersAndSorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(sampleICS), 0644))

	start, end := DayWindow(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	events, err := Fetch(t.Context(), path, start, end)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, "Design review", events[1].Summary)

	assert.Equal(t, "Calendar: 10:00-10:30 Standup; 14:00-15:00 Design review", FormatContext(events, time.UTC))
}

func TestFetchMissingFile(t *testing.T) {
	_, err := Fetch(t.Context(), filepath.Join(t.TempDir(), "nope.ics"), time.Now(), time.Now().Add(time.Hour))
	assert.Error(t, err)
}

func TestFormatContextEmpty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil, time.UTC))
}

func TestParseSlot(t *testing.T) {
	cases := []struct {
		in           string
		hour, minute int
	}{
		{"9:00 AM", 9, 0},
		{"12:00 PM", 12, 0},
		{"12:30 am", 0, 30},
		{"1:00 PM", 13, 0},
		{"14:30", 14, 30},
		{"2pm - 3pm", 14, 0},
		{"10:00 AM - 11:00 AM", 10, 0},
	}
	for _, tc := range cases {
		h, m, err := ParseSlot(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.hour, h, tc.in)
		assert.Equal(t, tc.minute, m, tc.in)
	}

	for _, bad := range []string{"Morning", "", "25:00", "13:00 PM"} {
		_, _, err := ParseSlot(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Hour, ParseDuration("1 hour"))
	assert.Equal(t, 30*time.Minute, ParseDuration("30 minutes"))
	assert.Equal(t, 90*time.Minute, ParseDuration("1.5 hours"))
	assert.Equal(t, 75*time.Minute, ParseDuration("1 hour 15 minutes"))
	assert.Equal(t, 45*time.Minute, ParseDuration("45 min"))
	assert.Equal(t, time.Hour, ParseDuration("a while"))
}

func TestExportPlanRoundTrip(t *testing.T) {
	plan := planner.Plan{
		PlannedTasks: []planner.PlannedTask{
			{Task: "Write report", TimeSlot: "9:00 AM", Duration: "1.5 hours"},
			{Task: "Lunch walk", TimeSlot: "whenever", Duration: "30 minutes"},
			{Task: "Call dentist", TimeSlot: "2:00 PM", Duration: "15 minutes"},
		},
	}
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, ExportPlan(&buf, date, plan, time.UTC))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, productID)

	start, end := DayWindow(date)
	events, err := Parse(&buf, start, end)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "Write report", events[0].Summary)
	assert.True(t, events[0].StartTime.Equal(date.Add(9*time.Hour)))
	assert.True(t, events[0].EndTime.Equal(date.Add(10*time.Hour+30*time.Minute)))

	// Unparseable slot follows the previous task.
	assert.Equal(t, "Lunch walk", events[1].Summary)
	assert.True(t, events[1].StartTime.Equal(date.Add(10*time.Hour+30*time.Minute)))

	assert.Equal(t, "Call dentist", events[2].Summary)
	assert.True(t, events[2].StartTime.Equal(date.Add(14*time.Hour)))
}
