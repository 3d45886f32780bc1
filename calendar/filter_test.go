package calendar_test

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/iotest"
	"time"
	_ "time/tzdata"

	"github.com/apognu/gocal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quesurifn/ics-calendar-relay/calendar"
)

const preamble = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:icalendar-ruby
CALSCALE:GREGORIAN
METHOD:PUBLISH
NAME:RC Personal Calendar
X-WR-CALNAME:RC Personal Calendar
REFRESH-INTERVAL;VALUE=DURATION:PT1M
X-PUBLISHED-TTL:PT1M
BEGIN:VTIMEZONE
TZID:America/New_York
BEGIN:DAYLIGHT
DTSTART:20220313T030000
TZOFFSETFROM:-0500
TZOFFSETTO:-0400
RRULE:FREQ=YEARLY;BYDAY=2SU;BYMONTH=3
TZNAME:EDT
END:DAYLIGHT
BEGIN:STANDARD
DTSTART:20221106T010000
TZOFFSETFROM:-0400
TZOFFSETTO:-0500
RRULE:FREQ=YEARLY;BYDAY=1SU;BYMONTH=11
TZNAME:EST
END:STANDARD
END:VTIMEZONE
`

const confirmedEvent = `BEGIN:VEVENT
DTSTAMP:20220929T105407Z
UID:calendar-event-18893@recurse.com
DTSTART;TZID=America/New_York:20221028T110000
DTEND;TZID=America/New_York:20221028T113000
SUMMARY:Pairing session
STATUS:CONFIRMED
END:VEVENT
`

const cancelledEvent = `BEGIN:VEVENT
DTSTAMP:20220929T105407Z
UID:calendar-event-18894@recurse.com
DTSTART;TZID=America/New_York:20221031T110000
DTEND;TZID=America/New_York:20221031T113000
SUMMARY:Coffee chat
STATUS:CANCELLED
END:VEVENT
`

const closing = "END:VCALENDAR"

// naive is the plain split/filter/join form of the transform, used as an
// oracle for the streaming implementation.
func naive(feed string) string {
	var kept []string
	for _, s := range strings.Split(feed, "BEGIN:") {
		if !strings.Contains(s, "STATUS:CANCELLED") {
			kept = append(kept, s)
		}
	}

	out := strings.TrimSpace(strings.Join(kept, "BEGIN:"))
	if strings.HasSuffix(out, "END:VCALENDAR") {
		return out
	}
	return out + "\nEND:VCALENDAR"
}

func TestFilterEndingWithCancelled(t *testing.T) {
	feed := preamble + cancelledEvent + closing
	expected := preamble + closing

	out, stats := calendar.FilterString(feed)

	assert.Equal(t, expected, out)
	assert.Equal(t, 1, stats.Removed)
	assert.True(t, stats.Repaired)
}

func TestFilterRemovesOnlyCancelledBlock(t *testing.T) {
	feed := preamble + confirmedEvent + cancelledEvent + closing

	out, stats := calendar.FilterString(feed)

	assert.Equal(t, preamble+confirmedEvent+closing, out)
	assert.NotContains(t, out, "Coffee chat")
	assert.Equal(t, 1, strings.Count(out, closing))
	assert.Equal(t, 1, stats.Removed)
}

func TestFilterCancelledBlockInTheMiddle(t *testing.T) {
	feed := preamble + confirmedEvent + cancelledEvent + confirmedEvent + closing + "\n"

	out, stats := calendar.FilterString(feed)

	assert.Equal(t, preamble+confirmedEvent+confirmedEvent+closing, out)
	assert.False(t, stats.Repaired)
	assert.Equal(t, 8, stats.Segments)
	assert.Equal(t, 7, stats.Kept())
}

func TestFilterAllCancelled(t *testing.T) {
	feed := preamble + cancelledEvent + cancelledEvent + closing

	out, stats := calendar.FilterString(feed)

	assert.Equal(t, preamble+closing, out)
	assert.Equal(t, 2, stats.Removed)
}

func TestFilterIsIdempotent(t *testing.T) {
	feed := "\n\n" + preamble + confirmedEvent + closing + "\r\n\r\n"

	once, stats := calendar.FilterString(feed)
	twice, _ := calendar.FilterString(once)

	assert.Equal(t, strings.TrimSpace(feed), once)
	assert.Equal(t, once, twice)
	assert.Zero(t, stats.Removed)
	assert.False(t, stats.Repaired)
}

func TestFilterEmptyFeed(t *testing.T) {
	out, stats := calendar.FilterString("")

	assert.Equal(t, "\nEND:VCALENDAR", out)
	assert.True(t, stats.Repaired)
	assert.Equal(t, 1, stats.Segments)
}

func TestFilterDropsTrailingWhitespaceBeforeRepair(t *testing.T) {
	out, _ := calendar.FilterString(preamble + confirmedEvent + "  \n\t")

	assert.Equal(t, preamble+confirmedEvent[:len(confirmedEvent)-1]+"\nEND:VCALENDAR", out)
}

func TestFilterMatchesNaiveTransform(t *testing.T) {
	feeds := []string{
		"",
		"   ",
		"BEGIN:",
		"BEGIN:BEGIN:",
		"STATUS:CANCELLED",
		"noise before BEGIN:VCALENDAR\nEND:VCALENDAR",
		"STATUS:CANCELLED\nBEGIN:VCALENDAR\nEND:VCALENDAR",
		preamble + cancelledEvent + closing,
		preamble + confirmedEvent + cancelledEvent + confirmedEvent + closing,
		" \n" + preamble + confirmedEvent + " \n\n",
		preamble + "BEGIN:VEVENT\nSTATUS:CANCELLED\nBEGIN:VALARM\nACTION:DISPLAY\nEND:VALARM\nEND:VEVENT\n" + closing,
		"BEGIN:VCALENDAR\nX-NAME:café ☃\n" + confirmedEvent + " END:VCALENDAR ",
	}

	for _, feed := range feeds {
		out, _ := calendar.FilterString(feed)
		assert.Equal(t, naive(feed), out, "feed %q", feed)

		var b bytes.Buffer
		_, err := calendar.Filter(&b, iotest.OneByteReader(strings.NewReader(feed)))
		require.NoError(t, err)
		assert.Equal(t, naive(feed), b.String(), "streamed feed %q", feed)
	}
}

func TestFilterSegmentTooLong(t *testing.T) {
	feed := preamble + "BEGIN:VEVENT\nDESCRIPTION:" + strings.Repeat("x", 8192) + "\nEND:VEVENT\n" + closing

	var b bytes.Buffer
	_, err := calendar.FilterN(&b, strings.NewReader(feed), 4096)

	assert.ErrorIs(t, err, bufio.ErrTooLong)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestFilterWriteError(t *testing.T) {
	_, err := calendar.Filter(failingWriter{}, strings.NewReader(preamble+closing))

	assert.EqualError(t, err, "disk full")
}

func TestFilteredFeedStillParses(t *testing.T) {
	feed := preamble + confirmedEvent + cancelledEvent + closing
	out, _ := calendar.FilterString(feed)

	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

	parser := gocal.NewParser(strings.NewReader(out))
	parser.Start, parser.End = &start, &end
	parser.Parse()

	require.Len(t, parser.Events, 1)
	assert.Equal(t, "Pairing session", parser.Events[0].Summary)
	assert.NotEqual(t, "CANCELLED", parser.Events[0].Status)
}
