package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quest_notifier/internal/domain/timetable"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//campus//timetable//JA\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:math-1@campus\r\n" +
	"DTSTAMP:20260401T000000Z\r\n" +
	"DTSTART:20260401T000000Z\r\n" +
	"DTEND:20260401T013000Z\r\n" +
	"SUMMARY:数学[休]\r\n" +
	"LOCATION:101\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:eng-2@campus\r\n" +
	"DTSTAMP:20260401T000000Z\r\n" +
	"DTSTART:20260401T010000Z\r\n" +
	"SUMMARY:英語\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

var jst = time.FixedZone("JST", 9*60*60)

func TestParseEvents(t *testing.T) {
	events, skipped, err := ParseEvents(strings.NewReader(sampleFeed), jst)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, events, 2)

	assert.Equal(t, "math-1@campus", events[0].UID)
	assert.Equal(t, "数学[休]", events[0].Summary)
	assert.Equal(t, "101", events[0].Location)
	assert.True(t, events[0].Start.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "英語", events[1].Summary)
	assert.Empty(t, events[1].Location)
}

func newTestClient() *Client {
	log, _ := test.NewNullLogger()
	return NewClient(5*time.Second, 6000, jst, logrus.NewEntry(log))
}

func TestClient_Events(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	events, err := newTestClient().Events(context.Background(), srv.URL+"/u1.ics")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestClient_EventsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient().Events(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/a.ics", normalizeURL("webcal://cal.example.com/a.ics"))
	assert.Equal(t, "http://x/a.ics", normalizeURL("http://x/a.ics"))
}

func TestParseEvents_FloatingTimesUseIngestionZone(t *testing.T) {
	orig := time.Local
	time.Local = time.UTC
	defer func() { time.Local = orig }()

	feed := "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//campus//timetable//JA\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:floating@campus\r\n" +
		"DTSTAMP:20260401T000000Z\r\n" +
		"DTSTART:20260401T080000\r\n" +
		"SUMMARY:数学[休]\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:utc@campus\r\n" +
		"DTSTAMP:20260401T000000Z\r\n" +
		"DTSTART:20260401T010000Z\r\n" +
		"SUMMARY:英語\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	events, skipped, err := ParseEvents(strings.NewReader(feed), jst)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, events, 2)

	floating := events[0].Start
	assert.True(t, floating.Equal(time.Date(2026, 4, 1, 8, 0, 0, 0, jst)))
	assert.Equal(t, 1, timetable.PeriodForTime(floating.In(jst)))
	assert.True(t, timetable.SameDate(floating, time.Date(2026, 4, 1, 12, 0, 0, 0, jst), jst))

	// zoned times keep their instant
	assert.True(t, events[1].Start.Equal(time.Date(2026, 4, 1, 10, 0, 0, 0, jst)))
	assert.Equal(t, 2, timetable.PeriodForTime(events[1].Start.In(jst)))
}
