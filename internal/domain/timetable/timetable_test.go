package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodForHour(t *testing.T) {
	tests := []struct {
		hour int
		want int
	}{
		{8, 1},
		{10, 2},
		{13, 3},
		{14, 4},
		{16, 5},
		{18, 6},
		{0, PeriodUnmapped},
		{9, PeriodUnmapped},
		{12, PeriodUnmapped},
		{23, PeriodUnmapped},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PeriodForHour(tt.hour), "hour %d", tt.hour)
	}
}

func TestPeriodForTimeIgnoresMinutes(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, 1, PeriodForTime(time.Date(2026, 4, 1, 8, 0, 0, 0, loc)))
	assert.Equal(t, 1, PeriodForTime(time.Date(2026, 4, 1, 8, 50, 30, 0, loc)))
	assert.Equal(t, 3, PeriodForTime(time.Date(2026, 4, 1, 13, 59, 59, 0, loc)))
	assert.Equal(t, PeriodUnmapped, PeriodForTime(time.Date(2026, 4, 1, 9, 0, 0, 0, loc)))
}

func TestMarkerPolicy(t *testing.T) {
	cancelled := MarkerPolicy(DefaultCancellationMarker)

	tests := []struct {
		summary string
		want    bool
	}{
		{"数学[休]", true},
		{"[休]英語", true},
		{"物理 [休] 補講なし", true},
		{"数学", false},
		{"休講", false},
		{"[ 休 ]", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cancelled(tt.summary), "summary %q", tt.summary)
	}
}

func TestDaySchedule_Cancelled(t *testing.T) {
	s := DaySchedule{Entries: []Entry{
		{Subject: "数学[休]", Period: 1, IsCancelled: true},
		{Subject: "英語", Period: 2},
		{Subject: "物理[休]", Period: 4, IsCancelled: true},
	}}

	got := s.Cancelled()
	assert.Len(t, got, 2)
	assert.Equal(t, "数学[休]", got[0].Subject)
	assert.Equal(t, "物理[休]", got[1].Subject)
}

func TestSameDate(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	// 2026-04-01 23:30 UTC is 2026-04-02 08:30 in JST.
	a := time.Date(2026, 4, 1, 23, 30, 0, 0, time.UTC)
	b := time.Date(2026, 4, 2, 12, 0, 0, 0, jst)

	assert.True(t, SameDate(a, b, jst))
	assert.False(t, SameDate(a, b, time.UTC))
}
