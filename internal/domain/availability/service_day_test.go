package availability

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDay_Equality(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	morning := DayOf(time.Date(2026, 10, 19, 8, 0, 0, 0, loc), loc)
	evening := DayOf(time.Date(2026, 10, 19, 22, 0, 0, 0, loc), loc)
	assert.Equal(t, morning, evening)
	assert.True(t, morning == NewServiceDay(2026, time.October, 19))

	m := map[ServiceDay]int{morning: 1}
	m[evening]++
	assert.Equal(t, 2, m[NewServiceDay(2026, 10, 19)])
}

func TestServiceDay_Arithmetic(t *testing.T) {
	d := NewServiceDay(2026, time.October, 31)
	assert.Equal(t, "2026-11-01", d.AddDays(1).Key())
	assert.Equal(t, "2026-10-30", d.AddDays(-1).Key())
	assert.Equal(t, "2027-01-01", NewServiceDay(2026, 12, 32).Key())

	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-40)))
	assert.Equal(t, 0, d.Compare(NewServiceDay(2026, 10, 31)))
	assert.Equal(t, -1, NewServiceDay(2025, 12, 31).Compare(d))
}

func TestServiceDay_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2026-10-14", "2026-10-14", 0},
		{"2026-10-13", "2026-10-14", -1},
		{"2026-11-01", "2026-10-31", 1},
		{"2026-09-30", "2026-10-01", -1},
		{"2027-01-01", "2026-12-31", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, MustParseServiceDay(tt.a).Compare(MustParseServiceDay(tt.b)))
		})
	}
}

func TestServiceDay_Formatting(t *testing.T) {
	d := MustParseServiceDay("2026-10-19")
	assert.Equal(t, time.Monday, d.Weekday())
	assert.Equal(t, "Monday, Oct 19", d.Display())
	assert.Equal(t, "monday", d.WeekdayKey())
	assert.Equal(t, "2026-10-19", d.String())
	assert.False(t, d.IsWeekend())
	assert.True(t, d.AddDays(-1).IsWeekend())
	assert.True(t, d.AddDays(-2).IsWeekend())
}

func TestParseServiceDay(t *testing.T) {
	_, err := ParseServiceDay("10/19/2026")
	assert.Error(t, err)
	_, err = ParseServiceDay("2026-02-30")
	assert.Error(t, err)

	d, err := ParseServiceDay(" 2026-10-19 ")
	require.NoError(t, err)
	assert.Equal(t, 19, d.Day())
	assert.Panics(t, func() { MustParseServiceDay("nope") })
}

func TestServiceDay_JSON(t *testing.T) {
	type payload struct {
		Date ServiceDay `json:"date"`
	}

	data, err := json.Marshal(payload{Date: MustParseServiceDay("2026-10-19")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-10-19"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-10-20"}`), &p))
	assert.Equal(t, NewServiceDay(2026, 10, 20), p.Date)

	require.NoError(t, json.Unmarshal([]byte(`{"date":""}`), &p))
	assert.True(t, p.Date.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"date":"tomorrow"}`), &p))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())

	var fn Clock = ClockFunc(func() time.Time { return start })
	assert.Equal(t, start, fn.Now())
	assert.WithinDuration(t, time.Now(), SystemClock{}.Now(), time.Second)
}

func TestDateStatus(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.IsValid())
		assert.Equal(t, string(s), s.String())
	}
	assert.False(t, DateStatus("OPEN").IsValid())
	assert.True(t, StatusActive.Orderable(false))
	assert.False(t, StatusPreview.Orderable(false))
	assert.True(t, StatusPreview.Orderable(true))
	assert.False(t, StatusWeekend.Orderable(true))
}
