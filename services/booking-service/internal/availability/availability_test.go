package availability

import (
	"testing"
	"time"

	"github.com/servly/servly/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayHours(open, close string) model.WeeklyHours {
	h := model.DayHours{Open: open, Close: close}
	return model.WeeklyHours{
		"Monday":    h,
		"Tuesday":   h,
		"Wednesday": h,
		"Thursday":  h,
		"Friday":    h,
		"Saturday":  {Closed: true},
		"Sunday":    {Closed: true},
	}
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	require.NoError(t, err)
	return d
}

func at(t *testing.T, raw string, loc *time.Location) time.Time {
	t.Helper()
	ts, err := ParseTimestamp(raw, loc)
	require.NoError(t, err)
	return ts
}

func TestGenerateSlotTimesHourly(t *testing.T) {
	// 2024-06-03 is a Monday.
	got := GenerateSlotTimes(mustDate(t, "2024-06-03"), model.DayHours{Open: "09:00", Close: "17:00"}, 60, time.UTC)
	assert.Equal(t, []string{
		"2024-06-03T09:00", "2024-06-03T10:00", "2024-06-03T11:00", "2024-06-03T12:00",
		"2024-06-03T13:00", "2024-06-03T14:00", "2024-06-03T15:00", "2024-06-03T16:00",
	}, got)
}

func TestGenerateSlotTimesBounds(t *testing.T) {
	date := mustDate(t, "2024-06-03")
	cases := []struct {
		name     string
		open     string
		close    string
		interval int
	}{
		{"half hour", "09:00", "17:00", 30},
		{"uneven remainder", "09:00", "17:00", 45},
		{"odd start", "08:15", "11:50", 25},
		{"until midnight", "22:00", "24:00", 20},
		{"one minute", "12:00", "12:07", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			open, err := ParseClock(tc.open)
			require.NoError(t, err)
			closeAt, err := ParseClock(tc.close)
			require.NoError(t, err)

			got := GenerateSlotTimes(date, model.DayHours{Open: tc.open, Close: tc.close}, tc.interval, time.UTC)
			require.NotEmpty(t, got)
			assert.Equal(t, (closeAt-open)/tc.interval, len(got))

			for i, ts := range got {
				slot, err := time.ParseInLocation(SlotLayout, ts, time.UTC)
				require.NoError(t, err)
				minute := slot.Hour()*60 + slot.Minute()
				// Every slot fits entirely inside [open, close] on the requested date.
				assert.GreaterOrEqual(t, minute, open)
				assert.LessOrEqual(t, minute+tc.interval, closeAt)
				assert.Equal(t, "2024-06-03", ts[:10])
				assert.Equal(t, open+i*tc.interval, minute)
				if i > 0 {
					assert.Greater(t, ts, got[i-1])
				}
			}
		})
	}
}

func TestGenerateSlotTimesDropsPartialRemainder(t *testing.T) {
	date := mustDate(t, "2024-06-03")
	got := GenerateSlotTimes(date, model.DayHours{Open: "09:00", Close: "10:30"}, 60, time.UTC)
	assert.Equal(t, []string{"2024-06-03T09:00"}, got)

	got = GenerateSlotTimes(date, model.DayHours{Open: "09:00", Close: "17:00"}, 45, time.UTC)
	require.Len(t, got, 10)
	assert.Equal(t, "2024-06-03T15:45", got[len(got)-1])

	assert.Empty(t, GenerateSlotTimes(date, model.DayHours{Open: "09:00", Close: "09:30"}, 60, time.UTC))
}

func TestGenerateSlotTimesEmpty(t *testing.T) {
	date := mustDate(t, "2024-06-03")
	assert.Empty(t, GenerateSlotTimes(date, model.DayHours{Closed: true, Open: "09:00", Close: "17:00"}, 60, time.UTC))
	assert.Empty(t, GenerateSlotTimes(date, model.DayHours{Open: "17:00", Close: "09:00"}, 60, time.UTC))
	assert.Empty(t, GenerateSlotTimes(date, model.DayHours{Open: "09:00", Close: "09:00"}, 60, time.UTC))
	assert.Empty(t, GenerateSlotTimes(date, model.DayHours{Open: "9am", Close: "17:00"}, 60, time.UTC))
	assert.Empty(t, GenerateSlotTimes(date, model.DayHours{Open: "09:00", Close: "17:00"}, 0, time.UTC))
}

func TestGenerateSlotTimesDSTGap(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 2024-03-10 02:00 does not exist in New York.
	got := GenerateSlotTimes(mustDate(t, "2024-03-10"), model.DayHours{Open: "01:00", Close: "05:00"}, 60, loc)
	assert.Equal(t, []string{"2024-03-10T01:00", "2024-03-10T03:00", "2024-03-10T04:00"}, got)
}

func TestParseClock(t *testing.T) {
	for raw, want := range map[string]int{"00:00": 0, "09:30": 570, "9:05": 545, "23:59": 1439, "24:00": 1440} {
		got, err := ParseClock(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "9", "09:5", "24:01", "25:00", "-1:00", "ab:cd", "09:60", "0930"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestFormatClock12(t *testing.T) {
	assert.Equal(t, "12:00 AM", FormatClock12(0))
	assert.Equal(t, "9:00 AM", FormatClock12(540))
	assert.Equal(t, "12:30 PM", FormatClock12(750))
	assert.Equal(t, "5:45 PM", FormatClock12(1065))
	assert.Equal(t, "12:00 AM", FormatClock12(1440))
}

func TestLookupDay(t *testing.T) {
	hours := model.WeeklyHours{"monday": {Open: "08:00", Close: "12:00"}, "Tuesday": {Closed: true}}
	h, ok := LookupDay(hours, time.Monday)
	require.True(t, ok)
	assert.Equal(t, "08:00", h.Open)

	h, ok = LookupDay(hours, time.Tuesday)
	require.True(t, ok)
	assert.True(t, h.Closed)

	_, ok = LookupDay(hours, time.Wednesday)
	assert.False(t, ok)
	_, ok = LookupDay(nil, time.Wednesday)
	assert.False(t, ok)
}

func TestNormalizeTimestamp(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	utc := time.Date(2024, 6, 3, 8, 0, 59, 999, time.UTC)
	assert.Equal(t, "2024-06-03T10:00", NormalizeTimestamp(utc, loc))
	assert.Equal(t, "2024-06-03T08:00", NormalizeTimestamp(utc, nil))

	// Every accepted representation of the same instant normalizes identically.
	for _, raw := range []string{"2024-06-03T10:00", "2024-06-03T10:00:00", "2024-06-03T08:00:00Z", "2024-06-03T10:00:00+02:00", "2024-06-03 10:00"} {
		assert.Equal(t, "2024-06-03T10:00", NormalizeTimestamp(at(t, raw, loc), loc), raw)
	}

	_, err = ParseTimestamp("next tuesday", loc)
	assert.Error(t, err)
}

func TestNormalizeRoundTripsGeneratedSlots(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	for _, ts := range GenerateSlotTimes(mustDate(t, "2024-06-03"), model.DayHours{Open: "09:00", Close: "12:00"}, 20, loc) {
		assert.Equal(t, ts, NormalizeTimestamp(at(t, ts, loc), loc))
	}
}

func TestBuildBookedSet(t *testing.T) {
	date := mustDate(t, "2024-06-03")
	bookings := []model.Booking{
		{ProviderID: "p1", Status: model.StatusConfirmed, DateTime: at(t, "2024-06-03T09:00", time.UTC)},
		{ProviderID: "p1", Status: model.StatusAccepted, DateTime: at(t, "2024-06-03T10:00:30", time.UTC)},
		{ProviderID: "p1", Status: model.StatusCompleted, DateTime: at(t, "2024-06-03T11:00", time.UTC)},
		{ProviderID: "p1", Status: model.StatusPending, DateTime: at(t, "2024-06-03T12:00", time.UTC)},
		{ProviderID: "p1", Status: model.StatusDeclined, DateTime: at(t, "2024-06-03T13:00", time.UTC)},
		{ProviderID: "p1", Status: model.StatusCancelled, DateTime: at(t, "2024-06-03T14:00", time.UTC)},
		{ProviderID: "p2", Status: model.StatusConfirmed, DateTime: at(t, "2024-06-03T15:00", time.UTC)},
		{ProviderID: "p1", Status: model.StatusConfirmed, DateTime: at(t, "2024-06-04T09:00", time.UTC)},
	}
	set := BuildBookedSet(bookings, "p1", date, time.UTC)
	assert.Len(t, set, 3)
	assert.True(t, set.Has("2024-06-03T09:00"))
	assert.True(t, set.Has("2024-06-03T10:00"))
	assert.True(t, set.Has("2024-06-03T11:00"))
	assert.False(t, set.Has("2024-06-03T12:00"))
	assert.False(t, set.Has("2024-06-03T15:00"))
	assert.False(t, set.Has("2024-06-04T09:00"))
}

func TestAnnotatePreservesOrderAndLength(t *testing.T) {
	times := []string{"2024-06-03T09:00", "2024-06-03T10:00", "2024-06-03T11:00"}
	got := Annotate(times, BookedSet{"2024-06-03T10:00": {}, "2024-06-03T18:00": {}})
	assert.Equal(t, []Slot{
		{Time: "2024-06-03T09:00"},
		{Time: "2024-06-03T10:00", IsBooked: true},
		{Time: "2024-06-03T11:00"},
	}, got)
	assert.Empty(t, Annotate(nil, BookedSet{}))
}

func TestForDateOpenWithCommittedBooking(t *testing.T) {
	cfg := model.AvailabilityConfig{HoursOfOperation: weekdayHours("09:00", "12:00"), AppointmentIntervalMinutes: 60}
	bookings := []model.Booking{
		{ProviderID: "p1", Status: model.StatusConfirmed, DateTime: at(t, "2024-06-03T10:00", time.UTC)},
	}
	day := ForDate("p1", cfg, bookings, mustDate(t, "2024-06-03"))

	assert.Equal(t, DayOpen, day.Status)
	assert.Equal(t, "Monday", day.Weekday)
	assert.Equal(t, "2024-06-03", day.Date)
	require.NotNil(t, day.Hours)
	assert.Equal(t, HoursSummary{Open: "09:00", Close: "12:00", Display: "9:00 AM – 12:00 PM"}, *day.Hours)
	assert.Equal(t, []Slot{
		{Time: "2024-06-03T09:00"},
		{Time: "2024-06-03T10:00", IsBooked: true},
		{Time: "2024-06-03T11:00"},
	}, day.Slots)
	assert.True(t, day.Offers("2024-06-03T11:00"))
	assert.False(t, day.Offers("2024-06-03T11:30"))
}

func TestForDateClosedDay(t *testing.T) {
	cfg := model.AvailabilityConfig{HoursOfOperation: weekdayHours("09:00", "17:00")}
	// 2024-06-08 is a Saturday.
	day := ForDate("p1", cfg, nil, mustDate(t, "2024-06-08"))
	assert.Equal(t, DayClosed, day.Status)
	assert.Equal(t, "Closed on Saturday", day.Message)
	assert.Nil(t, day.Hours)
	assert.NotNil(t, day.Slots)
	assert.Empty(t, day.Slots)
}

func TestForDateUnavailable(t *testing.T) {
	date := mustDate(t, "2024-06-03")
	for name, cfg := range map[string]model.AvailabilityConfig{
		"no hours":     {},
		"missing day":  {HoursOfOperation: model.WeeklyHours{"Tuesday": {Open: "09:00", Close: "17:00"}}},
		"garbage":      {HoursOfOperation: model.WeeklyHours{"Monday": {Open: "nine", Close: "five"}}},
		"inverted":     {HoursOfOperation: model.WeeklyHours{"Monday": {Open: "17:00", Close: "09:00"}}},
		"empty window": {HoursOfOperation: model.WeeklyHours{"Monday": {Open: "09:00", Close: "09:00"}}},
	} {
		t.Run(name, func(t *testing.T) {
			day := ForDate("p1", cfg, nil, date)
			assert.Equal(t, DayUnavailable, day.Status)
			assert.Empty(t, day.Slots)
			assert.Equal(t, model.DefaultAppointmentIntervalMinutes, day.IntervalMinutes)
		})
	}
}

func TestForDateWindowShorterThanInterval(t *testing.T) {
	cfg := model.AvailabilityConfig{HoursOfOperation: weekdayHours("09:00", "09:30"), AppointmentIntervalMinutes: 60}
	day := ForDate("p1", cfg, nil, mustDate(t, "2024-06-03"))
	assert.Equal(t, DayNoSlots, day.Status)
	assert.NotNil(t, day.Slots)
	assert.Empty(t, day.Slots)
	assert.False(t, day.Offers("2024-06-03T09:00"))
}

func TestForDateHalfHourMorningWithAcceptedBooking(t *testing.T) {
	cfg := model.AvailabilityConfig{HoursOfOperation: weekdayHours("09:00", "12:00"), AppointmentIntervalMinutes: 30}
	bookings := []model.Booking{
		{ProviderID: "p1", Status: model.StatusAccepted, DateTime: at(t, "2024-06-03T10:00", time.UTC)},
	}
	day := ForDate("p1", cfg, bookings, mustDate(t, "2024-06-03"))
	assert.Equal(t, DayOpen, day.Status)
	assert.Equal(t, []Slot{
		{Time: "2024-06-03T09:00"},
		{Time: "2024-06-03T09:30"},
		{Time: "2024-06-03T10:00", IsBooked: true},
		{Time: "2024-06-03T10:30"},
		{Time: "2024-06-03T11:00"},
		{Time: "2024-06-03T11:30"},
	}, day.Slots)
}

func TestForDateFullyBooked(t *testing.T) {
	cfg := model.AvailabilityConfig{HoursOfOperation: weekdayHours("09:00", "11:00"), AppointmentIntervalMinutes: 60}
	bookings := []model.Booking{
		{ProviderID: "p1", Status: model.StatusAccepted, DateTime: at(t, "2024-06-03T09:00", time.UTC)},
		{ProviderID: "p1", Status: model.StatusCompleted, DateTime: at(t, "2024-06-03T10:00", time.UTC)},
	}
	day := ForDate("p1", cfg, bookings, mustDate(t, "2024-06-03"))
	assert.Equal(t, DayFullyBooked, day.Status)
	assert.Len(t, day.Slots, 2)
	assert.False(t, day.Bookable())
}

func TestForDatePendingDoesNotBlock(t *testing.T) {
	cfg := model.AvailabilityConfig{HoursOfOperation: weekdayHours("09:00", "10:00"), AppointmentIntervalMinutes: 60}
	slot := at(t, "2024-06-03T09:00", time.UTC)
	bookings := []model.Booking{
		{ProviderID: "p1", Status: model.StatusPending, DateTime: slot},
		{ProviderID: "p1", Status: model.StatusPending, DateTime: slot},
		{ProviderID: "p1", Status: model.StatusDeclined, DateTime: slot},
	}
	day := ForDate("p1", cfg, bookings, mustDate(t, "2024-06-03"))
	assert.Equal(t, DayOpen, day.Status)
	assert.Equal(t, []Slot{{Time: "2024-06-03T09:00"}}, day.Slots)
}

func TestForDateIsDeterministic(t *testing.T) {
	cfg := model.AvailabilityConfig{HoursOfOperation: weekdayHours("08:00", "18:00"), AppointmentIntervalMinutes: 30}
	bookings := []model.Booking{
		{ProviderID: "p1", Status: model.StatusConfirmed, DateTime: at(t, "2024-06-03T08:30", time.UTC)},
		{ProviderID: "p1", Status: model.StatusPending, DateTime: at(t, "2024-06-03T09:00", time.UTC)},
	}
	date := mustDate(t, "2024-06-03")
	assert.Equal(t, ForDate("p1", cfg, bookings, date), ForDate("p1", cfg, bookings, date))
}

func TestForDateUsesProviderTimezone(t *testing.T) {
	cfg := model.AvailabilityConfig{
		HoursOfOperation:           weekdayHours("09:00", "11:00"),
		AppointmentIntervalMinutes: 60,
		Timezone:                   "America/Los_Angeles",
	}
	// 16:00Z on 2024-06-03 is 09:00 in Los Angeles.
	bookings := []model.Booking{
		{ProviderID: "p1", Status: model.StatusConfirmed, DateTime: time.Date(2024, 6, 3, 16, 0, 0, 0, time.UTC)},
	}
	day := ForDate("p1", cfg, bookings, mustDate(t, "2024-06-03"))
	assert.Equal(t, "America/Los_Angeles", day.Timezone)
	assert.Equal(t, []Slot{
		{Time: "2024-06-03T09:00", IsBooked: true},
		{Time: "2024-06-03T10:00"},
	}, day.Slots)
}
