package model

import "time"

const DefaultAppointmentIntervalMinutes = 60

// DayHours is one weekday entry of a provider's hoursOfOperation.
// Open and Close are zero-padded 24-hour "HH:MM" strings and are ignored when Closed is set.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed,omitempty"`
}

// WeeklyHours maps weekday names ("Monday" ... "Sunday") to that day's hours.
type WeeklyHours map[string]DayHours

type AvailabilityConfig struct {
	HoursOfOperation           WeeklyHours `json:"hoursOfOperation"`
	AppointmentIntervalMinutes int         `json:"appointmentIntervalMinutes"`
	// Timezone is the IANA zone slot times are expressed in. Empty means UTC.
	Timezone string `json:"timezone,omitempty"`
}

// IntervalMinutes returns the configured interval, falling back to the default for unset values.
func (c AvailabilityConfig) IntervalMinutes() int {
	if c.AppointmentIntervalMinutes <= 0 {
		return DefaultAppointmentIntervalMinutes
	}
	return c.AppointmentIntervalMinutes
}

// Location resolves Timezone, using UTC when it is empty or unknown.
func (c AvailabilityConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	AvailabilityConfig
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
