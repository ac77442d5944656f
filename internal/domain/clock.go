package domain

import (
	"strings"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar day identifier in the "2006-01-02" form.
// Arithmetic is done on dates, never on 24h durations.
type Day string

// ParseDay validates s as a YYYY-MM-DD calendar day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidDay
	}
	return Day(t.Format(dayLayout)), nil
}

// DayOf returns the date of t as observed in t's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

func (d Day) String() string { return string(d) }

// Next returns the following calendar day.
func (d Day) Next() Day { return d.shift(1) }

// Prev returns the preceding calendar day.
func (d Day) Prev() Day { return d.shift(-1) }

func (d Day) shift(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(dayLayout))
}

// LocalTime is an instant projected onto a user's wall clock.
type LocalTime struct {
	Clock HHMM
	Day   Day
	Zone  *time.Location
}

// Partitioner maps instants to local time-of-day and calendar day.
// Absent or invalid zones resolve to the configured default, which itself
// falls back to UTC if it cannot be loaded.
type Partitioner struct {
	fallback *time.Location
	zones    sync.Map // string -> *time.Location
}

// NewPartitioner builds a Partitioner with defaultTZ as the fallback zone.
func NewPartitioner(defaultTZ string) *Partitioner {
	p := &Partitioner{fallback: time.UTC}
	if loc, ok := loadZone(defaultTZ); ok {
		p.fallback = loc
	}
	return p
}

// Default returns the fallback zone.
func (p *Partitioner) Default() *time.Location { return p.fallback }

// Zone resolves tz, never failing the caller.
func (p *Partitioner) Zone(tz string) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return p.fallback
	}
	if v, ok := p.zones.Load(tz); ok {
		return v.(*time.Location)
	}
	loc, ok := loadZone(tz)
	if !ok {
		loc = p.fallback
	}
	p.zones.Store(tz, loc)
	return loc
}

// LocalClock returns the wall-clock HH:MM and calendar day of instant in tz.
func (p *Partitioner) LocalClock(instant time.Time, tz string) LocalTime {
	loc := p.Zone(tz)
	lt := instant.In(loc)
	return LocalTime{
		Clock: HHMM(lt.Format("15:04")),
		Day:   DayOf(lt),
		Zone:  loc,
	}
}

func loadZone(tz string) (*time.Location, bool) {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == "Local" {
		return nil, false
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, false
	}
	return loc, true
}

// EffectiveClock returns the local time at which clock actually occurs on
// day in loc. A clock skipped by a forward DST jump maps to the first local
// minute after the gap; any other clock is returned unchanged.
func EffectiveClock(day Day, clock HHMM, loc *time.Location) HHMM {
	if loc == nil {
		return clock
	}
	date, err := time.Parse(dayLayout, string(day))
	if err != nil {
		return clock
	}
	mins, err := parseHHMM(string(clock))
	if err != nil {
		return clock
	}
	for m := mins; m < 24*60; m++ {
		t := time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, loc)
		if t.Hour()*60+t.Minute() == m && DayOf(t) == day {
			return HHMM(FormatMinutes(m))
		}
	}
	return clock
}
