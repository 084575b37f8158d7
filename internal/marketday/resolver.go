// Package marketday resolves wall-clock instants to the business day a NAV
// is effective for, and models the trading session window.
package marketday

import "time"

// DayFormat is the canonical day key used everywhere a day is a string.
const DayFormat = "2006-01-02"

// Resolver maps an instant to the effective NAV day. Before the publication
// cutoff the previous business day's NAV is still the current one; weekends
// always roll back to Friday.
type Resolver struct {
	loc          *time.Location
	cutoffMinute int
}

// New creates a resolver with the given publication cutoff (local clock).
func New(loc *time.Location, cutoffHour, cutoffMin int) *Resolver {
	return &Resolver{loc: loc, cutoffMinute: cutoffHour*60 + cutoffMin}
}

// Resolve returns the effective day for now, formatted as DayFormat.
func (r *Resolver) Resolve(now time.Time) string {
	t := now.In(r.loc)
	if t.Hour()*60+t.Minute() < r.cutoffMinute {
		t = t.AddDate(0, 0, -1)
	}
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format(DayFormat)
}

// Location returns the resolver's market timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Session is the intraday trading window on weekdays.
type Session struct {
	loc      *time.Location
	openMin  int
	closeMin int
}

// NewSession creates a session window (local clock, Monday through Friday).
func NewSession(loc *time.Location, openHour, openMin, closeHour, closeMin int) *Session {
	return &Session{
		loc:      loc,
		openMin:  openHour*60 + openMin,
		closeMin: closeHour*60 + closeMin,
	}
}

// IsOpen reports whether t falls inside the session.
func (s *Session) IsOpen(t time.Time) bool {
	lt := t.In(s.loc)
	if lt.Weekday() == time.Saturday || lt.Weekday() == time.Sunday {
		return false
	}
	m := lt.Hour()*60 + lt.Minute()
	return m >= s.openMin && m < s.closeMin
}

// Ratio returns session progress: 0 at the open rising to 1 at the close,
// clamped outside the window.
func (s *Session) Ratio(t time.Time) float64 {
	lt := t.In(s.loc)
	m := float64(lt.Hour()*60+lt.Minute()) + float64(lt.Second())/60
	ratio := (m - float64(s.openMin)) / float64(s.closeMin-s.openMin)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
