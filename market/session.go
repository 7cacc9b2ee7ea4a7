package market

import "time"

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// Session describes the trading session: open/close times on weekdays, plus
// an intraday square-off cutoff shortly before the close.
type Session struct {
	Open   Clock
	Close  Clock
	Cutoff Clock
}

// DefaultSession is the NSE cash session: 09:15-15:30 with a 15:20 cutoff.
func DefaultSession() Session {
	return Session{
		Open:   Clock{9, 15},
		Close:  Clock{15, 30},
		Cutoff: Clock{15, 20},
	}
}

// IsOpen reports whether t falls inside the session. Weekends are closed.
func (s Session) IsOpen(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= s.Open.minutes() && m <= s.Close.minutes()
}

// PastCutoff reports whether t is at or past the intraday square-off cutoff
// while the session is still open.
func (s Session) PastCutoff(t time.Time) bool {
	if !s.IsOpen(t) {
		return false
	}
	return t.Hour()*60+t.Minute() >= s.Cutoff.minutes()
}
