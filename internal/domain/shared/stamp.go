package shared

import "time"

// Default layouts for the last-modified stamp written next to every mutation
const (
	DefaultDateLayout = "2/1/2006"
	DefaultTimeLayout = "3:04 PM"
)

// Clock returns the current time
type Clock func() time.Time

// Stamp is the date/time pair a document records as its last-modified marker
type Stamp struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// IsZero reports whether the stamp was never written
func (s Stamp) IsZero() bool {
	return s.Date == "" && s.Time == ""
}

// String returns "date time"
func (s Stamp) String() string {
	if s.IsZero() {
		return ""
	}
	return s.Date + " " + s.Time
}

// Stamper produces stamps from a clock
type Stamper struct {
	Clock      Clock
	DateLayout string
	TimeLayout string
}

// NewStamper creates a stamper using the wall clock and default layouts
func NewStamper() *Stamper {
	return &Stamper{
		Clock:      time.Now,
		DateLayout: DefaultDateLayout,
		TimeLayout: DefaultTimeLayout,
	}
}

// Now returns the stamp for the current instant
func (s *Stamper) Now() Stamp {
	if s == nil {
		return NewStamper().Now()
	}
	clock := s.Clock
	if clock == nil {
		clock = time.Now
	}
	dateLayout, timeLayout := s.DateLayout, s.TimeLayout
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	if timeLayout == "" {
		timeLayout = DefaultTimeLayout
	}
	now := clock()
	return Stamp{
		Date: now.Format(dateLayout),
		Time: now.Format(timeLayout),
	}
}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
