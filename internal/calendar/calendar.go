// Package calendar models the trading calendar: per-date session
// windows and the scheduling of the next tradable candle.
package calendar

import (
	"fmt"
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

// Window describes one date's trading session. Open and Close are
// timestamps on that date, in the date's location.
type Window struct {
	IsHoliday bool
	Open      time.Time
	Close     time.Time
}

// Service looks up the trading window for a date. The absence of a
// configured window is a configuration error, never silently treated
// as a trading day.
type Service interface {
	TradingWindow(date time.Time, exchange core.Exchange, segment core.Segment) (Window, error)
}

// StaticService is a calendar with fixed session times and a configured
// holiday set. Weekends are handled by the scheduler, not here.
type StaticService struct {
	openHour, openMinute   int
	closeHour, closeMinute int
	holidays               map[string]bool
}

// NewStaticService builds a calendar from "HH:MM" session bounds and a
// holiday date list.
func NewStaticService(open, close string, holidays []time.Time) (*StaticService, error) {
	oh, om, err := parseClock(open)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("session open %q: %w", open, err))
	}
	ch, cm, err := parseClock(close)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("session close %q: %w", close, err))
	}

	set := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		set[h.Format("2006-01-02")] = true
	}

	return &StaticService{
		openHour: oh, openMinute: om,
		closeHour: ch, closeMinute: cm,
		holidays: set,
	}, nil
}

// NewDefaultService returns a calendar with the regular 09:15-15:30
// session and no holidays.
func NewDefaultService() *StaticService {
	svc, err := NewStaticService("09:15", "15:30", nil)
	if err != nil {
		panic(err)
	}
	return svc
}

// TradingWindow implements Service.
func (s *StaticService) TradingWindow(date time.Time, _ core.Exchange, _ core.Segment) (Window, error) {
	day := core.DateOf(date)
	if s.holidays[day.Format("2006-01-02")] {
		return Window{IsHoliday: true}, nil
	}
	return Window{
		Open:  time.Date(day.Year(), day.Month(), day.Day(), s.openHour, s.openMinute, 0, 0, day.Location()),
		Close: time.Date(day.Year(), day.Month(), day.Day(), s.closeHour, s.closeMinute, 0, 0, day.Location()),
	}, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
