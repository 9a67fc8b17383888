package calendar

import (
	"fmt"
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

// maxDayScan bounds the search for the next trading day. A year of
// consecutive holidays means the calendar is misconfigured.
const maxDayScan = 366

// Scheduler computes the timestamp of the next tradable candle after a
// decision bar. Results preserve the input timezone, never decrease,
// and are stable under repeated application.
type Scheduler struct {
	cal      Service
	exchange core.Exchange
	segment  core.Segment
}

// NewScheduler creates a scheduler backed by the given calendar.
func NewScheduler(cal Service, exchange core.Exchange, segment core.Segment) *Scheduler {
	return &Scheduler{cal: cal, exchange: exchange, segment: segment}
}

// NextCandle returns the next tradable bar timestamp after ts for the
// timeframe. Day and week timeframes land on the session open of the
// next trading day; intraday timeframes advance by the interval and
// roll past session close, weekends and holidays.
func (s *Scheduler) NextCandle(ts time.Time, tf core.Timeframe) (time.Time, error) {
	switch tf {
	case core.TimeframeWeek:
		return s.nextTradingDayOpen(ts.AddDate(0, 0, 7))
	case core.TimeframeDay:
		return s.nextTradingDayOpen(ts.AddDate(0, 0, 1))
	}

	next := ts.Add(tf.Duration())
	if isWeekend(next) {
		return s.nextTradingDayOpen(next.AddDate(0, 0, 1))
	}

	window, err := s.window(next)
	if err != nil {
		return time.Time{}, err
	}
	if window.IsHoliday {
		return s.nextTradingDayOpen(next.AddDate(0, 0, 1))
	}
	// At or past the close also rolls to the next day.
	if !next.Before(window.Close) {
		return s.nextTradingDayOpen(next.AddDate(0, 0, 1))
	}
	return next, nil
}

// nextTradingDayOpen walks forward from candidate to the first
// non-weekend, non-holiday date and returns its session open.
func (s *Scheduler) nextTradingDayOpen(candidate time.Time) (time.Time, error) {
	for i := 0; i < maxDayScan; i++ {
		if isWeekend(candidate) {
			candidate = candidate.AddDate(0, 0, 1)
			continue
		}
		window, err := s.window(candidate)
		if err != nil {
			return time.Time{}, err
		}
		if window.IsHoliday {
			candidate = candidate.AddDate(0, 0, 1)
			continue
		}
		return window.Open, nil
	}
	return time.Time{}, core.WrapError(core.ErrMissingTradingWindow,
		fmt.Errorf("no trading day within %d days of %s", maxDayScan, candidate.Format("2006-01-02")))
}

func (s *Scheduler) window(date time.Time) (Window, error) {
	window, err := s.cal.TradingWindow(date, s.exchange, s.segment)
	if err != nil {
		return Window{}, core.WrapError(core.ErrMissingTradingWindow, err)
	}
	return window, nil
}
