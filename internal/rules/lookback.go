package rules

import (
	"math"
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

const (
	// candleBufferMultiplier oversizes the candle count so indicators
	// have warmed up well before the requested start date.
	candleBufferMultiplier = 5

	// calendarBuffer pads converted calendar days for weekends and
	// holidays.
	calendarBuffer = 1.5

	// tradableMinutesPerDay is the length of a regular session
	// (09:15-15:30).
	tradableMinutesPerDay = 375
)

// RequiredHistoryStart computes how far back history must be fetched so
// every indicator in the entry and exit rules has enough bars to be
// valid at asOf. When no expression carries a period, asOf is returned
// unchanged.
func RequiredHistoryStart(entry, exit *RuleSet, tf core.Timeframe, asOf time.Time) time.Time {
	maxPeriod := entry.MaxPeriod()
	if p := exit.MaxPeriod(); p > maxPeriod {
		maxPeriod = p
	}
	if maxPeriod == 0 {
		return asOf
	}

	candles := maxPeriod * candleBufferMultiplier

	var days int
	switch tf {
	case core.TimeframeDay:
		days = ceilInt(float64(candles) * calendarBuffer)
	case core.TimeframeWeek:
		days = ceilInt(float64(candles)*calendarBuffer) * 7
	default:
		candlesPerDay := float64(tradableMinutesPerDay) / float64(tf.Minutes())
		days = ceilInt(float64(candles) / candlesPerDay)
		// One extra day covers an asOf that falls mid-session.
		days = ceilInt(float64(days)*calendarBuffer) + 1
	}

	return asOf.AddDate(0, 0, -days)
}

func ceilInt(v float64) int {
	return int(math.Ceil(v))
}
