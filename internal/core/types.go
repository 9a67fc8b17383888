package core

import (
	"fmt"
	"time"
)

// Exchange identifies a trading venue.
type Exchange string

const (
	ExchangeNSE Exchange = "NSE"
	ExchangeBSE Exchange = "BSE"
	ExchangeMCX Exchange = "MCX"
)

// Segment identifies a market segment within an exchange.
type Segment string

const (
	SegmentEquity     Segment = "equity"
	SegmentDerivative Segment = "derivative"
	SegmentCommodity  Segment = "commodity"
)

// InstrumentType represents the kind of tradable contract.
type InstrumentType string

const (
	InstrumentFuture InstrumentType = "future"
	InstrumentOption InstrumentType = "option"
	InstrumentEquity InstrumentType = "equity"
	InstrumentIndex  InstrumentType = "index"
)

// Action is the direction of an order.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Opposite returns the closing side for an action.
func (a Action) Opposite() Action {
	if a == ActionBuy {
		return ActionSell
	}
	return ActionBuy
}

// IsValid reports whether the action is a known direction.
func (a Action) IsValid() bool {
	return a == ActionBuy || a == ActionSell
}

// TriggerType records why a signal was emitted.
type TriggerType string

const (
	TriggerEntryRule TriggerType = "entry_rule"
	TriggerExitRule  TriggerType = "exit_rule"
	TriggerStopLoss  TriggerType = "stop_loss"
)

// PositionAction says how a signal applies to the ledger. It is
// authoritative over the raw buy/sell action when executing.
type PositionAction string

const (
	PositionAdd  PositionAction = "add"
	PositionExit PositionAction = "exit"
)

// ExpirySeries selects which contract expiry an instrument refers to.
type ExpirySeries string

const (
	ExpiryCurrent ExpirySeries = "current"
	ExpiryNext    ExpirySeries = "next"
	ExpiryFar     ExpirySeries = "far"
)

// Timeframe is the candle interval a strategy trades on.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1m"
	Timeframe5Min  Timeframe = "5m"
	Timeframe15Min Timeframe = "15m"
	Timeframe30Min Timeframe = "30m"
	Timeframe60Min Timeframe = "60m"
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
)

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	switch tf {
	case Timeframe1Min, Timeframe5Min, Timeframe15Min, Timeframe30Min,
		Timeframe60Min, TimeframeDay, TimeframeWeek:
		return tf, nil
	}
	return "", WrapError(ErrConfigInvalid, fmt.Errorf("unknown timeframe %q", s))
}

// IsIntraday reports whether the timeframe is shorter than a day.
func (tf Timeframe) IsIntraday() bool {
	return tf != TimeframeDay && tf != TimeframeWeek
}

// Minutes returns the interval length in minutes, or 0 for day/week.
func (tf Timeframe) Minutes() int {
	switch tf {
	case Timeframe1Min:
		return 1
	case Timeframe5Min:
		return 5
	case Timeframe15Min:
		return 15
	case Timeframe30Min:
		return 30
	case Timeframe60Min:
		return 60
	}
	return 0
}

// Duration returns the interval length for intraday timeframes and
// zero for day/week.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Minutes()) * time.Minute
}

// Instrument is the immutable identity of a tradable contract.
// Equality is structural across all fields.
type Instrument struct {
	Exchange        Exchange       `json:"exchange"`
	Type            InstrumentType `json:"type"`
	Key             string         `json:"key"`
	ExpiryClass     string         `json:"expiry_class,omitempty"`
	Expiry          ExpirySeries   `json:"expiry,omitempty"`
	MoneynessOffset int            `json:"moneyness_offset,omitempty"`
}

// Equal reports structural equality with another instrument.
func (i Instrument) Equal(other Instrument) bool {
	return i == other
}

// String renders a short identifier for logging.
func (i Instrument) String() string {
	return fmt.Sprintf("%s:%s:%s", i.Exchange, i.Type, i.Key)
}

// PositionInstrument pairs an entry action with the instrument it is
// taken on.
type PositionInstrument struct {
	Action     Action     `json:"action"`
	Instrument Instrument `json:"instrument"`
}

// ClosingAction returns the side that closes a position opened with
// the configured entry action.
func (p PositionInstrument) ClosingAction() Action {
	return p.Action.Opposite()
}

// Candle is one price bar. Candles are produced by the data source and
// are read-only to the engine.
type Candle struct {
	Timestamp    time.Time          `json:"timestamp"`
	Open         float64            `json:"open"`
	High         float64            `json:"high"`
	Low          float64            `json:"low"`
	Close        float64            `json:"close"`
	Volume       int64              `json:"volume"`
	OpenInterest int64              `json:"open_interest,omitempty"`
	Indicators   map[string]float64 `json:"indicators,omitempty"`
}

// TradeSignal is an instruction for the executor, timestamped at the
// next tradable bar after the bar it was decided on.
type TradeSignal struct {
	Instrument     Instrument
	Action         Action
	Quantity       int
	Timestamp      time.Time
	Timeframe      Timeframe
	PositionAction PositionAction
	Trigger        TriggerType
}

// DateOf truncates a timestamp to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two timestamps fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
