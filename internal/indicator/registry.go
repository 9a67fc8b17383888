// Package indicator exposes named indicator functions to the rule
// evaluator through an explicit registry.
package indicator

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	talib "github.com/markcheno/go-talib"

	"github.com/quantrail/quantrail/internal/core"
)

// Params is the parameter bag attached to a rule expression.
type Params struct {
	Period int     `mapstructure:"period" json:"period,omitempty"`
	Field  string  `mapstructure:"field" json:"field,omitempty"`
	Value  float64 `mapstructure:"value" json:"value,omitempty"`
}

// ParseParams decodes a raw parameter map. Field defaults to "close".
func ParseParams(raw map[string]any) (Params, error) {
	var p Params
	if raw != nil {
		if err := mapstructure.Decode(raw, &p); err != nil {
			return Params{}, core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	if p.Field == "" {
		p.Field = "close"
	}
	return p, nil
}

// Func computes a single indicator value over a candle window ending at
// the decision bar. Implementations return NaN when the window is too
// short for the requested period; comparisons against NaN are never
// satisfied.
type Func func(window []core.Candle, p Params) float64

// Registry maps indicator names to functions. It is constructed once at
// startup and passed by reference to the rule evaluator.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates a registry with the built-in indicators registered.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.Register("constant", Constant)
	r.Register("price", Price)
	r.Register("sma", SMA)
	r.Register("ema", EMA)
	r.Register("wma", WMA)
	r.Register("rsi", RSI)
	return r
}

// Register adds or replaces a named indicator. Names are case-insensitive.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[strings.ToLower(name)] = fn
}

// Get looks up an indicator by name. Unknown names are a configuration
// error.
func (r *Registry) Get(name string) (Func, error) {
	fn, ok := r.funcs[strings.ToLower(name)]
	if !ok {
		return nil, core.WrapError(core.ErrUnknownIndicator, fmt.Errorf("indicator %q", name))
	}
	return fn, nil
}

// Constant returns the literal value from the parameter bag.
func Constant(_ []core.Candle, p Params) float64 {
	return p.Value
}

// Price returns the requested price field of the latest bar.
func Price(window []core.Candle, p Params) float64 {
	if len(window) == 0 {
		return math.NaN()
	}
	return fieldOf(window[len(window)-1], p.Field)
}

// SMA returns the simple moving average of the requested field.
func SMA(window []core.Candle, p Params) float64 {
	series := fieldSeries(window, p.Field)
	if p.Period <= 0 || len(series) < p.Period {
		return math.NaN()
	}
	out := talib.Sma(series, p.Period)
	return out[len(out)-1]
}

// EMA returns the exponential moving average of the requested field.
func EMA(window []core.Candle, p Params) float64 {
	series := fieldSeries(window, p.Field)
	if p.Period <= 0 || len(series) < p.Period {
		return math.NaN()
	}
	out := talib.Ema(series, p.Period)
	return out[len(out)-1]
}

// WMA returns the linearly weighted moving average of the requested field.
func WMA(window []core.Candle, p Params) float64 {
	series := fieldSeries(window, p.Field)
	if p.Period <= 0 || len(series) < p.Period {
		return math.NaN()
	}
	out := talib.Wma(series, p.Period)
	return out[len(out)-1]
}

// RSI returns the relative strength index of the requested field. RSI
// needs one bar more than its period before the first value is defined.
func RSI(window []core.Candle, p Params) float64 {
	series := fieldSeries(window, p.Field)
	if p.Period <= 0 || len(series) < p.Period+1 {
		return math.NaN()
	}
	out := talib.Rsi(series, p.Period)
	return out[len(out)-1]
}

func fieldSeries(window []core.Candle, field string) []float64 {
	series := make([]float64, len(window))
	for i, c := range window {
		series[i] = fieldOf(c, field)
	}
	return series
}

func fieldOf(c core.Candle, field string) float64 {
	switch strings.ToLower(field) {
	case "open":
		return c.Open
	case "high":
		return c.High
	case "low":
		return c.Low
	case "", "close":
		return c.Close
	case "volume":
		return float64(c.Volume)
	}
	return math.NaN()
}
