package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

func candlesWithCloses(closes ...float64) []core.Candle {
	out := make([]core.Candle, len(closes))
	base := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = core.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c - 1,
			High:      c + 1,
			Low:       c - 2,
			Close:     c,
			Volume:    100,
		}
	}
	return out
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("supertrend")
	if !errors.Is(err, core.ErrUnknownIndicator) {
		t.Fatalf("expected ErrUnknownIndicator, got %v", err)
	}
}

func TestRegistry_Get_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("SMA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSMA(t *testing.T) {
	window := candlesWithCloses(10, 20, 30)
	got := SMA(window, Params{Period: 3, Field: "close"})
	if got != 20 {
		t.Errorf("expected 20, got %v", got)
	}
}

func TestSMA_InsufficientWindow(t *testing.T) {
	window := candlesWithCloses(10, 20)
	got := SMA(window, Params{Period: 3, Field: "close"})
	if !math.IsNaN(got) {
		t.Errorf("expected NaN for short window, got %v", got)
	}
}

func TestPrice_LastBarField(t *testing.T) {
	window := candlesWithCloses(10, 20, 30)
	if got := Price(window, Params{Field: "close"}); got != 30 {
		t.Errorf("expected 30, got %v", got)
	}
	if got := Price(window, Params{Field: "open"}); got != 29 {
		t.Errorf("expected 29, got %v", got)
	}
	if got := Price(nil, Params{Field: "close"}); !math.IsNaN(got) {
		t.Errorf("expected NaN for empty window, got %v", got)
	}
}

func TestConstant(t *testing.T) {
	if got := Constant(nil, Params{Value: 50}); got != 50 {
		t.Errorf("expected 50, got %v", got)
	}
}

func TestRSI_NeedsPeriodPlusOne(t *testing.T) {
	window := candlesWithCloses(1, 2, 3, 4, 5)
	if got := RSI(window, Params{Period: 5, Field: "close"}); !math.IsNaN(got) {
		t.Errorf("expected NaN, got %v", got)
	}
	window = candlesWithCloses(1, 2, 3, 4, 5, 6)
	got := RSI(window, Params{Period: 5, Field: "close"})
	if math.IsNaN(got) {
		t.Error("expected defined RSI with period+1 bars")
	}
	// Strictly rising closes drive RSI to 100.
	if got != 100 {
		t.Errorf("expected 100 for monotone gains, got %v", got)
	}
}

func TestParseParams_Defaults(t *testing.T) {
	p, err := ParseParams(map[string]any{"period": 14})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Period != 14 {
		t.Errorf("expected period 14, got %d", p.Period)
	}
	if p.Field != "close" {
		t.Errorf("expected default field close, got %q", p.Field)
	}
}

func TestParseParams_Nil(t *testing.T) {
	p, err := ParseParams(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Field != "close" || p.Period != 0 {
		t.Errorf("unexpected defaults: %+v", p)
	}
}
