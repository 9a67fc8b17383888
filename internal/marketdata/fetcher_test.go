package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrail/quantrail/internal/core"
)

// fakeSource serves from a memory repository and can fail a number of
// times before succeeding.
type fakeSource struct {
	repo      *MemoryRepository
	mu        sync.Mutex
	failures  int
	fetches   int
	lastSpans []segment
}

func (f *fakeSource) Fetch(ctx context.Context, instrument core.Instrument, start, end time.Time, tf core.Timeframe) ([]core.Candle, error) {
	f.mu.Lock()
	f.fetches++
	f.lastSpans = append(f.lastSpans, segment{start: start, end: end})
	shouldFail := f.failures > 0
	if shouldFail {
		f.failures--
	}
	f.mu.Unlock()

	if shouldFail {
		return nil, errors.New("transient failure")
	}
	return f.repo.GetHistoricalData(ctx, instrument, start, end, tf)
}

func TestSegmentedFetcher_MergesAndSorts(t *testing.T) {
	repo := NewMemoryRepository()
	start := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	repo.Load(nifty, core.TimeframeDay, dailyCandles(start, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100))

	src := &fakeSource{repo: repo}
	fetcher := NewSegmentedFetcher(src, FetcherOptions{SegmentDays: 2, MaxRetries: 0, Concurrency: 3}, nil)

	got, err := fetcher.GetHistoricalData(context.Background(), nifty, start, start.AddDate(0, 0, 9), core.TimeframeDay)
	require.NoError(t, err)
	require.Len(t, got, 10, "all candles must survive segmentation, deduped")
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Timestamp.After(got[i-1].Timestamp), "merged result must be strictly ascending")
	}
	assert.Greater(t, src.fetches, 1, "range must be split into segments")
}

func TestSegmentedFetcher_RetriesThenSucceeds(t *testing.T) {
	repo := NewMemoryRepository()
	start := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	repo.Load(nifty, core.TimeframeDay, dailyCandles(start, 10, 20))

	src := &fakeSource{repo: repo, failures: 2}
	fetcher := NewSegmentedFetcher(src, FetcherOptions{SegmentDays: 30, MaxRetries: 3, RetryBase: time.Millisecond, Concurrency: 1}, nil)

	got, err := fetcher.GetHistoricalData(context.Background(), nifty, start, start.AddDate(0, 0, 1), core.TimeframeDay)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSegmentedFetcher_ExhaustedRetries(t *testing.T) {
	src := &fakeSource{repo: NewMemoryRepository(), failures: 10}
	fetcher := NewSegmentedFetcher(src, FetcherOptions{SegmentDays: 30, MaxRetries: 2, RetryBase: time.Millisecond, Concurrency: 1}, nil)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := fetcher.GetHistoricalData(context.Background(), nifty, start, start.AddDate(0, 0, 1), core.TimeframeDay)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDataSource))
}

func TestSegmentedFetcher_InvertedRange(t *testing.T) {
	src := &fakeSource{repo: NewMemoryRepository()}
	fetcher := NewSegmentedFetcher(src, DefaultFetcherOptions(), nil)

	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err := fetcher.GetHistoricalData(context.Background(), nifty, start, start.AddDate(0, 0, -1), core.TimeframeDay)
	assert.True(t, errors.Is(err, core.ErrInvalidDateRange))
}

func TestSplitRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 250)
	segments := splitRange(start, end, 90)
	require.Len(t, segments, 3)
	assert.True(t, segments[0].start.Equal(start))
	assert.True(t, segments[2].end.Equal(end))
	for i := 1; i < len(segments); i++ {
		assert.True(t, segments[i].start.After(segments[i-1].end), "segments must not overlap")
	}
}
