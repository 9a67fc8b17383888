package marketdata

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quantrail/quantrail/internal/core"
)

// FetcherOptions tunes the segmented fetcher.
type FetcherOptions struct {
	// SegmentDays is the maximum span of one fetch segment.
	SegmentDays int
	// MaxRetries is the number of retry attempts per segment.
	MaxRetries int
	// RetryBase is the first retry delay; it doubles per attempt.
	RetryBase time.Duration
	// Concurrency caps parallel segment fetches.
	Concurrency int
}

// DefaultFetcherOptions returns the defaults used by the CLI.
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		SegmentDays: 90,
		MaxRetries:  3,
		RetryBase:   500 * time.Millisecond,
		Concurrency: 4,
	}
}

// SegmentedFetcher implements Repository over a raw Source. It splits a
// date range into bounded segments, fetches them in parallel with
// per-segment retry, then merges and re-sorts by timestamp. The engine
// sees only the synchronous Repository contract.
type SegmentedFetcher struct {
	source Source
	opts   FetcherOptions
	logger *zap.Logger
}

// NewSegmentedFetcher creates a fetcher around source.
func NewSegmentedFetcher(source Source, opts FetcherOptions, logger *zap.Logger) *SegmentedFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SegmentDays <= 0 {
		opts.SegmentDays = DefaultFetcherOptions().SegmentDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultFetcherOptions().Concurrency
	}
	return &SegmentedFetcher{source: source, opts: opts, logger: logger}
}

type segment struct {
	start, end time.Time
}

// GetHistoricalData implements Repository.
func (f *SegmentedFetcher) GetHistoricalData(ctx context.Context, instrument core.Instrument, start, end time.Time, tf core.Timeframe) ([]core.Candle, error) {
	if end.Before(start) {
		return nil, core.WrapError(core.ErrInvalidDateRange, nil)
	}

	segments := splitRange(start, end, f.opts.SegmentDays)
	results := make([][]core.Candle, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			candles, err := f.fetchWithRetry(gctx, instrument, seg, tf)
			if err != nil {
				return err
			}
			results[i] = candles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []core.Candle
	for _, r := range results {
		merged = append(merged, r...)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return dedupe(merged), nil
}

func (f *SegmentedFetcher) fetchWithRetry(ctx context.Context, instrument core.Instrument, seg segment, tf core.Timeframe) ([]core.Candle, error) {
	delay := f.opts.RetryBase
	var lastErr error
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			f.logger.Warn("retrying segment fetch",
				zap.String("instrument", instrument.String()),
				zap.Time("start", seg.start),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		candles, err := f.source.Fetch(ctx, instrument, seg.start, seg.end, tf)
		if err == nil {
			return candles, nil
		}
		lastErr = err
	}
	return nil, core.WrapError(core.ErrDataSource, lastErr)
}

func splitRange(start, end time.Time, segmentDays int) []segment {
	var out []segment
	for cursor := start; !cursor.After(end); {
		segEnd := cursor.AddDate(0, 0, segmentDays)
		if segEnd.After(end) {
			segEnd = end
		}
		out = append(out, segment{start: cursor, end: segEnd})
		cursor = segEnd.Add(time.Nanosecond)
	}
	return out
}

// dedupe drops candles sharing a timestamp with their predecessor.
// Segment boundaries are inclusive on both sides, so the same bar can
// arrive twice.
func dedupe(candles []core.Candle) []core.Candle {
	if len(candles) < 2 {
		return candles
	}
	out := candles[:1]
	for _, c := range candles[1:] {
		if c.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, c)
	}
	return out
}
