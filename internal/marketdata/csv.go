package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/quantrail/quantrail/internal/core"
)

// CSVSource reads candle files named <key>_<timeframe>.csv from a
// directory. Rows are: timestamp (RFC3339), open, high, low, close,
// volume, and an optional open-interest column.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Fetch implements Source. A missing file means no data for the
// instrument, which is reported as a data-source failure; an existing
// file with no rows in range yields an empty slice.
func (s *CSVSource) Fetch(ctx context.Context, instrument core.Instrument, start, end time.Time, tf core.Timeframe) ([]core.Candle, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", instrument.Key, tf))
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrDataSource, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var out []core.Candle
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrDataSource, fmt.Errorf("%s: %w", path, err))
		}
		line++
		if line == 1 && record[0] == "timestamp" {
			continue // header row
		}

		candle, err := parseRow(record)
		if err != nil {
			return nil, core.WrapError(core.ErrDataSource, fmt.Errorf("%s line %d: %w", path, line, err))
		}
		if candle.Timestamp.Before(start) || candle.Timestamp.After(end) {
			continue
		}
		out = append(out, candle)
	}
	return out, nil
}

func parseRow(record []string) (core.Candle, error) {
	if len(record) < 6 {
		return core.Candle{}, fmt.Errorf("expected at least 6 columns, got %d", len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return core.Candle{}, fmt.Errorf("timestamp: %w", err)
	}

	prices := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return core.Candle{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		prices[i] = v
	}

	volume, err := strconv.ParseInt(record[5], 10, 64)
	if err != nil {
		return core.Candle{}, fmt.Errorf("volume: %w", err)
	}

	candle := core.Candle{
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}
	if len(record) > 6 && record[6] != "" {
		oi, err := strconv.ParseInt(record[6], 10, 64)
		if err != nil {
			return core.Candle{}, fmt.Errorf("open interest: %w", err)
		}
		candle.OpenInterest = oi
	}
	return candle, nil
}
