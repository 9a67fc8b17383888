// Package archive stores finished backtest reports in cold storage so
// runs can be compared later without re-simulating.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Storage is a cold-storage backend for archived payloads.
type Storage interface {
	// Write stores data at the given path.
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}

// ReportArchive writes report snapshots to a Storage backend under
// reports/<strategy>/<run timestamp>.json.
type ReportArchive struct {
	storage Storage
}

// NewReportArchive wraps a storage backend.
func NewReportArchive(storage Storage) *ReportArchive {
	return &ReportArchive{storage: storage}
}

// Store serializes the snapshot and archives it. It returns the path
// the report was stored at.
func (a *ReportArchive) Store(ctx context.Context, strategyName string, runAt time.Time, snapshot any) (string, error) {
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing report: %w", err)
	}
	path := fmt.Sprintf("reports/%s/%s.json", strategyName, runAt.UTC().Format("20060102T150405Z"))
	if err := a.storage.Write(ctx, path, payload); err != nil {
		return "", fmt.Errorf("archiving report: %w", err)
	}
	return path, nil
}

// List returns the archived report paths for a strategy.
func (a *ReportArchive) List(ctx context.Context, strategyName string) ([]string, error) {
	return a.storage.List(ctx, "reports/"+strategyName)
}
