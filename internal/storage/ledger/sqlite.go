package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/position"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledgers (
    strategy_name  TEXT NOT NULL,
    instrument_key TEXT NOT NULL,
    payload        TEXT NOT NULL,
    updated_at     TIMESTAMP NOT NULL,
    PRIMARY KEY (strategy_name, instrument_key)
);
`

// SQLiteRepository persists ledgers as JSON snapshots in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite opens (and migrates) a ledger database at path. Use
// ":memory:" for an ephemeral store.
func NewSQLite(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Get implements Repository.
func (r *SQLiteRepository) Get(ctx context.Context, strategyName string) ([]*position.TradableInstrument, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM ledgers WHERE strategy_name = ? ORDER BY updated_at, instrument_key`,
		strategyName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*position.TradableInstrument
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ledger position.TradableInstrument
		if err := json.Unmarshal([]byte(payload), &ledger); err != nil {
			return nil, err
		}
		out = append(out, &ledger)
	}
	return out, rows.Err()
}

// Save implements Repository with an upsert keyed on the instrument.
func (r *SQLiteRepository) Save(ctx context.Context, strategyName string, instrument *position.TradableInstrument) error {
	key, err := json.Marshal(instrument.Instrument)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(instrument)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO ledgers (strategy_name, instrument_key, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (strategy_name, instrument_key)
DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		strategyName, string(key), string(payload), time.Now().UTC())
	return err
}

// Delete implements Repository.
func (r *SQLiteRepository) Delete(ctx context.Context, strategyName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ledgers WHERE strategy_name = ?`, strategyName)
	return err
}
