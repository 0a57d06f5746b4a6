// Package harvest implements the acquisition components: category catalog,
// item page harvesting, seller reputation batches, and rating batches.
// Each harvester flattens its upstream JSON into one flat table and writes
// it under the session's data directory.
package harvest

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/icaro1518/ml-discounts/config"
	"github.com/icaro1518/ml-discounts/mlapi"
	"github.com/icaro1518/ml-discounts/table"
)

// Session bundles the collaborators shared by all harvesters: configuration,
// the API client, metrics, and a logger. Harvesters compose a session
// instead of extending a base type.
type Session struct {
	Cfg     *config.Config
	Client  *mlapi.Client
	Metrics *Metrics
	Log     *slog.Logger
}

// NewSession wires a session; a nil logger falls back to slog.Default.
func NewSession(cfg *config.Config, client *mlapi.Client, metrics *Metrics, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{Cfg: cfg, Client: client, Metrics: metrics, Log: log}
}

// save persists a table under the data directory as {prefix}_{key}.{ext}.
// Zero-row tables are never persisted. The filename convention matches the
// external compile step (concat all files sharing a prefix).
func (s *Session) save(t *table.Table, prefix, key, kind string) error {
	if t.Len() == 0 {
		s.Log.Debug("skipping empty table", slog.String("prefix", prefix), slog.String("key", key))
		return nil
	}

	var path string
	var err error
	if s.Cfg.OutputFormat == "jsonl" {
		path = filepath.Join(s.Cfg.DataDir, fmt.Sprintf("%s_%s.jsonl", prefix, key))
		err = t.WriteJSONL(path)
	} else {
		path = filepath.Join(s.Cfg.DataDir, fmt.Sprintf("%s_%s.csv", prefix, key))
		err = t.WriteCSV(path)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}

	s.Metrics.IncFile(kind)
	s.Metrics.AddRows(kind, t.Len())
	s.Log.Debug("wrote table",
		slog.String("file", path),
		slog.Int("rows", t.Len()),
	)
	return nil
}
