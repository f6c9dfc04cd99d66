// Package results persists the outcome of a run: node outputs, faults,
// order intents and the master timeline as parquet files, plus a YAML
// summary.
package results

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/node"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// File names written into a run folder.
const (
	OutputsFile  = "outputs.parquet"
	FaultsFile   = "faults.parquet"
	IntentsFile  = "intents.parquet"
	TimelineFile = "timeline.parquet"
	SummaryFile  = "summary.yaml"
)

// Summary is the YAML digest of a run.
type Summary struct {
	RunID    string                   `yaml:"run_id"`
	Mode     engine.Mode              `yaml:"mode"`
	Ticks    int                      `yaml:"ticks"`
	Counters map[string]node.Counters `yaml:"counters"`
	Faults   int                      `yaml:"faults"`
	Intents  int                      `yaml:"intents"`
	Rejected int                      `yaml:"rejected"`
	// Params holds the sweep parameters of the run, if any.
	Params map[string]any `yaml:"params,omitempty"`
}

// Writer stages a result in an in-memory DuckDB database and exports it.
type Writer struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewWriter opens the staging database.
func NewWriter(log *logger.Logger) (*Writer, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to connect to database", err)
	}

	w := &Writer{
		db:  db,
		log: log.Named("results"),
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := w.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return w, nil
}

// Write exports result into folder, creating it if needed. params may be nil.
func (w *Writer) Write(folder string, result *engine.Result, params map[string]any) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to create %s", folder)
	}

	if err := w.reset(); err != nil {
		return err
	}

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to begin transaction", err)
	}

	if err := w.stage(tx, result); err != nil {
		tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to commit results", err)
	}

	files := map[string]string{
		"outputs":  OutputsFile,
		"faults":   FaultsFile,
		"intents":  IntentsFile,
		"timeline": TimelineFile,
	}

	for table, file := range files {
		path := filepath.Join(folder, file)

		// squirrel has no COPY support
		if _, err := w.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, escape(path))); err != nil {
			return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to export %s", table)
		}
	}

	summary := Summary{
		RunID:    result.RunID,
		Mode:     result.Mode,
		Ticks:    len(result.Timeline),
		Counters: result.Counters,
		Faults:   len(result.Faults),
		Intents:  len(result.Intents),
		Rejected: result.Rejected,
		Params:   params,
	}

	raw, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to encode summary", err)
	}

	if err := os.WriteFile(filepath.Join(folder, SummaryFile), raw, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to write summary", err)
	}

	w.log.Info("Results written",
		zap.String("run_id", result.RunID),
		zap.String("folder", folder),
	)

	return nil
}

func (w *Writer) stage(tx *sql.Tx, result *engine.Result) error {
	nodes := make([]string, 0, len(result.Outputs))
	for name := range result.Outputs {
		nodes = append(nodes, name)
	}

	slices.Sort(nodes)

	for _, name := range nodes {
		outputs := make([]string, 0, len(result.Outputs[name]))
		for output := range result.Outputs[name] {
			outputs = append(outputs, output)
		}

		slices.Sort(outputs)

		for _, output := range outputs {
			for bar, v := range result.Outputs[name][output] {
				var value sql.NullFloat64
				if !math.IsNaN(v) {
					value = sql.NullFloat64{Float64: v, Valid: true}
				}

				_, err := w.sq.Insert("outputs").
					Columns("node", "output", "bar", "value").
					Values(name, output, bar, value).
					RunWith(tx).
					Exec()
				if err != nil {
					return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to insert %s.%s", name, output)
				}
			}
		}
	}

	for _, f := range result.Faults {
		_, err := w.sq.Insert("faults").
			Columns("node", "tick", "bar", "time", "phase", "error").
			Values(f.Node, f.Tick, f.Bar, f.Time, f.Phase.String(), f.Err).
			RunWith(tx).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to insert fault", err)
		}
	}

	for _, in := range result.Intents {
		_, err := w.sq.Insert("intents").
			Columns("id", "strategy", "symbol", "side", "type", "size", "price", "time", "bar", "reason").
			Values(in.ID, in.Strategy, in.Symbol, string(in.Side), string(in.Type),
				in.Size.String(), in.Price.String(), in.Time, in.Bar, in.Reason).
			RunWith(tx).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to insert intent", err)
		}
	}

	for _, tick := range result.Timeline {
		_, err := w.sq.Insert("timeline").
			Columns("tick", "time", "feeds").
			Values(tick.Index, tick.Time, strings.Join(tick.Feeds, ",")).
			RunWith(tx).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to insert tick", err)
		}
	}

	return nil
}

// Close closes the staging database.
func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}

	return w.db.Close()
}

func (w *Writer) reset() error {
	if _, err := w.db.Exec(`
		DROP TABLE IF EXISTS outputs;
		DROP TABLE IF EXISTS faults;
		DROP TABLE IF EXISTS intents;
		DROP TABLE IF EXISTS timeline;
	`); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to reset tables", err)
	}

	return w.initialize()
}

func (w *Writer) initialize() error {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS outputs (
			node TEXT,
			output TEXT,
			bar INTEGER,
			value DOUBLE
		);
		CREATE TABLE IF NOT EXISTS faults (
			node TEXT,
			tick INTEGER,
			bar INTEGER,
			time TIMESTAMPTZ,
			phase TEXT,
			error TEXT
		);
		CREATE TABLE IF NOT EXISTS intents (
			id TEXT PRIMARY KEY,
			strategy TEXT,
			symbol TEXT,
			side TEXT,
			type TEXT,
			size TEXT,
			price TEXT,
			time TIMESTAMPTZ,
			bar INTEGER,
			reason TEXT
		);
		CREATE TABLE IF NOT EXISTS timeline (
			tick INTEGER PRIMARY KEY,
			time TIMESTAMPTZ,
			feeds TEXT
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create tables", err)
	}

	return nil
}

func escape(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
