package feed

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-engine/internal/logger"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBOptions selects the rows a DuckDBFeed serves.
type DuckDBOptions struct {
	// Symbol filters rows by the symbol column when set.
	Symbol optional.Option[string]
	// Start and End bound the time column, inclusive.
	Start optional.Option[time.Time]
	End   optional.Option[time.Time]
	// Fields lists extra numeric columns copied into Bar.Fields.
	Fields []string
}

// DuckDBFeed streams bars out of a parquet or CSV file through an
// in-process DuckDB database. Rows are read lazily, ordered by time.
type DuckDBFeed struct {
	name    string
	path    string
	db      *sql.DB
	rows    *sql.Rows
	fields  []string
	pending optional.Option[types.Bar]
	err     error
	logger  *logger.Logger
	sq      squirrel.StatementBuilderType
}

// NewDuckDBFeed opens path and prepares the query. The file format is
// chosen from the extension: .csv is read with read_csv_auto, anything else
// as parquet.
func NewDuckDBFeed(name string, path string, opts DuckDBOptions, log *logger.Logger) (*DuckDBFeed, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFeedUnavailable, err, "feed %s", name)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedUnavailable, "failed to open duckdb", err)
	}

	f := &DuckDBFeed{
		name:    name,
		path:    path,
		db:      db,
		rows:    nil,
		fields:  opts.Fields,
		pending: optional.None[types.Bar](),
		err:     nil,
		logger:  log.Named("feed"),
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := f.open(opts); err != nil {
		db.Close()

		return nil, err
	}

	return f, nil
}

func (f *DuckDBFeed) open(opts DuckDBOptions) error {
	reader := "read_parquet"
	if strings.EqualFold(filepath.Ext(f.path), ".csv") {
		reader = "read_csv_auto"
	}

	// squirrel has no CREATE VIEW
	view := fmt.Sprintf(`CREATE VIEW market_data AS SELECT * FROM %s('%s');`, reader, strings.ReplaceAll(f.path, "'", "''"))
	if _, err := f.db.Exec(view); err != nil {
		return errors.Wrapf(errors.ErrCodeFeedUnavailable, err, "failed to read %s", f.path)
	}

	columns := []string{"time", "symbol", "open", "high", "low", "close", "volume"}
	for _, field := range f.fields {
		columns = append(columns, fmt.Sprintf("CAST(%q AS DOUBLE)", field))
	}

	query := f.sq.Select(columns...).From("market_data")

	if opts.Symbol.IsSome() {
		query = query.Where(squirrel.Eq{"symbol": opts.Symbol.Unwrap()})
	}

	if opts.Start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": opts.Start.Unwrap()})
	}

	if opts.End.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": opts.End.Unwrap()})
	}

	sqlQuery, args, err := query.OrderBy("time ASC").ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	f.logger.Debug("Opening DuckDB feed",
		zap.String("feed", f.name),
		zap.String("path", f.path),
		zap.String("query", sqlQuery),
	)

	rows, err := f.db.Query(sqlQuery, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to query market data", err)
	}

	f.rows = rows

	return nil
}

// Name implements Feed.
func (f *DuckDBFeed) Name() string {
	return f.name
}

// fill scans the next row into pending.
func (f *DuckDBFeed) fill() {
	if f.pending.IsSome() || f.err != nil || f.rows == nil {
		return
	}

	if !f.rows.Next() {
		if err := f.rows.Err(); err != nil {
			f.err = errors.Wrap(errors.ErrCodeQueryFailed, "error iterating rows", err)
		}

		f.rows.Close()
		f.rows = nil

		return
	}

	var (
		timestamp                      time.Time
		symbol                         string
		open, high, low, close, volume float64
	)

	extra := make([]sql.NullFloat64, len(f.fields))
	dest := []any{&timestamp, &symbol, &open, &high, &low, &close, &volume}

	for i := range extra {
		dest = append(dest, &extra[i])
	}

	if err := f.rows.Scan(dest...); err != nil {
		f.err = errors.Wrap(errors.ErrCodeMalformedBar, "failed to scan row", err)

		return
	}

	bar := types.Bar{
		Symbol: symbol,
		Time:   timestamp,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
		Fields: nil,
	}

	if len(f.fields) > 0 {
		bar.Fields = make(map[string]float64, len(f.fields))

		for i, field := range f.fields {
			v := math.NaN()
			if extra[i].Valid {
				v = extra[i].Float64
			}

			bar.Fields[field] = v
		}
	}

	f.pending = optional.Some(bar)
}

// HasNext implements Feed.
func (f *DuckDBFeed) HasNext() bool {
	f.fill()

	return f.pending.IsSome() || f.err != nil
}

// Advance implements Feed.
func (f *DuckDBFeed) Advance() (types.Bar, error) {
	f.fill()

	if f.err != nil {
		err := f.err
		f.err = nil

		return types.Bar{}, err
	}

	if f.pending.IsNone() {
		return types.Bar{}, errExhausted(f.name)
	}

	bar := f.pending.Unwrap()
	f.pending = optional.None[types.Bar]()

	return bar, nil
}

// Close implements Closer.
func (f *DuckDBFeed) Close() error {
	if f.rows != nil {
		f.rows.Close()
		f.rows = nil
	}

	return f.db.Close()
}
