package results

import (
	"database/sql"
	"math"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
)

// ReadOutput loads one node output back from a run folder. Missing values
// are returned as NaN.
func ReadOutput(folder, node, output string) ([]float64, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open database", err)
	}
	defer db.Close()

	path := filepath.Join(folder, OutputsFile)

	rows, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Select("value").
		From("read_parquet('" + escape(path) + "')").
		Where(squirrel.Eq{"node": node, "output": output}).
		OrderBy("bar ASC").
		RunWith(db).
		Query()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %s", path)
	}
	defer rows.Close()

	var values []float64

	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan value", err)
		}

		if v.Valid {
			values = append(values, v.Float64)
		} else {
			values = append(values, math.NaN())
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate values", err)
	}

	return values, nil
}

// CountRows returns the number of rows of a parquet file in a run folder.
func CountRows(folder, file string) (int, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open database", err)
	}
	defer db.Close()

	var count int

	err = squirrel.Select("COUNT(*)").
		From("read_parquet('" + escape(filepath.Join(folder, file)) + "')").
		RunWith(db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count %s", file)
	}

	return count, nil
}
