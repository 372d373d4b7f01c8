package stats

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"surfparcel/internal/errors"
)

// Table is a column-named string table.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of column name.
func (t *Table) Column(name string) ([]string, error) {
	i := t.Index(name)
	if i < 0 {
		return nil, errors.Errorf("no column %q", name)
	}
	res := make([]string, len(t.Rows))
	for j, row := range t.Rows {
		res[j] = row[i]
	}
	return res, nil
}

// Floats returns column name parsed as numbers.
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	res := make([]float64, len(col))
	for i, v := range col {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "column %s row %d", name, i)
		}
		res[i] = f
	}
	return res, nil
}

// WriteCSV writes the header and all rows to w.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteCSVFile writes t to path, replacing any existing file.
func WriteCSVFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "csv")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "csv")
	}
	if err := t.WriteCSV(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(f.Close(), "writing %s", path)
}

// Summary describes one numeric column.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Median float64
	Max    float64
}

// Describe summarises every column whose values are all numeric. Std is the
// sample standard deviation and is NaN for a single row.
func (t *Table) Describe() []Summary {
	var res []Summary
	if len(t.Rows) == 0 {
		return res
	}
	for _, name := range t.Columns {
		values, err := t.Floats(name)
		if err != nil {
			continue
		}
		mean, std := stat.MeanStdDev(values, nil)
		if len(values) < 2 {
			std = math.NaN()
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		res = append(res, Summary{
			Column: name,
			Count:  len(values),
			Mean:   mean,
			Std:    std,
			Min:    floats.Min(values),
			Median: median(sorted),
			Max:    floats.Max(values),
		})
	}
	return res
}

// stat.Quantile with stat.Empirical returns the lower middle value for even
// n, not the midpoint.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
