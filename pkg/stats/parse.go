// Package stats reads the ASCII .stats files written by
// mris_anatomical_stats and mri_segstats and turns them into tables.
package stats

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"surfparcel/internal/errors"
)

// Measure is a "# Measure" header line: a global measurement such as the
// total cortical surface area.
type Measure struct {
	Structure   string
	Name        string
	Description string
	Value       float64
	Units       string
}

// File is a parsed .stats file.
type File struct {
	// Info holds the remaining "# key value" header lines (subjectname, hemi, ...).
	Info map[string]string

	Measures []Measure

	// Table holds the rows below "# ColHeaders".
	Table *Table
}

// ParseFile parses the stats file at path.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "stats")
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return res, nil
}

// Parse reads a stats file from r.
func Parse(r io.Reader) (*File, error) {
	res := &File{Info: make(map[string]string)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "#") {
			if res.Table == nil {
				return nil, errors.Errorf("line %d: data row before ColHeaders", lineNo)
			}
			fields := strings.Fields(line)
			if len(fields) != len(res.Table.Columns) {
				return nil, errors.Errorf("line %d: expected %d columns, got %d",
					lineNo, len(res.Table.Columns), len(fields))
			}
			res.Table.Rows = append(res.Table.Rows, fields)
			continue
		}

		key, rest, _ := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), " ")
		rest = strings.TrimSpace(rest)
		switch key {
		case "":
		case "Measure":
			m, err := parseMeasure(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			res.Measures = append(res.Measures, m)
		case "ColHeaders":
			res.Table = &Table{Columns: strings.Fields(rest)}
		case "TableCol":
			// per-column metadata, not needed for the tables
		default:
			if _, ok := res.Info[key]; !ok {
				res.Info[key] = rest
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if res.Table == nil {
		res.Table = &Table{}
	}
	return res, nil
}

func parseMeasure(s string) (Measure, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return Measure{}, errors.Errorf("malformed Measure %q", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	v, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Measure{}, errors.Wrapf(err, "measure %s", parts[1])
	}
	return Measure{
		Structure:   parts[0],
		Name:        parts[1],
		Description: parts[2],
		Value:       v,
		Units:       parts[4],
	}, nil
}

// MeasuresTable returns the Measure lines as a table.
func (f *File) MeasuresTable() *Table {
	t := &Table{Columns: []string{"Structure", "Measure", "Description", "Value", "Units"}}
	for _, m := range f.Measures {
		t.Rows = append(t.Rows, []string{
			m.Structure, m.Name, m.Description,
			strconv.FormatFloat(m.Value, 'f', -1, 64), m.Units,
		})
	}
	return t
}

// CorticalStats is the output of mris_anatomical_stats.
type CorticalStats struct {
	// StructuralMeasurements has one row per cortical region.
	StructuralMeasurements *Table

	// WholeBrainMeasurements has one row per Measure line.
	WholeBrainMeasurements *Table
}

// ReadCorticalStats parses a cortical parcellation stats file.
func ReadCorticalStats(path string) (*CorticalStats, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return &CorticalStats{
		StructuralMeasurements: f.Table,
		WholeBrainMeasurements: f.MeasuresTable(),
	}, nil
}

// SubCorticalStats is the output of mri_segstats.
type SubCorticalStats struct {
	// StructuralMeasurements has one row per segmentation label.
	StructuralMeasurements *Table
}

// ReadSubCorticalStats parses a segmentation stats file.
func ReadSubCorticalStats(path string) (*SubCorticalStats, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return &SubCorticalStats{StructuralMeasurements: f.Table}, nil
}
