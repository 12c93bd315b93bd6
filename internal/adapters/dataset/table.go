package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/eldercare-platform/eldercare/internal/domain/risk"
)

// SubjectColumn is always kept as a string, whatever it looks like.
const SubjectColumn = "subject_id"

// Table is an immutable, typed view of one CSV file. Cells are nil, float64 or string.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]any
}

// NewTable builds a table from already-typed cells. Each row must have one cell per column.
func NewTable(name string, columns []string, rows [][]any) *Table {
	return newTable(name, append([]string(nil), columns...), rows)
}

func newTable(name string, columns []string, rows [][]any) *Table {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	return &Table{name: name, columns: columns, index: idx, rows: rows}
}

// Name returns the dataset name (its file name).
func (t *Table) Name() string { return t.name }

// Columns returns a copy of the column names in file order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Has reports whether col exists.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Head returns the first n rows. Rows are shared, not copied.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return newTable(t.name, t.columns, t.rows[:n])
}

// Select projects the table onto cols. Unknown columns yield ErrMissingColumn.
func (t *Table) Select(cols ...string) (*Table, error) {
	pos := make([]int, len(cols))
	for i, c := range cols {
		j, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, c, t.name)
		}
		pos[i] = j
	}
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		out := make([]any, len(pos))
		for i, j := range pos {
			out[i] = row[j]
		}
		rows[r] = out
	}
	return newTable(t.name, append([]string(nil), cols...), rows), nil
}

// Available keeps only those of cols that exist, in the given order.
func (t *Table) Available(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Rename returns a table whose column from is called to.
func (t *Table) Rename(from, to string) *Table {
	cols := t.Columns()
	for i, c := range cols {
		if c == from {
			cols[i] = to
		}
	}
	return newTable(t.name, cols, t.rows)
}

// Where keeps rows whose col cell renders to value. Unknown columns yield an empty table.
func (t *Table) Where(col, value string) *Table {
	j, ok := t.index[col]
	if !ok {
		return newTable(t.name, t.columns, nil)
	}
	var rows [][]any
	for _, row := range t.rows {
		if row[j] != nil && render(row[j]) == value {
			rows = append(rows, row)
		}
	}
	return newTable(t.name, t.columns, rows)
}

// Distinct returns the non-null values of col in first-seen order.
func (t *Table) Distinct(col string) ([]string, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, col, t.name)
	}
	seen := make(map[string]struct{}, len(t.rows))
	var out []string
	for _, row := range t.rows {
		if row[j] == nil {
			continue
		}
		v := render(row[j])
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Records returns one map per row, keyed by column name.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for r, row := range t.rows {
		m := make(map[string]any, len(t.columns))
		for i, c := range t.columns {
			m[c] = row[i]
		}
		out[r] = m
	}
	return out
}

// Rows returns the raw cells. Callers must not modify them.
func (t *Table) Rows() [][]any { return t.rows }

// WriteCSV writes the header and all rows. Nulls become empty cells.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	rec := make([]string, len(t.columns))
	for _, row := range t.rows {
		for i, v := range row {
			rec[i] = render(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WellnessRecords converts rows to classifier input. Rows with a null id are skipped;
// a null or non-numeric index is passed through as missing.
func (t *Table) WellnessRecords(idCol, indexCol string) ([]risk.WellnessRecord, error) {
	ij, ok := t.index[idCol]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, idCol, t.name)
	}
	vj, ok := t.index[indexCol]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrMissingColumn, indexCol, t.name)
	}
	out := make([]risk.WellnessRecord, 0, len(t.rows))
	for _, row := range t.rows {
		if row[ij] == nil {
			continue
		}
		rec := risk.WellnessRecord{SubjectID: render(row[ij])}
		if v, ok := row[vj].(float64); ok {
			rec.Index = &v
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadCSV parses r into a typed table named name.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %s has no header", ErrMalformed, name)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]any
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
		}
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = parseCell(c, rec[i])
		}
		rows = append(rows, row)
	}
	return newTable(name, columns, rows), nil
}

var nullTokens = map[string]struct{}{
	"": {}, "NaN": {}, "nan": {}, "NA": {}, "N/A": {}, "null": {}, "NULL": {}, "None": {},
}

func parseCell(col, raw string) any {
	s := strings.TrimSpace(raw)
	if _, null := nullTokens[s]; null {
		return nil
	}
	if col == SubjectColumn {
		return s
	}
	// Non-finite literals such as "inf" stay strings so every number is JSON-encodable.
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
