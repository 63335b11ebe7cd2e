// Package store loads multi-sheet Excel workbooks into a single row
// collection, supports patch-merge updates that grow the column set on
// demand, and writes the collection back preserving per-sheet structure.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ErrSourceNotFound indicates the source workbook does not exist.
var ErrSourceNotFound = errors.New("source file not found")

// ErrSourcePermission indicates the source workbook could not be opened
// for reading or writing. Usually the file is open in another program.
var ErrSourcePermission = errors.New("permission denied")

// ErrRowOutOfRange indicates a patch referenced a nonexistent row.
var ErrRowOutOfRange = errors.New("row index out of range")

// SourceError wraps an I/O failure against the source workbook.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Field is one named value applied by a patch. Patches carry ordered
// fields so that newly discovered columns are appended deterministically.
type Field struct {
	Name  string
	Value string
}

// Row is a single workbook row tagged with its originating sheet.
// Fields is sparse: columns the row has no value for are simply absent
// and read as empty strings.
type Row struct {
	Sheet  string
	Fields map[string]string
}

// Field returns the row's value for the named column, or "" when the
// row carries no value for it.
func (r *Row) Field(name string) string {
	return r.Fields[name]
}

// Table is the unified row collection for one workbook. Rows keep their
// load order, sheets keep their discovery order, and the column set is
// the union across all sheets plus any columns added by patches.
type Table struct {
	mu      sync.Mutex
	rows    []*Row
	sheets  []string
	columns []string
	colSet  map[string]struct{}
}

// Load reads every sheet of the workbook at path into a single Table.
// The first row of each sheet is its header; missing cells are
// normalized to empty strings.
func Load(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, &SourceError{Path: path, Err: ErrSourceNotFound}
		case errors.Is(err, fs.ErrPermission):
			return nil, &SourceError{Path: path, Err: ErrSourcePermission}
		default:
			return nil, &SourceError{Path: path, Err: err}
		}
	}
	defer f.Close()

	t := &Table{colSet: make(map[string]struct{})}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, &SourceError{Path: path, Err: err}
		}
		t.sheets = append(t.sheets, sheet)
		if len(rows) == 0 {
			continue
		}

		header := rows[0]
		for _, col := range header {
			if col != "" {
				t.addColumn(col)
			}
		}

		for _, cells := range rows[1:] {
			row := &Row{Sheet: sheet, Fields: make(map[string]string, len(header))}
			for i, col := range header {
				if col == "" {
					continue
				}
				if i < len(cells) {
					row.Fields[col] = cells[i]
				} else {
					row.Fields[col] = ""
				}
			}
			t.rows = append(t.rows, row)
		}
	}

	return t, nil
}

// Len returns the number of rows across all sheets.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row at the given load-order index.
func (t *Table) Row(i int) *Row {
	return t.rows[i]
}

// Sheets returns sheet names in discovery order.
func (t *Table) Sheets() []string {
	out := make([]string, len(t.sheets))
	copy(out, t.sheets)
	return out
}

// Columns returns the current column union in output order.
func (t *Table) Columns() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumns reports whether every named column exists. Names are
// case-sensitive.
func (t *Table) HasColumns(names ...string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range names {
		if _, ok := t.colSet[name]; !ok {
			return false
		}
	}
	return true
}

// Patch merges the given fields into the row at index i. Columns not
// yet known to the table are appended to the column set, in field
// order, before any value is written; the patch applies fully or not
// at all. Safe for concurrent use.
func (t *Table) Patch(i int, fields ...Field) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}

	for _, f := range fields {
		t.addColumn(f.Name)
	}
	for _, f := range fields {
		t.rows[i].Fields[f.Name] = f.Value
	}
	return nil
}

// addColumn registers a column if unseen. Caller holds the lock except
// during Load, which is single-threaded.
func (t *Table) addColumn(name string) {
	if _, ok := t.colSet[name]; ok {
		return
	}
	t.colSet[name] = struct{}{}
	t.columns = append(t.columns, name)
}

// Save writes the table to path, one sheet per source sheet in
// discovery order, with the current column union as the header row and
// rows in their original per-sheet order. The destination is
// overwritten.
func (t *Table) Save(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	for si, sheet := range t.sheets {
		if si == 0 {
			// excelize seeds new workbooks with "Sheet1".
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return &SourceError{Path: path, Err: err}
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return &SourceError{Path: path, Err: err}
			}
		}

		header := make([]interface{}, len(t.columns))
		for i, col := range t.columns {
			header[i] = col
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return &SourceError{Path: path, Err: err}
		}

		rowNum := 2
		for _, row := range t.rows {
			if row.Sheet != sheet {
				continue
			}
			cells := make([]interface{}, len(t.columns))
			for i, col := range t.columns {
				cells[i] = row.Fields[col]
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return &SourceError{Path: path, Err: err}
			}
			if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
				return &SourceError{Path: path, Err: err}
			}
			rowNum++
		}
	}

	if err := f.SaveAs(path); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return &SourceError{Path: path, Err: ErrSourcePermission}
		}
		return &SourceError{Path: path, Err: err}
	}
	return nil
}
