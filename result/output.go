package result

import (
	"errors"
	"fmt"
)

var (
	ErrNoRows       = errors.New("result set has no rows")
	ErrNotResultSet = errors.New("output is not a result set")
)

// Output is one result produced by a statement: a *ResultSetOutput or an
// *UpdateCountOutput.
type Output interface {
	IsResultSet() bool
}

// Record is a row keyed by column name.
type Record map[string]any

// ResultSetOutput is a fully read result set.
type ResultSetOutput struct {
	columns []string
	rows    [][]any
}

func NewResultSetOutput(columns []string, rows [][]any) *ResultSetOutput {
	return &ResultSetOutput{columns: columns, rows: rows}
}

func (r *ResultSetOutput) IsResultSet() bool {
	return true
}

func (r *ResultSetOutput) Columns() []string {
	return r.columns
}

// Rows returns the row values in column order.
func (r *ResultSetOutput) Rows() [][]any {
	return r.rows
}

func (r *ResultSetOutput) Len() int {
	return len(r.rows)
}

// Records returns every row as a Record. When a column name repeats, the
// last column wins.
func (r *ResultSetOutput) Records() []Record {
	records := make([]Record, len(r.rows))
	for i := range r.rows {
		records[i] = r.record(i)
	}

	return records
}

func (r *ResultSetOutput) record(i int) Record {
	rec := make(Record, len(r.columns))
	for j, col := range r.columns {
		rec[col] = r.rows[i][j]
	}

	return rec
}

// SingleResult returns the first row.
func (r *ResultSetOutput) SingleResult() (Record, error) {
	if len(r.rows) == 0 {
		return nil, ErrNoRows
	}

	return r.record(0), nil
}

// Decode copies the rows into dest, which is either a pointer to a slice
// (every row) or a pointer to a struct or map (the first row). Struct fields
// are matched on their db tag.
func (r *ResultSetOutput) Decode(dest any) error {
	if isSlicePtr(dest) {
		return Decode(r.Records(), dest)
	}

	rec, err := r.SingleResult()
	if err != nil {
		return err
	}

	return Decode(rec, dest)
}

func (r *ResultSetOutput) String() string {
	return fmt.Sprintf("result set (%d columns, %d rows)", len(r.columns), len(r.rows))
}

// UpdateCountOutput is the number of rows a statement changed.
type UpdateCountOutput struct {
	count int64
}

func NewUpdateCountOutput(count int64) *UpdateCountOutput {
	return &UpdateCountOutput{count: count}
}

func (u *UpdateCountOutput) IsResultSet() bool {
	return false
}

func (u *UpdateCountOutput) UpdateCount() int64 {
	return u.count
}

func (u *UpdateCountOutput) String() string {
	return fmt.Sprintf("update count %d", u.count)
}

// AsResultSet is a type assertion that reports a typed error.
func AsResultSet(out Output) (*ResultSetOutput, error) {
	rs, ok := out.(*ResultSetOutput)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotResultSet, out)
	}

	return rs, nil
}
