package result

import (
	"context"
	"database/sql"
	"io"
)

// rowsCursor walks the result sets of a single *sql.Rows.
type rowsCursor struct {
	rows    *sql.Rows
	started bool
	done    bool
}

// FromRows is a Cursor producing one ResultSetOutput per result set of rows.
// The cursor owns rows and closes it.
func FromRows(rows *sql.Rows) Cursor {
	return &rowsCursor{rows: rows}
}

func (c *rowsCursor) Advance(ctx context.Context) (Output, error) {
	if c.done {
		return nil, io.EOF
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.started && !c.rows.NextResultSet() {
		c.done = true
		if err := c.rows.Err(); err != nil {
			return nil, err
		}

		return nil, io.EOF
	}

	c.started = true

	return ReadResultSet(c.rows)
}

func (c *rowsCursor) Close() error {
	c.done = true
	return c.rows.Close()
}

// ReadResultSet reads the current result set of rows to the end. It does not
// move to the next result set nor close rows.
func ReadResultSet(rows *sql.Rows) (*ResultSetOutput, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			// drivers may reuse byte buffers between rows
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}

		data = append(data, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return NewResultSetOutput(columns, data), nil
}
