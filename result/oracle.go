package result

import (
	"context"
	"database/sql"
	"errors"
	"io"

	goOra "github.com/sijms/go-ora/v2"
)

type oracleCursor struct {
	db      *sql.DB
	cursors []*goOra.RefCursor
	next    int
}

// CallOracle executes a PL/SQL block whose first refCursors bind positions are
// REF CURSOR out parameters, e.g.
//
//	BEGIN shop.orders_by_customer(:1, :2, :3); END;
//
// with refCursors 2 and args holding the customer id. Each cursor becomes one
// ResultSetOutput, read when requested.
func CallOracle(ctx context.Context, db *sql.DB, stmt string, refCursors int, args ...any) (Cursor, error) {
	c := &oracleCursor{db: db}

	params := make([]any, 0, refCursors+len(args))
	for i := 0; i < refCursors; i++ {
		var cursor goOra.RefCursor
		c.cursors = append(c.cursors, &cursor)
		params = append(params, goOra.Out{Dest: &cursor})
	}

	params = append(params, args...)

	if _, err := db.ExecContext(ctx, stmt, params...); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *oracleCursor) Advance(ctx context.Context) (Output, error) {
	if c.next >= len(c.cursors) {
		return nil, io.EOF
	}

	cursor := c.cursors[c.next]
	c.next++

	rows, err := goOra.WrapRefCursor(ctx, c.db, cursor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ReadResultSet(rows)
}

func (c *oracleCursor) Close() error {
	var errs []error
	for _, cursor := range c.cursors {
		if err := cursor.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	c.cursors = nil
	c.next = 0

	return errors.Join(errs...)
}
