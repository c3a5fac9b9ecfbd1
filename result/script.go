package result

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/xwb1989/sqlparser"
)

// Statement is one SQL statement with its bind arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Executor is what a script runs on: *sqlx.DB, *sqlx.Tx and *sqlx.Conn all
// qualify.
type Executor interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

type scriptCursor struct {
	exec       Executor
	statements []Statement
	next       int
}

// FromScript runs statements one at a time as outputs are requested.
// Statements that return rows produce a ResultSetOutput, the others an
// UpdateCountOutput.
func FromScript(exec Executor, statements ...Statement) Cursor {
	return &scriptCursor{exec: exec, statements: statements}
}

func (c *scriptCursor) Advance(ctx context.Context) (Output, error) {
	if c.next >= len(c.statements) {
		return nil, io.EOF
	}

	stmt := c.statements[c.next]
	c.next++

	if ReturnsRows(stmt.SQL) {
		rows, err := c.exec.QueryxContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		return readMapRows(rows)
	}

	res, err := c.exec.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	return NewUpdateCountOutput(n), nil
}

func (c *scriptCursor) Close() error {
	c.next = len(c.statements)
	return nil
}

func readMapRows(rows *sqlx.Rows) (*ResultSetOutput, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]any
	for rows.Next() {
		rec := make(map[string]any, len(columns))
		if err := rows.MapScan(rec); err != nil {
			return nil, err
		}

		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = rec[col]
		}

		data = append(data, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return NewResultSetOutput(columns, data), nil
}

var returningClause = regexp.MustCompile(`(?is)\breturning\b`)

// ReturnsRows guesses whether a statement produces a result set rather than an
// update count. A WITH query is judged by the statement after its common table
// expressions.
func ReturnsRows(query string) bool {
	query = sqlparser.StripLeadingComments(query)
	if strings.EqualFold(firstWord(query), "with") {
		main := mainStatement(query)
		if main == "" {
			return true
		}
		return ReturnsRows(main)
	}

	switch sqlparser.Preview(query) {
	case sqlparser.StmtSelect, sqlparser.StmtShow, sqlparser.StmtStream:
		return true
	case sqlparser.StmtInsert, sqlparser.StmtUpdate, sqlparser.StmtDelete, sqlparser.StmtReplace:
		return returningClause.MatchString(query)
	}

	first := strings.ToLower(firstWord(query))
	switch first {
	case "values", "pragma", "explain", "describe", "desc", "table":
		return true
	}

	return false
}

// mainStatement returns the text of a WITH query from its first top level
// SELECT, INSERT, UPDATE, DELETE, MERGE, VALUES or TABLE keyword.
func mainStatement(query string) string {
	depth := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"':
			i = closingQuote(query, i+1, c) - 1
		case c == '(':
			depth++
		case c == ')':
			depth--
		case depth == 0 && isWordStart(c) && (i == 0 || !isWordByte(query[i-1])):
			word := nextWords(query[i:], 1)[0]
			switch word {
			case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE", "VALUES", "TABLE":
				return query[i:]
			}
			i += len(word) - 1
		}
	}

	return ""
}

func firstWord(query string) string {
	query = strings.TrimLeft(query, " \t\r\n(")
	if i := strings.IndexAny(query, " \t\r\n("); i >= 0 {
		return query[:i]
	}

	return query
}
