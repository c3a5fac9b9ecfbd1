package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/likearthian/ormstore/metamodel"
)

// Dialect is what the repositories and the DDL generator need to know about
// a database.
type Dialect interface {
	Name() string
	// BindType is the sqlx bind type queries written with ? are rebound to.
	BindType() int
	TableName(t *metamodel.Table) string
	ColumnType(c *metamodel.Column) (string, error)
	// IdentityClause is appended to the type of a generated key column.
	// inlinePK reports that the clause already declares the primary key.
	IdentityClause(c *metamodel.Column) (clause string, inlinePK bool)
	LimitOffset(limit int, offset int64) string
	InsertPrefix(t *metamodel.Table, ignoreDuplicate bool) string
	InsertSuffix(t *metamodel.Table, ignoreDuplicate bool) string
	// UpsertQuery returns an insert-or-update statement, or an empty string
	// when the database has none.
	UpsertQuery(table string, columns, keyColumns []string) string
	// Returning returns the clause reading back a generated key. outParam
	// reports that the key is bound as an out parameter instead of returned
	// as a row.
	Returning(column string) (clause string, outParam bool)
	MultiRowInsert() bool
	WrapError(err error) error
	TableColumns(ctx context.Context, db sqlx.QueryerContext, t *metamodel.Table) ([]Column, error)
}

// Column describes a column as the database reports it.
type Column struct {
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
	Nullable   bool   `db:"nullable"`
}

var (
	Postgres Dialect = postgresDialect{}
	SQLite   Dialect = sqliteDialect{}
	Oracle   Dialect = oracleDialect{}
)

// sqlDrivers maps the accepted driver and database names to the
// database/sql driver opening them.
var sqlDrivers = map[string]string{
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pq":         "postgres",
	"pgx":        "pgx",
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"oracle":     "oracle",
	"ora":        "oracle",
	"go-ora":     "oracle",
}

// SQLDriver returns the registered database/sql driver for a driver or
// database name.
func SQLDriver(name string) (string, error) {
	driver, ok := sqlDrivers[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("%w: driver %q", ErrNotSupported, name)
	}

	return driver, nil
}

// DialectFor returns the dialect of a driver or database name.
func DialectFor(name string) (Dialect, error) {
	driver, err := SQLDriver(name)
	if err != nil {
		return nil, fmt.Errorf("%w: no dialect for %q", ErrNotSupported, name)
	}

	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}

	return Oracle, nil
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
	sqlx.BindDriver("oracle", sqlx.NAMED)
}

type typeClass int

const (
	unknownClass typeClass = iota
	stringClass
	intClass
	longClass
	floatClass
	doubleClass
	decimalClass
	boolClass
	binaryClass
	timestampClass
	dateClass
	timeClass
)

// classifyType sorts mapping type names, fully qualified or not, into the
// classes the dialects know a column type for.
func classifyType(name string) typeClass {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	switch name {
	case "string", "text", "character", "char", "clob", "materialized_clob":
		return stringClass
	case "integer", "int", "short", "byte":
		return intClass
	case "long", "biginteger", "big_integer":
		return longClass
	case "float":
		return floatClass
	case "double":
		return doubleClass
	case "big_decimal", "bigdecimal", "decimal", "numeric":
		return decimalClass
	case "boolean", "bool", "yes_no", "true_false":
		return boolClass
	case "binary", "blob", "bytes", "materialized_blob":
		return binaryClass
	case "timestamp", "datetime", "calendar", "instant":
		return timestampClass
	case "date", "calendar_date", "localdate":
		return dateClass
	case "time", "localtime":
		return timeClass
	}

	return unknownClass
}

func unknownTypeError(c *metamodel.Column) error {
	return fmt.Errorf("%w: unknown datatype %q for column %s", ErrInvalidModel, c.TypeName, c.Name)
}

func qualifiedName(t *metamodel.Table) string {
	if t.Schema == "" {
		return t.Name
	}

	return t.Schema + "." + t.Name
}
