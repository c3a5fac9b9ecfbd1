package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/sijms/go-ora/v2/network"

	"github.com/likearthian/ormstore/metamodel"
)

type oracleDialect struct{}

// CreateOracleRepository is CreateSQLRepository with the Oracle dialect.
func CreateOracleRepository[K comparable, T any](db *sqlx.DB, options ...RepositoryOption) (Repository[K, T], error) {
	return CreateSQLRepository[K, T](db, Oracle, options...)
}

func (oracleDialect) Name() string { return "oracle" }

func (oracleDialect) BindType() int { return sqlx.NAMED }

func (oracleDialect) TableName(t *metamodel.Table) string {
	return qualifiedName(t)
}

func (oracleDialect) ColumnType(c *metamodel.Column) (string, error) {
	if c.SQLType != "" {
		return c.SQLType, nil
	}

	switch classifyType(c.TypeName) {
	case stringClass:
		size := c.Length
		if size <= 0 {
			size = 255
		}
		return fmt.Sprintf("VARCHAR2(%d)", size), nil
	case intClass:
		return "NUMBER(10)", nil
	case longClass:
		return "NUMBER(19)", nil
	case floatClass:
		return "BINARY_FLOAT", nil
	case doubleClass:
		return "BINARY_DOUBLE", nil
	case decimalClass:
		if c.Precision > 0 {
			return fmt.Sprintf("NUMBER(%d,%d)", c.Precision, c.Scale), nil
		}
		return "NUMBER", nil
	case boolClass:
		return "NUMBER(1)", nil
	case binaryClass:
		return "BLOB", nil
	case timestampClass, timeClass:
		return "TIMESTAMP", nil
	case dateClass:
		return "DATE", nil
	}

	return "", unknownTypeError(c)
}

func (oracleDialect) IdentityClause(*metamodel.Column) (string, bool) {
	return "GENERATED BY DEFAULT AS IDENTITY", false
}

func (oracleDialect) LimitOffset(limit int, offset int64) string {
	qry := strings.Builder{}
	if offset > 0 {
		qry.WriteString(fmt.Sprintf(" OFFSET %d ROWS", offset))
	}

	if limit > 0 {
		qry.WriteString(fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit))
	}

	return qry.String()
}

func (oracleDialect) InsertPrefix(t *metamodel.Table, ignoreDuplicate bool) string {
	if ignoreDuplicate && t.PrimaryKey != nil && t.PrimaryKey.Name != "" {
		return fmt.Sprintf("INSERT /*+ IGNORE_ROW_ON_DUPKEY_INDEX(%s, %s) */", t.Name, t.PrimaryKey.Name)
	}

	return "INSERT"
}

func (oracleDialect) InsertSuffix(*metamodel.Table, bool) string {
	return ""
}

// UpsertQuery is empty, upserts delete the old row and insert the new one in
// a single transaction.
func (oracleDialect) UpsertQuery(string, []string, []string) string {
	return ""
}

func (oracleDialect) Returning(column string) (string, bool) {
	return fmt.Sprintf(" RETURNING %s INTO ?", column), true
}

// MultiRowInsert is false, batches are sent with array binding instead.
func (oracleDialect) MultiRowInsert() bool { return false }

func (oracleDialect) WrapError(err error) error {
	return wrapOracleError(err)
}

func (oracleDialect) TableColumns(ctx context.Context, db sqlx.QueryerContext, t *metamodel.Table) ([]Column, error) {
	return oraGetColumns(ctx, db, t.Schema, t.Name)
}

func wrapOracleError(err error) error {
	if err == nil {
		return nil
	}

	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		switch oraErr.ErrCode {
		case 1:
			return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err.Error())
		case 2291, 2292:
			return fmt.Errorf("%w. %s", ErrForeignKeyViolation, err.Error())
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w. %s", ErrKeyNotFound, err.Error())
	}

	return err
}

func oraGetColumns(ctx context.Context, db sqlx.QueryerContext, schema, table string) ([]Column, error) {
	qry := `
		SELECT
			column_name "column_name"
			,CASE WHEN InStr(data_type, 'TIMESTAMP') > 0 THEN 'TIMESTAMP' ELSE data_type END "data_type"
			,CASE WHEN nullable = 'Y' THEN 1 ELSE 0 END "nullable"
		FROM all_tab_cols WHERE owner = NVL(?, SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA')) AND table_name = ?
		ORDER BY column_id`
	qry = sqlx.Rebind(sqlx.NAMED, qry)

	var owner any
	if schema != "" {
		owner = strings.ToUpper(schema)
	}

	var cols []Column
	if err := sqlx.SelectContext(ctx, db, &cols, qry, owner, strings.ToUpper(table)); err != nil {
		return nil, wrapOracleError(err)
	}

	return cols, nil
}

// oraMaxVarchar is the byte limit of a VARCHAR2 bind value.
const oraMaxVarchar = 4000

// makeOraValueSlice turns rows of values into one slice per column, the shape
// go-ora expects for array binding.
func makeOraValueSlice(classes []typeClass, rows [][]any) []any {
	argValues := make([]any, len(classes))
	for i, class := range classes {
		switch class {
		case stringClass:
			sl := make([]sql.NullString, len(rows))
			for ix, row := range rows {
				switch v := oraValue(row[i]).(type) {
				case nil:
				case string:
					sl[ix] = sql.NullString{Valid: true, String: truncateUTF8(v, oraMaxVarchar)}
				case time.Time:
					sl[ix] = sql.NullString{Valid: true, String: v.Format("2006-01-02 3:04:05.000000 PM")}
				default:
					sl[ix] = sql.NullString{Valid: true, String: truncateUTF8(fmt.Sprintf("%v", v), oraMaxVarchar)}
				}
			}
			argValues[i] = sl
		case timestampClass, dateClass, timeClass:
			sl := make([]sql.NullTime, len(rows))
			for ix, row := range rows {
				if v, ok := oraValue(row[i]).(time.Time); ok {
					sl[ix] = sql.NullTime{Valid: true, Time: v}
				}
			}
			argValues[i] = sl
		case intClass, longClass, boolClass:
			sl := make([]sql.NullInt64, len(rows))
			for ix, row := range rows {
				sl[ix] = oraInt(oraValue(row[i]))
			}
			argValues[i] = sl
		case floatClass, doubleClass, decimalClass:
			sl := make([]sql.NullFloat64, len(rows))
			for ix, row := range rows {
				sl[ix] = oraFloat(oraValue(row[i]))
			}
			argValues[i] = sl
		default:
			sl := make([]any, len(rows))
			for ix, row := range rows {
				sl[ix] = row[i]
			}
			argValues[i] = sl
		}
	}

	return argValues
}

// oraValue unwraps a driver.Valuer such as null.Int into its plain value.
func oraValue(v any) any {
	if vr, ok := v.(driver.Valuer); ok {
		if val, err := vr.Value(); err == nil {
			return val
		}
	}

	return v
}

func oraInt(v any) sql.NullInt64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sql.NullInt64{Valid: true, Int64: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return sql.NullInt64{Valid: true, Int64: int64(u)}
		}
	case reflect.Float32, reflect.Float64:
		return sql.NullInt64{Valid: true, Int64: int64(rv.Float())}
	case reflect.Bool:
		if rv.Bool() {
			return sql.NullInt64{Valid: true, Int64: 1}
		}
		return sql.NullInt64{Valid: true}
	}

	return sql.NullInt64{}
}

func oraFloat(v any) sql.NullFloat64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return sql.NullFloat64{Valid: true, Float64: float64(rv.Int())}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return sql.NullFloat64{Valid: true, Float64: float64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return sql.NullFloat64{Valid: true, Float64: rv.Float()}
	case reflect.Bool:
		if rv.Bool() {
			return sql.NullFloat64{Valid: true, Float64: 1}
		}
		return sql.NullFloat64{Valid: true}
	}

	return sql.NullFloat64{}
}

// truncateUTF8 cuts s to at most n bytes without splitting a character.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}
