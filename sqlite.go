package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v4"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/likearthian/ormstore/metamodel"
)

type sqliteDialect struct{}

// CreateSqliteRepository is CreateSQLRepository with the SQLite dialect.
func CreateSqliteRepository[K comparable, T any](db *sqlx.DB, options ...RepositoryOption) (Repository[K, T], error) {
	return CreateSQLRepository[K, T](db, SQLite, options...)
}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) BindType() int { return sqlx.QUESTION }

// TableName drops the schema, SQLite only knows attached databases.
func (sqliteDialect) TableName(t *metamodel.Table) string {
	return t.Name
}

func (sqliteDialect) ColumnType(c *metamodel.Column) (string, error) {
	if c.SQLType != "" {
		return c.SQLType, nil
	}

	switch classifyType(c.TypeName) {
	case stringClass, timeClass:
		return "TEXT", nil
	case intClass, longClass, boolClass:
		return "INTEGER", nil
	case floatClass, doubleClass, decimalClass:
		return "REAL", nil
	case binaryClass:
		return "BLOB", nil
	case timestampClass:
		return "TIMESTAMP", nil
	case dateClass:
		return "DATE", nil
	}

	return "", unknownTypeError(c)
}

// IdentityClause makes the column an alias of the rowid, which has to be
// declared inline.
func (sqliteDialect) IdentityClause(*metamodel.Column) (string, bool) {
	return "PRIMARY KEY AUTOINCREMENT", true
}

func (sqliteDialect) LimitOffset(limit int, offset int64) string {
	if limit <= 0 && offset > 0 {
		// OFFSET is only valid after a LIMIT
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}

	return CreateSqliteLimitOffsetSql(limit, offset)
}

func (sqliteDialect) InsertPrefix(_ *metamodel.Table, ignoreDuplicate bool) string {
	if ignoreDuplicate {
		return "INSERT OR IGNORE"
	}

	return "INSERT"
}

func (sqliteDialect) InsertSuffix(*metamodel.Table, bool) string {
	return ""
}

func (sqliteDialect) UpsertQuery(table string, columns, keyColumns []string) string {
	return onConflictUpsert(table, columns, keyColumns)
}

func (sqliteDialect) Returning(column string) (string, bool) {
	return " RETURNING " + column, false
}

func (sqliteDialect) MultiRowInsert() bool { return true }

func (sqliteDialect) WrapError(err error) error {
	return wrapSqliteError(err)
}

func (sqliteDialect) TableColumns(ctx context.Context, db sqlx.QueryerContext, t *metamodel.Table) ([]Column, error) {
	return sqliteGetColumns(ctx, db, t.Name)
}

func wrapSqliteError(err error) error {
	if err == nil {
		return nil
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w. %s", ErrForeignKeyViolation, err.Error())
		}
	}

	errMap := map[error]error{
		sql.ErrNoRows: ErrKeyNotFound,
	}

	for g, e := range errMap {
		if errors.Is(err, g) {
			err = fmt.Errorf("%w. %s", e, err.Error())
		}
	}

	return err
}

func sqliteGetColumns(ctx context.Context, db sqlx.QueryerContext, table string) ([]Column, error) {
	qry := fmt.Sprintf("PRAGMA table_info(%s)", table)

	type columnInfo struct {
		CID       int         `db:"cid"`
		Name      string      `db:"name"`
		Type      string      `db:"type"`
		NotNull   int         `db:"notnull"`
		DfltValue null.String `db:"dflt_value"`
		Pk        int         `db:"pk"`
	}

	var cols []columnInfo
	if err := sqlx.SelectContext(ctx, db, &cols, qry); err != nil {
		return nil, wrapSqliteError(err)
	}

	return Map(cols, func(col columnInfo) Column {
		return Column{
			ColumnName: col.Name,
			DataType:   strings.ToUpper(col.Type),
			Nullable:   col.NotNull == 0 && col.Pk == 0,
		}
	}), nil
}

func CreateSqliteLimitOffsetSql(limit int, offset int64) string {
	if limit < 0 {
		limit = 0
	}

	qry := strings.Builder{}

	if limit > 0 {
		qry.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	if offset > 0 {
		qry.WriteString(fmt.Sprintf(" OFFSET %d", offset))
	}

	return qry.String()
}

func sqliteRepositoryOf[K comparable, T any](repo Repository[K, T]) (*sqlRepository[K, T], error) {
	sq, ok := repo.(*sqlRepository[K, T])
	if !ok || sq.dialect.Name() != SQLite.Name() {
		return nil, fmt.Errorf("%w: repository is not a sqlite repository", ErrNotSupported)
	}

	return sq, nil
}

// LoadCsvIntoSQLite inserts every CSV record into the repository table. The
// fields must follow the table column order; with withHeader the first record
// is checked against the column names. Empty fields are stored as NULL.
func LoadCsvIntoSQLite[K comparable, T any](ctx context.Context, repo Repository[K, T], csvInput io.Reader, withHeader bool, Tx ...Transaction) error {
	sq, err := sqliteRepositoryOf(repo)
	if err != nil {
		return err
	}

	columns := sq.model.tableColumns
	colMap := make(map[string]int)
	for i, name := range columns {
		colMap[strings.ToLower(name)] = i
	}

	opt := &queryOption{}
	if len(Tx) > 0 {
		opt.Tx = Tx[0]
	}

	tx, err := sq.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	stmt, err := sq.createInsertStatement(ctx, tx)
	if err != nil {
		return wrapSqliteError(err)
	}
	defer stmt.Close()

	rd := csv.NewReader(csvInput)
	rd.FieldsPerRecord = len(columns)

	if withHeader {
		line, err := rd.Read()
		if err != nil {
			return err
		}

		for i, col := range line {
			name := strings.ToLower(strings.TrimSpace(col))
			ncol, ok := colMap[name]
			if !ok || i != ncol {
				return fmt.Errorf("%w: columns header doesn't match the table columns", ErrSchemaMismatch)
			}
		}
	}

	count := 0
	for {
		line, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		vals := make([]any, len(line))
		for i, val := range line {
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			vals[i] = val
		}

		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return wrapSqliteError(err)
		}
		count++
	}

	sq.logger.Debug().Str("table", sq.tableName).Int("rows", count).Msg("csv loaded")

	if opt.Tx == nil {
		return tx.Commit()
	}

	return nil
}

// SQLiteStreamInsert inserts the rows received on rows, each one holding a
// value per table column, until the channel is closed or ctx is done.
func SQLiteStreamInsert[K comparable, T any](ctx context.Context, repo Repository[K, T], rows <-chan []any, Tx ...Transaction) error {
	sq, err := sqliteRepositoryOf(repo)
	if err != nil {
		return err
	}

	opt := &queryOption{}
	if len(Tx) > 0 {
		opt.Tx = Tx[0]
	}

	tx, err := sq.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	stmt, err := sq.createInsertStatement(ctx, tx)
	if err != nil {
		return wrapSqliteError(err)
	}
	defer stmt.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case args, ok := <-rows:
			if !ok {
				if opt.Tx == nil {
					return tx.Commit()
				}
				return nil
			}

			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return wrapSqliteError(err)
			}
		}
	}
}
