package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/likearthian/ormstore/metamodel"
)

type postgresDialect struct{}

// CreatePostgresRepository is CreateSQLRepository with the Postgres dialect.
func CreatePostgresRepository[K comparable, T any](db *sqlx.DB, options ...RepositoryOption) (Repository[K, T], error) {
	return CreateSQLRepository[K, T](db, Postgres, options...)
}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) BindType() int { return sqlx.DOLLAR }

func (postgresDialect) TableName(t *metamodel.Table) string {
	return qualifiedName(t)
}

func (postgresDialect) ColumnType(c *metamodel.Column) (string, error) {
	if c.SQLType != "" {
		return c.SQLType, nil
	}

	switch classifyType(c.TypeName) {
	case stringClass:
		if c.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.Length), nil
		}
		return "TEXT", nil
	case intClass:
		return "INTEGER", nil
	case longClass:
		return "BIGINT", nil
	case floatClass:
		return "REAL", nil
	case doubleClass:
		return "DOUBLE PRECISION", nil
	case decimalClass:
		if c.Precision > 0 {
			return fmt.Sprintf("NUMERIC(%d,%d)", c.Precision, c.Scale), nil
		}
		return "NUMERIC", nil
	case boolClass:
		return "BOOLEAN", nil
	case binaryClass:
		return "BYTEA", nil
	case timestampClass:
		return "TIMESTAMP", nil
	case dateClass:
		return "DATE", nil
	case timeClass:
		return "TIME", nil
	}

	return "", unknownTypeError(c)
}

func (postgresDialect) IdentityClause(*metamodel.Column) (string, bool) {
	return "GENERATED BY DEFAULT AS IDENTITY", false
}

func (postgresDialect) LimitOffset(limit int, offset int64) string {
	return CreateSqliteLimitOffsetSql(limit, offset)
}

func (postgresDialect) InsertPrefix(*metamodel.Table, bool) string {
	return "INSERT"
}

func (postgresDialect) InsertSuffix(_ *metamodel.Table, ignoreDuplicate bool) string {
	if ignoreDuplicate {
		return " ON CONFLICT DO NOTHING"
	}

	return ""
}

func (postgresDialect) UpsertQuery(table string, columns, keyColumns []string) string {
	return onConflictUpsert(table, columns, keyColumns)
}

func (postgresDialect) Returning(column string) (string, bool) {
	return " RETURNING " + column, false
}

func (postgresDialect) MultiRowInsert() bool { return true }

func (postgresDialect) WrapError(err error) error {
	return wrapPostgresError(err)
}

func (postgresDialect) TableColumns(ctx context.Context, db sqlx.QueryerContext, t *metamodel.Table) ([]Column, error) {
	qry := `
		SELECT
			column_name AS column_name
			,upper(data_type) AS data_type
			,is_nullable = 'YES' AS nullable
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2
		ORDER BY ordinal_position`

	var cols []Column
	if err := sqlx.SelectContext(ctx, db, &cols, qry, strings.ToLower(t.Schema), strings.ToLower(t.Name)); err != nil {
		return nil, wrapPostgresError(err)
	}

	return cols, nil
}

// onConflictUpsert builds the INSERT ... ON CONFLICT statement Postgres and
// SQLite share.
func onConflictUpsert(table string, columns, keyColumns []string) string {
	var sets []string
	for _, c := range columns {
		if SliceContains(keyColumns, c) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}

	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ",")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		table, strings.Join(columns, ","), placeholders(len(columns)), strings.Join(keyColumns, ","), action)
}

func wrapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	code := ""
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	}

	switch code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err.Error())
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w. %s", ErrForeignKeyViolation, err.Error())
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
