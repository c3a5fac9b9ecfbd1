package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/sijms/go-ora/v2/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likearthian/ormstore/metamodel"
)

func testTables(t *testing.T) (orders, lines *metamodel.Table) {
	t.Helper()

	md := testMetadata(t)
	tables := md.Tables()
	require.Len(t, tables, 2)

	return tables[0], tables[1]
}

func TestCreateTableDDL_SQLite(t *testing.T) {
	orders, lines := testTables(t)

	ddl, err := CreateTableDDL(SQLite, orders)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE orders (\n"+
		"\tORDER_ID INTEGER PRIMARY KEY AUTOINCREMENT,\n"+
		"\tCUSTOMER TEXT NOT NULL,\n"+
		"\tNOTE TEXT,\n"+
		"\tTOTAL REAL NOT NULL\n"+
		")", ddl)

	ddl, err = CreateTableDDL(SQLite, lines)
	require.NoError(t, err)
	assert.Contains(t, ddl, "CONSTRAINT pk_order_line PRIMARY KEY (ORDER_ID, LINE_NO)")
	assert.Contains(t, ddl, "CONSTRAINT fk_line_order FOREIGN KEY (ORDER_ID) REFERENCES orders (ORDER_ID) ON DELETE CASCADE")
}

func TestCreateTableDDL_Postgres(t *testing.T) {
	orders, lines := testTables(t)

	ddl, err := CreateTableDDL(Postgres, orders)
	require.NoError(t, err)
	assert.Contains(t, ddl, "ORDER_ID BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL,")
	assert.Contains(t, ddl, "CUSTOMER VARCHAR(64) NOT NULL,")
	assert.Contains(t, ddl, "TOTAL DOUBLE PRECISION NOT NULL,")
	assert.Contains(t, ddl, "CONSTRAINT pk_orders PRIMARY KEY (ORDER_ID)")

	ddl, err = CreateTableDDL(Postgres, lines)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE order_line (\n"+
		"\tORDER_ID BIGINT NOT NULL,\n"+
		"\tLINE_NO INTEGER NOT NULL,\n"+
		"\tPRODUCT VARCHAR(32) NOT NULL,\n"+
		"\tQUANTITY INTEGER NOT NULL,\n"+
		"\tCONSTRAINT pk_order_line PRIMARY KEY (ORDER_ID, LINE_NO),\n"+
		"\tCONSTRAINT fk_line_order FOREIGN KEY (ORDER_ID) REFERENCES orders (ORDER_ID) ON DELETE CASCADE\n"+
		")", ddl)
}

func TestCreateTableDDL_Oracle(t *testing.T) {
	orders, _ := testTables(t)

	ddl, err := CreateTableDDL(Oracle, orders)
	require.NoError(t, err)
	assert.Contains(t, ddl, "ORDER_ID NUMBER(19) GENERATED BY DEFAULT AS IDENTITY NOT NULL,")
	assert.Contains(t, ddl, "CUSTOMER VARCHAR2(64) NOT NULL,")
	assert.Contains(t, ddl, "NOTE VARCHAR2(255),")
	assert.Contains(t, ddl, "TOTAL BINARY_DOUBLE NOT NULL,")
}

func TestCreateSchemaDDL(t *testing.T) {
	stmts, err := CreateSchemaDDL(SQLite, testMetadata(t))
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE orders")
	assert.Contains(t, stmts[1], "CREATE TABLE order_line")
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		column   metamodel.Column
		postgres string
		sqlite   string
		oracle   string
	}{
		{metamodel.Column{TypeName: "string", Length: 10}, "VARCHAR(10)", "TEXT", "VARCHAR2(10)"},
		{metamodel.Column{TypeName: "java.lang.String"}, "TEXT", "TEXT", "VARCHAR2(255)"},
		{metamodel.Column{TypeName: "integer"}, "INTEGER", "INTEGER", "NUMBER(10)"},
		{metamodel.Column{TypeName: "long"}, "BIGINT", "INTEGER", "NUMBER(19)"},
		{metamodel.Column{TypeName: "big_decimal", Precision: 12, Scale: 2}, "NUMERIC(12,2)", "REAL", "NUMBER(12,2)"},
		{metamodel.Column{TypeName: "boolean"}, "BOOLEAN", "INTEGER", "NUMBER(1)"},
		{metamodel.Column{TypeName: "binary"}, "BYTEA", "BLOB", "BLOB"},
		{metamodel.Column{TypeName: "timestamp"}, "TIMESTAMP", "TIMESTAMP", "TIMESTAMP"},
		{metamodel.Column{TypeName: "date"}, "DATE", "DATE", "DATE"},
		{metamodel.Column{TypeName: "whatever", SQLType: "JSONB"}, "JSONB", "JSONB", "JSONB"},
	}

	for _, tt := range tests {
		t.Run(tt.column.TypeName, func(t *testing.T) {
			col := tt.column
			for d, want := range map[Dialect]string{Postgres: tt.postgres, SQLite: tt.sqlite, Oracle: tt.oracle} {
				got, err := d.ColumnType(&col)
				require.NoError(t, err, d.Name())
				assert.Equal(t, want, got, d.Name())
			}
		})
	}

	_, err := SQLite.ColumnType(&metamodel.Column{Name: "X", TypeName: "whatever"})
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestLimitOffset(t *testing.T) {
	assert.Equal(t, "", Postgres.LimitOffset(0, 0))
	assert.Equal(t, " LIMIT 10 OFFSET 20", Postgres.LimitOffset(10, 20))
	assert.Equal(t, " LIMIT -1 OFFSET 5", SQLite.LimitOffset(0, 5))
	assert.Equal(t, " LIMIT 3", SQLite.LimitOffset(3, 0))
	assert.Equal(t, " OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY", Oracle.LimitOffset(10, 20))
	assert.Equal(t, " FETCH NEXT 10 ROWS ONLY", Oracle.LimitOffset(10, 0))
}

func TestUpsertQuery(t *testing.T) {
	qry := Postgres.UpsertQuery("sales.orders", []string{"ORDER_ID", "CUSTOMER", "TOTAL"}, []string{"ORDER_ID"})
	assert.Equal(t, "INSERT INTO sales.orders (ORDER_ID,CUSTOMER,TOTAL) VALUES (?,?,?) ON CONFLICT (ORDER_ID) DO UPDATE SET CUSTOMER = EXCLUDED.CUSTOMER,TOTAL = EXCLUDED.TOTAL", qry)

	qry = SQLite.UpsertQuery("tag", []string{"ID"}, []string{"ID"})
	assert.Equal(t, "INSERT INTO tag (ID) VALUES (?) ON CONFLICT (ID) DO NOTHING", qry)

	assert.Empty(t, Oracle.UpsertQuery("orders", []string{"ORDER_ID"}, []string{"ORDER_ID"}))
}

func TestInsertPrefix_Oracle(t *testing.T) {
	orders, _ := testTables(t)

	assert.Equal(t, "INSERT", Oracle.InsertPrefix(orders, false))
	assert.Equal(t, "INSERT /*+ IGNORE_ROW_ON_DUPKEY_INDEX(orders, pk_orders) */", Oracle.InsertPrefix(orders, true))
	assert.Equal(t, "INSERT OR IGNORE", SQLite.InsertPrefix(orders, true))
	assert.Equal(t, " ON CONFLICT DO NOTHING", Postgres.InsertSuffix(orders, true))
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    error
	}{
		{"pgx unique", Postgres, &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrKeyAlreadyExists},
		{"pgx fk", Postgres, fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}), ErrForeignKeyViolation},
		{"pq unique", Postgres, &pq.Error{Code: pgerrcode.UniqueViolation}, ErrKeyAlreadyExists},
		{"pg no rows", Postgres, sql.ErrNoRows, ErrKeyNotFound},
		{"sqlite no rows", SQLite, sql.ErrNoRows, ErrKeyNotFound},
		{"oracle unique", Oracle, &network.OracleError{ErrCode: 1}, ErrKeyAlreadyExists},
		{"oracle parent missing", Oracle, &network.OracleError{ErrCode: 2291}, ErrForeignKeyViolation},
		{"oracle child found", Oracle, &network.OracleError{ErrCode: 2292}, ErrForeignKeyViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dialect.WrapError(tt.err)
			assert.True(t, errors.Is(err, tt.want), err)
		})
	}

	plain := errors.New("boom")
	for _, d := range []Dialect{Postgres, SQLite, Oracle} {
		assert.Same(t, plain, d.WrapError(plain))
		assert.NoError(t, d.WrapError(nil))
	}
}

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]Dialect{"pgx": Postgres, "postgres": Postgres, "sqlite": SQLite, "oracle": Oracle, "ORA": Oracle} {
		d, err := DialectFor(name)
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}

	// every name that has a dialect can be opened
	for name := range sqlDrivers {
		_, err := DialectFor(name)
		require.NoError(t, err, name)
		_, err = SQLDriver(name)
		require.NoError(t, err, name)
	}

	_, err := DialectFor("mysql")
	assert.True(t, errors.Is(err, ErrNotSupported))
}
