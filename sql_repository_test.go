package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/likearthian/ormstore/mapping"
	"github.com/likearthian/ormstore/metamodel"
	"github.com/likearthian/ormstore/result"
)

type testOrder struct {
	DBTable  `name:"orders"`
	ID       int64       `db:"ORDER_ID,key auto"`
	Customer string      `db:"CUSTOMER,size=64"`
	Note     null.String `db:"NOTE,allownull"`
	Total    float64     `db:"TOTAL"`
}

type testOrderLine struct {
	DBTable  `name:"order_line"`
	Order    *testOrder `db:"ORDER_ID,key" rel:"many-to-one,fk=fk_line_order,on-delete=cascade"`
	LineNo   int        `db:"LINE_NO,key"`
	Product  string     `db:"PRODUCT,size=32"`
	Quantity int        `db:"QUANTITY"`
}

type lineKey [2]any

func testMetadata(t *testing.T) *metamodel.Metadata {
	t.Helper()

	doc, err := mapping.FromValues(testOrderLine{})
	require.NoError(t, err)

	md, err := metamodel.Bind([]*mapping.Document{doc})
	require.NoError(t, err)

	return md
}

// openTestDB returns an in-memory database holding the order tables.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateSchema(context.Background(), db, SQLite, testMetadata(t)))

	return db
}

func createRepos(t *testing.T, db *sqlx.DB) (Repository[int64, testOrder], Repository[lineKey, testOrderLine]) {
	t.Helper()

	orders, err := CreateSqliteRepository[int64, testOrder](db)
	require.NoError(t, err)

	lines, err := CreateSqliteRepository[lineKey, testOrderLine](db, WithMetadata(testMetadata(t)))
	require.NoError(t, err)

	return orders, lines
}

func TestSQLRepository_InsertGet(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)
	ctx := context.Background()

	id, err := orders.Insert(ctx, testOrder{Customer: "alice", Total: 12.5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id2, err := orders.Insert(ctx, testOrder{Customer: "bob", Note: null.StringFrom("rush")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id2)

	var order testOrder
	require.NoError(t, orders.Get(ctx, id2, &order))
	assert.Equal(t, int64(2), order.ID)
	assert.Equal(t, "bob", order.Customer)
	assert.Equal(t, null.StringFrom("rush"), order.Note)

	require.NoError(t, orders.Get(ctx, id, &order))
	assert.False(t, order.Note.Valid)
	assert.Equal(t, 12.5, order.Total)

	key, err := lines.Insert(ctx, testOrderLine{Order: &testOrder{ID: id}, LineNo: 1, Product: "apple", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, lineKey{int64(1), int64(1)}, key)

	var line testOrderLine
	require.NoError(t, lines.Get(ctx, key, &line))
	require.NotNil(t, line.Order)
	assert.Equal(t, id, line.Order.ID)
	assert.Equal(t, 1, line.LineNo)
	assert.Equal(t, "apple", line.Product)
	assert.Equal(t, 3, line.Quantity)

	err = orders.Get(ctx, 42, &order)
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestSQLRepository_StructKey(t *testing.T) {
	db := openTestDB(t)
	orders, _ := createRepos(t, db)
	ctx := context.Background()

	id, err := orders.Insert(ctx, testOrder{Customer: "alice"})
	require.NoError(t, err)

	lines, err := CreateSqliteRepository[testOrderLine, testOrderLine](db, WithMetadata(testMetadata(t)))
	require.NoError(t, err)

	value := testOrderLine{Order: &testOrder{ID: id}, LineNo: 7, Product: "pear", Quantity: 1}
	key, err := lines.Insert(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, id, key.Order.ID)
	assert.Equal(t, 7, key.LineNo)

	var line testOrderLine
	require.NoError(t, lines.Get(ctx, testOrderLine{Order: &testOrder{ID: id}, LineNo: 7}, &line))
	assert.Equal(t, "pear", line.Product)
}

func TestSQLRepository_Select(t *testing.T) {
	db := openTestDB(t)
	orders, _ := createRepos(t, db)
	ctx := context.Background()

	_, err := orders.InsertAll(ctx, []testOrder{
		{Customer: "alice", Total: 10},
		{Customer: "bob", Total: 20},
		{Customer: "carol", Total: 30, Note: null.StringFrom("gift")},
		{Customer: "dave", Total: 40},
	})
	require.NoError(t, err)

	var list []testOrder
	require.NoError(t, orders.Select(ctx, nil, &list, WithSorter("-Total")))
	require.Len(t, list, 4)
	assert.Equal(t, "dave", list[0].Customer)

	require.NoError(t, orders.Select(ctx, map[string]any{"Customer": []string{"alice", "carol"}}, &list, WithSorter("customer")))
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Customer)
	assert.Equal(t, "carol", list[1].Customer)

	require.NoError(t, orders.Select(ctx, map[string]any{"NOTE": FilterNullFrom(false)}, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "carol", list[0].Customer)

	require.NoError(t, orders.Select(ctx, map[string]any{"Customer": FilterStringContainsFrom("o")}, &list, WithSorter("ID")))
	require.Len(t, list, 2)
	assert.Equal(t, "bob", list[0].Customer)
	assert.Equal(t, "carol", list[1].Customer)

	require.NoError(t, orders.Select(ctx, map[string]any{}, &list, WithSorter("+ID"), WithLimit(2), WithOffset(1)))
	require.Len(t, list, 2)
	assert.Equal(t, "bob", list[0].Customer)

	require.NoError(t, orders.Select(ctx, map[string]any{"Customer": "nobody"}, &list))
	assert.Empty(t, list)

	err = orders.Select(ctx, map[string]any{"Missing": 1}, &list)
	assert.True(t, errors.Is(err, ErrUnknownField))

	err = orders.Select(ctx, nil, &list, WithSorter("-Missing"))
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestSQLRepository_InsertAll(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)
	ctx := context.Background()

	ids, err := orders.InsertAll(ctx, []testOrder{{Customer: "alice"}, {Customer: "bob"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	keys, err := lines.InsertAll(ctx, []testOrderLine{
		{Order: &testOrder{ID: 1}, LineNo: 1, Product: "apple"},
		{Order: &testOrder{ID: 1}, LineNo: 2, Product: "pear"},
		{Order: &testOrder{ID: 2}, LineNo: 1, Product: "plum"},
	})
	require.NoError(t, err)
	assert.Equal(t, []lineKey{{int64(1), int64(1)}, {int64(1), int64(2)}, {int64(2), int64(1)}}, keys)

	var list []testOrderLine
	require.NoError(t, lines.Select(ctx, map[string]any{"ORDER_ID": 1}, &list, WithSorter("LineNo")))
	require.Len(t, list, 2)
	assert.Equal(t, "pear", list[1].Product)

	keys, err = lines.InsertAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLRepository_Update(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)
	ctx := context.Background()

	id, err := orders.Insert(ctx, testOrder{Customer: "alice"})
	require.NoError(t, err)

	require.NoError(t, orders.Update(ctx, id, map[string]any{"Customer": "alicia", "NOTE": "vip"}))

	var order testOrder
	require.NoError(t, orders.Get(ctx, id, &order))
	assert.Equal(t, "alicia", order.Customer)
	assert.Equal(t, null.StringFrom("vip"), order.Note)

	err = orders.Update(ctx, 99, map[string]any{"Customer": "x"})
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	err = orders.Update(ctx, id, map[string]any{"Unknown": "x"})
	assert.True(t, errors.Is(err, ErrUnknownField))

	err = orders.Update(ctx, id, map[string]any{"ID": 5})
	assert.True(t, errors.Is(err, ErrUnknownField))

	key, err := lines.Insert(ctx, testOrderLine{Order: &testOrder{ID: id}, LineNo: 1, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, lines.Update(ctx, key, map[string]any{"Quantity": 5}))

	var line testOrderLine
	require.NoError(t, lines.Get(ctx, key, &line))
	assert.Equal(t, 5, line.Quantity)
}

func TestSQLRepository_Upsert(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)
	ctx := context.Background()

	require.NoError(t, orders.Upsert(ctx, 10, testOrder{Customer: "alice", Total: 1}))
	require.NoError(t, orders.Upsert(ctx, 10, testOrder{Customer: "alice", Total: 2}))

	var list []testOrder
	require.NoError(t, orders.Select(ctx, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(10), list[0].ID)
	assert.Equal(t, float64(2), list[0].Total)

	key := lineKey{int64(10), 1}
	require.NoError(t, lines.Upsert(ctx, key, testOrderLine{Order: &testOrder{ID: 10}, LineNo: 1, Quantity: 1}))
	require.NoError(t, lines.Upsert(ctx, key, testOrderLine{Order: &testOrder{ID: 10}, LineNo: 1, Quantity: 4}))

	var line testOrderLine
	require.NoError(t, lines.Get(ctx, key, &line))
	assert.Equal(t, 4, line.Quantity)
}

func TestSQLRepository_Delete(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)
	ctx := context.Background()

	_, err := orders.InsertAll(ctx, []testOrder{{Customer: "alice"}, {Customer: "bob"}, {Customer: "carol"}})
	require.NoError(t, err)

	_, err = lines.InsertAll(ctx, []testOrderLine{
		{Order: &testOrder{ID: 1}, LineNo: 1},
		{Order: &testOrder{ID: 1}, LineNo: 2},
		{Order: &testOrder{ID: 2}, LineNo: 1},
	})
	require.NoError(t, err)

	require.NoError(t, lines.Delete(ctx, []lineKey{{int64(1), int64(2)}, {int64(2), int64(1)}}))

	var remaining []testOrderLine
	require.NoError(t, lines.Select(ctx, nil, &remaining))
	require.Len(t, remaining, 1)
	assert.Equal(t, 1, remaining[0].LineNo)

	// lines of a deleted order go with it
	require.NoError(t, orders.Delete(ctx, []int64{1, 2}))
	require.NoError(t, lines.Select(ctx, nil, &remaining))
	assert.Empty(t, remaining)

	var left []testOrder
	require.NoError(t, orders.Select(ctx, nil, &left))
	require.Len(t, left, 1)
	assert.Equal(t, "carol", left[0].Customer)

	require.NoError(t, orders.Delete(ctx, nil))
}

func TestSQLRepository_Errors(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)
	ctx := context.Background()

	id, err := orders.Insert(ctx, testOrder{Customer: "alice"})
	require.NoError(t, err)

	line := testOrderLine{Order: &testOrder{ID: id}, LineNo: 1}
	_, err = lines.Insert(ctx, line)
	require.NoError(t, err)

	_, err = lines.Insert(ctx, line)
	assert.True(t, errors.Is(err, ErrKeyAlreadyExists), err)

	_, err = lines.Insert(ctx, line, WithIgnoreDuplicate())
	assert.NoError(t, err)

	_, err = lines.Insert(ctx, testOrderLine{Order: &testOrder{ID: 99}, LineNo: 1})
	assert.True(t, errors.Is(err, ErrForeignKeyViolation), err)

	_, err = lines.Insert(ctx, testOrderLine{LineNo: 2})
	assert.Error(t, err)

	err = lines.Get(ctx, lineKey{int64(1)}, &testOrderLine{})
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestSQLRepository_Transaction(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)
	ctx := context.Background()

	tx, err := orders.Begin(ctx)
	require.NoError(t, err)

	id, err := orders.Insert(ctx, testOrder{Customer: "alice"}, WithTransaction(tx))
	require.NoError(t, err)
	_, err = lines.Insert(ctx, testOrderLine{Order: &testOrder{ID: id}, LineNo: 1}, WithTransaction(tx))
	require.NoError(t, err)

	var seen testOrder
	require.NoError(t, orders.Get(ctx, id, &seen, WithTransaction(tx)))
	require.NoError(t, tx.Rollback(ctx))

	err = orders.Get(ctx, id, &seen)
	assert.True(t, errors.Is(err, ErrKeyNotFound))

	tx, err = orders.Begin(ctx)
	require.NoError(t, err)
	id, err = orders.Insert(ctx, testOrder{Customer: "bob"}, WithTransaction(tx))
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, orders.Get(ctx, id, &seen))
	assert.Equal(t, "bob", seen.Customer)
}

func TestSQLRepository_SQLQueryExec(t *testing.T) {
	db := openTestDB(t)
	orders, _ := createRepos(t, db)
	ctx := context.Background()

	_, err := orders.InsertAll(ctx, []testOrder{{Customer: "alice", Total: 1}, {Customer: "bob", Total: 2}})
	require.NoError(t, err)

	require.NoError(t, orders.SQLExec(ctx, "UPDATE orders SET TOTAL = TOTAL + ? WHERE CUSTOMER IN (?)", []any{10, []string{"alice", "bob"}}))

	var totals []float64
	require.NoError(t, orders.SQLQuery(ctx, &totals, "SELECT TOTAL FROM orders ORDER BY TOTAL", nil))
	assert.Equal(t, []float64{11, 12}, totals)

	var count int
	require.NoError(t, orders.SQLQuery(ctx, &count, "SELECT COUNT(*) FROM orders WHERE CUSTOMER = ?", []any{"alice"}))
	assert.Equal(t, 1, count)

	var name string
	err = orders.SQLQuery(ctx, &name, "SELECT CUSTOMER FROM orders WHERE CUSTOMER = ?", []any{"nobody"})
	assert.True(t, errors.Is(err, ErrNoRow))
}

func TestSQLRepository_Execute(t *testing.T) {
	db := openTestDB(t)
	orders, _ := createRepos(t, db)
	ctx := context.Background()

	outs, err := orders.Execute(ctx, []result.Statement{
		{SQL: "INSERT INTO orders (CUSTOMER, TOTAL) VALUES (?, ?), (?, ?)", Args: []any{"alice", 1, "bob", 2}},
		{SQL: "SELECT CUSTOMER, TOTAL FROM orders ORDER BY CUSTOMER"},
		{SQL: "DELETE FROM orders WHERE CUSTOMER = ?", Args: []any{"bob"}},
	})
	require.NoError(t, err)
	defer outs.Close()

	require.True(t, outs.HasMore())
	out, err := outs.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.(*result.UpdateCountOutput).UpdateCount())

	out, err = outs.Next()
	require.NoError(t, err)
	rs, err := result.AsResultSet(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"CUSTOMER", "TOTAL"}, rs.Columns())
	assert.Equal(t, 2, rs.Len())

	out, err = outs.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.(*result.UpdateCountOutput).UpdateCount())

	assert.False(t, outs.HasMore())
	_, err = outs.Next()
	assert.True(t, errors.Is(err, result.ErrNoMoreOutputs))
	require.NoError(t, outs.Err())
}

func TestSQLRepository_InitWith(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	values := []testOrder{{ID: 1, Customer: "alice"}, {ID: 2, Customer: "bob"}}
	orders, err := CreateSqliteRepository[int64, testOrder](db, InitWith(values))
	require.NoError(t, err)

	var list []testOrder
	require.NoError(t, orders.Select(ctx, nil, &list))
	assert.Len(t, list, 2)

	_, err = CreateSqliteRepository[int64, testOrder](db, InitWith("nope"))
	assert.Error(t, err)
}

func TestSQLRepository_SchemaCheck(t *testing.T) {
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = CreateSqliteRepository[int64, testOrder](db, WithSchemaCheck())
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	_, err = db.Exec("CREATE TABLE orders (ORDER_ID INTEGER PRIMARY KEY, CUSTOMER TEXT)")
	require.NoError(t, err)

	_, err = CreateSqliteRepository[int64, testOrder](db, WithSchemaCheck())
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.ErrorContains(t, err, "NOTE")

	_, err = db.Exec("ALTER TABLE orders ADD COLUMN NOTE TEXT")
	require.NoError(t, err)
	_, err = db.Exec("ALTER TABLE orders ADD COLUMN TOTAL REAL")
	require.NoError(t, err)

	_, err = CreateSqliteRepository[int64, testOrder](db, WithSchemaCheck())
	assert.NoError(t, err)
}

func TestSQLRepository_GetTableDef(t *testing.T) {
	db := openTestDB(t)
	orders, lines := createRepos(t, db)

	td := orders.GetTableDef()
	assert.Equal(t, "orders", td.FullTableName())
	assert.Equal(t, "ORDER_ID", td.KeyField)
	assert.Equal(t, []string{"ORDER_ID", "CUSTOMER", "NOTE", "TOTAL"}, td.ColumnNames())
	assert.Equal(t, "INTEGER", td.Columns[0].DataType)
	assert.True(t, td.Columns[2].Nullable)

	td = lines.GetTableDef()
	assert.Empty(t, td.KeyField)
	assert.Equal(t, []string{"ORDER_ID", "LINE_NO"}, td.PrimaryField)
}
