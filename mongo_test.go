package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/guregu/null.v4"

	"github.com/likearthian/ormstore/result"
)

func newTestMongoRepository(t *testing.T) *mongoRepository[int64, testOrder] {
	t.Helper()

	base, err := newRepository[testOrder](makeOption(nil), nil)
	require.NoError(t, err)

	return newMongoRepository[int64, testOrder](base)
}

func TestMongoRepository_Document(t *testing.T) {
	m := newTestMongoRepository(t)

	doc, err := m.document(testOrder{Customer: "alice", Total: 1.5})
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "CUSTOMER", Value: "alice"},
		{Key: "NOTE", Value: nil},
		{Key: "TOTAL", Value: 1.5},
	}, doc)

	doc, err = m.document(testOrder{ID: 7, Customer: "bob", Note: null.StringFrom("rush")})
	require.NoError(t, err)
	require.Len(t, doc, 4)
	assert.Equal(t, bson.E{Key: "_id", Value: int64(7)}, doc[0])
	assert.Equal(t, bson.E{Key: "NOTE", Value: "rush"}, doc[2])
}

func TestMongoRepository_Decode(t *testing.T) {
	m := newTestMongoRepository(t)

	var order testOrder
	require.NoError(t, m.decode(bson.M{"_id": int64(7), "CUSTOMER": "bob", "NOTE": nil, "TOTAL": 2.5}, &order))
	assert.Equal(t, testOrder{ID: 7, Customer: "bob", Total: 2.5}, order)

	key, err := m.insertedKey(order, int32(9))
	require.NoError(t, err)
	assert.Equal(t, int64(9), key)
}

func TestMongoRepository_Filter(t *testing.T) {
	m := newTestMongoRepository(t)

	filter, err := m.parseFilterMapIntoFilter(map[string]any{
		"Customer": []string{"alice", "bob"},
		"ID":       int64(3),
		"Note":     FilterNullFrom(false),
		"TOTAL":    []float64{2},
	})
	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "CUSTOMER", Value: bson.M{"$in": []string{"alice", "bob"}}},
		{Key: "_id", Value: int64(3)},
		{Key: "NOTE", Value: bson.M{"$ne": nil}},
		{Key: "TOTAL", Value: float64(2)},
	}, filter)

	filter, err = m.parseFilterMapIntoFilter(map[string]any{"Customer": FilterStringContainsFrom("a.b")})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "CUSTOMER", Value: bson.M{"$regex": `a\.b`}}}, filter)

	_, err = m.parseFilterMapIntoFilter(map[string]any{"Missing": 1})
	assert.True(t, errors.Is(err, ErrUnknownField))

	_, err = m.parseFilterMapIntoFilter(map[string]any{"Customer": []string{}})
	assert.Error(t, err)
}

func TestMongoRepository_FindOptions(t *testing.T) {
	m := newTestMongoRepository(t)

	opts, err := m.findOptions(makeQueryOption([]QueryOption{WithLimit(5), WithOffset(10), WithSorter("-ID", "Customer")}))
	require.NoError(t, err)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(5), *opts.Limit)
	require.NotNil(t, opts.Skip)
	assert.Equal(t, int64(10), *opts.Skip)
	assert.Equal(t, bson.D{{Key: "_id", Value: -1}, {Key: "CUSTOMER", Value: 1}}, opts.Sort)

	_, err = m.findOptions(makeQueryOption([]QueryOption{WithSorter("Missing")}))
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestMongoRepository_CompositeKeyFilter(t *testing.T) {
	base, err := newRepository[testOrderLine](makeOption([]RepositoryOption{WithMetadata(testMetadata(t))}), nil)
	require.NoError(t, err)
	m := newMongoRepository[lineKey, testOrderLine](base)

	filter, err := m.keyFilter(lineKey{int64(1), 2})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "ORDER_ID", Value: int64(1)}, {Key: "LINE_NO", Value: int64(2)}}, filter)

	doc, err := m.document(testOrderLine{Order: &testOrder{ID: 1}, LineNo: 2, Product: "apple", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, bson.E{Key: "ORDER_ID", Value: int64(1)}, doc[0])

	var line testOrderLine
	require.NoError(t, m.decode(bson.M{"_id": primitive.NewObjectID(), "ORDER_ID": int64(1), "LINE_NO": int32(2), "PRODUCT": "apple", "QUANTITY": int32(3)}, &line))
	require.NotNil(t, line.Order)
	assert.Equal(t, int64(1), line.Order.ID)
	assert.Equal(t, 2, line.LineNo)
	assert.Equal(t, 3, line.Quantity)
}

func TestMongoRepository_SQLNotSupported(t *testing.T) {
	m := newTestMongoRepository(t)
	ctx := context.Background()

	assert.True(t, errors.Is(m.SQLExec(ctx, "DELETE FROM orders", nil), ErrNotSupported))
	assert.True(t, errors.Is(m.SQLQuery(ctx, &[]testOrder{}, "SELECT 1", nil), ErrNotSupported))

	_, err := m.Execute(ctx, []result.Statement{{SQL: "SELECT 1"}})
	assert.True(t, errors.Is(err, ErrNotSupported))
}

func TestWrapMongoError(t *testing.T) {
	assert.NoError(t, wrapMongoError(nil))
	assert.True(t, errors.Is(wrapMongoError(mongo.ErrNoDocuments), ErrKeyNotFound))

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "duplicate key"}}}
	assert.True(t, errors.Is(wrapMongoError(dup), ErrKeyAlreadyExists))
}
