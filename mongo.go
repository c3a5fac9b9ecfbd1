package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/likearthian/ormstore/result"
)

const mongoIDField = "_id"

// mongoRepository stores an entity as documents of the collection named
// after its table, one field per column. A generated identifier is kept in
// _id and assigned by the server.
type mongoRepository[K comparable, T any] struct {
	repository
	db         *mongo.Database
	collection *mongo.Collection
	keys       *keyCodec[K]
}

func CreateMongoRepository[K comparable, T any](db *mongo.Database, options ...RepositoryOption) (Repository[K, T], error) {
	opt := makeOption(options)

	base, err := newRepository[T](opt, nil)
	if err != nil {
		return nil, err
	}

	repo := newMongoRepository[K, T](base)
	repo.db = db
	repo.collection = db.Collection(base.model.entity.Table.Name)

	if opt.initValues != nil {
		if err := initValues[K, T](context.Background(), repo, opt.initValues); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

func newMongoRepository[K comparable, T any](base repository) *mongoRepository[K, T] {
	return &mongoRepository[K, T]{
		repository: base,
		keys:       newKeyCodec[K](base.model),
	}
}

func (m *mongoRepository[K, T]) Get(ctx context.Context, id K, dest *T, options ...QueryOption) error {
	opt := makeQueryOption(options)
	ctx = m.setTransactionContext(ctx, opt)

	filter, err := m.keyFilter(id)
	if err != nil {
		return err
	}

	var doc bson.M
	if err := m.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return wrapMongoError(err)
	}

	return m.decode(doc, dest)
}

func (m *mongoRepository[K, T]) Select(ctx context.Context, filterMap map[string]any, dest *[]T, options ...QueryOption) error {
	opt := makeQueryOption(options)
	ctx = m.setTransactionContext(ctx, opt)

	filter, err := m.parseFilterMapIntoFilter(filterMap)
	if err != nil {
		return err
	}

	findOpts, err := m.findOptions(opt)
	if err != nil {
		return err
	}

	cur, err := m.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return wrapMongoError(err)
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return wrapMongoError(err)
	}

	list := make([]T, len(docs))
	for i, doc := range docs {
		if err := m.decode(doc, &list[i]); err != nil {
			return err
		}
	}

	*dest = list
	return nil
}

func (m *mongoRepository[K, T]) SQLQuery(ctx context.Context, dest any, sqlStr string, args []any, options ...QueryOption) error {
	return fmt.Errorf("%w: the database does not support SQL Query", ErrNotSupported)
}

func (m *mongoRepository[K, T]) SQLExec(ctx context.Context, sqlStr string, args []any, options ...QueryOption) error {
	return fmt.Errorf("%w: the database does not support SQL Query", ErrNotSupported)
}

func (m *mongoRepository[K, T]) Execute(ctx context.Context, statements []result.Statement, options ...QueryOption) (result.Outputs, error) {
	return nil, fmt.Errorf("%w: the database does not support SQL Query", ErrNotSupported)
}

func (m *mongoRepository[K, T]) Insert(ctx context.Context, value T, options ...QueryOption) (K, error) {
	opt := makeQueryOption(options)
	ctx = m.setTransactionContext(ctx, opt)

	var zeroKey K
	doc, err := m.document(value)
	if err != nil {
		return zeroKey, err
	}

	res, err := m.collection.InsertOne(ctx, doc)
	if err != nil {
		if opt.IgnoreDuplicate && mongo.IsDuplicateKeyError(err) {
			return zeroKey, nil
		}
		return zeroKey, wrapMongoError(err)
	}

	return m.insertedKey(value, res.InsertedID)
}

func (m *mongoRepository[K, T]) InsertAll(ctx context.Context, values []T, options ...QueryOption) ([]K, error) {
	opt := makeQueryOption(options)
	ctx = m.setTransactionContext(ctx, opt)

	if len(values) == 0 {
		return nil, nil
	}

	insertValues := make([]any, len(values))
	for i, v := range values {
		doc, err := m.document(v)
		if err != nil {
			return nil, err
		}
		insertValues[i] = doc
	}

	insertOpts := mongoOptions.InsertMany().SetOrdered(!opt.IgnoreDuplicate)
	res, err := m.collection.InsertMany(ctx, insertValues, insertOpts)
	if err != nil && !(opt.IgnoreDuplicate && mongo.IsDuplicateKeyError(err)) {
		return nil, wrapMongoError(err)
	}

	if res == nil || len(res.InsertedIDs) != len(values) {
		return nil, nil
	}

	keys := make([]K, len(values))
	for i, v := range values {
		if keys[i], err = m.insertedKey(v, res.InsertedIDs[i]); err != nil {
			return nil, err
		}
	}

	return keys, nil
}

func (m *mongoRepository[K, T]) Update(ctx context.Context, id K, keyvals map[string]any, options ...QueryOption) error {
	opt := makeQueryOption(options)
	ctx = m.setTransactionContext(ctx, opt)

	updates, err := m.updateColumns(keyvals)
	if err != nil {
		return err
	}

	filter, err := m.keyFilter(id)
	if err != nil {
		return err
	}

	up, err := m.collection.UpdateOne(ctx, filter, m.createUpdateParam(updates))
	if err != nil {
		return wrapMongoError(err)
	}

	if up.MatchedCount == 0 {
		return ErrKeyNotFound
	}

	return nil
}

func (m *mongoRepository[K, T]) Upsert(ctx context.Context, id K, value T, options ...QueryOption) error {
	opt := makeQueryOption(options)
	ctx = m.setTransactionContext(ctx, opt)

	filter, err := m.keyFilter(id)
	if err != nil {
		return err
	}

	doc, err := m.document(value)
	if err != nil {
		return err
	}

	// the stored key is the one asked for, whatever value holds
	doc = append(Filter(doc, func(e bson.E) bool {
		for _, k := range filter {
			if k.Key == e.Key {
				return false
			}
		}
		return true
	}), filter...)

	_, err = m.collection.ReplaceOne(ctx, filter, doc, mongoOptions.Replace().SetUpsert(true))
	if err != nil {
		return wrapMongoError(err)
	}

	return nil
}

func (m *mongoRepository[K, T]) Delete(ctx context.Context, id []K, options ...QueryOption) error {
	opt := makeQueryOption(options)
	ctx = m.setTransactionContext(ctx, opt)

	if len(id) == 0 {
		return nil
	}

	var filter bson.D
	if len(m.model.keys) == 1 {
		vals := make([]any, len(id))
		for i, k := range id {
			args, err := m.keys.args(k)
			if err != nil {
				return err
			}
			vals[i] = args[0]
		}
		filter = bson.D{{Key: m.fieldName(m.model.keys[0].column), Value: bson.M{"$in": vals}}}
	} else {
		var or bson.A
		for _, k := range id {
			f, err := m.keyFilter(k)
			if err != nil {
				return err
			}
			or = append(or, f)
		}
		filter = bson.D{{Key: "$or", Value: or}}
	}

	res, err := m.collection.DeleteMany(ctx, filter)
	if err != nil {
		return wrapMongoError(err)
	}

	m.logger.Debug().Str("collection", m.collection.Name()).Int64("documents", res.DeletedCount).Msg("deleted")
	return nil
}

func (m *mongoRepository[K, T]) Begin(ctx context.Context) (Transaction, error) {
	session, err := m.db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb session. %s", err.Error())
	}

	sctx := mongo.NewSessionContext(ctx, session)

	wc := writeconcern.New(writeconcern.WMajority())
	rc := readconcern.Snapshot()
	txnOpts := mongoOptions.Transaction().SetWriteConcern(wc).SetReadConcern(rc)
	opts := []*mongoOptions.TransactionOptions{txnOpts}

	if err := session.StartTransaction(opts...); err != nil {
		session.EndSession(ctx)
		return nil, err
	}

	return &mongoTransaction{
		session: session,
		sctx:    sctx,
	}, nil
}

// fieldName is the document field a column is stored in.
func (m *mongoRepository[K, T]) fieldName(column string) string {
	if m.model.generated && strings.EqualFold(column, m.model.keys[0].column) {
		return mongoIDField
	}

	return column
}

// document turns value into a document, key fields first.
func (m *mongoRepository[K, T]) document(value T) (bson.D, error) {
	var doc bson.D
	if m.model.generated {
		vals, err := m.model.values(value, m.model.keys)
		if err != nil {
			return nil, err
		}

		if vals[0] != nil && !reflect.ValueOf(vals[0]).IsZero() {
			doc = append(doc, bson.E{Key: mongoIDField, Value: vals[0]})
		}
	}

	vals, err := m.model.values(value, m.model.inserts)
	if err != nil {
		return nil, err
	}

	for i, src := range m.model.inserts {
		doc = append(doc, bson.E{Key: m.fieldName(src.column), Value: vals[i]})
	}

	return doc, nil
}

func (m *mongoRepository[K, T]) decode(doc bson.M, dest *T) error {
	record := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == mongoIDField {
			if !m.model.generated {
				continue
			}
			k = m.model.keys[0].column
		}
		record[k] = v
	}

	var value T
	if err := m.model.hydrateRecord(reflect.ValueOf(&value), record); err != nil {
		return err
	}

	*dest = value
	return nil
}

func (m *mongoRepository[K, T]) insertedKey(value T, insertedID any) (K, error) {
	if m.model.generated {
		return m.keys.fromValues([]any{insertedID})
	}

	return m.keys.of(value)
}

func (m *mongoRepository[K, T]) keyFilter(id K) (bson.D, error) {
	args, err := m.keys.args(id)
	if err != nil {
		return nil, err
	}

	filter := make(bson.D, len(args))
	for i, src := range m.model.keys {
		filter[i] = bson.E{Key: m.fieldName(src.column), Value: args[i]}
	}

	return filter, nil
}

func (m *mongoRepository[K, T]) findOptions(opt *queryOption) (*mongoOptions.FindOptions, error) {
	findOpts := mongoOptions.Find()
	if opt.Limit > 0 {
		findOpts.SetLimit(int64(opt.Limit))
	}

	if opt.Offset > 0 {
		findOpts.SetSkip(opt.Offset)
	}

	if len(opt.Sorter) > 0 {
		var sorter bson.D
		for _, s := range opt.Sorter {
			field := strings.TrimLeft(s, "+-")
			if field == "" {
				continue
			}

			col, err := m.model.column(field)
			if err != nil {
				return nil, err
			}

			dir := 1
			if strings.HasPrefix(s, "-") {
				dir = -1
			}
			sorter = append(sorter, bson.E{Key: m.fieldName(col), Value: dir})
		}
		findOpts.SetSort(sorter)
	}

	return findOpts, nil
}

func (m *mongoRepository[K, T]) createUpdateParam(keyvals map[string]any) any {
	update := bson.M{}
	for k, v := range keyvals {
		update[m.fieldName(k)] = v
	}

	return bson.M{"$set": update}
}

func (m *mongoRepository[K, T]) parseFilterMapIntoFilter(filterMap map[string]any) (bson.D, error) {
	keys := make([]string, 0, len(filterMap))
	for k := range filterMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filter = bson.D{}
	for _, k := range keys {
		col, err := m.model.column(k)
		if err != nil {
			return nil, err
		}

		field := m.fieldName(col)
		v := filterMap[k]
		switch val := v.(type) {
		case nil:
			filter = append(filter, bson.E{Key: field, Value: nil})
			continue
		case FilterNull:
			if val.IsNull() {
				filter = append(filter, bson.E{Key: field, Value: nil})
			} else {
				filter = append(filter, bson.E{Key: field, Value: bson.M{"$ne": nil}})
			}
			continue
		case FilterStringContains:
			pattern := regexp.QuoteMeta(strings.TrimSuffix(strings.TrimPrefix(val.Contains(), "%"), "%"))
			filter = append(filter, bson.E{Key: field, Value: bson.M{"$regex": pattern}})
			continue
		}

		vval := reflect.ValueOf(v)
		if vval.Kind() != reflect.Slice || vval.Type().Elem().Kind() == reflect.Uint8 {
			filter = append(filter, bson.E{Key: field, Value: v})
			continue
		}

		f, err := m.parameterizedFilterCriteriaSlice(field, v)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", k, err)
		}
		filter = append(filter, f)
	}

	return filter, nil
}

func (m *mongoRepository[K, T]) parameterizedFilterCriteriaSlice(fieldname string, values any) (bson.E, error) {
	vtype := reflect.TypeOf(values)
	if vtype.Kind() == reflect.Ptr {
		vtype = vtype.Elem()
	}

	if vtype.Kind() != reflect.Slice {
		return bson.E{}, fmt.Errorf("expecting slice as values, got %s", vtype.Kind().String())
	}

	s := reflect.ValueOf(values)
	if s.Len() == 0 {
		return bson.E{}, fmt.Errorf("cannot use empty slice to parameterized")
	}

	var filter bson.E
	if s.Len() > 1 {
		filter = bson.E{Key: fieldname, Value: bson.M{"$in": values}}
	} else {
		filter = bson.E{Key: fieldname, Value: s.Index(0).Interface()}
	}

	return filter, nil
}

func (m *mongoRepository[K, T]) setTransactionContext(ctx context.Context, opt *queryOption) context.Context {
	if opt.Tx != nil {
		tx, ok := opt.Tx.(*mongoTransaction)
		if ok {
			return tx.sctx
		}
	}

	return ctx
}

func wrapMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err.Error())
	}

	errMap := map[error]error{
		mongo.ErrNoDocuments: ErrKeyNotFound,
	}

	for g, e := range errMap {
		if errors.Is(err, g) {
			err = fmt.Errorf("%w. %s", e, err.Error())
		}
	}

	return err
}

type mongoTransaction struct {
	session mongo.Session
	sctx    mongo.SessionContext
}

func (tx *mongoTransaction) Rollback(ctx context.Context) error {
	defer tx.sctx.EndSession(ctx)
	return tx.sctx.AbortTransaction(ctx)
}

func (tx *mongoTransaction) Commit(ctx context.Context) error {
	defer tx.sctx.EndSession(ctx)
	return tx.sctx.CommitTransaction(tx.sctx)
}
