package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/likearthian/ormstore/result"
)

// insertParamLimit keeps multi-row inserts under the bind parameter limits of
// the supported databases.
const insertParamLimit = 30000

type sqlRepository[K comparable, T any] struct {
	repository
	db        *sqlx.DB
	dialect   Dialect
	tableName string
	keys      *keyCodec[K]
}

// CreateSQLRepository binds T and returns a repository storing it in db.
func CreateSQLRepository[K comparable, T any](db *sqlx.DB, dialect Dialect, options ...RepositoryOption) (Repository[K, T], error) {
	opt := makeOption(options)

	base, err := newRepository[T](opt, dialect)
	if err != nil {
		return nil, err
	}

	repo := &sqlRepository[K, T]{
		repository: base,
		db:         db,
		dialect:    dialect,
		tableName:  dialect.TableName(base.model.entity.Table),
		keys:       newKeyCodec[K](base.model),
	}

	if opt.schemaCheck {
		if err := repo.checkSchema(context.Background()); err != nil {
			return nil, err
		}
	}

	if opt.initValues != nil {
		if err := initValues[K, T](context.Background(), repo, opt.initValues); err != nil {
			return nil, err
		}
	}

	repo.logger.Debug().
		Str("entity", repo.Name).
		Str("table", repo.tableName).
		Str("dialect", dialect.Name()).
		Msg("repository created")

	return repo, nil
}

func (r *sqlRepository[K, T]) Get(ctx context.Context, id K, dest *T, options ...QueryOption) error {
	opt := makeQueryOption(options)

	args, err := r.keys.args(id)
	if err != nil {
		return err
	}

	qry := fmt.Sprintf("SELECT %s FROM %s WHERE %s", r.model.selectList(), r.tableName, r.keyCondition())

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return r.dialect.WrapError(err)
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	found := false
	err = r.query(ctx, tx, qry, args, func(row []any) error {
		var value T
		if err := r.model.hydrate(reflect.ValueOf(&value), row); err != nil {
			return err
		}
		*dest = value
		found = true
		return nil
	})
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w. %s %v", ErrKeyNotFound, r.Name, args)
	}

	return r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) Select(ctx context.Context, filterMap map[string]any, dest *[]T, options ...QueryOption) error {
	opt := makeQueryOption(options)

	filter, argParam, err := parseFilterMap(filterMap, r.model.column)
	if err != nil {
		return err
	}

	if filter != "" {
		filter = " WHERE " + filter
	}

	sortMap, err := r.sortFieldMap(opt.Sorter)
	if err != nil {
		return err
	}

	order := ""
	if srt := MakeSortClause(opt.Sorter, sortMap); srt != "" {
		order = " ORDER BY " + srt
	}

	paging := r.dialect.LimitOffset(opt.Limit, opt.Offset)
	qry := fmt.Sprintf("SELECT %s FROM %s%s%s%s", r.model.selectList(), r.tableName, filter, order, paging)

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	list := make([]T, 0)
	err = r.query(ctx, tx, qry, argParam, func(row []any) error {
		var value T
		if err := r.model.hydrate(reflect.ValueOf(&value), row); err != nil {
			return err
		}
		list = append(list, value)
		return nil
	})
	if err != nil {
		return err
	}

	*dest = list
	return r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) SQLQuery(ctx context.Context, dest any, sqlStr string, args []any, options ...QueryOption) error {
	opt := makeQueryOption(options)

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	sqlStr, args, err = sqlx.In(sqlStr, args...)
	if err != nil {
		return err
	}

	sqlStr = r.rebind(sqlStr)
	r.logger.Debug().Str("query", sqlStr).Msg("sql query")

	if isSlicePtr(dest) {
		err = tx.SelectContext(ctx, dest, sqlStr, args...)
	} else {
		err = tx.GetContext(ctx, dest, sqlStr, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w. %s", ErrNoRow, err.Error())
		}
	}

	if err != nil {
		return r.dialect.WrapError(err)
	}

	return r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) SQLExec(ctx context.Context, sqlStr string, args []any, options ...QueryOption) error {
	opt := makeQueryOption(options)

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	sqlStr, args, err = sqlx.In(sqlStr, args...)
	if err != nil {
		return err
	}

	if _, err := r.exec(ctx, tx, sqlStr, args); err != nil {
		return err
	}

	return r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) Execute(ctx context.Context, statements []result.Statement, options ...QueryOption) (result.Outputs, error) {
	opt := makeQueryOption(options)

	var exec result.Executor = r.db
	if opt.Tx != nil {
		tx, ok := opt.Tx.(*sqlTransaction)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a sql transaction", ErrNotSupported, opt.Tx)
		}
		exec = tx.Tx
	}

	stmts := make([]result.Statement, len(statements))
	for i, stmt := range statements {
		stmts[i] = result.Statement{SQL: r.rebind(stmt.SQL), Args: stmt.Args}
	}

	return result.New(ctx, result.FromScript(exec, stmts...), result.WithLogger(r.logger)), nil
}

func (r *sqlRepository[K, T]) Insert(ctx context.Context, value T, options ...QueryOption) (K, error) {
	opt := makeQueryOption(options)

	var zeroKey K
	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return zeroKey, err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	key, err := r.insert(ctx, tx, value, opt.IgnoreDuplicate)
	if err != nil {
		return zeroKey, err
	}

	return key, r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) insert(ctx context.Context, tx *sqlx.Tx, value T, ignoreDuplicate bool) (K, error) {
	var zeroKey K

	values, err := r.model.values(value, r.model.inserts)
	if err != nil {
		return zeroKey, err
	}

	table := r.model.entity.Table
	qry := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", r.dialect.InsertPrefix(table, ignoreDuplicate),
		r.tableName, strings.Join(r.insertColumns(), ","), placeholders(len(values)))
	if len(values) == 0 {
		qry = fmt.Sprintf("%s INTO %s DEFAULT VALUES", r.dialect.InsertPrefix(table, ignoreDuplicate), r.tableName)
	}
	qry += r.dialect.InsertSuffix(table, ignoreDuplicate)

	if !r.model.generated {
		if _, err := r.exec(ctx, tx, qry, values); err != nil {
			return zeroKey, err
		}

		return r.keys.of(value)
	}

	clause, outParam := r.dialect.Returning(r.model.keys[0].column)
	qry = r.rebind(qry + clause)
	r.logger.Debug().Str("query", qry).Msg("insert")

	var generated any
	if outParam {
		var id int64
		if _, err := tx.ExecContext(ctx, qry, append(values, sql.Out{Dest: &id})...); err != nil {
			return zeroKey, r.dialect.WrapError(err)
		}
		generated = id
	} else if err := tx.QueryRowxContext(ctx, qry, values...).Scan(&generated); err != nil {
		if ignoreDuplicate && errors.Is(err, sql.ErrNoRows) {
			return zeroKey, nil
		}
		return zeroKey, r.dialect.WrapError(err)
	}

	return r.keys.fromValues([]any{generated})
}

func (r *sqlRepository[K, T]) InsertAll(ctx context.Context, values []T, options ...QueryOption) ([]K, error) {
	opt := makeQueryOption(options)

	if len(values) == 0 {
		return nil, nil
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return nil, err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	var keys []K
	switch {
	case r.dialect.MultiRowInsert():
		keys, err = r.insertMultiRow(ctx, tx, values, opt.IgnoreDuplicate)
	case r.model.generated:
		for _, v := range values {
			key, err := r.insert(ctx, tx, v, opt.IgnoreDuplicate)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	default:
		keys, err = r.insertArray(ctx, tx, values, opt.IgnoreDuplicate)
	}

	if err != nil {
		return nil, err
	}

	return keys, r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) insertMultiRow(ctx context.Context, tx *sqlx.Tx, values []T, ignoreDuplicate bool) ([]K, error) {
	columns := r.insertColumns()
	table := r.model.entity.Table

	chunk := 500
	if len(columns) > 0 && insertParamLimit/len(columns) < chunk {
		chunk = insertParamLimit / len(columns)
	}

	var keys []K
	for _, batch := range SplitBatch(values, chunk) {
		var args []any
		rows := make([]string, len(batch))
		for i, v := range batch {
			vals, err := r.model.values(v, r.model.inserts)
			if err != nil {
				return nil, err
			}
			args = append(args, vals...)
			rows[i] = "(" + placeholders(len(vals)) + ")"
		}

		qry := fmt.Sprintf("%s INTO %s (%s) VALUES %s%s", r.dialect.InsertPrefix(table, ignoreDuplicate),
			r.tableName, strings.Join(columns, ","), strings.Join(rows, ","), r.dialect.InsertSuffix(table, ignoreDuplicate))

		if !r.model.generated {
			if _, err := r.exec(ctx, tx, qry, args); err != nil {
				return nil, err
			}

			for _, v := range batch {
				key, err := r.keys.of(v)
				if err != nil {
					return nil, err
				}
				keys = append(keys, key)
			}
			continue
		}

		clause, _ := r.dialect.Returning(r.model.keys[0].column)
		err := r.query(ctx, tx, qry+clause, args, func(row []any) error {
			key, err := r.keys.fromValues(row[:1])
			if err != nil {
				return err
			}
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return keys, nil
}

// insertArray sends all values in one statement, one bound slice per column.
func (r *sqlRepository[K, T]) insertArray(ctx context.Context, tx *sqlx.Tx, values []T, ignoreDuplicate bool) ([]K, error) {
	rows := make([][]any, len(values))
	keys := make([]K, len(values))
	for i, v := range values {
		vals, err := r.model.values(v, r.model.inserts)
		if err != nil {
			return nil, err
		}
		rows[i] = vals

		if keys[i], err = r.keys.of(v); err != nil {
			return nil, err
		}
	}

	classes := Map(r.model.inserts, func(s columnSource) typeClass { return s.class })
	table := r.model.entity.Table
	qry := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)%s", r.dialect.InsertPrefix(table, ignoreDuplicate),
		r.tableName, strings.Join(r.insertColumns(), ","), placeholders(len(classes)), r.dialect.InsertSuffix(table, ignoreDuplicate))

	if _, err := r.exec(ctx, tx, qry, makeOraValueSlice(classes, rows)); err != nil {
		return nil, err
	}

	return keys, nil
}

func (r *sqlRepository[K, T]) Update(ctx context.Context, id K, keyvals map[string]any, options ...QueryOption) error {
	opt := makeQueryOption(options)

	updates, err := r.updateColumns(keyvals)
	if err != nil {
		return err
	}

	keyArgs, err := r.keys.args(id)
	if err != nil {
		return err
	}

	columns := make([]string, 0, len(updates))
	for c := range updates {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	var sets []string
	var args []any
	for _, c := range columns {
		sets = append(sets, fmt.Sprintf("%s = ?", c))
		args = append(args, updates[c])
	}
	args = append(args, keyArgs...)

	qry := fmt.Sprintf("UPDATE %s SET %s WHERE %s", r.tableName, strings.Join(sets, ","), r.keyCondition())

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	res, err := r.exec(ctx, tx, qry, args)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w. %s %v", ErrKeyNotFound, r.Name, keyArgs)
	}

	return r.finish(tx, opt)
}

// Upsert inserts value under id, or replaces the row stored under id.
func (r *sqlRepository[K, T]) Upsert(ctx context.Context, id K, value T, options ...QueryOption) error {
	opt := makeQueryOption(options)

	keyArgs, err := r.keys.args(id)
	if err != nil {
		return err
	}

	keyColumns := r.model.keyColumns()
	columns := append([]string{}, keyColumns...)
	args := append([]any{}, keyArgs...)

	values, err := r.model.values(value, r.model.inserts)
	if err != nil {
		return err
	}

	for i, src := range r.model.inserts {
		if SliceContains(keyColumns, src.column) {
			continue
		}
		columns = append(columns, src.column)
		args = append(args, values[i])
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	if qry := r.dialect.UpsertQuery(r.tableName, columns, keyColumns); qry != "" {
		if _, err := r.exec(ctx, tx, qry, args); err != nil {
			return err
		}
		return r.finish(tx, opt)
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE %s", r.tableName, r.keyCondition())
	if _, err := r.exec(ctx, tx, del, keyArgs); err != nil {
		return err
	}

	ins := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.tableName, strings.Join(columns, ","), placeholders(len(columns)))
	if _, err := r.exec(ctx, tx, ins, args); err != nil {
		return err
	}

	return r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) Delete(ctx context.Context, id []K, options ...QueryOption) error {
	opt := makeQueryOption(options)

	if len(id) == 0 {
		return nil
	}

	tx, err := r.createTransaction(ctx, opt)
	if err != nil {
		return err
	}

	if opt.Tx == nil {
		defer tx.Rollback()
	}

	keyColumns := r.model.keyColumns()
	batches := SplitBatch(id, 125)

	for i := range batches {
		var qry string
		var args []any

		if len(keyColumns) == 1 {
			keyVals := make([]any, len(batches[i]))
			for ix, k := range batches[i] {
				ka, err := r.keys.args(k)
				if err != nil {
					return err
				}
				keyVals[ix] = ka[0]
			}

			qry, args, err = sqlx.In(fmt.Sprintf("DELETE FROM %s WHERE %s IN (?)", r.tableName, keyColumns[0]), keyVals)
			if err != nil {
				return fmt.Errorf("failed to expand delete query. %s", err)
			}
		} else {
			conds := make([]string, len(batches[i]))
			for ix, k := range batches[i] {
				ka, err := r.keys.args(k)
				if err != nil {
					return err
				}
				conds[ix] = "(" + r.keyCondition() + ")"
				args = append(args, ka...)
			}
			qry = fmt.Sprintf("DELETE FROM %s WHERE %s", r.tableName, strings.Join(conds, " OR "))
		}

		res, err := r.exec(ctx, tx, qry, args)
		if err != nil {
			return err
		}

		if n, err := res.RowsAffected(); err == nil {
			r.logger.Debug().Str("table", r.tableName).Int64("rows", n).Msg("deleted")
		}
	}

	return r.finish(tx, opt)
}

func (r *sqlRepository[K, T]) Begin(ctx context.Context) (Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &sqlTransaction{Tx: tx}, nil
}

func (r *sqlRepository[K, T]) createTransaction(ctx context.Context, opt *queryOption) (*sqlx.Tx, error) {
	if opt.Tx != nil {
		if tx, ok := opt.Tx.(*sqlTransaction); ok {
			return tx.Tx, nil
		}

		return nil, fmt.Errorf("%w: %T is not a sql transaction", ErrNotSupported, opt.Tx)
	}

	return r.db.BeginTxx(ctx, nil)
}

// finish commits transactions the repository opened itself.
func (r *sqlRepository[K, T]) finish(tx *sqlx.Tx, opt *queryOption) error {
	if opt.Tx == nil {
		return tx.Commit()
	}

	return nil
}

func (r *sqlRepository[K, T]) rebind(qry string) string {
	return sqlx.Rebind(r.dialect.BindType(), qry)
}

func (r *sqlRepository[K, T]) exec(ctx context.Context, tx *sqlx.Tx, qry string, args []any) (sql.Result, error) {
	qry = r.rebind(qry)
	r.logger.Debug().Str("query", qry).Int("args", len(args)).Msg("exec")

	res, err := tx.ExecContext(ctx, qry, args...)
	if err != nil {
		return nil, r.dialect.WrapError(err)
	}

	return res, nil
}

func (r *sqlRepository[K, T]) query(ctx context.Context, tx *sqlx.Tx, qry string, args []any, each func(row []any) error) error {
	qry = r.rebind(qry)
	r.logger.Debug().Str("query", qry).Int("args", len(args)).Msg("query")

	rows, err := tx.QueryxContext(ctx, qry, args...)
	if err != nil {
		return r.dialect.WrapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return r.dialect.WrapError(err)
		}

		if err := each(row); err != nil {
			return err
		}
	}

	return r.dialect.WrapError(rows.Err())
}

func (r *sqlRepository[K, T]) keyCondition() string {
	return strings.Join(Map(r.model.keyColumns(), func(c string) string { return c + " = ?" }), " AND ")
}

func (r *sqlRepository[K, T]) insertColumns() []string {
	return Map(r.model.inserts, func(s columnSource) string { return s.column })
}

// createInsertStatement prepares an insert of every table column, in table
// order.
func (r *sqlRepository[K, T]) createInsertStatement(ctx context.Context, tx *sqlx.Tx) (*sqlx.Stmt, error) {
	columns := r.model.tableColumns
	str := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.tableName, strings.Join(columns, ","), placeholders(len(columns)))

	return tx.PreparexContext(ctx, r.rebind(str))
}

func (r *sqlRepository[K, T]) checkSchema(ctx context.Context) error {
	cols, err := r.dialect.TableColumns(ctx, r.db, r.model.entity.Table)
	if err != nil {
		return err
	}

	if len(cols) == 0 {
		return fmt.Errorf("%w: table %s not found", ErrSchemaMismatch, r.tableName)
	}

	missing := Filter(r.model.tableColumns, func(name string) bool {
		for _, c := range cols {
			if strings.EqualFold(c.ColumnName, name) {
				return false
			}
		}
		return true
	})

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s has no column %s", ErrSchemaMismatch, r.tableName, strings.Join(missing, ", "))
	}

	return nil
}

func isSlicePtr(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Slice
}
