package result

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/stdlib"
)

// ExecPostgres runs a multi-statement SQL string over the simple protocol and
// returns one output per statement. The connection must come from the pgx
// stdlib driver. Results are read completely before the connection goes back
// to the pool.
func ExecPostgres(ctx context.Context, db *sql.DB, query string) (Cursor, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var outs []Output
	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("postgres outputs need the pgx driver, got %T", driverConn)
		}

		outs, err = execPgConn(ctx, c.Conn().PgConn(), query)
		return err
	})
	if err != nil {
		return nil, err
	}

	return FromOutputs(outs...), nil
}

// FromPgConn is ExecPostgres for a raw *pgconn.PgConn.
func FromPgConn(ctx context.Context, conn *pgconn.PgConn, query string) (Cursor, error) {
	outs, err := execPgConn(ctx, conn, query)
	if err != nil {
		return nil, err
	}

	return FromOutputs(outs...), nil
}

func execPgConn(ctx context.Context, conn *pgconn.PgConn, query string) ([]Output, error) {
	results, err := conn.Exec(ctx, query).ReadAll()
	if err != nil {
		return nil, err
	}

	typeMap := pgtype.NewMap()
	outs := make([]Output, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			return nil, res.Err
		}

		if len(res.FieldDescriptions) == 0 {
			outs = append(outs, NewUpdateCountOutput(res.CommandTag.RowsAffected()))
			continue
		}

		rs, err := decodePgResult(typeMap, res)
		if err != nil {
			return nil, err
		}

		outs = append(outs, rs)
	}

	return outs, nil
}

func decodePgResult(typeMap *pgtype.Map, res *pgconn.Result) (*ResultSetOutput, error) {
	fields := res.FieldDescriptions
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	rows := make([][]any, 0, len(res.Rows))
	for _, raw := range res.Rows {
		values := make([]any, len(fields))
		for i, fd := range fields {
			if raw[i] == nil {
				continue
			}

			typ, ok := typeMap.TypeForOID(fd.DataTypeOID)
			if !ok {
				values[i] = string(raw[i])
				continue
			}

			v, err := typ.Codec.DecodeValue(typeMap, fd.DataTypeOID, fd.Format, raw[i])
			if err != nil {
				return nil, fmt.Errorf("failed to decode column %s: %w", fd.Name, err)
			}

			values[i] = v
		}

		rows = append(rows, values)
	}

	return NewResultSetOutput(columns, rows), nil
}
