package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	store "github.com/likearthian/ormstore"
	"github.com/likearthian/ormstore/result"
)

var refCursors int

var execCmd = &cobra.Command{
	Use:   "exec <script.sql>",
	Short: "Run a SQL script and print every statement output",
	Long: `Runs the statements of a script against the configured database.
Result sets are printed as YAML, other statements as their update count.
With pgx the script is sent as one multi-statement query. With oracle and
--ref-cursors the script is a single PL/SQL call whose first bind positions
are REF CURSOR out parameters.`,
	Args: cobra.ExactArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().IntVar(&refCursors, "ref-cursors", 0, "Number of REF CURSOR out parameters of an oracle call")
}

func runExec(cmd *cobra.Command, args []string) error {
	script, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	db, _, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cursor, err := scriptCursor(ctx, db, string(script))
	if err != nil {
		return err
	}

	execID := uuid.New()
	logger.Info().Str("script", args[0]).Str("execution_id", execID.String()).Msg("executing")

	outs := result.New(ctx, cursor, result.WithLogger(&logger), result.WithExecutionID(execID))
	defer outs.Close()

	return printOutputs(cmd.OutOrStdout(), outs)
}

func scriptCursor(ctx context.Context, db *sqlx.DB, script string) (result.Cursor, error) {
	driver, err := store.SQLDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	switch {
	case driver == "pgx":
		return result.ExecPostgres(ctx, db.DB, script)
	case driver == "oracle" && refCursors > 0:
		stmt := strings.TrimSuffix(strings.TrimSpace(script), "/")
		return result.CallOracle(ctx, db.DB, strings.TrimSpace(stmt), refCursors)
	}

	return result.FromScript(db, result.SplitScript(script)...), nil
}

func printOutputs(w io.Writer, outs result.Outputs) error {
	n := 0
	for outs.HasMore() {
		out, err := outs.Next()
		if err != nil {
			return err
		}
		n++

		rs, err := result.AsResultSet(out)
		if err != nil {
			fmt.Fprintf(w, "-- #%d %s\n", n, out)
			continue
		}

		fmt.Fprintf(w, "-- #%d %s\n", n, rs)
		if err := writeRows(w, rs); err != nil {
			return err
		}
	}

	return outs.Err()
}

// writeRows prints the rows as a YAML sequence, keeping the column order.
func writeRows(w io.Writer, rs *result.ResultSetOutput) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range rs.Rows() {
		rec := &yaml.Node{Kind: yaml.MappingNode}
		for i, col := range rs.Columns() {
			var val yaml.Node
			v := row[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if err := val.Encode(v); err != nil {
				return err
			}
			rec.Content = append(rec.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: col}, &val)
		}
		seq.Content = append(seq.Content, rec)
	}

	if len(seq.Content) == 0 {
		return nil
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}

	return enc.Close()
}
