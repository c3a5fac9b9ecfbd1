package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/likearthian/ormstore/metamodel"
)

// DBTable marks a struct as a table. Its schema and name tags set the
// table's schema and name.
type DBTable struct {
}

type TableDef struct {
	Schema       string
	Name         string
	KeyField     string
	PrimaryField []string
	Columns      []Column
	Entity       *metamodel.EntityBinding
}

func (t TableDef) FullTableName() string {
	if t.Schema == "" {
		return t.Name
	}

	return t.Schema + "." + t.Name
}

func (t TableDef) ColumnNames() []string {
	return Map(t.Columns, func(c Column) string { return c.ColumnName })
}

// createTableDef describes the table of m. Column types are the dialect's
// when one is given, the mapping type names otherwise.
func createTableDef(m *entityModel, dialect Dialect) TableDef {
	table := m.entity.Table
	keys := m.keyColumns()

	td := TableDef{
		Schema:       table.Schema,
		Name:         table.Name,
		PrimaryField: keys,
		Entity:       m.entity,
	}

	if len(keys) == 1 {
		td.KeyField = keys[0]
	}

	for _, c := range table.Columns {
		dtype := c.TypeName
		if dialect != nil {
			if t, err := dialect.ColumnType(c); err == nil {
				dtype = t
			}
		}

		td.Columns = append(td.Columns, Column{
			ColumnName: c.Name,
			DataType:   dtype,
			Nullable:   c.Nullable,
		})
	}

	return td
}

// CreateTableDDL returns the CREATE TABLE statement of t, primary and
// foreign keys included.
func CreateTableDDL(d Dialect, t *metamodel.Table) (string, error) {
	inlinePK := false
	var ddlCols []string
	for _, col := range t.Columns {
		dtype, err := d.ColumnType(col)
		if err != nil {
			return "", fmt.Errorf("%s: %w", t.QualifiedName(), err)
		}

		var ddlCol strings.Builder
		ddlCol.WriteString(fmt.Sprintf("%s %s", col.Name, dtype))

		if col.Identity {
			clause, inline := d.IdentityClause(col)
			ddlCol.WriteString(" " + clause)
			inlinePK = inlinePK || inline
		}

		if !col.Nullable && !(col.Identity && inlinePK) {
			ddlCol.WriteString(" NOT NULL")
		}

		if col.Unique {
			ddlCol.WriteString(" UNIQUE")
		}

		if col.Default != "" {
			ddlCol.WriteString(" DEFAULT " + col.Default)
		}

		if col.Check != "" {
			ddlCol.WriteString(fmt.Sprintf(" CHECK (%s)", col.Check))
		}

		ddlCols = append(ddlCols, ddlCol.String())
	}

	if pk := t.PrimaryKey; pk != nil && len(pk.Columns) > 0 && !inlinePK {
		ddlCols = append(ddlCols, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", pk.Name, strings.Join(columnNames(pk.Columns), ", ")))
	}

	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			fk.Name,
			strings.Join(columnNames(fk.Columns), ", "),
			d.TableName(fk.ReferencedTable),
			strings.Join(columnNames(fk.ReferencedColumns), ", "))
		if fk.CascadeDelete {
			clause += " ON DELETE CASCADE"
		}
		ddlCols = append(ddlCols, clause)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", d.TableName(t), strings.Join(ddlCols, ",\n\t")), nil
}

// CreateSchemaDDL returns the CREATE TABLE statements of every table of md,
// referenced tables first.
func CreateSchemaDDL(d Dialect, md *metamodel.Metadata) ([]string, error) {
	var stmts []string
	for _, t := range md.Tables() {
		ddl, err := CreateTableDDL(d, t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, ddl)
	}

	return stmts, nil
}

// CreateSchema runs CreateSchemaDDL against db in one transaction.
func CreateSchema(ctx context.Context, db *sqlx.DB, d Dialect, md *metamodel.Metadata) error {
	stmts, err := CreateSchemaDDL(d, md)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return d.WrapError(err)
		}
	}

	return tx.Commit()
}

func columnNames(cols []*metamodel.Column) []string {
	return Map(cols, func(c *metamodel.Column) string { return c.Name })
}
