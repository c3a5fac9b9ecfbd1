package metamodel

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// NamingStrategy supplies the names a mapping leaves implicit.
type NamingStrategy interface {
	TableName(className string) string
	ColumnName(attributeName string) string
	ForeignKeyColumnName(attributeName, referencedColumn string) string
	ForeignKeyName(table, attributeName string) string
	PrimaryKeyName(table string) string
}

// SnakeCaseNaming derives lower snake_case names: OrderLine -> order_line,
// order + id -> order_id.
type SnakeCaseNaming struct{}

func (SnakeCaseNaming) TableName(className string) string {
	return strcase.ToSnake(simpleName(className))
}

func (SnakeCaseNaming) ColumnName(attributeName string) string {
	return strcase.ToSnake(attributeName)
}

func (SnakeCaseNaming) ForeignKeyColumnName(attributeName, referencedColumn string) string {
	return strcase.ToSnake(attributeName) + "_" + strcase.ToSnake(referencedColumn)
}

func (SnakeCaseNaming) ForeignKeyName(table, attributeName string) string {
	return "fk_" + strcase.ToSnake(unqualified(table)) + "_" + strcase.ToSnake(attributeName)
}

func (SnakeCaseNaming) PrimaryKeyName(table string) string {
	return "pk_" + strcase.ToSnake(unqualified(table))
}

// ScreamingSnakeNaming derives upper case names the way untagged struct fields
// are named: OrderLine -> ORDER_LINE.
type ScreamingSnakeNaming struct{}

func (ScreamingSnakeNaming) TableName(className string) string {
	return strcase.ToScreamingSnake(simpleName(className))
}

func (ScreamingSnakeNaming) ColumnName(attributeName string) string {
	return strcase.ToScreamingSnake(attributeName)
}

func (ScreamingSnakeNaming) ForeignKeyColumnName(attributeName, referencedColumn string) string {
	return strcase.ToScreamingSnake(attributeName) + "_" + strcase.ToScreamingSnake(referencedColumn)
}

func (ScreamingSnakeNaming) ForeignKeyName(table, attributeName string) string {
	return "FK_" + strcase.ToScreamingSnake(unqualified(table)) + "_" + strcase.ToScreamingSnake(attributeName)
}

func (ScreamingSnakeNaming) PrimaryKeyName(table string) string {
	return "PK_" + strcase.ToScreamingSnake(unqualified(table))
}

func unqualified(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[i+1:]
	}

	return table
}
