package mapping

import (
	"strconv"
	"strings"
)

type RelationalValueNature int

const (
	ValueColumn RelationalValueNature = iota
	ValueDerived
)

func (n RelationalValueNature) String() string {
	return [...]string{"COLUMN", "DERIVED"}[n]
}

// RelationalValueSource is either a *ColumnSource or a *DerivedValueSource.
type RelationalValueSource interface {
	Nature() RelationalValueNature
	ContainingTableName() string
}

type ColumnSource struct {
	Name          string
	SQLType       string
	Length        int
	Precision     int
	Scale         int
	Nullable      TruthValue
	Unique        bool
	Default       string
	Check         string
	ReadFragment  string
	WriteFragment string
	Insertable    TruthValue
	Updatable     TruthValue
	TableName     string
}

func (c *ColumnSource) Nature() RelationalValueNature {
	return ValueColumn
}

func (c *ColumnSource) ContainingTableName() string {
	return c.TableName
}

// DerivedValueSource is a formula mapped in place of a column.
type DerivedValueSource struct {
	Expression string
	TableName  string
}

func (d *DerivedValueSource) Nature() RelationalValueNature {
	return ValueDerived
}

func (d *DerivedValueSource) ContainingTableName() string {
	return d.TableName
}

// valueSourcesAdapter carries what buildValueSources needs from a mapping
// element, whatever element kind that is.
type valueSourcesAdapter struct {
	ColumnAttribute           string
	FormulaAttribute          string
	Columns                   []Column
	Formulas                  []string
	ContainingTableName       string
	Length                    string
	NotNull                   string
	Unique                    string
	IncludedInInsertByDefault bool
	IncludedInUpdateByDefault bool
}

func buildValueSources(doc *DocumentSource, owner string, a valueSourcesAdapter) ([]RelationalValueSource, error) {
	var sources []RelationalValueSource

	if a.ColumnAttribute != "" {
		if len(a.Columns) > 0 || len(a.Formulas) > 0 {
			return nil, mappingErrorf(doc.Origin(), "%s: column attribute and nested column/formula elements are mutually exclusive", owner)
		}

		if a.FormulaAttribute != "" {
			return nil, mappingErrorf(doc.Origin(), "%s: column and formula attributes are mutually exclusive", owner)
		}

		length, err := parseInt(doc, owner, "length", a.Length)
		if err != nil {
			return nil, err
		}

		sources = append(sources, &ColumnSource{
			Name:       strings.TrimSpace(a.ColumnAttribute),
			Length:     length,
			Nullable:   negate(parseTruth(a.NotNull)),
			Unique:     parseTruth(a.Unique) == True,
			Insertable: fromBool(a.IncludedInInsertByDefault),
			Updatable:  fromBool(a.IncludedInUpdateByDefault),
			TableName:  a.ContainingTableName,
		})

		return sources, nil
	}

	if a.FormulaAttribute != "" {
		if len(a.Columns) > 0 || len(a.Formulas) > 0 {
			return nil, mappingErrorf(doc.Origin(), "%s: formula attribute and nested column/formula elements are mutually exclusive", owner)
		}

		return []RelationalValueSource{&DerivedValueSource{
			Expression: strings.TrimSpace(a.FormulaAttribute),
			TableName:  a.ContainingTableName,
		}}, nil
	}

	for _, col := range a.Columns {
		cs, err := columnSourceFromElement(doc, owner, col, a)
		if err != nil {
			return nil, err
		}

		sources = append(sources, cs)
	}

	for _, f := range a.Formulas {
		sources = append(sources, &DerivedValueSource{
			Expression: strings.TrimSpace(f),
			TableName:  a.ContainingTableName,
		})
	}

	return sources, nil
}

func columnSourceFromElement(doc *DocumentSource, owner string, col Column, a valueSourcesAdapter) (*ColumnSource, error) {
	if strings.TrimSpace(col.Name) == "" {
		return nil, mappingErrorf(doc.Origin(), "%s: column element without name", owner)
	}

	length, err := parseInt(doc, owner, "length", col.Length)
	if err != nil {
		return nil, err
	}

	precision, err := parseInt(doc, owner, "precision", col.Precision)
	if err != nil {
		return nil, err
	}

	scale, err := parseInt(doc, owner, "scale", col.Scale)
	if err != nil {
		return nil, err
	}

	notNull := parseTruth(col.NotNull)
	if notNull == Unknown {
		notNull = parseTruth(a.NotNull)
	}

	return &ColumnSource{
		Name:          strings.TrimSpace(col.Name),
		SQLType:       col.SQLType,
		Length:        length,
		Precision:     precision,
		Scale:         scale,
		Nullable:      negate(notNull),
		Unique:        parseTruth(col.Unique) == True,
		Default:       col.Default,
		Check:         col.Check,
		ReadFragment:  col.Read,
		WriteFragment: col.Write,
		Insertable:    fromBool(a.IncludedInInsertByDefault),
		Updatable:     fromBool(a.IncludedInUpdateByDefault),
		TableName:     a.ContainingTableName,
	}, nil
}

func parseTruth(value string) TruthValue {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return True
	case "false":
		return False
	default:
		return Unknown
	}
}

func negate(t TruthValue) TruthValue {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func fromBool(b bool) TruthValue {
	if b {
		return True
	}

	return False
}

func parseInt(doc *DocumentSource, owner, attr, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, mappingErrorf(doc.Origin(), "%s: invalid %s %q", owner, attr, value)
	}

	return n, nil
}
