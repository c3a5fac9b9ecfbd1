package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	store "github.com/likearthian/ormstore"
	"github.com/likearthian/ormstore/mapping"
	"github.com/likearthian/ormstore/metamodel"
)

var ddlDialect string

var validateCmd = &cobra.Command{
	Use:   "validate [mapping...]",
	Short: "Load and bind mapping documents",
	Long:  `Loads the XML or YAML mapping documents, given as arguments or in the config, and binds them, reporting every problem found.`,
	RunE:  runValidate,
}

var ddlCmd = &cobra.Command{
	Use:   "ddl [mapping...]",
	Short: "Print the CREATE TABLE statements of the mapped entities",
	RunE:  runDDL,
}

func init() {
	ddlCmd.Flags().StringVarP(&ddlDialect, "dialect", "d", "", "postgres, sqlite or oracle (default: the config driver)")
}

// bindMappings binds the documents named by args, or by the config when args
// is empty.
func bindMappings(args []string) (*metamodel.Metadata, error) {
	paths := args
	if len(paths) == 0 {
		paths = cfg.Mappings
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no mapping documents given")
	}

	docs, err := mapping.LoadFiles(paths...)
	if err != nil {
		return nil, err
	}

	naming, err := cfg.NamingStrategy()
	if err != nil {
		return nil, err
	}

	return metamodel.Bind(docs, metamodel.WithLogger(&logger), metamodel.WithNamingStrategy(naming))
}

func runValidate(cmd *cobra.Command, args []string) error {
	md, err := bindMappings(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range md.Entities() {
		var keys []string
		for _, c := range e.Identifier.Columns() {
			keys = append(keys, c.Name)
		}
		fmt.Fprintf(out, "%s -> %s (%s)\n", e.EntityName, e.Table.QualifiedName(), strings.Join(keys, ", "))
	}
	fmt.Fprintf(out, "%d entities OK\n", len(md.Entities()))

	return nil
}

func runDDL(cmd *cobra.Command, args []string) error {
	name := ddlDialect
	if name == "" {
		name = cfg.Driver
	}

	dialect, err := store.DialectFor(name)
	if err != nil {
		return err
	}

	md, err := bindMappings(args)
	if err != nil {
		return err
	}

	stmts, err := store.CreateSchemaDDL(dialect, md)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
	}

	return nil
}
