package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapping = `
package: shop
classes:
  - name: Order
    table: orders
    id:
      name: id
      column: order_id
      type: long
      generator:
        class: identity
  - name: OrderLine
    table: order_line
    composite_id:
      key_many_to_one:
        - name: order
          class: Order
          columns:
            - name: order_id
          on_delete: cascade
      key_properties:
        - name: lineNo
          column: line_no
          type: integer
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	config := writeFile(t, dir, "ormtool.yaml", "driver: sqlite\ndsn: \":memory:\"\nlog_level: error\n")

	refCursors, ddlDialect, verbose = 0, "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", config}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	mapping := writeFile(t, t.TempDir(), "shop.yaml", testMapping)

	out, err := runCLI(t, "validate", mapping)
	require.NoError(t, err)
	assert.Contains(t, out, "shop.Order -> orders (order_id)")
	assert.Contains(t, out, "2 entities OK")

	_, err = runCLI(t, "validate")
	assert.ErrorContains(t, err, "no mapping documents")
}

func TestDDL(t *testing.T) {
	mapping := writeFile(t, t.TempDir(), "shop.yaml", testMapping)

	out, err := runCLI(t, "ddl", "--dialect", "postgres", mapping)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE orders (\n\torder_id BIGINT GENERATED BY DEFAULT AS IDENTITY NOT NULL")
	assert.Contains(t, out, "REFERENCES orders (order_id) ON DELETE CASCADE\n);")

	_, err = runCLI(t, "ddl", "--dialect", "db2", mapping)
	assert.Error(t, err)
}

func TestExec(t *testing.T) {
	script := writeFile(t, t.TempDir(), "seed.sql", `
-- fruit; the basics
CREATE TABLE fruit (id INTEGER PRIMARY KEY, name TEXT);
INSERT INTO fruit VALUES (1, 'apple'), (2, 'pear; ripe');
SELECT id, name FROM fruit ORDER BY id;
`)

	out, err := runCLI(t, "exec", script)
	require.NoError(t, err)
	assert.Contains(t, out, "-- #1 update count 0")
	assert.Contains(t, out, "-- #2 update count 2")
	assert.Contains(t, out, "-- #3 result set (2 columns, 2 rows)")
	assert.Contains(t, out, "- id: 1\n  name: apple\n")
	assert.Contains(t, out, "pear; ripe")

	_, err = runCLI(t, "exec", filepath.Join(t.TempDir(), "missing.sql"))
	assert.Error(t, err)
}
