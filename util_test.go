package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitBatch(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}

	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, SplitBatch(list, 2))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, SplitBatch(list, 10))
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, SplitBatch(list, 0))
	assert.Nil(t, SplitBatch([]int{}, 3))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestParseFilterMapIntoWhereClause(t *testing.T) {
	where, args, err := ParseFilterMapIntoWhereClause(map[string]any{
		"name":    FilterStringContainsFrom("an"),
		"id":      []int{1, 2, 3},
		"deleted": FilterNullFrom(true),
		"owner":   nil,
		"kind":    "fruit",
		"tags":    []string{"x"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "deleted IS NULL AND id IN (?, ?, ?) AND kind = ? AND name LIKE ? AND owner IS NULL AND tags = ?", where)
	assert.Equal(t, []any{1, 2, 3, "fruit", "%an%", "x"}, args)

	_, _, err = ParseFilterMapIntoWhereClause(map[string]any{"id": []int{}})
	assert.Error(t, err)
}

func TestMakeSortClause(t *testing.T) {
	assert.Equal(t, "", MakeSortClause(nil, nil))
	assert.Equal(t, "NAME DESC,id ASC", MakeSortClause([]string{"-name", "+id", ""}, map[string]string{"name": "NAME"}))
}
