package store

import (
	"database/sql"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func TestMakeOraValueSlice(t *testing.T) {
	long := strings.Repeat("é", 2001)
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	args := makeOraValueSlice(
		[]typeClass{stringClass, longClass, doubleClass, boolClass, timestampClass},
		[][]any{
			{long, int64(1<<53 + 1), 2.5, true, at},
			{null.StringFrom("b"), null.IntFrom(5), int32(3), false, nil},
			{nil, nil, nil, nil, null.TimeFrom(at)},
		},
	)
	require.Len(t, args, 5)

	strs := args[0].([]sql.NullString)
	assert.Len(t, strs[0].String, 4000)
	assert.True(t, utf8.ValidString(strs[0].String))
	assert.Equal(t, sql.NullString{Valid: true, String: "b"}, strs[1])
	assert.False(t, strs[2].Valid)

	ints := args[1].([]sql.NullInt64)
	assert.Equal(t, []sql.NullInt64{{Valid: true, Int64: 1<<53 + 1}, {Valid: true, Int64: 5}, {}}, ints)

	floats := args[2].([]sql.NullFloat64)
	assert.Equal(t, []sql.NullFloat64{{Valid: true, Float64: 2.5}, {Valid: true, Float64: 3}, {}}, floats)

	bools := args[3].([]sql.NullInt64)
	assert.Equal(t, []sql.NullInt64{{Valid: true, Int64: 1}, {Valid: true}, {}}, bools)

	times := args[4].([]sql.NullTime)
	assert.Equal(t, []sql.NullTime{{Valid: true, Time: at}, {}, {Valid: true, Time: at}}, times)
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "abc", truncateUTF8("abc", 5))
	assert.Equal(t, "ab", truncateUTF8("abc", 2))
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "", truncateUTF8("日本", 2))
}
