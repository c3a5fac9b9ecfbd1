package result

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

type fakeCursor struct {
	outs   []Output
	failAt int
	err    error
	closed int
	reads  int
}

func (f *fakeCursor) Advance(ctx context.Context) (Output, error) {
	if f.err != nil && f.reads == f.failAt {
		return nil, f.err
	}

	if f.reads >= len(f.outs) {
		return nil, io.EOF
	}

	out := f.outs[f.reads]
	f.reads++

	return out, nil
}

func (f *fakeCursor) Close() error {
	f.closed++
	return nil
}

func TestOutputs_Iteration(t *testing.T) {
	rs := NewResultSetOutput([]string{"ID"}, [][]any{{int64(1)}})
	uc := NewUpdateCountOutput(3)
	cursor := &fakeCursor{outs: []Output{rs, uc}}

	outs := New(context.Background(), cursor)

	assert.Same(t, rs, outs.Current())
	assert.True(t, outs.HasMore())
	// Current only peeks
	assert.Same(t, rs, outs.Current())

	out, err := outs.Next()
	require.NoError(t, err)
	assert.Same(t, rs, out)
	assert.True(t, out.IsResultSet())

	assert.Same(t, uc, outs.Current())
	out, err = outs.Next()
	require.NoError(t, err)
	assert.False(t, out.IsResultSet())
	assert.Equal(t, int64(3), out.(*UpdateCountOutput).UpdateCount())

	assert.False(t, outs.HasMore())
	assert.Nil(t, outs.Current())
	_, err = outs.Next()
	assert.True(t, errors.Is(err, ErrNoMoreOutputs))
	assert.NoError(t, outs.Err())

	// exhausted cursors are released right away, and only once
	assert.Equal(t, 1, cursor.closed)
	require.NoError(t, outs.Close())
	assert.Equal(t, 1, cursor.closed)
}

func TestOutputs_Empty(t *testing.T) {
	outs := New(context.Background(), FromOutputs())

	assert.Nil(t, outs.Current())
	assert.False(t, outs.HasMore())
	_, err := outs.Next()
	assert.True(t, errors.Is(err, ErrNoMoreOutputs))
}

func TestOutputs_CursorError(t *testing.T) {
	boom := errors.New("boom")
	cursor := &fakeCursor{
		outs:   []Output{NewUpdateCountOutput(1), NewUpdateCountOutput(2)},
		failAt: 1,
		err:    boom,
	}

	outs := New(context.Background(), cursor)
	out, err := outs.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.(*UpdateCountOutput).UpdateCount())

	assert.False(t, outs.HasMore())
	_, err = outs.Next()
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(outs.Err(), boom))
	assert.Equal(t, 1, cursor.closed)
}

func TestOutputs_Close(t *testing.T) {
	cursor := &fakeCursor{outs: []Output{NewUpdateCountOutput(1), NewUpdateCountOutput(2)}}
	outs := New(context.Background(), cursor)

	require.NoError(t, outs.Close())
	assert.Nil(t, outs.Current())
	assert.False(t, outs.HasMore())
	_, err := outs.Next()
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Equal(t, 1, cursor.closed)

	require.NoError(t, outs.Close())
	assert.Equal(t, 1, cursor.closed)
}

func TestOutputs_CloseAfterExhausted(t *testing.T) {
	outs := New(context.Background(), FromOutputs(NewUpdateCountOutput(1)))
	_, err := outs.Next()
	require.NoError(t, err)

	_, err = outs.Next()
	assert.True(t, errors.Is(err, ErrNoMoreOutputs))

	require.NoError(t, outs.Close())
	_, err = outs.Next()
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestOutputs_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outs := New(ctx, FromOutputs(NewUpdateCountOutput(1)))
	assert.False(t, outs.HasMore())
	assert.True(t, errors.Is(outs.Err(), context.Canceled))
}

func TestAll(t *testing.T) {
	outs := New(context.Background(), FromOutputs(NewUpdateCountOutput(1), NewUpdateCountOutput(2)))
	list, err := All(outs)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestResultSetOutput(t *testing.T) {
	type row struct {
		ID   int    `db:"ID,key auto"`
		Name string `db:"NAME,size=20"`
	}

	rs := NewResultSetOutput([]string{"ID", "NAME"}, [][]any{
		{int64(1), []byte("apple")},
		{int64(2), "pear"},
	})

	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, []Record{{"ID": int64(1), "NAME": []byte("apple")}, {"ID": int64(2), "NAME": "pear"}}, rs.Records())

	first, err := rs.SingleResult()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first["ID"])

	var all []row
	require.NoError(t, rs.Decode(&all))
	assert.Equal(t, []row{{ID: 1, Name: "apple"}, {ID: 2, Name: "pear"}}, all)

	var one row
	require.NoError(t, rs.Decode(&one))
	assert.Equal(t, row{ID: 1, Name: "apple"}, one)

	empty := NewResultSetOutput([]string{"ID"}, nil)
	_, err = empty.SingleResult()
	assert.True(t, errors.Is(err, ErrNoRows))

	_, err = AsResultSet(NewUpdateCountOutput(1))
	assert.True(t, errors.Is(err, ErrNotResultSet))
}
