package result

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoMoreOutputs = errors.New("no more outputs")
	ErrClosed        = errors.New("outputs closed")
)

// Outputs walks the results of one statement execution in order.
//
// Current peeks at the output under the cursor, nil when there is none.
// Next returns that same output and moves past it; once everything has been
// returned it fails with ErrNoMoreOutputs, and with ErrClosed after Close.
// HasMore reports whether Next would succeed.
type Outputs interface {
	Current() Output
	HasMore() bool
	Next() (Output, error)
	Err() error
	Close() error
}

// Cursor produces the outputs of an execution one at a time. Advance returns
// io.EOF once there are no more.
type Cursor interface {
	Advance(ctx context.Context) (Output, error)
	Close() error
}

type Option func(o *outputs)

func WithLogger(logger *zerolog.Logger) Option {
	return func(o *outputs) {
		o.logger = logger
	}
}

// WithExecutionID tags log lines with id instead of a generated one.
func WithExecutionID(id uuid.UUID) Option {
	return func(o *outputs) {
		o.id = id
	}
}

type outputs struct {
	ctx      context.Context
	cursor   Cursor
	current  Output
	err      error
	closed   bool
	stopped  bool // Close was called
	position int
	logger   *zerolog.Logger
	id       uuid.UUID
}

// New reads the first output from cursor and returns Outputs positioned on
// it. The cursor is closed as soon as it runs out, and on Close.
func New(ctx context.Context, cursor Cursor, options ...Option) Outputs {
	nop := zerolog.Nop()
	o := &outputs{
		ctx:    ctx,
		cursor: cursor,
		logger: &nop,
		id:     uuid.New(),
	}

	for _, opt := range options {
		opt(o)
	}

	o.advance()

	return o
}

func (o *outputs) advance() {
	o.current = nil
	if o.closed {
		return
	}

	out, err := o.cursor.Advance(o.ctx)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			o.err = err
			o.logger.Err(err).Str("execution_id", o.id.String()).Int("position", o.position).Msg("failed to read statement output")
		}

		o.release()
		return
	}

	o.current = out
	o.logger.Debug().
		Str("execution_id", o.id.String()).
		Int("position", o.position).
		Bool("result_set", out.IsResultSet()).
		Msg("statement output read")
}

func (o *outputs) Current() Output {
	return o.current
}

func (o *outputs) HasMore() bool {
	return o.current != nil
}

func (o *outputs) Next() (Output, error) {
	if o.current == nil {
		if o.err != nil {
			return nil, o.err
		}
		if o.stopped {
			return nil, ErrClosed
		}

		return nil, ErrNoMoreOutputs
	}

	out := o.current
	o.position++
	o.advance()

	return out, nil
}

func (o *outputs) Err() error {
	return o.err
}

func (o *outputs) Close() error {
	o.current = nil
	o.stopped = true
	return o.release()
}

func (o *outputs) release() error {
	if o.closed {
		return nil
	}

	o.closed = true
	if err := o.cursor.Close(); err != nil {
		o.logger.Err(err).Str("execution_id", o.id.String()).Msg("failed to close statement outputs")
		return err
	}

	return nil
}

// All drains outs and returns every remaining output.
func All(outs Outputs) ([]Output, error) {
	var list []Output
	for outs.HasMore() {
		out, err := outs.Next()
		if err != nil {
			return list, err
		}

		list = append(list, out)
	}

	return list, outs.Err()
}

// sliceCursor replays outputs that were read ahead of time.
type sliceCursor struct {
	outputs []Output
	closeFn func() error
}

// FromOutputs is a Cursor over already materialised outputs.
func FromOutputs(outs ...Output) Cursor {
	return &sliceCursor{outputs: outs}
}

func (s *sliceCursor) Advance(ctx context.Context) (Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.outputs) == 0 {
		return nil, io.EOF
	}

	out := s.outputs[0]
	s.outputs = s.outputs[1:]

	return out, nil
}

func (s *sliceCursor) Close() error {
	s.outputs = nil
	if s.closeFn != nil {
		return s.closeFn()
	}

	return nil
}
