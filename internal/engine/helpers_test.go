package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
)

var errBad = errors.New("bad action")

type counter struct {
	N int64
}

func (c counter) Snapshot() ir.Object {
	return ir.Object{"n": ir.Int(c.N)}
}

func counterReducer(s counter, a ir.Action) (counter, error) {
	switch a.Type {
	case "inc":
		s.N++
	case "add":
		n, ok := a.Payload.GetInt("n")
		if !ok {
			return s, errBad
		}
		s.N += n
	case "bad":
		return s, errBad
	case "boom":
		panic("boom")
	}
	return s, nil
}

func inc() ir.Action { return ir.NewAction("inc", nil) }

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, j *journal.Journal, flows []string, opts ...Option) *Engine[counter] {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(counterReducer, counter{}, j, NewFixedGenerator(flows...), opts...)
}

func hashOf(t *testing.T, c counter) string {
	t.Helper()
	h, err := ir.StateHash(c.Snapshot())
	require.NoError(t, err)
	return h
}
