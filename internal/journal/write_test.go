package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unistore/internal/ir"
)

func TestAppend_RoundTrip(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	e := Entry{
		ID:        "e1",
		Seq:       1,
		FlowToken: "flow-a",
		Action:    ir.NewAction("search/input", ir.Object{"text": ir.String("café")}),
		Outcome:   OutcomeRejected,
		Error:     "boom",
		StateHash: "abc",
	}
	require.NoError(t, j.Append(ctx, e))

	got, err := j.ReadEntry(ctx, "e1")
	require.NoError(t, err)

	e.IRVersion = ir.IRVersion
	assert.Equal(t, e, got)
}

func TestAppend_StoresCanonicalPayload(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	e := createTestEntry("e1", "flow-a", 1, "center/show")
	e.Action.Payload = ir.Object{"z": ir.Int(1), "a": ir.Bool(true)}
	require.NoError(t, j.Append(ctx, e))

	var payload string
	require.NoError(t, j.DB().QueryRow("SELECT payload FROM entries WHERE id = 'e1'").Scan(&payload))
	assert.Equal(t, `{"a":true,"z":1}`, payload)
}

func TestAppend_IdempotentOnID(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	e := createTestEntry("e1", "flow-a", 1, "power/off")
	require.NoError(t, j.Append(ctx, e))
	require.NoError(t, j.Append(ctx, e))

	c, err := j.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Total())
}

func TestAppend_DuplicateSeqFails(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Append(ctx, createTestEntry("e1", "flow-a", 1, "power/off")))
	assert.Error(t, j.Append(ctx, createTestEntry("e2", "flow-a", 1, "power/off")))
}

func TestAppend_Validation(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Entry)
	}{
		{"empty id", func(e *Entry) { e.ID = "" }},
		{"zero seq", func(e *Entry) { e.Seq = 0 }},
		{"empty flow", func(e *Entry) { e.FlowToken = "" }},
		{"empty type", func(e *Entry) { e.Action.Type = "" }},
		{"bad outcome", func(e *Entry) { e.Outcome = "lost" }},
		{"null payload", func(e *Entry) { e.Action.Payload = ir.Object{"x": ir.Null{}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEntry("e1", "flow-a", 1, "power/off")
			tt.mutate(&e)
			assert.Error(t, j.Append(ctx, e))
		})
	}
}

func TestReadEntry_NotFound(t *testing.T) {
	j := createTestJournal(t)

	_, err := j.ReadEntry(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
