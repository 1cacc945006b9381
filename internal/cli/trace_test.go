package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
)

func seedTraceJournal(t *testing.T) string {
	t.Helper()

	db := tempDB(t)
	for _, args := range [][]string{
		{"panel/toggle", `{"panel":"chat"}`, "flow-a"},
		{"search/input", `{"text":"nuts"}`, "flow-b"},
		{"panel/toggle", `{"panel":"nope"}`, "flow-c"},
		{"panel/toggle", `{"panel":"todos"}`, "flow-d"},
	} {
		_, _, _ = execute(t, "dispatch", args[0], "--payload", args[1], "--flow", args[2], "--db", db)
	}
	return db
}

func TestTraceAll(t *testing.T) {
	db := seedTraceJournal(t)

	resp, err := executeJSON(t, "trace", "--db", db)
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, resp, &result)
	require.Len(t, result.Timeline, 4)
	for i, e := range result.Timeline {
		assert.Equal(t, int64(i+1), e.Seq)
	}
	assert.Equal(t, journal.Counts{Applied: 3, Rejected: 1}, result.Stats)
}

func TestTraceFilters(t *testing.T) {
	db := seedTraceJournal(t)

	tests := []struct {
		name string
		args []string
		seqs []int64
	}{
		{"flow", []string{"--flow", "flow-b"}, []int64{2}},
		{"action", []string{"--action", "panel/toggle"}, []int64{1, 3, 4}},
		{"after", []string{"--after", "2"}, []int64{3, 4}},
		{"action and after", []string{"--action", "panel/toggle", "--after", "3"}, []int64{4}},
		{"outcome", []string{"--outcome", "rejected"}, []int64{3}},
		{"payload match", []string{"--match", "panel=chat"}, []int64{1}},
		{"payload match and action", []string{"--match", "text=nuts", "--action", "panel/toggle"}, []int64{}},
		{"limit", []string{"--limit", "2"}, []int64{1, 2}},
		{"unknown flow", []string{"--flow", "flow-z"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := executeJSON(t, append([]string{"trace", "--db", db}, tt.args...)...)
			require.NoError(t, err)

			var result TraceResult
			decodeData(t, resp, &result)
			seqs := []int64{}
			for _, e := range result.Timeline {
				seqs = append(seqs, e.Seq)
			}
			assert.Equal(t, tt.seqs, seqs)
		})
	}
}

func TestTraceBadFilters(t *testing.T) {
	db := seedTraceJournal(t)

	for _, args := range [][]string{
		{"--outcome", "maybe"},
		{"--match", "novalue"},
		{"--match", "=x"},
		{"--limit", "-1"},
	} {
		t.Run(args[0]+" "+args[1], func(t *testing.T) {
			_, _, err := execute(t, append([]string{"trace", "--db", db}, args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestMatchValue(t *testing.T) {
	assert.Equal(t, ir.Int(42), matchValue("42"))
	assert.Equal(t, ir.Bool(true), matchValue("true"))
	assert.Equal(t, ir.String("TRUE"), matchValue("TRUE"))
	assert.Equal(t, ir.String("chat"), matchValue("chat"))
}

func TestTraceText(t *testing.T) {
	db := seedTraceJournal(t)

	out, _, err := execute(t, "trace", "--db", db, "--flow", "flow-c")
	require.NoError(t, err)
	assert.Contains(t, out, "Flow: flow-c")
	assert.Contains(t, out, `✗ [3] rejected {"payload":{"panel":"nope"},"type":"panel/toggle"}`)
	assert.Contains(t, out, "error: reduce: panel/toggle: payload.panel: unknown panel")
	assert.Contains(t, out, "Stats: 1 entries (0 applied, 1 rejected, 0 dropped)")

	out, _, err = execute(t, "trace", "--db", db, "--flow", "flow-z")
	require.NoError(t, err)
	assert.Contains(t, out, "No entries found for flow: flow-z")
}

func TestTraceMissingJournal(t *testing.T) {
	_, _, err := execute(t, "trace", "--db", tempDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
