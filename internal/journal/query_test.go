package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unistore/internal/ir"
)

func TestCompileQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      Query
		wantWhere  string
		wantParams []any
	}{
		{
			name:       "no filter",
			query:      Query{},
			wantWhere:  "",
			wantParams: nil,
		},
		{
			name:       "equals",
			query:      Query{Filter: Equals{Column: ColumnOutcome, Value: "rejected"}},
			wantWhere:  "WHERE outcome = ?",
			wantParams: []any{"rejected"},
		},
		{
			name: "and with payload",
			query: Query{Filter: And{Predicates: []Predicate{
				After{Seq: 7},
				PayloadEquals{Key: "panel", Value: ir.String("chat")},
			}}},
			wantWhere:  "WHERE (seq > ? AND json_extract(payload, ?) = ?)",
			wantParams: []any{int64(7), `$."panel"`, "chat"},
		},
		{
			name:       "empty and",
			query:      Query{Filter: And{}},
			wantWhere:  "WHERE 1 = 1",
			wantParams: nil,
		},
		{
			name:       "limit",
			query:      Query{Limit: 2},
			wantWhere:  "",
			wantParams: []any{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, params, err := compileQuery(tt.query)
			require.NoError(t, err)
			assert.Contains(t, stmt, "ORDER BY seq ASC, id COLLATE BINARY ASC")
			if tt.wantWhere != "" {
				assert.Contains(t, stmt, tt.wantWhere)
			} else {
				assert.NotContains(t, stmt, "WHERE")
			}
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCompileQuery_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"unknown column", Query{Filter: Equals{Column: "payload; DROP TABLE entries", Value: "x"}}},
		{"quoted payload key", Query{Filter: PayloadEquals{Key: `a"b`, Value: ir.String("x")}}},
		{"empty payload key", Query{Filter: PayloadEquals{Value: ir.String("x")}}},
		{"array value", Query{Filter: PayloadEquals{Key: "ids", Value: ir.Strings("a")}}},
		{"nested error", Query{Filter: And{Predicates: []Predicate{After{}, Equals{Column: "nope"}}}}},
		{"negative limit", Query{Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compileQuery(tt.query)
			assert.Error(t, err)
		})
	}
}

func TestQuery(t *testing.T) {
	j := createTestJournal(t)
	seedJournal(t, j)
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"all", Query{}, []string{"a", "b", "c", "d"}},
		{"flow", Query{Filter: Equals{Column: ColumnFlowToken, Value: "flow-b"}}, []string{"b", "c"}},
		{"action type", Query{Filter: Equals{Column: ColumnActionType, Value: "panel/toggle"}}, []string{"b", "c"}},
		{"outcome", Query{Filter: Equals{Column: ColumnOutcome, Value: string(OutcomeApplied)}}, []string{"a", "c"}},
		{"after", Query{Filter: After{Seq: 2}}, []string{"c", "d"}},
		{"limit", Query{Limit: 3}, []string{"a", "b", "c"}},
		{"combined", Query{Filter: And{Predicates: []Predicate{
			Equals{Column: ColumnFlowToken, Value: "flow-a"},
			After{Seq: 1},
		}}}, []string{"d"}},
		{"no match", Query{Filter: Equals{Column: ColumnID, Value: "zz"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := j.Query(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestQuery_PayloadEquals(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	payloads := []ir.Object{
		{"panel": ir.String("chat")},
		{"panel": ir.String("menu")},
		{"text": ir.String("bolts"), "page": ir.Int(2)},
		{"exact": ir.Bool(true)},
	}
	for i, p := range payloads {
		e := createTestEntry(string(rune('a'+i)), "flow", int64(i+1), "any")
		e.Action = ir.NewAction("any", p)
		require.NoError(t, j.Append(ctx, e))
	}

	tests := []struct {
		name  string
		key   string
		value ir.Value
		want  []string
	}{
		{"string", "panel", ir.String("chat"), []string{"a"}},
		{"int", "page", ir.Int(2), []string{"c"}},
		{"bool", "exact", ir.Bool(true), []string{"d"}},
		{"missing key", "view", ir.String("orders"), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := j.Query(ctx, Query{Filter: PayloadEquals{Key: tt.key, Value: tt.value}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}
