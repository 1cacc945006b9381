package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/unistore/internal/ir"
)

// Column names an entries column a predicate may compare.
type Column string

const (
	ColumnID         Column = "id"
	ColumnFlowToken  Column = "flow_token"
	ColumnActionType Column = "action_type"
	ColumnOutcome    Column = "outcome"
	ColumnStateHash  Column = "state_hash"
)

func (c Column) valid() bool {
	switch c {
	case ColumnID, ColumnFlowToken, ColumnActionType, ColumnOutcome, ColumnStateHash:
		return true
	}
	return false
}

// Predicate filters journal entries.
//
// This is a sealed interface: only Equals, PayloadEquals, After and And
// implement it, so the compiler below can switch exhaustively.
type Predicate interface {
	predicateNode()
}

// Equals matches entries whose column equals Value.
type Equals struct {
	Column Column
	Value  string
}

// PayloadEquals matches entries whose payload has Key set to Value.
// Only scalar values compare.
type PayloadEquals struct {
	Key   string
	Value ir.Value
}

// After matches entries with seq greater than Seq.
type After struct {
	Seq int64
}

// And matches entries every predicate matches. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode()        {}
func (PayloadEquals) predicateNode() {}
func (After) predicateNode()         {}
func (And) predicateNode()           {}

// Query selects entries. Results are always in seq order.
type Query struct {
	Filter Predicate // nil matches every entry
	Limit  int       // 0 means no limit
}

// Query returns the entries matching q in seq order.
func (j *Journal) Query(ctx context.Context, q Query) ([]Entry, error) {
	stmt, params, err := compileQuery(q)
	if err != nil {
		return nil, err
	}
	return j.query(ctx, stmt, params...)
}

// compileQuery turns q into parameterized SQL. Values are never
// interpolated; column names come from a closed set.
func compileQuery(q Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString(selectEntries)

	var params []any
	if q.Filter != nil {
		where, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString("WHERE ")
		b.WriteString(where)
		b.WriteString("\n")
		params = p
	}

	b.WriteString("ORDER BY seq ASC, id COLLATE BINARY ASC")
	if q.Limit < 0 {
		return "", nil, fmt.Errorf("negative limit %d", q.Limit)
	}
	if q.Limit > 0 {
		b.WriteString("\nLIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		if !pred.Column.valid() {
			return "", nil, fmt.Errorf("unknown column %q", pred.Column)
		}
		return string(pred.Column) + " = ?", []any{pred.Value}, nil

	case PayloadEquals:
		if pred.Key == "" || strings.ContainsAny(pred.Key, `"\`) {
			return "", nil, fmt.Errorf("invalid payload key %q", pred.Key)
		}
		param, err := valueParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("payload.%s: %w", pred.Key, err)
		}
		return "json_extract(payload, ?) = ?", []any{`$."` + pred.Key + `"`, param}, nil

	case After:
		return "seq > ?", []any{pred.Seq}, nil

	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, p, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, p...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", params, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// valueParam converts a scalar value to a driver parameter. json_extract
// yields 1 and 0 for JSON booleans, so bools compare as integers.
func valueParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("%T cannot be compared", v)
	}
}
