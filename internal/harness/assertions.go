package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/unistore/internal/ir"
)

// AssertionError describes a failed assertion with the trace for context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Action, canonicalString(ev.Payload), ev.Outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(result, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertNotifyCount:
		if result.Notifications != a.Count {
			return &AssertionError{
				Type:     AssertNotifyCount,
				Expected: fmt.Sprintf("%d notifications", a.Count),
				Actual:   fmt.Sprintf("%d notifications", result.Notifications),
				Trace:    result.Trace,
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFinalState(result *Result, a Assertion) error {
	want, err := ir.ObjectFromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("final_state expect: %w", err)
	}
	if path, ok := subsetMatch(want, result.State, ""); !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s in %s", path, canonicalString(want)),
			Actual:   canonicalString(result.State),
		}
	}
	return nil
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want, err := ir.ObjectFromAny(a.Payload)
	if err != nil {
		return fmt.Errorf("trace_contains payload: %w", err)
	}
	for _, ev := range trace {
		if matchesEvent(ev, a) {
			if _, ok := subsetMatch(want, ev.Payload, ""); ok {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with payload %s", a.Action, canonicalString(want)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that actions appear in order, gaps allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Actions) && ev.Action == a.Actions[next] {
			next++
		}
	}
	if next < len(a.Actions) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("actions in order: %v", a.Actions),
			Actual:   fmt.Sprintf("%s not found after %v", a.Actions[next], a.Actions[:next]),
			Trace:    trace,
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchesEvent(ev, a) {
			count++
		}
	}
	if count != a.Count {
		what := a.Action
		if a.Outcome != "" {
			what += " (" + string(a.Outcome) + ")"
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func matchesEvent(ev TraceEvent, a Assertion) bool {
	if ev.Action != a.Action {
		return false
	}
	return a.Outcome == "" || ev.Outcome == a.Outcome
}

// subsetMatch reports whether every field of want is present in got with
// an equal value. Nested objects match recursively; anything else must be
// equal as a whole. On mismatch it returns the path of the first
// offending field.
func subsetMatch(want, got ir.Object, prefix string) (string, bool) {
	for _, key := range want.SortedKeys() {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		g, ok := got[key]
		if !ok {
			return path, false
		}
		if wo, isObj := want[key].(ir.Object); isObj {
			gotObj, ok := g.(ir.Object)
			if !ok {
				return path, false
			}
			if p, ok := subsetMatch(wo, gotObj, path); !ok {
				return p, false
			}
			continue
		}
		if !cmp.Equal(want[key], g) {
			return path, false
		}
	}
	return "", true
}

func canonicalString(o ir.Object) string {
	b, err := ir.MarshalCanonical(o)
	if err != nil {
		return fmt.Sprintf("%v", ir.ToAny(o))
	}
	return string(b)
}
