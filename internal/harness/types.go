package harness

import (
	"github.com/roach88/unistore/internal/ir"
	"github.com/roach88/unistore/internal/journal"
)

// TraceEvent is one journal entry as it appears in traces and golden files.
type TraceEvent struct {
	Seq     int64           `json:"seq"`
	Flow    string          `json:"flow"`
	Action  string          `json:"action"`
	Payload ir.Object       `json:"payload"`
	Outcome journal.Outcome `json:"outcome"`
	Error   string          `json:"error,omitempty"`
}

func traceEvent(e journal.Entry) TraceEvent {
	return TraceEvent{
		Seq:     e.Seq,
		Flow:    e.FlowToken,
		Action:  e.Action.Type,
		Payload: e.Action.Payload,
		Outcome: e.Outcome,
		Error:   e.Error,
	}
}

// object renders the event in canonical form.
func (ev TraceEvent) object() ir.Object {
	o := ir.Object{
		"seq":     ir.Int(ev.Seq),
		"flow":    ir.String(ev.Flow),
		"action":  ir.String(ev.Action),
		"payload": ev.Payload,
		"outcome": ir.String(ev.Outcome),
	}
	if ev.Error != "" {
		o["error"] = ir.String(ev.Error)
	}
	return o
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace is the journal in seq order.
	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// State is the final shell snapshot and StateHash its hash.
	State     ir.Object `json:"state"`
	StateHash string    `json:"state_hash"`

	// Notifications counts subscriber calls across the run.
	Notifications int `json:"notifications"`
}

// NewResult creates a passing, empty result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  ir.Object{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
