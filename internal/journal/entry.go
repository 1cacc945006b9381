package journal

import (
	"fmt"

	"github.com/roach88/unistore/internal/ir"
)

// Outcome records what the engine did with an action.
type Outcome string

const (
	// OutcomeApplied means the reducer accepted the action and the state
	// moved on.
	OutcomeApplied Outcome = "applied"
	// OutcomeRejected means the reducer returned an error; the state did
	// not change.
	OutcomeRejected Outcome = "rejected"
	// OutcomeDropped means the action never reached the reducer because
	// its flow exhausted its step quota.
	OutcomeDropped Outcome = "dropped"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeApplied, OutcomeRejected, OutcomeDropped:
		return true
	}
	return false
}

// Entry is one row of the journal.
//
// StateHash is the hash of the state after the entry was processed, so for
// rejected and dropped entries it equals the hash of the previous state.
type Entry struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	FlowToken string    `json:"flow_token"`
	Action    ir.Action `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	StateHash string    `json:"state_hash"`
	IRVersion string    `json:"ir_version"`
}

// Counts tallies entries by outcome.
type Counts struct {
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
	Dropped  int `json:"dropped"`
}

// Total is the number of entries counted.
func (c Counts) Total() int {
	return c.Applied + c.Rejected + c.Dropped
}

func (e Entry) validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("entry id is empty")
	case e.Seq <= 0:
		return fmt.Errorf("entry %s: seq must be positive, got %d", e.ID, e.Seq)
	case e.FlowToken == "":
		return fmt.Errorf("entry %s: flow token is empty", e.ID)
	case e.Action.Type == "":
		return fmt.Errorf("entry %s: action type is empty", e.ID)
	case !e.Outcome.Valid():
		return fmt.Errorf("entry %s: unknown outcome %q", e.ID, e.Outcome)
	}
	return nil
}
