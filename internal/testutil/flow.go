package testutil

import (
	"fmt"
	"sync"
)

// DefaultFlowBase is used when a scenario names no flow token.
const DefaultFlowBase = "test-flow"

// SequenceFlowGenerator numbers flow tokens off a fixed base: "base-1",
// "base-2", and so on. Each scenario step submits one flow, so the trace
// shows which actions a step cascaded into.
type SequenceFlowGenerator struct {
	mu   sync.Mutex
	base string
	n    int
}

// NewSequenceFlowGenerator creates a generator over base. An empty base
// falls back to DefaultFlowBase.
func NewSequenceFlowGenerator(base string) *SequenceFlowGenerator {
	if base == "" {
		base = DefaultFlowBase
	}
	return &SequenceFlowGenerator{base: base}
}

// Generate implements engine.FlowTokenGenerator.
func (g *SequenceFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.base, g.n)
}

// Reset restarts numbering at 1.
func (g *SequenceFlowGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
