package journal

import (
	"path/filepath"
	"testing"

	"github.com/roach88/unistore/internal/ir"
)

// createTestJournal opens a file-backed journal in a temp dir.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// createTestEntry builds an applied entry with minimal fields.
func createTestEntry(id, flow string, seq int64, actionType string) Entry {
	return Entry{
		ID:        id,
		Seq:       seq,
		FlowToken: flow,
		Action:    ir.NewAction(actionType, nil),
		Outcome:   OutcomeApplied,
		StateHash: "hash-" + id,
		IRVersion: ir.IRVersion,
	}
}
