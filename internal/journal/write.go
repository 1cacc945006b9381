package journal

import (
	"context"
	"fmt"

	"github.com/roach88/unistore/internal/ir"
)

// Append writes an entry to the journal.
// Uses ON CONFLICT(id) DO NOTHING so re-appending the same entry is a no-op.
// A different entry reusing an existing seq is still an error.
//
// The payload is stored as canonical JSON.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if err := e.validate(); err != nil {
		return fmt.Errorf("append: %w", err)
	}

	payload, err := ir.MarshalCanonical(e.Action.Payload)
	if err != nil {
		return fmt.Errorf("append %s: payload: %w", e.ID, err)
	}

	irVersion := e.IRVersion
	if irVersion == "" {
		irVersion = ir.IRVersion
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO entries
		(id, seq, flow_token, action_type, payload, outcome, error, state_hash, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.FlowToken,
		e.Action.Type,
		string(payload),
		string(e.Outcome),
		e.Error,
		e.StateHash,
		irVersion,
	)
	if err != nil {
		return fmt.Errorf("append %s: %w", e.ID, err)
	}
	return nil
}
