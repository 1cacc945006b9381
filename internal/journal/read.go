package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/unistore/internal/ir"
)

const selectEntries = `
	SELECT id, seq, flow_token, action_type, payload, outcome, error, state_hash, ir_version
	FROM entries
`

// Entries returns every entry in seq order.
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) Entries(ctx context.Context) ([]Entry, error) {
	return j.query(ctx, selectEntries+`ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// EntriesAfter returns the entries with seq greater than after.
func (j *Journal) EntriesAfter(ctx context.Context, after int64) ([]Entry, error) {
	return j.Query(ctx, Query{Filter: After{Seq: after}})
}

// FlowEntries returns the entries of one flow in seq order.
func (j *Journal) FlowEntries(ctx context.Context, flowToken string) ([]Entry, error) {
	return j.Query(ctx, Query{Filter: Equals{Column: ColumnFlowToken, Value: flowToken}})
}

// ReadEntry retrieves a single entry by id.
// Returns sql.ErrNoRows if not found.
func (j *Journal) ReadEntry(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, selectEntries+`WHERE id = ?`, id)
	return scanEntry(row)
}

// ListFlows returns the distinct flow tokens in order of first appearance.
func (j *Journal) ListFlows(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT flow_token
		FROM entries
		GROUP BY flow_token
		ORDER BY MIN(seq) ASC, flow_token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	flows := []string{}
	for rows.Next() {
		var flow string
		if err := rows.Scan(&flow); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return flows, nil
}

// LastSeq returns the highest seq in the journal, or 0 when it is empty.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// Counts tallies the journal by outcome.
func (j *Journal) Counts(ctx context.Context) (Counts, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*)
		FROM entries
		GROUP BY outcome
		ORDER BY outcome
	`)
	if err != nil {
		return Counts{}, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return Counts{}, fmt.Errorf("scan counts: %w", err)
		}
		switch Outcome(outcome) {
		case OutcomeApplied:
			c.Applied = n
		case OutcomeRejected:
			c.Rejected = n
		case OutcomeDropped:
			c.Dropped = n
		}
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("iterate counts: %w", err)
	}
	return c, nil
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e       Entry
		payload string
		outcome string
	)
	err := row.Scan(&e.ID, &e.Seq, &e.FlowToken, &e.Action.Type, &payload, &outcome, &e.Error, &e.StateHash, &e.IRVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Action.Payload, err = ir.ParseObject([]byte(payload))
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: payload: %w", e.ID, err)
	}
	e.Outcome = Outcome(outcome)
	return e, nil
}
