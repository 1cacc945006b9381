// Package engine runs a state store behind a single-writer, journaled
// event loop.
//
// Actions are submitted from any goroutine and queued. One goroutine
// (Run, or RunUntilIdle in tests and the CLI) takes them in FIFO order and,
// for each one:
//
//  1. stamps it with the next seq from the logical Clock
//  2. derives its content-addressed id (ir.ActionID)
//  3. charges it to its flow's step quota, dropping it if exhausted
//  4. dispatches it to the store, recovering a reducer panic as a rejection
//  5. appends a journal.Entry with the outcome and the post-state hash
//
// Subscribers run inside step 4 on the same goroutine. They may call
// Follow to queue more actions under the same flow token; the quota bounds
// how far such a cascade can go.
//
// Processing never retries. A failure is logged and the loop moves on, so
// the journal is a pure function of the submitted actions and Replay can
// rebuild the state from it.
package engine
