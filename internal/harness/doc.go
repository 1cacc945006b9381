// Package harness runs YAML scenarios against the shell through the real
// engine and journal, and compares the resulting traces with golden files.
//
// # Scenario Format
//
//	name: toggle_chat
//	description: "Chat panel opens and closes"
//	flow_token: chat          # optional; steps run as chat-1, chat-2, ...
//	max_steps: 10             # optional per-flow quota
//	initial:                  # optional overrides of the default shell state
//	  center_view: orders
//	steps:
//	  - dispatch: panel/toggle
//	    payload: { panel: chat }
//	    expect: applied       # applied | rejected | dropped
//	  - dispatch: panel/toggle
//	    payload: { panel: sidebar }
//	    expect: rejected
//	    error: unknown panel  # optional substring of the rejection
//	assertions:
//	  - type: final_state
//	    expect: { panels: { chat: false } }
//	  - type: trace_count
//	    action: panel/toggle
//	    count: 2
//
// # Assertion Types
//
//   - final_state: the final shell snapshot contains the expected values
//   - trace_contains: an action with matching payload (and outcome) was journaled
//   - trace_order: actions appear in the given order, gaps allowed
//   - trace_count: an action (optionally with an outcome) appears exactly N times
//   - notify_count: subscribers were notified exactly N times
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory journal, a testutil.DeterministicClock
// and a testutil.SequenceFlowGenerator, so the same scenario always
// produces the same trace. Each run also replays its journal and fails if
// replay does not reproduce the live state.
package harness
