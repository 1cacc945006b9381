package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/unistore/internal/journal"
)

// Scenario is one scripted run of the shell.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// FlowToken is the base for the per-step flow tokens.
	// Empty means testutil.DefaultFlowBase.
	FlowToken string `yaml:"flow_token,omitempty"`

	// MaxSteps overrides the engine's per-flow quota when positive.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Initial overrides fields of the default shell state.
	Initial map[string]any `yaml:"initial,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step submits one action as a new flow.
type Step struct {
	Dispatch string         `yaml:"dispatch"`
	Payload  map[string]any `yaml:"payload,omitempty"`

	// Expect is the outcome the action must be journaled with. Empty
	// skips the check.
	Expect journal.Outcome `yaml:"expect,omitempty"`

	// Error must be a substring of the journaled error.
	Error string `yaml:"error,omitempty"`

	// Follow lists actions enqueued into this step's flow, in order, once
	// its action applies. Each is journaled and checked like a step; past
	// max_steps they are dropped. Follow entries cannot nest.
	Follow []Step `yaml:"follow,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Action is the action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Payload is a subset match on the payload (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Outcome narrows trace_contains and trace_count to one outcome.
	Outcome journal.Outcome `yaml:"outcome,omitempty"`

	// Expect is a subset match on the final snapshot (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the exact number expected (trace_count, notify_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertNotifyCount   = "notify_count"
)

// LoadScenario reads and parses a scenario file. Unknown fields are
// rejected so a typo fails loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// FindScenarios returns the scenario files under root in lexical order.
// root may also be a single file.
func FindScenarios(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	for i, step := range s.Steps {
		label := fmt.Sprintf("steps[%d]", i)
		if err := validateStep(label, step); err != nil {
			return err
		}
		for k, f := range step.Follow {
			flabel := fmt.Sprintf("%s.follow[%d]", label, k)
			if len(f.Follow) > 0 {
				return fmt.Errorf("%s: follow cannot nest", flabel)
			}
			if err := validateStep(flabel, f); err != nil {
				return err
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(label string, step Step) error {
	if step.Dispatch == "" {
		return fmt.Errorf("%s: dispatch is required", label)
	}
	if step.Expect != "" && !step.Expect.Valid() {
		return fmt.Errorf("%s: unknown outcome %q", label, step.Expect)
	}
	return nil
}

var assertionTypes = []string{AssertFinalState, AssertTraceContains, AssertTraceOrder, AssertTraceCount, AssertNotifyCount}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !slices.Contains(assertionTypes, a.Type) {
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Outcome != "" && !a.Outcome.Valid() {
		return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertTraceContains, AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for %s", index, a.Type)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
