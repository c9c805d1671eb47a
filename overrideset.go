package celldag

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Override is one recorded override: which cell of which object, for which
// argument tuple, and the replacement value.
type Override struct {
	Owner Handle `json:"owner"`
	Cell  string `json:"cell"`
	Args  []any  `json:"args,omitempty"`
	Value any    `json:"value"`
}

// OverrideSet is an ordered, serializable description of what a scenario
// changed. Captured from a live scenario, it can be replayed into a fresh
// one, which is how scenario state travels to another graph or process.
//
// The JSON codec limits values and arguments to JSON-representable types;
// numbers round-trip as float64. Handles are carried verbatim and only mean
// something to a graph with the same attachment order.
type OverrideSet struct {
	ID        string     `json:"id"`
	Overrides []Override `json:"overrides"`
}

// NewOverrideSet creates an empty set with a fresh id.
func NewOverrideSet() *OverrideSet {
	return &OverrideSet{ID: uuid.NewString()}
}

// Add appends an override.
func (os *OverrideSet) Add(h Handle, cell string, value any, args ...any) {
	os.Overrides = append(os.Overrides, Override{Owner: h, Cell: cell, Args: args, Value: value})
}

// CaptureOverrides snapshots the currently-applied overrides of the graph's
// innermost active scenario, in application order. With no active scenario
// the set is empty.
func CaptureOverrides(g *Graph) *OverrideSet {
	set := NewOverrideSet()

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.scenarios) == 0 {
		return set
	}
	s := g.scenarios[len(g.scenarios)-1]
	for _, n := range s.appliedLocked() {
		if n.overrideValue == NoValue {
			continue
		}
		set.Overrides = append(set.Overrides, Override{
			Owner: n.key.Owner,
			Cell:  n.cell,
			Args:  n.args,
			Value: n.overrideValue,
		})
	}
	return set
}

// Apply replays every override into the given scenario, which must be the
// graph's current one.
func (os *OverrideSet) Apply(g *Graph, s *Scenario) error {
	for _, o := range os.Overrides {
		if err := g.Cell(o.Owner, o.Cell).At(o.Args...).Override(o.Value); err != nil {
			return fmt.Errorf("applying override for cell %q: %w", o.Cell, err)
		}
	}
	return nil
}

// Run enters a fresh scenario, replays the set into it, runs fn, and exits.
func (os *OverrideSet) Run(g *Graph, fn func() error) error {
	return g.InScenario(func(s *Scenario) error {
		if err := os.Apply(g, s); err != nil {
			return err
		}
		return fn()
	})
}

// Marshal encodes the set as JSON.
func (os *OverrideSet) Marshal() ([]byte, error) {
	return json.Marshal(os)
}

// UnmarshalOverrideSet decodes a set from JSON.
func UnmarshalOverrideSet(data []byte) (*OverrideSet, error) {
	var set OverrideSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return &set, nil
}
