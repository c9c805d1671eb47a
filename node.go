package celldag

import "sync"

// NodeState is the lifecycle state of a node's cached value.
type NodeState int

const (
	// StateInvalid means the value needs recalculation.
	StateInvalid NodeState = iota
	// StateValid means the value is cached and current.
	StateValid
	// StateEvaluating means the compute callback is running.
	StateEvaluating
	// StateError means the last evaluation failed.
	StateError
)

func (s NodeState) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateValid:
		return "valid"
	case StateEvaluating:
		return "evaluating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Node is one cache entry in the graph: the memoized result of a single
// (owner, cell, args) invocation together with its dependency edges and
// set/override slots. Nodes are owned by the Graph; callers interact with
// them through accessors and watch callbacks.
type Node struct {
	g     *Graph
	key   NodeKey
	cell  string
	args  []any
	flags Flags

	compute    ComputeFunc
	staticDeps []string

	// Guarded by g.mu.
	state         NodeState
	value         any
	err           error
	inputs        map[NodeKey]struct{}
	outputs       map[NodeKey]struct{}
	setValue      any
	overrideValue any

	// Serializes first evaluation: one goroutine computes, others block on
	// the mutex and then observe the cached result.
	evalMu sync.Mutex
}

func newNode(g *Graph, key NodeKey, spec *CellSpec, args []any) *Node {
	return &Node{
		g:             g,
		key:           key,
		cell:          spec.Name,
		args:          args,
		flags:         spec.Flags,
		compute:       spec.Compute,
		staticDeps:    spec.StaticDeps,
		state:         StateInvalid,
		inputs:        make(map[NodeKey]struct{}),
		outputs:       make(map[NodeKey]struct{}),
		setValue:      NoValue,
		overrideValue: NoValue,
	}
}

// Key returns the node's identity.
func (n *Node) Key() NodeKey { return n.key }

// Cell returns the cell name.
func (n *Node) Cell() string { return n.cell }

// Flags returns the cell's capability flags.
func (n *Node) Flags() Flags { return n.flags }

// StaticDeps returns the advisory statically-declared dependency names.
func (n *Node) StaticDeps() []string { return n.staticDeps }

// State returns the node's current state.
func (n *Node) State() NodeState {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return n.state
}

// IsValid reports whether the node currently holds a usable cached value.
func (n *Node) IsValid() bool {
	return n.State() == StateValid
}

// HasSetValue reports whether a permanent set value is present.
func (n *Node) HasSetValue() bool {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return n.setValue != NoValue
}

// HasOverride reports whether a scenario override is currently in effect.
func (n *Node) HasOverride() bool {
	n.g.mu.Lock()
	defer n.g.mu.Unlock()
	return n.overrideValue != NoValue
}

// effectiveValueLocked returns (true, v) when an override or set value is in
// effect; overrides win over set values. Callers hold g.mu.
func (n *Node) effectiveValueLocked() (bool, any) {
	if n.overrideValue != NoValue {
		return true, n.overrideValue
	}
	if n.setValue != NoValue {
		return true, n.setValue
	}
	return false, nil
}

// invalidateLocked marks the node stale. Valid values are dropped; an errored
// node resets to invalid so the next read retries. Callers hold g.mu.
func (n *Node) invalidateLocked() bool {
	switch n.state {
	case StateValid:
		n.state = StateInvalid
		n.value = nil
		return true
	case StateError:
		n.state = StateInvalid
		n.err = nil
		return true
	default:
		return false
	}
}

func (n *Node) setValidLocked(v any) {
	n.state = StateValid
	n.value = v
	n.err = nil
}

func (n *Node) setErrorLocked(err error) {
	n.state = StateError
	n.err = err
	n.value = nil
}
