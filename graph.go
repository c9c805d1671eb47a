package celldag

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Graph is the single authority for node identity, evaluation and
// invalidation. It is an explicit, constructed object rather than a process
// singleton, so independent graphs can coexist (one per test, one per
// worker).
type Graph struct {
	mu sync.Mutex

	owners     map[Handle]*ownerRecord
	nextHandle uint64

	nodes map[NodeKey]*Node

	scenarios    []*Scenario
	layerCounter atomic.Uint64

	subs map[NodeKey][]*Subscription

	extensions []Extension
}

type ownerRecord struct {
	obj  any
	spec *TypeSpec
}

// Option configures a Graph at construction time.
type Option func(*Graph)

// WithExtension registers an extension on the new graph.
func WithExtension(ext Extension) Option {
	return func(g *Graph) {
		if err := g.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		owners: make(map[Handle]*ownerRecord),
		nodes:  make(map[NodeKey]*Node),
		subs:   make(map[NodeKey][]*Subscription),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attach registers an object with the graph and returns its handle. The graph
// keeps the object reachable only until Detach; nodes reference the handle,
// never the object itself.
func (g *Graph) Attach(obj any, spec *TypeSpec) Handle {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextHandle++
	h := Handle(g.nextHandle)
	g.owners[h] = &ownerRecord{obj: obj, spec: spec}
	return h
}

// Detach removes an object from the owner table. Evaluation of the object's
// cells fails with ReclaimedOwnerError from then on; cached nodes stay in the
// registry but are unreachable through any accessor.
func (g *Graph) Detach(h Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.owners, h)
}

// Object returns the attached object for h.
func (g *Graph) Object(h Handle) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.owners[h]
	if !ok {
		return nil, false
	}
	return rec.obj, true
}

// Cell returns an accessor for the named cell of an attached object.
func (g *Graph) Cell(h Handle, name string) *Accessor {
	return &Accessor{g: g, owner: h, name: name}
}

// NodeOf returns the node for (h, cell, args) if it has been created.
func (g *Graph) NodeOf(h Handle, cell string, args ...any) (*Node, bool) {
	ak, err := encodeArgs(args)
	if err != nil {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[NodeKey{Owner: h, Cell: cell, Args: ak}]
	return n, ok
}

// lookupSpec resolves the cell declaration for an accessor. Callers hold no
// locks.
func (g *Graph) lookupSpec(h Handle, cell string) (*ownerRecord, *CellSpec, error) {
	g.mu.Lock()
	rec, ok := g.owners[h]
	g.mu.Unlock()
	if !ok {
		return nil, nil, &ReclaimedOwnerError{Cell: cell}
	}
	spec, ok := rec.spec.Cell(cell)
	if !ok {
		return nil, nil, &UnknownCellError{Type: rec.spec.Name(), Cell: cell}
	}
	return rec, spec, nil
}

// getOrCreateNode is idempotent by key; the first creation wins for callback,
// flags and static deps. Later calls with the same key are assumed
// consistent and are not validated.
func (g *Graph) getOrCreateNode(h Handle, spec *CellSpec, args []any) (*Node, error) {
	ak, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	key := NodeKey{Owner: h, Cell: spec.Name, Args: ak}

	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[key]
	if !ok {
		n = newNode(g, key, spec, args)
		g.nodes[key] = n
	}
	return n, nil
}

// evaluate returns the node's effective value, computing and caching it when
// necessary. caller is the evaluation context of the node currently being
// computed, or nil for reads from outside the graph.
func (g *Graph) evaluate(caller *EvalCtx, n *Node, args []any) (any, error) {
	// Runtime dependency capture: a read performed during another node's
	// evaluation records an edge caller -> n. Self-reads are not edges; true
	// self-recursion is caught by the cycle check below.
	if caller != nil && caller.node.key != n.key {
		g.mu.Lock()
		g.addDependencyLocked(caller.node, n)
		g.mu.Unlock()
	}

	g.mu.Lock()
	if ok, v := n.effectiveValueLocked(); ok {
		// Overrides and set values bypass evaluation entirely, including
		// cycle checks.
		g.mu.Unlock()
		return v, nil
	}
	if n.state == StateValid {
		v := n.value
		g.mu.Unlock()
		return v, nil
	}
	g.mu.Unlock()

	if path, cyclic := cyclePath(caller, n.key); cyclic {
		return nil, &CycleError{Path: path}
	}

	op := &Operation{Kind: OpEvaluate, Key: n.key, Cell: n.cell, Graph: g}
	v, err := g.wrap(op, func() (any, error) {
		return g.compute(caller, n, args)
	})
	if err != nil {
		for _, ext := range g.snapshotExtensions() {
			ext.OnError(err, op, g)
		}
	}
	return v, err
}

func (g *Graph) compute(caller *EvalCtx, n *Node, args []any) (any, error) {
	n.evalMu.Lock()
	defer n.evalMu.Unlock()

	g.mu.Lock()
	// Re-check after acquiring the evaluation lock: another goroutine may
	// have computed, set or overridden the value while we waited.
	if ok, v := n.effectiveValueLocked(); ok {
		g.mu.Unlock()
		return v, nil
	}
	if n.state == StateValid {
		v := n.value
		g.mu.Unlock()
		return v, nil
	}
	rec, ok := g.owners[n.key.Owner]
	if !ok {
		g.mu.Unlock()
		return nil, &ReclaimedOwnerError{Cell: n.cell}
	}
	n.state = StateEvaluating
	g.mu.Unlock()

	ctx := &EvalCtx{g: g, node: n, parent: caller, owner: rec.obj}
	v, err := runCompute(n.compute, ctx, args)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		if n.flags.Has(FlagOptional) {
			n.setValidLocked(NoValue)
			return NoValue, nil
		}
		n.setErrorLocked(err)
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			// Already wrapped by a nested evaluation; keep the innermost
			// cell attribution.
			return nil, err
		}
		return nil, &EvaluationError{Cell: n.cell, Cause: err}
	}
	n.setValidLocked(v)
	return v, nil
}

// runCompute invokes the callback, converting panics into errors so that the
// node's state and the evaluation stack are restored on every exit path.
func runCompute(fn ComputeFunc, ctx *EvalCtx, args []any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compute panicked: %v", r)
		}
	}()
	return fn(ctx, args...)
}

// invalidateDependentsLocked propagates staleness through n's output edges
// without touching n itself. Used when n's value was authoritatively
// replaced (set or override): n stays current, its consumers must recompute.
func (g *Graph) invalidateDependentsLocked(n *Node) {
	g.propagateLocked(n)
}

// propagateLocked walks output edges iteratively, with the state change
// acting as the visited mark: a node that is already invalid was propagated
// through before, so cyclic output edges terminate. Callers hold g.mu.
func (g *Graph) propagateLocked(start *Node) {
	stack := make([]*Node, 0, len(start.outputs))
	for key := range start.outputs {
		if dep, ok := g.nodes[key]; ok {
			stack = append(stack, dep)
		}
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !cur.invalidateLocked() {
			continue
		}
		for key := range cur.outputs {
			if dep, ok := g.nodes[key]; ok {
				stack = append(stack, dep)
			}
		}
	}
}

func (g *Graph) addDependencyLocked(from, to *Node) {
	from.inputs[to.key] = struct{}{}
	to.outputs[from.key] = struct{}{}
}

func (g *Graph) removeDependencyLocked(from, to *Node) {
	delete(from.inputs, to.key)
	delete(to.outputs, from.key)
}

// Dependencies returns the keys of the nodes key read from during its last
// evaluation.
func (g *Graph) Dependencies(key NodeKey) []NodeKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	out := make([]NodeKey, 0, len(n.inputs))
	for k := range n.inputs {
		out = append(out, k)
	}
	return out
}

// Dependents returns the keys of the nodes that read from key.
func (g *Graph) Dependents(key NodeKey) []NodeKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	out := make([]NodeKey, 0, len(n.outputs))
	for k := range n.outputs {
		out = append(out, k)
	}
	return out
}

// Scenario stack.

func (g *Graph) pushScenario(s *Scenario) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scenarios = append(g.scenarios, s)
}

func (g *Graph) popScenario(s *Scenario) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.scenarios) - 1; i >= 0; i-- {
		if g.scenarios[i] == s {
			g.scenarios = append(g.scenarios[:i], g.scenarios[i+1:]...)
			return
		}
	}
}

// CurrentScenario returns the innermost active scenario, if any.
func (g *Graph) CurrentScenario() (*Scenario, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.scenarios) == 0 {
		return nil, false
	}
	return g.scenarios[len(g.scenarios)-1], true
}

// Subscriptions.

// Subscription is a registered interest in a node's invalidation. Cancel
// detaches it; cancelled entries are pruned on the next Flush.
type Subscription struct {
	key    NodeKey
	fn     func(*Node)
	active atomic.Bool
}

// Cancel detaches the subscription.
func (s *Subscription) Cancel() {
	s.active.Store(false)
}

func (g *Graph) subscribe(key NodeKey, fn func(*Node)) *Subscription {
	sub := &Subscription{key: key, fn: fn}
	sub.active.Store(true)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs[key] = append(g.subs[key], sub)
	return sub
}

// Flush dispatches pending invalidation notifications: for every subscribed
// node that is not currently valid, all live callbacks run once. The invalid
// state is the "pending notification" mark, so a node invalidated several
// times between flushes notifies once. Callback panics are swallowed so one
// bad subscriber cannot starve the rest.
func (g *Graph) Flush() {
	type firing struct {
		node *Node
		fns  []func(*Node)
	}

	g.mu.Lock()
	var fire []firing
	for key, subs := range g.subs {
		live := subs[:0]
		for _, sub := range subs {
			if sub.active.Load() {
				live = append(live, sub)
			}
		}
		if len(live) == 0 {
			delete(g.subs, key)
			continue
		}
		g.subs[key] = live

		n, ok := g.nodes[key]
		if !ok || n.state == StateValid {
			continue
		}
		f := firing{node: n, fns: make([]func(*Node), len(live))}
		for i, sub := range live {
			f.fns[i] = sub.fn
		}
		fire = append(fire, f)
	}
	g.mu.Unlock()

	for _, f := range fire {
		for _, fn := range f.fns {
			invokeSubscriber(fn, f.node)
		}
	}
}

func invokeSubscriber(fn func(*Node), n *Node) {
	defer func() {
		_ = recover()
	}()
	fn(n)
}

// Extensions.

// UseExtension registers an extension, keeping the list ordered by
// Extension.Order.
func (g *Graph) UseExtension(ext Extension) error {
	g.mu.Lock()
	g.extensions = append(g.extensions, ext)
	for i := len(g.extensions) - 1; i > 0; i-- {
		if g.extensions[i].Order() < g.extensions[i-1].Order() {
			g.extensions[i], g.extensions[i-1] = g.extensions[i-1], g.extensions[i]
		}
	}
	g.mu.Unlock()
	return ext.Init(g)
}

func (g *Graph) snapshotExtensions() []Extension {
	g.mu.Lock()
	defer g.mu.Unlock()
	exts := make([]Extension, len(g.extensions))
	copy(exts, g.extensions)
	return exts
}

// wrap chains the registered extensions around an operation, last registered
// wrapping first.
func (g *Graph) wrap(op *Operation, next func() (any, error)) (any, error) {
	exts := g.snapshotExtensions()
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		inner := next
		next = func() (any, error) {
			return ext.Wrap(inner, op)
		}
	}
	return next()
}

// Dispose tears down the graph's extensions.
func (g *Graph) Dispose() error {
	for _, ext := range g.snapshotExtensions() {
		if err := ext.Dispose(g); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}
	return nil
}
