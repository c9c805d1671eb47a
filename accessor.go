package celldag

// Accessor is the public handle for one (object, cell) pair. It is cheap to
// construct and holds no state beyond its coordinates; all authority stays
// with the Graph.
//
// Set, Override, Watch and ClearValue target the node for an empty argument
// tuple; use At to target a parameterized node.
type Accessor struct {
	g     *Graph
	ctx   *EvalCtx // non-nil when reads must be captured as dependencies
	owner Handle
	name  string
	args  []any
}

// At returns an accessor bound to the given argument tuple, so writes and
// watches can target parameterized nodes.
func (a *Accessor) At(args ...any) *Accessor {
	bound := *a
	bound.args = args
	return &bound
}

// Name returns the cell name.
func (a *Accessor) Name() string { return a.name }

// Owner returns the owning object's handle.
func (a *Accessor) Owner() Handle { return a.owner }

// Evaluate returns the cell's effective value for the given arguments,
// computing and caching it if needed. Only positional arguments participate
// in the cache key.
func (a *Accessor) Evaluate(args ...any) (any, error) {
	if len(args) == 0 {
		args = a.args
	}
	_, spec, err := a.g.lookupSpec(a.owner, a.name)
	if err != nil {
		return nil, err
	}
	n, err := a.g.getOrCreateNode(a.owner, spec, args)
	if err != nil {
		return nil, err
	}
	return a.g.evaluate(a.ctx, n, args)
}

// MustEvaluate is Evaluate, panicking on error. Intended for examples and
// tests.
func (a *Accessor) MustEvaluate(args ...any) any {
	v, err := a.Evaluate(args...)
	if err != nil {
		panic(err)
	}
	return v
}

// Set permanently assigns the cell's value. Requires FlagSettable. If the
// cell declares an inverse handler, the handler runs instead and its
// returned changes are applied by direct assignment, bypassing further
// inverse dispatch. The node itself stays authoritative; only dependents
// are invalidated.
func (a *Accessor) Set(value any) error {
	rec, spec, err := a.g.lookupSpec(a.owner, a.name)
	if err != nil {
		return err
	}
	if !spec.Flags.Has(FlagSettable) {
		return &CapabilityError{Cell: a.name, Capability: "set"}
	}
	n, err := a.g.getOrCreateNode(a.owner, spec, a.args)
	if err != nil {
		return err
	}

	op := &Operation{Kind: OpSet, Key: n.key, Cell: n.cell, Graph: a.g}
	_, err = a.g.wrap(op, func() (any, error) {
		if spec.Inverse != nil {
			changes, err := spec.Inverse(rec.obj, value)
			if err != nil {
				return nil, err
			}
			return nil, a.applyInverseChanges(changes)
		}
		a.g.mu.Lock()
		n.setValue = value
		a.g.invalidateDependentsLocked(n)
		a.g.mu.Unlock()
		return nil, nil
	})
	return err
}

// applyInverseChanges installs each instruction's value directly into the
// target node's set slot. Direct assignment here is what prevents inverse
// handlers from recursing into each other.
func (a *Accessor) applyInverseChanges(changes []SetChange) error {
	for _, ch := range changes {
		h := ch.Owner
		if h == 0 {
			h = a.owner
		}
		_, spec, err := a.g.lookupSpec(h, ch.Cell)
		if err != nil {
			return err
		}
		n, err := a.g.getOrCreateNode(h, spec, ch.Args)
		if err != nil {
			return err
		}
		a.g.mu.Lock()
		n.setValue = ch.Value
		a.g.invalidateDependentsLocked(n)
		a.g.mu.Unlock()
	}
	return nil
}

// Override temporarily replaces the cell's value for the lifetime of the
// innermost active scenario. Requires FlagOverridable and an active
// scenario.
func (a *Accessor) Override(value any) error {
	_, spec, err := a.g.lookupSpec(a.owner, a.name)
	if err != nil {
		return err
	}
	if !spec.Flags.Has(FlagOverridable) {
		return &CapabilityError{Cell: a.name, Capability: "override"}
	}
	n, err := a.g.getOrCreateNode(a.owner, spec, a.args)
	if err != nil {
		return err
	}

	op := &Operation{Kind: OpOverride, Key: n.key, Cell: n.cell, Graph: a.g}
	_, err = a.g.wrap(op, func() (any, error) {
		a.g.mu.Lock()
		defer a.g.mu.Unlock()
		if len(a.g.scenarios) == 0 {
			return nil, &ContextError{Cell: a.name}
		}
		s := a.g.scenarios[len(a.g.scenarios)-1]
		s.addTweakLocked(n, value)
		return nil, nil
	})
	return err
}

// Watch registers fn to run on the next Flush after the cell's node becomes
// invalid. The node is created if it does not exist yet.
func (a *Accessor) Watch(fn func(*Node)) (*Subscription, error) {
	_, spec, err := a.g.lookupSpec(a.owner, a.name)
	if err != nil {
		return nil, err
	}
	n, err := a.g.getOrCreateNode(a.owner, spec, a.args)
	if err != nil {
		return nil, err
	}
	return a.g.subscribe(n.key, fn), nil
}

// ClearValue removes a permanent set value and invalidates the node itself,
// so the next read recomputes from the cell's own logic. Requires
// FlagSettable.
func (a *Accessor) ClearValue() error {
	_, spec, err := a.g.lookupSpec(a.owner, a.name)
	if err != nil {
		return err
	}
	if !spec.Flags.Has(FlagSettable) {
		return &CapabilityError{Cell: a.name, Capability: "set"}
	}
	n, err := a.g.getOrCreateNode(a.owner, spec, a.args)
	if err != nil {
		return err
	}
	a.g.mu.Lock()
	n.setValue = NoValue
	n.invalidateLocked()
	// Dependents may hold values derived from the cleared set value even
	// when this node was never computed, so propagation is unconditional.
	a.g.propagateLocked(n)
	a.g.mu.Unlock()
	return nil
}
