package celldag

// Scenario is a scoped override layer with stack discipline. Overrides made
// while a scenario is the innermost active one are recorded in application
// order and undone in reverse order on exit, so nested scenarios compose:
// exiting an inner scenario restores the immediately enclosing override, not
// the base value.
type Scenario struct {
	g     *Graph
	layer uint64

	// Guarded by g.mu. Each entry records the override slot's value before
	// the tweak (NoValue when there was none), in application order.
	tweaks []tweak
}

type tweak struct {
	node *Node
	prev any
}

// NewScenario creates a scenario. It takes effect on Enter.
func (g *Graph) NewScenario() *Scenario {
	return &Scenario{g: g, layer: g.layerCounter.Add(1)}
}

// Layer returns the scenario's unique layer id.
func (s *Scenario) Layer() uint64 { return s.layer }

// Enter pushes the scenario onto the graph's context stack, making it the
// current override target.
func (s *Scenario) Enter() *Scenario {
	s.g.pushScenario(s)
	return s
}

// Exit undoes every override recorded by this scenario, in reverse order of
// application, then pops the scenario off the stack. Reverting an override
// invalidates the node's dependents; when the node reverts to having no
// override at all it is itself invalidated, since any cached value predates
// the override.
func (s *Scenario) Exit() {
	s.g.mu.Lock()
	for i := len(s.tweaks) - 1; i >= 0; i-- {
		t := s.tweaks[i]
		t.node.overrideValue = t.prev
		s.g.invalidateDependentsLocked(t.node)
		if t.prev == NoValue {
			t.node.invalidateLocked()
		}
	}
	s.tweaks = nil
	s.g.mu.Unlock()

	s.g.popScenario(s)
}

// addTweakLocked records the previous override and installs the new one.
// Dependents are invalidated unconditionally: the override is a value change
// for every consumer regardless of the node's own state or any prior
// override. Callers hold g.mu.
func (s *Scenario) addTweakLocked(n *Node, value any) {
	s.tweaks = append(s.tweaks, tweak{node: n, prev: n.overrideValue})
	n.overrideValue = value
	s.g.invalidateDependentsLocked(n)
}

// appliedLocked returns the overrides currently applied by this scenario in
// application order, collapsed to each node's latest value. Callers hold
// g.mu.
func (s *Scenario) appliedLocked() []*Node {
	seen := make(map[*Node]struct{}, len(s.tweaks))
	var nodes []*Node
	for _, t := range s.tweaks {
		if _, dup := seen[t.node]; dup {
			continue
		}
		seen[t.node] = struct{}{}
		nodes = append(nodes, t.node)
	}
	return nodes
}

// InScenario runs fn inside a fresh scenario. The scenario exits on every
// return path: normal return, error return, and panic, so overrides never
// leak past the call.
func (g *Graph) InScenario(fn func(*Scenario) error) error {
	s := g.NewScenario().Enter()
	defer s.Exit()
	return fn(s)
}

// Branch is a persistent, replayable collection of overrides. Unlike a
// scenario, a branch outlives its activations: the same branch can be
// entered many times, each time applying its recorded overrides in a fresh
// scenario.
type Branch struct {
	g         *Graph
	layer     uint64
	overrides []Override
}

// NewBranch creates an empty branch.
func (g *Graph) NewBranch() *Branch {
	return &Branch{g: g, layer: g.layerCounter.Add(1)}
}

// Override records an override on the branch. If the branch is currently
// active the override is also applied to the live scenario. A rejected
// override is not recorded, so later runs replay only accepted ones.
func (b *Branch) Override(h Handle, cell string, value any, args ...any) error {
	_, spec, err := b.g.lookupSpec(h, cell)
	if err != nil {
		return err
	}
	if !spec.Flags.Has(FlagOverridable) {
		return &CapabilityError{Cell: cell, Capability: "override"}
	}
	if _, ok := b.g.CurrentScenario(); ok {
		if err := b.g.Cell(h, cell).At(args...).Override(value); err != nil {
			return err
		}
	}
	b.overrides = append(b.overrides, Override{Owner: h, Cell: cell, Args: args, Value: value})
	return nil
}

// Run activates the branch: its recorded overrides are replayed into a fresh
// scenario, fn runs, and the scenario exits.
func (b *Branch) Run(fn func() error) error {
	return b.g.InScenario(func(s *Scenario) error {
		for _, o := range b.overrides {
			if err := b.g.Cell(o.Owner, o.Cell).At(o.Args...).Override(o.Value); err != nil {
				return err
			}
		}
		return fn()
	})
}

// Layer returns the branch's unique layer id.
func (b *Branch) Layer() uint64 { return b.layer }
