package celldag

// EvalCtx is passed to compute callbacks. It is one frame of the evaluation
// stack: the chain of parent contexts is what the cycle detector walks, and
// any cell read performed through the context is captured as a runtime
// dependency edge back to the node being computed.
//
// Each evaluation carries its own context, so concurrent evaluations on
// different goroutines keep separate stacks.
type EvalCtx struct {
	g      *Graph
	node   *Node
	parent *EvalCtx
	owner  any
}

// Owner returns the object whose cell is being computed.
func (ctx *EvalCtx) Owner() any { return ctx.owner }

// Graph returns the owning graph.
func (ctx *EvalCtx) Graph() *Graph { return ctx.g }

// Handle returns the handle of the object whose cell is being computed.
func (ctx *EvalCtx) Handle() Handle { return ctx.node.key.Owner }

// Evaluate reads another cell of the same object, recording the dependency.
func (ctx *EvalCtx) Evaluate(cell string, args ...any) (any, error) {
	return ctx.Cell(ctx.node.key.Owner, cell).Evaluate(args...)
}

// Cell returns an accessor bound to this evaluation, so reads of other
// objects' cells are captured as dependency edges too.
func (ctx *EvalCtx) Cell(h Handle, name string) *Accessor {
	return &Accessor{g: ctx.g, ctx: ctx, owner: h, name: name}
}

// cyclePath reports whether key is already on the evaluation stack that
// caller closes. On a hit it returns the cell names from the first
// recurrence down to the close of the cycle, in evaluation order.
func cyclePath(caller *EvalCtx, key NodeKey) ([]string, bool) {
	var keys []NodeKey
	var names []string
	for c := caller; c != nil; c = c.parent {
		keys = append(keys, c.node.key)
		names = append(names, c.node.cell)
	}
	// Walked caller-to-root; reverse into evaluation order.
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
		names[i], names[j] = names[j], names[i]
	}
	for i, k := range keys {
		if k == key {
			return append(names[i:], key.Cell), true
		}
	}
	return nil, false
}
