// Package celldag provides an incremental-computation engine: a dependency
// graph of memoized cells over a set of objects, with lazy re-evaluation,
// automatic invalidation, and layered value overrides.
//
// # Overview
//
// Celldag organizes state around three core concepts:
//
//  1. Cells: named, memoized computations declared per type
//  2. Graph: the single authority that caches, tracks and invalidates
//  3. Scenarios: scoped override layers, reverted on exit
//
// # Basic Usage
//
// Declare cells on a type spec, attach an object, and read through accessors:
//
//	option := celldag.NewTypeSpec("Option").Define(
//	    celldag.CellSpec{
//	        Name:  "Strike",
//	        Flags: celldag.FlagSettable,
//	        Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
//	            return 1.0, nil
//	        },
//	    },
//	    celldag.CellSpec{
//	        Name:  "Spot",
//	        Flags: celldag.FlagOverridable,
//	        Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
//	            return 1.1, nil
//	        },
//	    },
//	    celldag.CellSpec{
//	        Name: "Price",
//	        Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
//	            spot, err := ctx.Evaluate("Spot")
//	            if err != nil {
//	                return nil, err
//	            }
//	            strike, err := ctx.Evaluate("Strike")
//	            if err != nil {
//	                return nil, err
//	            }
//	            return math.Max(0, spot.(float64)-strike.(float64)), nil
//	        },
//	    },
//	)
//
//	g := celldag.New()
//	h := g.Attach(&Option{}, option)
//
//	price, err := g.Cell(h, "Price").Evaluate()
//
// Reads performed through the EvalCtx are captured as runtime dependency
// edges, so the graph learns the real data flow by observation. Declared
// StaticDeps are advisory, for tooling; runtime tracking is authoritative.
//
// # Invalidation
//
// Writing a cell invalidates everything that transitively read from it.
// Recomputation is lazy: nothing runs until the next read.
//
//	g.Cell(h, "Strike").Set(1.05)        // Price is now stale
//	price, _ = g.Cell(h, "Price").Evaluate() // recomputes here
//
// Set requires FlagSettable and persists until ClearValue. A set cell is
// authoritative: setting invalidates consumers only, never the cell itself.
//
// # Scenarios and Overrides
//
// Overrides are scoped to a scenario and reverted on exit, in reverse order
// of application, even when the body fails or panics:
//
//	err := g.InScenario(func(s *celldag.Scenario) error {
//	    if err := g.Cell(h, "Spot").Override(1.2); err != nil {
//	        return err
//	    }
//	    price, _ := g.Cell(h, "Price").Evaluate() // sees 1.2
//	    return nil
//	})
//	// Spot and Price are back to their pre-scenario values here.
//
// Scenarios nest with stack discipline: an inner override of an already
// overridden cell restores the enclosing override on exit, not the base
// value. Overrides take precedence over set values, which take precedence
// over computation.
//
// # Watching
//
// Watch registers interest in a cell's invalidation; Flush delivers the
// notifications. Delivery is explicitly caller-driven so a batch of writes
// produces one notification pass:
//
//	sub, _ := g.Cell(h, "Price").Watch(func(n *celldag.Node) {
//	    fmt.Println("price is stale:", n.Cell())
//	})
//	g.Cell(h, "Strike").Set(1.2)
//	g.Flush() // the callback runs here
//	sub.Cancel()
//
// # Override Sets
//
// An OverrideSet is a serializable snapshot of a scenario's overrides,
// replayable into a fresh scenario elsewhere:
//
//	set := celldag.CaptureOverrides(g)
//	data, _ := set.Marshal()
//	// ... transport ...
//	set2, _ := celldag.UnmarshalOverrideSet(data)
//	set2.Run(g2, func() error { ... })
//
// # Extensions
//
// Extensions hook graph operations middleware-style, for logging, metrics
// and debugging:
//
//	g := celldag.New(
//	    celldag.WithExtension(extensions.NewLogging(handler)),
//	)
//
// See the extensions subpackage for slog logging, Prometheus metrics and a
// dependency-tree debug renderer.
//
// # Thread Safety
//
// The graph may be used from multiple goroutines. Node registry access,
// state transitions and invalidation are serialized on a graph-wide lock; a
// per-node evaluation lock guarantees a cell's callback runs in at most one
// goroutine at a time, with concurrent readers blocking until the value is
// cached. Evaluation stacks are per-goroutine, so concurrent evaluation of
// disjoint subgraphs is safe. A dependency cycle spanning two goroutines'
// concurrent first evaluations deadlocks rather than being reported; cycles
// within one evaluation are detected and reported with their full path.
//
// There is no cancellation: a compute callback that blocks forever blocks
// its calling goroutine forever.
package celldag
