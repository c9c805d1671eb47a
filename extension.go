package celldag

// Extension provides hooks into graph operations for cross-cutting concerns
// (logging, metrics, debugging). Extensions wrap evaluation and write
// operations middleware-style.
type Extension interface {
	// Name returns the extension's name.
	Name() string

	// Order determines extension execution order (lower = earlier).
	Order() int

	// Init is called when the extension is registered to a graph.
	Init(g *Graph) error

	// Wrap intercepts an operation. next runs the remaining chain and the
	// operation itself.
	Wrap(next func() (any, error), op *Operation) (any, error)

	// OnError handles errors surfaced by an operation.
	OnError(err error, op *Operation, g *Graph)

	// Dispose is called when the graph is disposed.
	Dispose(g *Graph) error
}

// BaseExtension provides default implementations for Extension methods.
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name.
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(g *Graph) error {
	return nil
}

func (e *BaseExtension) Wrap(next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, g *Graph) {
}

func (e *BaseExtension) Dispose(g *Graph) error {
	return nil
}

// Operation describes what operation is happening.
type Operation struct {
	Kind  OperationKind
	Key   NodeKey
	Cell  string
	Graph *Graph
}

// OperationKind represents the type of operation.
type OperationKind string

const (
	// OpEvaluate indicates a cache-miss evaluation of a node.
	OpEvaluate OperationKind = "evaluate"
	// OpSet indicates a permanent set of a node's value.
	OpSet OperationKind = "set"
	// OpOverride indicates a scenario-scoped override of a node's value.
	OpOverride OperationKind = "override"
)
