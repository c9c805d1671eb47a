package celldag

// ComputeFunc is the evaluation callback of a cell. It receives the evaluation
// context (through which reads of other cells are captured as dependency
// edges) and the positional arguments of the call.
type ComputeFunc func(ctx *EvalCtx, args ...any) (any, error)

// InverseFunc translates a set of a derived cell into sets of other cells.
// The returned changes are applied by direct assignment, bypassing further
// inverse dispatch, each followed by invalidation of the target's dependents.
type InverseFunc func(owner any, value any) ([]SetChange, error)

// SetChange is one "apply this other cell's set value" instruction returned
// by an inverse handler. A zero Owner targets the same object the inverse was
// invoked on.
type SetChange struct {
	Owner Handle
	Cell  string
	Args  []any
	Value any
}

// CellSpec declares one cell on a type: a stable name, behavior flags, an
// optional advisory set of statically-known dependency names, the compute
// callback, and an optional inverse handler.
type CellSpec struct {
	Name       string
	Flags      Flags
	StaticDeps []string
	Compute    ComputeFunc
	Inverse    InverseFunc
}

// TypeSpec is the per-type cell registry, built once at setup time. It
// replaces runtime reflection: every cell of a type is registered explicitly.
type TypeSpec struct {
	name  string
	cells map[string]*CellSpec
	order []string
}

// NewTypeSpec creates an empty registry for the named type.
func NewTypeSpec(name string) *TypeSpec {
	return &TypeSpec{
		name:  name,
		cells: make(map[string]*CellSpec),
	}
}

// Define registers cells on the type. Redeclaring an existing name shadows
// the previous declaration, which is how inherited cells are overridden.
func (t *TypeSpec) Define(specs ...CellSpec) *TypeSpec {
	for i := range specs {
		spec := specs[i]
		if spec.Name == "" {
			panic("celldag: cell declared with empty name")
		}
		if spec.Compute == nil {
			panic("celldag: cell " + spec.Name + " declared without a compute callback")
		}
		if _, exists := t.cells[spec.Name]; !exists {
			t.order = append(t.order, spec.Name)
		}
		t.cells[spec.Name] = &spec
	}
	return t
}

// Extend copies every cell of parent into t. Cells already declared on t keep
// their declaration; cells declared afterwards with the same name shadow the
// inherited ones.
func (t *TypeSpec) Extend(parent *TypeSpec) *TypeSpec {
	for _, name := range parent.order {
		if _, exists := t.cells[name]; exists {
			continue
		}
		t.cells[name] = parent.cells[name]
		t.order = append(t.order, name)
	}
	return t
}

// Name returns the type's name.
func (t *TypeSpec) Name() string { return t.name }

// Cell returns the declaration for name, if any.
func (t *TypeSpec) Cell(name string) (*CellSpec, bool) {
	spec, ok := t.cells[name]
	return spec, ok
}

// Cells returns the declared cell names in declaration order.
func (t *TypeSpec) Cells() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
