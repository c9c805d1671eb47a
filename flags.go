package celldag

// Flags is a bitset describing the capabilities of a cell declaration.
type Flags uint8

const (
	// FlagSerialized marks the cell's value as eligible for persistence.
	// The engine only carries the flag; serialization lives with the caller.
	FlagSerialized Flags = 1 << iota
	// FlagSettable allows the cell's value to be permanently set.
	FlagSettable
	// FlagOverridable allows the cell's value to be temporarily overridden
	// inside a scenario.
	FlagOverridable
	// FlagOptional makes evaluation cache NoValue instead of propagating
	// callback errors.
	FlagOptional
)

// Compound flag sets.
const (
	FlagPersisted = FlagSettable | FlagSerialized
	FlagCanChange = FlagSettable | FlagOverridable
)

// Has reports whether all bits of f2 are set on f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

type noValue struct{}

func (noValue) String() string { return "NO_VALUE" }

// NoValue is the sentinel stored for a cell that has no value: an empty
// set/override slot, or the cached result of an FlagOptional cell whose
// callback failed. It is a comparable value, safe to test with ==.
var NoValue = noValue{}

// IsNoValue reports whether v is the NoValue sentinel.
func IsNoValue(v any) bool {
	_, ok := v.(noValue)
	return ok
}
