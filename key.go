package celldag

import (
	"fmt"
	"reflect"
	"strings"
)

// Handle identifies an object attached to a Graph. It is a stable surrogate
// for "this particular instance": the Graph's owner table maps it back to the
// object, and detaching the object makes every node keyed by the handle fail
// with ReclaimedOwnerError instead of pinning the object alive.
type Handle uint64

// argsKey is the canonical encoding of a positional argument tuple. Two calls
// with equal tuples encode to the same key and share a cache entry.
type argsKey string

// NodeKey identifies one cache entry: (owner, cell name, argument tuple).
type NodeKey struct {
	Owner Handle
	Cell  string
	Args  argsKey
}

func (k NodeKey) String() string {
	if k.Args == "" {
		return fmt.Sprintf("%s@%d", k.Cell, k.Owner)
	}
	return fmt.Sprintf("%s(%s)@%d", k.Cell, k.Args, k.Owner)
}

// encodeArgs builds the canonical key for an argument tuple. Arguments must be
// comparable values with a stable %v rendering (numbers, strings, booleans,
// comparable structs). Uncomparable arguments are rejected so that key
// equality and hashing always agree. Each element is length-prefixed, so a
// rendering that contains the separator byte cannot collide with a different
// tuple's encoding.
func encodeArgs(args []any) (argsKey, error) {
	if len(args) == 0 {
		return "", nil
	}

	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		var s string
		if a == nil {
			s = "nil"
		} else {
			if !reflect.TypeOf(a).Comparable() {
				return "", fmt.Errorf("cell argument %d has uncomparable type %T", i, a)
			}
			s = fmt.Sprintf("%T:%v", a, a)
		}
		fmt.Fprintf(&b, "%d:%s", len(s), s)
	}
	return argsKey(b.String()), nil
}
