package celldag

import (
	"fmt"
	"strings"
)

// CapabilityError reports a set, override or clear on a cell that lacks the
// required flag.
type CapabilityError struct {
	Cell       string
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("cell %q does not support %s", e.Cell, e.Capability)
}

// ContextError reports an override attempted with no active scenario.
type ContextError struct {
	Cell string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("cell %q: override requires an active scenario", e.Cell)
}

// CycleError reports a cyclic dependency. Path holds the cell names from the
// first recurrence to the close of the cycle, in evaluation order.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cyclic dependency detected: " + strings.Join(e.Path, " -> ")
}

// EvaluationError wraps an error raised by a cell's compute callback. It
// carries the cell name and the original cause.
type EvaluationError struct {
	Cell  string
	Cause error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating cell %q: %v", e.Cell, e.Cause)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// ReclaimedOwnerError reports an operation on a cell whose owning object has
// been detached from the graph.
type ReclaimedOwnerError struct {
	Cell string
}

func (e *ReclaimedOwnerError) Error() string {
	if e.Cell == "" {
		return "owner has been detached from the graph"
	}
	return fmt.Sprintf("cell %q: owner has been detached from the graph", e.Cell)
}

// UnknownCellError reports access to a cell name the owner's type never
// declared.
type UnknownCellError struct {
	Type string
	Cell string
}

func (e *UnknownCellError) Error() string {
	return fmt.Sprintf("type %q declares no cell %q", e.Type, e.Cell)
}
