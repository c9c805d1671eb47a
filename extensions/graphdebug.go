package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/m1gwings/treedrawer/tree"

	celldag "github.com/celldag/celldag-go"
)

// GraphDebug logs a rendering of the failed cell's dependency tree when an
// operation errors.
//
// Usage:
//
//	// Human-readable output
//	ext := extensions.NewGraphDebug(extensions.NewHumanHandler(os.Stderr, slog.LevelError))
//
//	// Structured JSON logging
//	ext := extensions.NewGraphDebug(slog.NewJSONHandler(os.Stderr, nil))
//
//	// Silent (for testing)
//	ext := extensions.NewGraphDebug(extensions.NewSilentHandler())
type GraphDebug struct {
	celldag.BaseExtension
	logger *slog.Logger
}

// NewGraphDebug creates a graph debug extension logging to the given handler.
func NewGraphDebug(handler slog.Handler) *GraphDebug {
	return &GraphDebug{
		BaseExtension: celldag.NewBaseExtension("graph-debug"),
		logger:        slog.New(handler),
	}
}

// OnError renders the dependency tree below the failed cell.
func (e *GraphDebug) OnError(err error, op *celldag.Operation, g *celldag.Graph) {
	e.logger.Error("graph operation error",
		"cell", op.Cell,
		"operation", string(op.Kind),
		"error", err.Error(),
		"dependency_tree", e.renderTree(g, op.Key),
	)
}

// renderTree draws the inputs of key recursively. Nodes already drawn on the
// current path are cut off so cyclic edges terminate.
func (e *GraphDebug) renderTree(g *celldag.Graph, key celldag.NodeKey) string {
	t := tree.NewTree(tree.NodeString(key.Cell))
	e.addInputs(g, t, key, map[celldag.NodeKey]bool{key: true})
	return fmt.Sprint(t)
}

func (e *GraphDebug) addInputs(g *celldag.Graph, t *tree.Tree, key celldag.NodeKey, seen map[celldag.NodeKey]bool) {
	for _, dep := range g.Dependencies(key) {
		label := dep.Cell
		if seen[dep] {
			t.AddChild(tree.NodeString(label + " (cycle)"))
			continue
		}
		seen[dep] = true
		child := t.AddChild(tree.NodeString(label))
		e.addInputs(g, child, dep, seen)
		delete(seen, dep)
	}
}

// SilentHandler is a slog.Handler that discards all log output. Useful for
// tests that exercise error paths without noise.
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler.
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that prints each attribute on its own line,
// which keeps multi-line dependency trees readable.
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a human-readable log handler.
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{writer: writer, level: level}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message)
	record.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(h.writer, "  %s: %v\n", attr.Key, attr.Value.Any())
		return true
	})
	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
