package extensions

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	celldag "github.com/celldag/celldag-go"
)

func fixedCell(name string, v any) celldag.CellSpec {
	return celldag.CellSpec{
		Name: name,
		Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
			return v, nil
		},
	}
}

func failingCell(name string, err error) celldag.CellSpec {
	return celldag.CellSpec{
		Name: name,
		Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
			return nil, err
		},
	}
}

func TestLoggingRecordsOperations(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	g := celldag.New(celldag.WithExtension(NewLogging(handler)))
	h := g.Attach(struct{}{}, celldag.NewTypeSpec("T").Define(fixedCell("Price", 42)))

	_, err := g.Cell(h, "Price").Evaluate()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "operation completed")
	assert.Contains(t, out, "cell=Price")
	assert.Contains(t, out, "op=evaluate")
}

func TestLoggingRecordsFailures(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	g := celldag.New(celldag.WithExtension(NewLogging(handler)))
	h := g.Attach(struct{}{}, celldag.NewTypeSpec("T").Define(failingCell("Bad", errors.New("boom"))))

	_, err := g.Cell(h, "Bad").Evaluate()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "operation failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestMetricsCountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	g := celldag.New(celldag.WithExtension(m))
	h := g.Attach(struct{}{}, celldag.NewTypeSpec("T").Define(fixedCell("Price", 42)))

	price := g.Cell(h, "Price")
	_, err = price.Evaluate()
	require.NoError(t, err)
	// Cached reads never reach the pipeline; only cache misses count.
	_, err = price.Evaluate()
	require.NoError(t, err)

	got := testutil.ToFloat64(m.operations.WithLabelValues("evaluate", "Price"))
	assert.Equal(t, 1.0, got)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.failures.WithLabelValues("evaluate", "Price", "evaluation")))
}

func TestMetricsClassifiesFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	g := celldag.New(celldag.WithExtension(m))
	h := g.Attach(struct{}{}, celldag.NewTypeSpec("T").Define(failingCell("Bad", errors.New("boom"))))

	_, err = g.Cell(h, "Bad").Evaluate()
	require.Error(t, err)

	got := testutil.ToFloat64(m.failures.WithLabelValues("evaluate", "Bad", "evaluation"))
	assert.Equal(t, 1.0, got)
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	require.Error(t, err)
}

func TestGraphDebugRendersDependencyTree(t *testing.T) {
	var buf bytes.Buffer
	handler := NewHumanHandler(&buf, slog.LevelError)

	g := celldag.New(celldag.WithExtension(NewGraphDebug(handler)))
	h := g.Attach(struct{}{}, celldag.NewTypeSpec("T").Define(
		fixedCell("Leaf", 1),
		celldag.CellSpec{
			Name: "Root",
			Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
				if _, err := ctx.Evaluate("Leaf"); err != nil {
					return nil, err
				}
				return nil, errors.New("root failed")
			},
		},
	))

	_, err := g.Cell(h, "Root").Evaluate()
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "graph operation error")
	assert.Contains(t, out, "Root")
	assert.Contains(t, out, "Leaf")
	assert.Contains(t, out, "root failed")
}

func TestGraphDebugCutsCycles(t *testing.T) {
	g := celldag.New(celldag.WithExtension(NewGraphDebug(NewSilentHandler())))
	h := g.Attach(struct{}{}, celldag.NewTypeSpec("T").Define(
		celldag.CellSpec{
			Name: "A",
			Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
				return ctx.Evaluate("B")
			},
		},
		celldag.CellSpec{
			Name: "B",
			Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
				return ctx.Evaluate("A")
			},
		},
	))

	_, err := g.Cell(h, "A").Evaluate()
	var cyc *celldag.CycleError
	require.ErrorAs(t, err, &cyc)

	ext := NewGraphDebug(NewSilentHandler())
	n, ok := g.NodeOf(h, "A")
	require.True(t, ok)
	rendered := ext.renderTree(g, n.Key())
	assert.True(t, strings.Contains(rendered, "A"))
}

func TestSilentHandlerDiscards(t *testing.T) {
	h := NewSilentHandler()
	assert.False(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestHumanHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewHumanHandler(&buf, slog.LevelError)
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	logger := slog.New(h)
	logger.Error("something broke", "cell", "X")
	out := buf.String()
	assert.Contains(t, out, "[ERROR] something broke")
	assert.Contains(t, out, "cell: X")
}
