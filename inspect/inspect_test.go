package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `package sample

func spec() *celldag.TypeSpec {
	return celldag.NewTypeSpec("Option").Define(
		celldag.CellSpec{
			Name:       "Price",
			StaticDeps: []string{"Spot", "Rate"},
			Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
				spot, err := ctx.Evaluate("Spot")
				if err != nil {
					return nil, err
				}
				strike, err := ctx.Evaluate("Strike")
				if err != nil {
					return nil, err
				}
				return spot.(float64) - strike.(float64), nil
			},
		},
		celldag.CellSpec{
			Name: "Hedge",
			Compute: func(ctx *celldag.EvalCtx, args ...any) (any, error) {
				return ctx.Cell(other, "Delta").Evaluate()
			},
		},
	)
}
`

func TestScanSource(t *testing.T) {
	cells, err := ScanSource([]byte(sampleSource))
	require.NoError(t, err)
	require.Len(t, cells, 2)

	price := cells[0]
	assert.Equal(t, "Price", price.Name)
	assert.Equal(t, []string{"Spot", "Rate"}, price.Declared)
	assert.Equal(t, []string{"Spot", "Strike"}, price.Observed)

	hedge := cells[1]
	assert.Equal(t, "Hedge", hedge.Name)
	assert.Empty(t, hedge.Declared)
	assert.Equal(t, []string{"Delta"}, hedge.Observed)
}

func TestDrift(t *testing.T) {
	c := &Cell{
		Name:     "Price",
		Declared: []string{"Spot", "Rate"},
		Observed: []string{"Spot", "Strike"},
	}
	missing, stale := c.Drift()
	assert.Equal(t, []string{"Strike"}, missing)
	assert.Equal(t, []string{"Rate"}, stale)
}

func TestDriftClean(t *testing.T) {
	c := &Cell{
		Name:     "Price",
		Declared: []string{"Spot"},
		Observed: []string{"Spot"},
	}
	missing, stale := c.Drift()
	assert.Empty(t, missing)
	assert.Empty(t, stale)
}

func TestScanDirSkipsTests(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spec.go"), []byte(sampleSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spec_test.go"), []byte(sampleSource), 0o644))

	cells, err := ScanDir(dir)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, filepath.Join(dir, "spec.go"), cells[0].File)
}

func TestScanSourceIgnoresOtherLiterals(t *testing.T) {
	cells, err := ScanSource([]byte(`package x

var m = map[string]int{"a": 1}
var s = struct{ Name string }{Name: "n"}
`))
	require.NoError(t, err)
	assert.Empty(t, cells)
}
