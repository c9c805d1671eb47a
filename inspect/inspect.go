// Package inspect statically scans Go source for cell declarations and
// reports each cell's declared static dependencies against the cell reads
// visible in its compute callback.
//
// Static detection is advisory tooling only: the engine's runtime dependency
// tracking is authoritative. The scanner exists to catch StaticDeps
// declarations that have drifted from the code.
package inspect

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// Cell is one scanned cell declaration.
type Cell struct {
	Name     string
	File     string
	Declared []string // names listed in StaticDeps
	Observed []string // cell names read via Evaluate in the compute body
}

// Drift returns the observed dependencies missing from the declaration and
// the declared ones never observed.
func (c *Cell) Drift() (missing, stale []string) {
	declared := make(map[string]bool, len(c.Declared))
	for _, d := range c.Declared {
		declared[d] = true
	}
	observed := make(map[string]bool, len(c.Observed))
	for _, o := range c.Observed {
		observed[o] = true
		if !declared[o] {
			missing = append(missing, o)
		}
	}
	for _, d := range c.Declared {
		if !observed[d] {
			stale = append(stale, d)
		}
	}
	sort.Strings(missing)
	sort.Strings(stale)
	return missing, stale
}

// ScanDir scans every .go file under root, skipping test files.
func ScanDir(root string) ([]*Cell, error) {
	var cells []*Cell
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		found, err := ScanFile(path)
		if err != nil {
			return err
		}
		cells = append(cells, found...)
		return nil
	})
	return cells, err
}

// ScanFile scans a single Go source file.
func ScanFile(path string) ([]*Cell, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cells, err := ScanSource(src)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	for _, c := range cells {
		c.File = path
	}
	return cells, nil
}

// ScanSource scans Go source for CellSpec composite literals.
func ScanSource(src []byte) ([]*Cell, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}

	query, err := sitter.NewQuery([]byte(`(composite_literal) @lit`), golang.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(query, tree.RootNode())

	var cells []*Cell
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, capture := range m.Captures {
			lit := capture.Node
			typeNode := lit.ChildByFieldName("type")
			if typeNode == nil || !strings.HasSuffix(typeNode.Content(src), "CellSpec") {
				continue
			}
			if cell := extractCell(lit.ChildByFieldName("body"), src); cell != nil {
				cells = append(cells, cell)
			}
		}
	}
	return cells, nil
}

// extractCell pulls Name, StaticDeps and the compute body's Evaluate reads
// out of one CellSpec literal body.
func extractCell(body *sitter.Node, src []byte) *Cell {
	if body == nil {
		return nil
	}
	cell := &Cell{}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		elem := body.NamedChild(i)
		if elem.Type() != "keyed_element" || elem.NamedChildCount() < 2 {
			continue
		}
		key := elem.NamedChild(0).Content(src)
		value := elem.NamedChild(1)
		switch key {
		case "Name":
			if s, ok := stringValue(value, src); ok {
				cell.Name = s
			}
		case "StaticDeps":
			cell.Declared = stringList(value, src)
		case "Compute":
			cell.Observed = evaluateReads(value, src)
		}
	}
	if cell.Name == "" {
		return nil
	}
	return cell
}

// evaluateReads walks a compute body collecting the string argument of every
// Evaluate call: both ctx.Evaluate("X") and accessor chains ending in a
// Cell(h, "X") lookup.
func evaluateReads(node *sitter.Node, src []byte) []string {
	seen := make(map[string]bool)
	var reads []string

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "call_expression" {
			if name, ok := readTarget(n, src); ok && !seen[name] {
				seen[name] = true
				reads = append(reads, name)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
	sort.Strings(reads)
	return reads
}

// readTarget resolves the cell name a call expression reads, if any.
func readTarget(call *sitter.Node, src []byte) (string, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "selector_expression" {
		return "", false
	}
	field := fn.ChildByFieldName("field")
	if field == nil {
		return "", false
	}
	args := call.ChildByFieldName("arguments")

	switch field.Content(src) {
	case "Evaluate":
		// ctx.Evaluate("X", ...) carries the name; accessor.Evaluate() does
		// not, so fall through to the operand's Cell call when absent.
		if s, ok := firstStringArg(args, src); ok {
			return s, true
		}
		operand := fn.ChildByFieldName("operand")
		if operand != nil && operand.Type() == "call_expression" {
			return readTarget(operand, src)
		}
	case "Cell":
		// ctx.Cell(h, "X") names the cell in its second argument.
		if s, ok := stringArgAt(args, src, 1); ok {
			return s, true
		}
	}
	return "", false
}

func firstStringArg(args *sitter.Node, src []byte) (string, bool) {
	return stringArgAt(args, src, 0)
}

func stringArgAt(args *sitter.Node, src []byte, idx int) (string, bool) {
	if args == nil || int(args.NamedChildCount()) <= idx {
		return "", false
	}
	return stringValue(args.NamedChild(idx), src)
}

func stringValue(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "interpreted_string_literal", "raw_string_literal":
		s, err := strconv.Unquote(n.Content(src))
		if err != nil {
			return "", false
		}
		return s, true
	}
	return "", false
}

func stringList(n *sitter.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	var out []string
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		if s, ok := stringValue(node, src); ok {
			out = append(out, s)
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(n)
	return out
}
