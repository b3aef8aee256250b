package loader

import (
	"os"
	"path/filepath"
	"testing"

	"sentra/internal/ast"
	"sentra/internal/lexer"
	"sentra/internal/parser"
)

func parse(t *testing.T, path, src string) *ast.Program {
	t.Helper()
	tokens := lexer.NewScannerFile(src, path).ScanTokens()
	p := parser.NewParserFile(tokens, path)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse %s: %v", path, p.Errors[0])
	}
	return prog
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveMergesImportedDeclarations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.sn", `
struct Circle { radius: float }
fn area(c: Circle): float { return c.radius * c.radius }
`)
	mainPath := writeFile(t, dir, "main.sn", `
use "shapes";
let c = Circle { radius: 2.0 };
`)

	prog := parse(t, mainPath, `
use "shapes";
let c = Circle { radius: 2.0 };
`)
	if len(prog.Uses) != 1 {
		t.Fatalf("expected 1 use statement, got %d", len(prog.Uses))
	}

	if err := New(mainPath).Resolve(prog); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var foundStruct, foundFunc bool
	for _, stmt := range prog.Stmts {
		switch s := stmt.(type) {
		case *ast.StructDecl:
			if s.Name == "Circle" {
				foundStruct = true
			}
		case *ast.FuncDecl:
			if s.Name == "area" {
				foundFunc = true
			}
		}
	}
	if !foundStruct {
		t.Error("expected Circle struct to be merged in")
	}
	if !foundFunc {
		t.Error("expected area function to be merged in")
	}
}

func TestResolveDiamondImportMergesOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.sn", `struct Base { x: int }`)
	writeFile(t, dir, "left.sn", `use "base";`)
	writeFile(t, dir, "right.sn", `use "base";`)
	mainPath := writeFile(t, dir, "main.sn", `
use "left";
use "right";
`)

	prog := parse(t, mainPath, `
use "left";
use "right";
`)
	if err := New(mainPath).Resolve(prog); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	count := 0
	for _, stmt := range prog.Stmts {
		if s, ok := stmt.(*ast.StructDecl); ok && s.Name == "Base" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected Base merged exactly once, got %d", count)
	}
}

func TestResolveMissingModuleFails(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeFile(t, dir, "main.sn", `use "nope";`)
	prog := parse(t, mainPath, `use "nope";`)

	if err := New(mainPath).Resolve(prog); err == nil {
		t.Fatal("expected an error for a missing module")
	}
}
