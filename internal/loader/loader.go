// Package loader reads bitproto files from disk, resolves their import
// graphs and drives parsing and analysis in dependency order.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitproto/bitproto/internal/ast"
	"github.com/bitproto/bitproto/internal/diag"
	"github.com/bitproto/bitproto/internal/ir"
	"github.com/bitproto/bitproto/internal/parser"
	"github.com/bitproto/bitproto/internal/semantic"
	"github.com/bitproto/bitproto/internal/token"
)

// Loader loads and analyzes proto files. A proto is analyzed once per
// canonical path no matter how many import edges reach it. The zero
// value is not usable; create loaders with New.
type Loader struct {
	searchPaths []string

	protos  map[string]*ir.Proto // canonical path → analyzed proto
	loading map[string]bool      // canonical paths on the current import chain
	stack   []string             // the chain itself, for cycle reports
	order   []*ir.Proto          // dependency order, leaves first
}

// New creates a loader. searchPaths are consulted, in order, for
// imports that do not resolve relative to the importing file.
func New(searchPaths ...string) *Loader {
	return &Loader{
		searchPaths: searchPaths,
		protos:      make(map[string]*ir.Proto),
		loading:     make(map[string]bool),
	}
}

// Load loads, parses and analyzes the proto at path together with
// everything it imports. On failure the returned proto is nil and the
// list explains why; on success the list may still carry warnings.
func (l *Loader) Load(path string) (*ir.Proto, *diag.List) {
	ds := &diag.List{}
	p := l.load(path, token.Position{}, ds)
	return p, ds
}

// Protos returns every loaded proto in dependency order, leaves first.
func (l *Loader) Protos() []*ir.Proto {
	out := make([]*ir.Proto, len(l.order))
	copy(out, l.order)
	return out
}

// Files returns the canonical paths of every loaded file.
func (l *Loader) Files() []string {
	out := make([]string, 0, len(l.order))
	for _, p := range l.order {
		out = append(out, p.Filename)
	}
	return out
}

func (l *Loader) load(path string, importedAt token.Position, ds *diag.List) *ir.Proto {
	canon, err := canonicalize(path)
	if err != nil {
		ds.Append(diag.Errorf(importedAt, "import/missing", "cannot resolve %q: %v", path, err))
		return nil
	}
	if p, ok := l.protos[canon]; ok {
		return p
	}
	if l.loading[canon] {
		ds.Append(diag.Errorf(importedAt, "import/cycle",
			"import cycle: %s", cycleString(l.stack, canon)))
		return nil
	}

	src, err := os.ReadFile(canon)
	if err != nil {
		ds.Append(diag.Errorf(importedAt, "import/missing", "cannot read %q: %v", path, err))
		return nil
	}

	file, parseDiags := parser.Parse(canon, src)
	ds.Merge(parseDiags)
	if file == nil {
		return nil
	}

	l.loading[canon] = true
	l.stack = append(l.stack, canon)
	imports, ok := l.loadImports(file, ds)
	l.stack = l.stack[:len(l.stack)-1]
	delete(l.loading, canon)
	if !ok {
		return nil
	}

	p, analyzeDiags := semantic.Analyze(file, imports)
	ds.Merge(analyzeDiags)
	if p == nil {
		return nil
	}
	l.protos[canon] = p
	l.order = append(l.order, p)
	return p
}

func (l *Loader) loadImports(file *ast.File, ds *diag.List) ([]*ir.Import, bool) {
	var (
		imports []*ir.Import
		seen    = make(map[string]token.Position)
		ok      = true
	)
	for _, imp := range file.Imports {
		resolved, err := l.resolveImportPath(file.Filename, imp.Path)
		if err != nil {
			ds.Append(diag.Errorf(imp.PathPos, "import/missing",
				"cannot find import %q: %v", imp.Path, err))
			ok = false
			continue
		}
		p := l.load(resolved, imp.PathPos, ds)
		if p == nil {
			ok = false
			continue
		}
		alias := imp.Alias
		if alias == "" {
			alias = deriveAlias(imp.Path)
		}
		if prev, dup := seen[alias]; dup {
			ds.Append(diag.Errorf(imp.PathPos, "import/alias-collision",
				"import alias %q already used at %s", alias, prev))
			ok = false
			continue
		}
		seen[alias] = imp.PathPos
		pos := imp.AliasPos
		if !pos.IsValid() {
			pos = imp.PathPos
		}
		imports = append(imports, &ir.Import{Alias: alias, Path: imp.Path, Pos: pos, Proto: p})
	}
	return imports, ok
}

// resolveImportPath locates an import: first relative to the importing
// file, then along the configured search paths.
func (l *Loader) resolveImportPath(importer, path string) (string, error) {
	if filepath.IsAbs(path) {
		if fileExists(path) {
			return path, nil
		}
		return "", fmt.Errorf("no such file")
	}
	candidates := []string{filepath.Join(filepath.Dir(importer), path)}
	for _, dir := range l.searchPaths {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("not found relative to %s or on the import path", filepath.Dir(importer))
}

// deriveAlias is the default import namespace: the file basename
// without the .bitproto extension.
func deriveAlias(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".bitproto")
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func cycleString(stack []string, repeated string) string {
	start := 0
	for i, p := range stack {
		if p == repeated {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(stack)-start+1)
	for _, p := range stack[start:] {
		parts = append(parts, filepath.Base(p))
	}
	parts = append(parts, filepath.Base(repeated))
	return strings.Join(parts, " -> ")
}
