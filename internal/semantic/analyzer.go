// Package semantic builds and checks the resolved schema model from a
// syntax tree: symbol tables, constant evaluation, type resolution,
// bit-size computation and the extensibility rules.
package semantic

import (
	"github.com/bitproto/bitproto/internal/ast"
	"github.com/bitproto/bitproto/internal/diag"
	"github.com/bitproto/bitproto/internal/ir"
	"github.com/bitproto/bitproto/internal/token"
)

// Limits fixed by the wire format.
const (
	MaxFieldNumber  = 255
	MaxArrayCap     = 65535
	MaxMessageNbits = 65535
)

// Analyze turns a parsed file into a resolved ir.Proto. imports must
// already be analyzed; they are attached to the result. The returned
// list carries both errors and lint-style warnings produced during
// analysis itself (naming lint lives in the lint package).
func Analyze(file *ast.File, imports []*ir.Import) (*ir.Proto, *diag.List) {
	a := &analyzer{
		proto: &ir.Proto{
			Name:     file.Proto.Name,
			Filename: file.Filename,
			Pos:      file.Proto.NamePos,
			Imports:  imports,
		},
		diags:     &diag.List{},
		msgScopes: make(map[*ir.Message]*scope),
		msgASTs:   make(map[*ir.Message]*ast.MessageDecl),
	}
	a.run(file)
	if a.diags.HasErrors() {
		return nil, a.diags
	}
	return a.proto, a.diags
}

type analyzer struct {
	proto     *ir.Proto
	diags     *diag.List
	top       *scope
	msgScopes map[*ir.Message]*scope
	msgASTs   map[*ir.Message]*ast.MessageDecl
}

func (a *analyzer) errorf(pos token.Position, code, format string, args ...interface{}) {
	a.diags.Append(diag.Errorf(pos, code, format, args...))
}

func (a *analyzer) warnf(pos token.Position, code, format string, args ...interface{}) {
	a.diags.Append(diag.Warnf(pos, code, format, args...))
}

func (a *analyzer) run(file *ast.File) {
	a.top = newScope(nil, nil)

	// Pass 1: declare every named symbol so references resolve
	// regardless of declaration order.
	for _, d := range file.Decls {
		a.declare(a.top, d)
	}

	// Import aliases join the proto scope last: a colliding local name
	// wins, with a warning.
	for _, imp := range a.proto.Imports {
		sym := &symbol{name: imp.Alias, pos: imp.Pos, imp: imp}
		if prev := a.top.declare(sym); prev != nil {
			a.warnf(imp.Pos, "import/alias-collision",
				"import alias %q collides with local %s declared at %s; the local name wins",
				imp.Alias, symbolKind(prev), prev.pos)
		}
	}

	// Pass 2: resolve lazily declared symbols and field types.
	a.resolveScope(a.top)

	// Pass 3: whole-message checks need every size resolved first.
	if !a.diags.HasErrors() {
		a.checkMessages()
	}

	// Proto-level options.
	for _, d := range file.Decls {
		if o, ok := d.(*ast.OptionDecl); ok {
			if opt := a.resolveOption(a.top, o, protoOptionScope); opt != nil {
				a.proto.Options = append(a.proto.Options, opt)
			}
		}
	}
}

// declare creates IR shells for d and registers them in sc. Nested
// message bodies are declared recursively; resolution is deferred.
func (a *analyzer) declare(sc *scope, d ast.Decl) {
	owner := sc.owner
	switch d := d.(type) {
	case *ast.ConstDecl:
		cons := &ir.Constant{Name: d.Name, Pos: d.NamePos, Parent: owner, Proto: a.proto}
		if a.declareSym(sc, &symbol{name: d.Name, pos: d.NamePos, cons: cons, consAST: d}) {
			if owner != nil {
				owner.Constants = append(owner.Constants, cons)
			} else {
				a.proto.Constants = append(a.proto.Constants, cons)
			}
		}

	case *ast.AliasDecl:
		alias := &ir.Alias{Name: d.Name, Pos: d.NamePos, Parent: owner, Proto: a.proto}
		if a.declareSym(sc, &symbol{name: d.Name, pos: d.NamePos, alias: alias, aliasAST: d}) {
			if owner != nil {
				owner.Aliases = append(owner.Aliases, alias)
			} else {
				a.proto.Aliases = append(a.proto.Aliases, alias)
			}
		}

	case *ast.EnumDecl:
		enum := a.declareEnum(sc, d)
		if enum != nil {
			if owner != nil {
				owner.Enums = append(owner.Enums, enum)
			} else {
				a.proto.Enums = append(a.proto.Enums, enum)
			}
		}

	case *ast.MessageDecl:
		msg := &ir.Message{
			Name: d.Name, Pos: d.NamePos, Extensible: d.Extensible,
			Parent: owner, Proto: a.proto,
		}
		if !a.declareSym(sc, &symbol{name: d.Name, pos: d.NamePos, msg: msg}) {
			return
		}
		if owner != nil {
			owner.Messages = append(owner.Messages, msg)
		} else {
			a.proto.Messages = append(a.proto.Messages, msg)
		}
		child := newScope(sc, msg)
		a.msgScopes[msg] = child
		a.msgASTs[msg] = d
		for _, nested := range d.Decls {
			a.declare(child, nested)
		}
		for _, f := range d.Fields {
			a.declare(child, f)
		}

	case *ast.OptionDecl:
		// Options are unnamed; handled during resolution.

	case *ast.FieldDecl:
		// Field names share the message scope with nested declarations.
		a.declareSym(sc, &symbol{name: d.Name, pos: d.NamePos})
	}
}

// declareSym registers sym, reporting a duplicate-name error on
// collision. It reports whether the declaration took effect.
func (a *analyzer) declareSym(sc *scope, sym *symbol) bool {
	if prev := sc.declare(sym); prev != nil {
		a.errorf(sym.pos, "name/duplicate",
			"duplicate name %q in %s; previous declaration at %s",
			sym.name, scopeName(sc), prev.pos)
		return false
	}
	return true
}

func (a *analyzer) declareEnum(sc *scope, d *ast.EnumDecl) *ir.Enum {
	if d.Extensible {
		a.errorf(d.ExtPos, "extensibility/enum",
			"enum %s cannot be extensible: widening an enum would truncate values on the older side", d.Name)
	}
	bits := d.Backing.Bits
	if bits < 1 || bits > 64 {
		a.errorf(d.Backing.TypePos, "type/bad-width",
			"enum %s backing width %d out of range 1..64", d.Name, bits)
		return nil
	}
	enum := &ir.Enum{
		Name: d.Name, Pos: d.NamePos, Backing: ir.Uint(bits),
		Parent: sc.owner, Proto: a.proto,
	}
	if !a.declareSym(sc, &symbol{name: d.Name, pos: d.NamePos, enum: enum}) {
		return nil
	}

	seen := make(map[string]*ast.EnumMember)
	var maxVal uint64 = 1<<uint(bits) - 1
	for _, m := range d.Members {
		if prev, ok := seen[m.Name]; ok {
			a.errorf(m.NamePos, "name/duplicate",
				"duplicate enum value name %q; previous declaration at %s", m.Name, prev.NamePos)
			continue
		}
		seen[m.Name] = m
		if m.Value < 0 || uint64(m.Value) > maxVal {
			a.errorf(m.ValPos, "type/enum-value-range",
				"enum value %s = %d does not fit in uint%d", m.Name, m.Value, bits)
			continue
		}
		enum.Members = append(enum.Members, &ir.EnumMember{
			Name: m.Name, Value: uint64(m.Value), Pos: m.NamePos,
		})
	}
	return enum
}

func scopeName(sc *scope) string {
	if sc.owner != nil {
		return "message " + sc.owner.String()
	}
	return "proto scope"
}

func symbolKind(sym *symbol) string {
	switch {
	case sym.cons != nil:
		return "constant"
	case sym.alias != nil:
		return "type alias"
	case sym.enum != nil:
		return "enum"
	case sym.msg != nil:
		return "message"
	case sym.imp != nil:
		return "import"
	default:
		return "name"
	}
}
