package semantic

import (
	"strings"

	"github.com/bitproto/bitproto/internal/ast"
	"github.com/bitproto/bitproto/internal/diag"
	"github.com/bitproto/bitproto/internal/ir"
)

// resolveScope resolves every lazily declared symbol in sc and recurses
// into nested message scopes.
func (a *analyzer) resolveScope(sc *scope) {
	for _, name := range sc.names {
		sym := sc.syms[name]
		switch {
		case sym.consAST != nil:
			a.resolveConstant(sym)
		case sym.aliasAST != nil:
			a.resolveAlias(sym)
		}
	}
	for _, name := range sc.names {
		sym := sc.syms[name]
		if sym.msg != nil {
			a.resolveMessage(sym.msg)
		}
	}
}

func (a *analyzer) resolveMessage(msg *ir.Message) {
	child := a.msgScopes[msg]
	decl := a.msgASTs[msg]
	a.resolveScope(child)

	seen := make(map[int64]*ast.FieldDecl)
	for _, f := range decl.Fields {
		typ, ok := a.resolveType(child, f.Type)
		if f.Number < 1 || f.Number > MaxFieldNumber {
			a.errorf(f.NumPos, "type/field-number",
				"field number %d out of range 1..%d", f.Number, MaxFieldNumber)
			ok = false
		} else if prev, dup := seen[f.Number]; dup {
			a.errorf(f.NumPos, "type/field-number",
				"field number %d already used by %q at %s", f.Number, prev.Name, prev.NumPos)
			ok = false
		} else {
			seen[f.Number] = f
		}
		if !ok {
			continue
		}
		field := &ir.Field{
			Name: f.Name, Number: int(f.Number), Type: typ,
			Pos: f.NamePos, Message: msg,
		}
		msg.Fields = append(msg.Fields, field)
		msg.DeclOrder = append(msg.DeclOrder, field)
	}
	msg.SortFields()

	for _, d := range decl.Decls {
		if o, ok := d.(*ast.OptionDecl); ok {
			if opt := a.resolveOption(child, o, messageOptionScope); opt != nil {
				msg.Options = append(msg.Options, opt)
			}
		}
	}
}

// resolveConstant evaluates a constant's expression, detecting
// reference cycles through the resolving state.
func (a *analyzer) resolveConstant(sym *symbol) {
	switch sym.state {
	case resolved:
		return
	case resolving:
		a.errorf(sym.pos, "const/cycle", "constant %s references itself", sym.name)
		sym.state = resolved
		return
	}
	sym.state = resolving
	v, ok := a.evalExpr(sym.owner, sym.consAST.Value)
	sym.state = resolved
	if !ok {
		return
	}
	sym.cons.Kind = v.kind
	sym.cons.Int = v.i
	sym.cons.Bool = v.b
	sym.cons.Str = v.s
}

// resolveAlias resolves an alias target. The target shape is checked
// syntactically: only unnamed kinds (base types and arrays) may be
// aliased, so a named target is rejected before resolution.
func (a *analyzer) resolveAlias(sym *symbol) {
	switch sym.state {
	case resolved:
		return
	case resolving:
		a.errorf(sym.pos, "type/alias-cycle", "type alias %s refers back to itself", sym.name)
		sym.state = resolved
		sym.alias.Target = ir.Bool() // placeholder, errors abort the build anyway
		return
	}
	sym.state = resolving
	defer func() { sym.state = resolved }()

	if named, ok := sym.aliasAST.Target.(*ast.NamedTypeExpr); ok {
		a.errorf(named.PartsPos, "name/alias-named-target",
			"type alias %s targets the named type %s; only bool, byte, uint, int and arrays can be aliased",
			sym.name, strings.Join(named.Parts, "."))
		sym.alias.Target = ir.Bool()
		return
	}
	target, ok := a.resolveType(sym.owner, sym.aliasAST.Target)
	if !ok {
		sym.alias.Target = ir.Bool()
		return
	}
	sym.alias.Target = target
}

// resolveType resolves a syntactic type reference in scope sc.
func (a *analyzer) resolveType(sc *scope, t ast.TypeExpr) (ir.Type, bool) {
	switch t := t.(type) {
	case *ast.BaseTypeExpr:
		switch t.Kind {
		case ast.BaseBool:
			return ir.Bool(), true
		case ast.BaseByte:
			return ir.Byte(), true
		case ast.BaseUint, ast.BaseInt:
			if t.Bits < 1 || t.Bits > 64 {
				a.errorf(t.TypePos, "type/bad-width", "bit width %d out of range 1..64", t.Bits)
				return nil, false
			}
			if t.Kind == ast.BaseUint {
				return ir.Uint(t.Bits), true
			}
			return ir.Int(t.Bits), true
		}
		return nil, false

	case *ast.NamedTypeExpr:
		typ, ok := a.resolveNamedType(sc, t)
		if !ok {
			return nil, false
		}
		if t.ExtMarker {
			msg, isMsg := typ.(*ir.Message)
			if !isMsg || !msg.Extensible {
				a.errorf(t.PartsPos, "extensibility/marker",
					"%s is not an extensible message; the ' marker is only valid on references to extensible messages",
					strings.Join(t.Parts, "."))
				return nil, false
			}
		}
		return typ, true

	case *ast.ArrayTypeExpr:
		elem, ok := a.resolveType(sc, t.Elem)
		if !ok {
			return nil, false
		}
		if isArrayKind(elem) {
			a.errorf(t.Elem.Pos(), "type/nested-array", "array elements cannot themselves be arrays")
			return nil, false
		}
		capVal, ok := a.evalInt(sc, t.Cap)
		if !ok {
			return nil, false
		}
		if capVal < 1 || capVal > MaxArrayCap {
			a.errorf(t.Cap.Pos(), "type/array-cap",
				"array capacity %d out of range 1..%d", capVal, MaxArrayCap)
			return nil, false
		}
		return &ir.Array{Cap: int(capVal), Elem: elem, Extensible: t.Extensible}, true
	}
	return nil, false
}

// isArrayKind reports whether t is an array or an alias whose target is
// an array.
func isArrayKind(t ir.Type) bool {
	switch t := t.(type) {
	case *ir.Array:
		return true
	case *ir.Alias:
		_, ok := t.Target.(*ir.Array)
		return ok
	}
	return false
}

// resolveNamedType resolves a dotted reference to a declared type.
func (a *analyzer) resolveNamedType(sc *scope, t *ast.NamedTypeExpr) (ir.Type, bool) {
	sym := sc.lookupChain(t.Parts[0])
	if sym == nil {
		a.unresolved(sc, t.Parts[0], t)
		return nil, false
	}
	rest := t.Parts[1:]

	// Imported proto: navigate its resolved model.
	if sym.imp != nil {
		if len(rest) == 0 {
			a.errorf(t.PartsPos, "name/unresolved",
				"%s is an imported proto, not a type", t.Parts[0])
			return nil, false
		}
		typ := lookupProtoType(sym.imp.Proto, rest)
		if typ == nil {
			a.errorf(t.PartsPos, "name/unresolved",
				"no type %s in imported proto %q", strings.Join(rest, "."), sym.imp.Alias)
			return nil, false
		}
		return typ, true
	}

	return a.symbolAsType(sc, sym, rest, t)
}

// symbolAsType interprets sym (plus any remaining dotted parts) as a
// type reference.
func (a *analyzer) symbolAsType(sc *scope, sym *symbol, rest []string, t *ast.NamedTypeExpr) (ir.Type, bool) {
	for len(rest) > 0 {
		if sym.msg == nil {
			a.errorf(t.PartsPos, "name/unresolved",
				"%s has no nested type %s", sym.name, rest[0])
			return nil, false
		}
		inner := a.msgScopes[sym.msg].lookup(rest[0])
		if inner == nil {
			a.errorf(t.PartsPos, "name/unresolved",
				"message %s has no nested declaration %q", sym.msg, rest[0])
			return nil, false
		}
		sym = inner
		rest = rest[1:]
	}

	switch {
	case sym.enum != nil:
		return sym.enum, true
	case sym.msg != nil:
		return sym.msg, true
	case sym.alias != nil:
		a.resolveAlias(sym)
		return sym.alias, true
	default:
		a.errorf(t.PartsPos, "name/unresolved",
			"%s is a %s, not a type", sym.name, symbolKind(sym))
		return nil, false
	}
}

// lookupProtoType navigates a resolved imported proto along a dotted
// path, returning the named type or nil.
func lookupProtoType(p *ir.Proto, parts []string) ir.Type {
	name, rest := parts[0], parts[1:]
	if len(rest) == 0 {
		for _, e := range p.Enums {
			if e.Name == name {
				return e
			}
		}
		for _, al := range p.Aliases {
			if al.Name == name {
				return al
			}
		}
	}
	for _, m := range p.Messages {
		if m.Name == name {
			return lookupMessageType(m, rest)
		}
	}
	return nil
}

func lookupMessageType(m *ir.Message, parts []string) ir.Type {
	if len(parts) == 0 {
		return m
	}
	name, rest := parts[0], parts[1:]
	if len(rest) == 0 {
		for _, e := range m.Enums {
			if e.Name == name {
				return e
			}
		}
		for _, al := range m.Aliases {
			if al.Name == name {
				return al
			}
		}
	}
	for _, nested := range m.Messages {
		if nested.Name == name {
			return lookupMessageType(nested, rest)
		}
	}
	return nil
}

// unresolved reports an unresolved-name error with a nearest-name
// suggestion when one is close enough.
func (a *analyzer) unresolved(sc *scope, name string, node ast.Node) {
	d := diag.Errorf(node.Pos(), "name/unresolved", "unresolved reference %q", name)
	if s := sc.suggest(name); s != "" {
		d.Suggestion = s
	}
	a.diags.Append(d)
}
