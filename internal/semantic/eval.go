package semantic

import (
	"strings"

	"github.com/bitproto/bitproto/internal/ast"
	"github.com/bitproto/bitproto/internal/ir"
)

// value is the result of evaluating a constant expression.
type value struct {
	kind ir.ConstKind
	i    int64
	b    bool
	s    string
}

func intValue(i int64) value { return value{kind: ir.ConstInt, i: i} }

// evalExpr evaluates a constant expression in scope sc. Arithmetic is
// host-width int64; bounds are checked where the value is consumed.
func (a *analyzer) evalExpr(sc *scope, e ast.Expr) (value, bool) {
	switch e := e.(type) {
	case *ast.IntLit:
		return intValue(e.Value), true
	case *ast.BoolLit:
		return value{kind: ir.ConstBool, b: e.Value}, true
	case *ast.StringLit:
		return value{kind: ir.ConstString, s: e.Value}, true
	case *ast.RefExpr:
		return a.evalRef(sc, e)
	case *ast.BinaryExpr:
		x, ok := a.evalExpr(sc, e.X)
		if !ok {
			return value{}, false
		}
		y, ok := a.evalExpr(sc, e.Y)
		if !ok {
			return value{}, false
		}
		if x.kind != ir.ConstInt || y.kind != ir.ConstInt {
			a.errorf(e.OpPos, "const/bad-operand",
				"operator %s requires integer operands", e.Op)
			return value{}, false
		}
		switch e.Op {
		case ast.OpAdd:
			return intValue(x.i + y.i), true
		case ast.OpSub:
			return intValue(x.i - y.i), true
		case ast.OpMul:
			return intValue(x.i * y.i), true
		default:
			if y.i == 0 {
				a.errorf(e.OpPos, "const/div-zero", "division by zero in constant expression")
				return value{}, false
			}
			return intValue(x.i / y.i), true
		}
	}
	return value{}, false
}

// evalInt evaluates e and requires an integer result.
func (a *analyzer) evalInt(sc *scope, e ast.Expr) (int64, bool) {
	v, ok := a.evalExpr(sc, e)
	if !ok {
		return 0, false
	}
	if v.kind != ir.ConstInt {
		a.errorf(e.Pos(), "const/bad-operand", "expected an integer constant")
		return 0, false
	}
	return v.i, true
}

// evalRef resolves a possibly dotted reference to a constant or enum
// member value.
func (a *analyzer) evalRef(sc *scope, e *ast.RefExpr) (value, bool) {
	sym := sc.lookupChain(e.Parts[0])
	if sym == nil {
		a.unresolved(sc, e.Parts[0], e)
		return value{}, false
	}
	rest := e.Parts[1:]

	if sym.imp != nil {
		if len(rest) == 0 {
			a.errorf(e.PartsPos, "name/unresolved",
				"%s is an imported proto, not a value", e.Parts[0])
			return value{}, false
		}
		v, ok := lookupProtoValue(sym.imp.Proto, rest)
		if !ok {
			a.errorf(e.PartsPos, "name/unresolved",
				"no constant %s in imported proto %q", strings.Join(rest, "."), sym.imp.Alias)
			return value{}, false
		}
		return v, true
	}
	return a.symbolAsValue(sym, rest, e)
}

func (a *analyzer) symbolAsValue(sym *symbol, rest []string, e *ast.RefExpr) (value, bool) {
	for len(rest) > 0 {
		if sym.enum != nil {
			if len(rest) != 1 {
				a.errorf(e.PartsPos, "name/unresolved",
					"enum %s values have no nested names", sym.name)
				return value{}, false
			}
			m := sym.enum.Member(rest[0])
			if m == nil {
				a.errorf(e.PartsPos, "name/unresolved",
					"enum %s has no value %q", sym.enum, rest[0])
				return value{}, false
			}
			return intValue(int64(m.Value)), true
		}
		if sym.msg == nil {
			a.errorf(e.PartsPos, "name/unresolved",
				"%s has no nested declaration %q", sym.name, rest[0])
			return value{}, false
		}
		inner := a.msgScopes[sym.msg].lookup(rest[0])
		if inner == nil {
			a.errorf(e.PartsPos, "name/unresolved",
				"message %s has no nested declaration %q", sym.msg, rest[0])
			return value{}, false
		}
		sym = inner
		rest = rest[1:]
	}

	if sym.cons != nil {
		a.resolveConstant(sym)
		c := sym.cons
		return value{kind: c.Kind, i: c.Int, b: c.Bool, s: c.Str}, true
	}
	a.errorf(e.PartsPos, "name/unresolved",
		"%s is a %s, not a constant value", sym.name, symbolKind(sym))
	return value{}, false
}

// lookupProtoValue finds a constant or enum member along a dotted path
// in a resolved imported proto.
func lookupProtoValue(p *ir.Proto, parts []string) (value, bool) {
	name := parts[0]
	if len(parts) == 1 {
		for _, c := range p.Constants {
			if c.Name == name {
				return value{kind: c.Kind, i: c.Int, b: c.Bool, s: c.Str}, true
			}
		}
		return value{}, false
	}
	for _, e := range p.Enums {
		if e.Name == name {
			if len(parts) == 2 {
				if m := e.Member(parts[1]); m != nil {
					return intValue(int64(m.Value)), true
				}
			}
			return value{}, false
		}
	}
	for _, m := range p.Messages {
		if m.Name == name {
			return lookupMessageValue(m, parts[1:])
		}
	}
	return value{}, false
}

func lookupMessageValue(m *ir.Message, parts []string) (value, bool) {
	name := parts[0]
	if len(parts) == 1 {
		for _, c := range m.Constants {
			if c.Name == name {
				return value{kind: c.Kind, i: c.Int, b: c.Bool, s: c.Str}, true
			}
		}
		return value{}, false
	}
	for _, e := range m.Enums {
		if e.Name == name {
			if len(parts) == 2 {
				if mem := e.Member(parts[1]); mem != nil {
					return intValue(int64(mem.Value)), true
				}
			}
			return value{}, false
		}
	}
	for _, nested := range m.Messages {
		if nested.Name == name {
			return lookupMessageValue(nested, parts[1:])
		}
	}
	return value{}, false
}
