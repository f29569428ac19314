package semantic

import (
	"github.com/bitproto/bitproto/internal/ast"
	"github.com/bitproto/bitproto/internal/ir"
)

// checkMessages runs whole-message validation: containment cycles
// first (sizing a cyclic message would never terminate), then the size
// ceilings.
func (a *analyzer) checkMessages() {
	if a.checkContainmentCycles() {
		return
	}
	for _, msg := range a.proto.AllMessages() {
		nbits := msg.Nbits()
		if nbits > MaxMessageNbits {
			a.errorf(msg.Pos, "type/message-size",
				"message %s is %d bits wide, exceeding the %d-bit limit", msg, nbits, MaxMessageNbits)
			continue
		}
		if opt := msg.Option("max_bytes"); opt != nil {
			if size := msg.ByteSize(); int64(size) > opt.Value.Int {
				a.errorf(opt.Pos, "type/max-bytes",
					"message %s encodes to %d bytes, exceeding max_bytes = %d", msg, size, opt.Value.Int)
			}
		}
	}
}

const (
	white = iota // unvisited
	gray         // on the current path
	black        // done
)

// checkContainmentCycles reports an error for every message that
// (transitively) contains itself. Reports whether any cycle was found.
func (a *analyzer) checkContainmentCycles() bool {
	colors := make(map[*ir.Message]int)
	found := false

	var visit func(m *ir.Message)
	var visitType func(from *ir.Message, t ir.Type)

	visitType = func(from *ir.Message, t ir.Type) {
		switch t := t.(type) {
		case *ir.Array:
			visitType(from, t.Elem)
		case *ir.Alias:
			visitType(from, t.Target)
		case *ir.Message:
			if colors[t] == gray {
				found = true
				a.errorf(from.Pos, "type/containment-cycle",
					"message %s transitively contains itself via %s", t, from)
				return
			}
			visit(t)
		}
	}

	visit = func(m *ir.Message) {
		if colors[m] != white {
			return
		}
		colors[m] = gray
		for _, f := range m.Fields {
			visitType(m, f.Type)
		}
		colors[m] = black
	}

	for _, m := range a.proto.AllMessages() {
		visit(m)
	}
	return found
}

// optionScope restricts where an option may appear.
type optionScope int

const (
	protoOptionScope optionScope = iota
	messageOptionScope
)

// Recognized options: name → required value kind.
var (
	protoOptions = map[string]ir.ConstKind{
		"c.struct_packing_alignment": ir.ConstInt,
		"c.name_prefix":              ir.ConstString,
		"go.package_path":            ir.ConstString,
		"py.module_name":             ir.ConstString,
	}
	messageOptions = map[string]ir.ConstKind{
		"max_bytes": ir.ConstInt,
	}
)

// resolveOption validates an option declaration against the recognized
// set and evaluates its value. max_bytes is only checked to be positive
// here; its bound on the owning message is enforced in checkMessages.
func (a *analyzer) resolveOption(sc *scope, o *ast.OptionDecl, where optionScope) *ir.Option {
	table := protoOptions
	if where == messageOptionScope {
		table = messageOptions
	}
	wantKind, known := table[o.Name]
	if !known {
		a.errorf(o.NamePos, "option/unknown", "unknown option %q", o.Name)
		return nil
	}
	v, ok := a.evalExpr(sc, o.Value)
	if !ok {
		return nil
	}
	if v.kind != wantKind {
		a.errorf(o.Value.Pos(), "option/bad-value",
			"option %q requires a %s value", o.Name, kindName(wantKind))
		return nil
	}

	opt := &ir.Option{
		Name: o.Name, Pos: o.NamePos,
		Value: ir.OptionValue{Kind: v.kind, Int: v.i, Bool: v.b, Str: v.s},
	}

	switch o.Name {
	case "max_bytes":
		// The size bound itself is enforced in checkMessages, after
		// containment cycles are ruled out and sizes are final.
		if v.i <= 0 {
			a.errorf(o.Value.Pos(), "option/bad-value", "max_bytes must be positive, got %d", v.i)
			return nil
		}
	case "c.struct_packing_alignment":
		if v.i < 0 {
			a.errorf(o.Value.Pos(), "option/bad-value",
				"c.struct_packing_alignment cannot be negative, got %d", v.i)
			return nil
		}
	}
	return opt
}

func kindName(k ir.ConstKind) string {
	switch k {
	case ir.ConstBool:
		return "boolean"
	case ir.ConstString:
		return "string"
	default:
		return "integer"
	}
}
