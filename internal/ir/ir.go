// Package ir is the resolved schema model produced by semantic analysis.
// All names are resolved, constants evaluated and bit widths computed;
// consumers (the descriptor bridge, the describe command) never see the
// syntax tree.
package ir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bitproto/bitproto/internal/token"
)

// Type is the resolved type of a field, alias target or array element.
// The dynamic type is one of *BoolType, *UintType, *IntType, *ByteType,
// *Enum, *Alias, *Array, *Message.
type Type interface {
	// Nbits is the exact wire width in bits, including the 16-bit
	// extensibility prefix of the type itself and of any transitively
	// extensible child.
	Nbits() int
	String() string
}

// BoolType is the builtin bool: one wire bit.
type BoolType struct{}

func (*BoolType) Nbits() int     { return 1 }
func (*BoolType) String() string { return "bool" }

// ByteType is the builtin byte: eight wire bits, distinct from uint8.
type ByteType struct{}

func (*ByteType) Nbits() int     { return 8 }
func (*ByteType) String() string { return "byte" }

// UintType is uint<N>, 1 ≤ N ≤ 64.
type UintType struct {
	Bits int
}

func (t *UintType) Nbits() int     { return t.Bits }
func (t *UintType) String() string { return fmt.Sprintf("uint%d", t.Bits) }

// IntType is int<N>, 1 ≤ N ≤ 64. Stored sign-extended in the smallest
// covering standard width.
type IntType struct {
	Bits int
}

func (t *IntType) Nbits() int     { return t.Bits }
func (t *IntType) String() string { return fmt.Sprintf("int%d", t.Bits) }

// Base type instances are interned: two uses of uint3 yield the same
// *UintType.
var (
	boolType = &BoolType{}
	byteType = &ByteType{}
	uintTab  [65]*UintType
	intTab   [65]*IntType
)

func init() {
	for n := 1; n <= 64; n++ {
		uintTab[n] = &UintType{Bits: n}
		intTab[n] = &IntType{Bits: n}
	}
}

// Bool returns the interned bool type.
func Bool() *BoolType { return boolType }

// Byte returns the interned byte type.
func Byte() *ByteType { return byteType }

// Uint returns the interned uint<n> type. n must be in 1..64.
func Uint(n int) *UintType { return uintTab[n] }

// Int returns the interned int<n> type. n must be in 1..64.
func Int(n int) *IntType { return intTab[n] }

// StorageBits returns the smallest of 8, 16, 32, 64 covering n bits.
func StorageBits(n int) int {
	switch {
	case n <= 8:
		return 8
	case n <= 16:
		return 16
	case n <= 32:
		return 32
	default:
		return 64
	}
}

// EnumMember is one name=value item of an enum.
type EnumMember struct {
	Name  string
	Value uint64
	Pos   token.Position
}

// Enum is a named enum type backed by a uint. Enums are never
// extensible.
type Enum struct {
	Name    string
	Pos     token.Position
	Backing *UintType
	Members []*EnumMember // declaration order
	Parent  *Message      // enclosing message, nil at proto scope
	Proto   *Proto
}

// Nbits is the backing uint's width.
func (e *Enum) Nbits() int { return e.Backing.Bits }

func (e *Enum) String() string { return scopedName(e.Parent, e.Name) }

// Member returns the member with the given name, or nil.
func (e *Enum) Member(name string) *EnumMember {
	for _, m := range e.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// HasZero reports whether any member has the value 0.
func (e *Enum) HasZero() bool {
	for _, m := range e.Members {
		if m.Value == 0 {
			return true
		}
	}
	return false
}

// Alias is `type Name = target`. Targets are restricted to unnamed
// kinds: bool, byte, uint, int and arrays.
type Alias struct {
	Name   string
	Pos    token.Position
	Target Type
	Parent *Message
	Proto  *Proto
}

// Nbits is the target's width.
func (a *Alias) Nbits() int { return a.Target.Nbits() }

func (a *Alias) String() string { return scopedName(a.Parent, a.Name) }

// Array is elem[cap], optionally extensible.
type Array struct {
	Cap        int
	Elem       Type
	Extensible bool
}

// Nbits is cap times the element width, plus the 16-bit prefix when
// extensible.
func (a *Array) Nbits() int {
	n := a.Cap * a.Elem.Nbits()
	if a.Extensible {
		n += 16
	}
	return n
}

func (a *Array) String() string {
	s := fmt.Sprintf("%s[%d]", a.Elem, a.Cap)
	if a.Extensible {
		s += "'"
	}
	return s
}

// Field is one numbered message field.
type Field struct {
	Name    string
	Number  int
	Type    Type
	Pos     token.Position
	Message *Message
}

// Message is a named composite type. Fields are kept in ascending
// field-number order (wire order); DeclOrder preserves source order for
// reporting.
type Message struct {
	Name       string
	Pos        token.Position
	Extensible bool
	Fields     []*Field
	DeclOrder  []*Field
	Options    []*Option

	// Nested declarations, in source order.
	Constants []*Constant
	Aliases   []*Alias
	Enums     []*Enum
	Messages  []*Message

	Parent *Message
	Proto  *Proto

	nbits int
	sized bool
}

// Nbits is the sum of the field widths, plus 16 when the message is
// extensible. Sizing of a valid schema never cycles; the analyzer
// rejects recursive containment before sizing.
func (m *Message) Nbits() int {
	if !m.sized {
		n := 0
		for _, f := range m.Fields {
			n += f.Type.Nbits()
		}
		if m.Extensible {
			n += 16
		}
		m.nbits = n
		m.sized = true
	}
	return m.nbits
}

// NbitsPayload is Nbits minus the message's own prefix.
func (m *Message) NbitsPayload() int {
	n := m.Nbits()
	if m.Extensible {
		n -= 16
	}
	return n
}

// ByteSize is the static encoded size ceil(Nbits/8).
func (m *Message) ByteSize() int { return (m.Nbits() + 7) / 8 }

func (m *Message) String() string { return scopedName(m.Parent, m.Name) }

// SortFields re-establishes ascending field-number order after
// construction.
func (m *Message) SortFields() {
	sort.SliceStable(m.Fields, func(i, j int) bool {
		return m.Fields[i].Number < m.Fields[j].Number
	})
}

// Option returns the message option with the given name, or nil.
func (m *Message) Option(name string) *Option {
	for _, o := range m.Options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func scopedName(parent *Message, name string) string {
	if parent == nil {
		return name
	}
	return parent.String() + "." + name
}

// ConstKind tags the value held by a Constant.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstBool
	ConstString
)

// Constant binds a name to a compile-time value.
type Constant struct {
	Name   string
	Pos    token.Position
	Kind   ConstKind
	Int    int64
	Bool   bool
	Str    string
	Parent *Message
	Proto  *Proto
}

// Value returns the constant's value as a display string.
func (c *Constant) Value() string {
	switch c.Kind {
	case ConstBool:
		return fmt.Sprintf("%t", c.Bool)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	default:
		return fmt.Sprintf("%d", c.Int)
	}
}

// OptionValue is the literal bound to an option.
type OptionValue struct {
	Kind ConstKind
	Int  int64
	Bool bool
	Str  string
}

// Option is a resolved option declaration.
type Option struct {
	Name  string
	Pos   token.Position
	Value OptionValue
}

// Import is one resolved import edge of a proto.
type Import struct {
	Alias string
	Path  string // as written in the source
	Pos   token.Position
	Proto *Proto
}

// Proto is the compilation unit: one .bitproto file after analysis.
type Proto struct {
	Name     string
	Filename string // canonical path
	Pos      token.Position

	Imports []*Import

	// Top-level declarations, each slice in source order.
	Constants []*Constant
	Aliases   []*Alias
	Enums     []*Enum
	Messages  []*Message
	Options   []*Option
}

// Import returns the import with the given alias, or nil.
func (p *Proto) Import(alias string) *Import {
	for _, imp := range p.Imports {
		if imp.Alias == alias {
			return imp
		}
	}
	return nil
}

// Option returns the proto option with the given name, or nil.
func (p *Proto) Option(name string) *Option {
	for _, o := range p.Options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Message resolves a dotted message path within this proto, e.g.
// "Outer.Inner". It does not follow imports.
func (p *Proto) Message(path string) *Message {
	parts := strings.Split(path, ".")
	var cur *Message
	scope := p.Messages
	for _, part := range parts {
		cur = nil
		for _, m := range scope {
			if m.Name == part {
				cur = m
				break
			}
		}
		if cur == nil {
			return nil
		}
		scope = cur.Messages
	}
	return cur
}

// AllMessages returns every message of the proto, outer before inner.
func (p *Proto) AllMessages() []*Message {
	var out []*Message
	var walk func(ms []*Message)
	walk = func(ms []*Message) {
		for _, m := range ms {
			out = append(out, m)
			walk(m.Messages)
		}
	}
	walk(p.Messages)
	return out
}
