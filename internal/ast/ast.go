// Package ast defines the per-file syntax tree produced by the parser.
// Nodes carry source positions but no resolved semantic information;
// resolution happens in the semantic package against the ir model.
package ast

import "github.com/bitproto/bitproto/internal/token"

// Node is implemented by every syntax node.
type Node interface {
	Pos() token.Position
}

// File is the syntax tree of one .bitproto source file.
type File struct {
	Filename string
	Proto    ProtoDecl
	Imports  []*ImportDecl
	Decls    []Decl // top-level declarations in source order
}

// Pos returns the position of the proto statement.
func (f *File) Pos() token.Position { return f.Proto.NamePos }

// ProtoDecl is the mandatory `proto <name>` header.
type ProtoDecl struct {
	Name    string
	NamePos token.Position
}

// ImportDecl is `import [alias] "path"`.
type ImportDecl struct {
	Alias    string // empty when derived from the path basename
	AliasPos token.Position
	Path     string
	PathPos  token.Position
}

// Pos returns the position of the import path.
func (d *ImportDecl) Pos() token.Position { return d.PathPos }

// Decl is a declaration: const, alias, enum, message, option or field.
// Fields appear only inside messages.
type Decl interface {
	Node
	DeclName() string
}

// ConstDecl is `const NAME = expr`.
type ConstDecl struct {
	Name    string
	NamePos token.Position
	Value   Expr
}

func (d *ConstDecl) Pos() token.Position { return d.NamePos }
func (d *ConstDecl) DeclName() string    { return d.Name }

// AliasDecl is `type Name = type`.
type AliasDecl struct {
	Name    string
	NamePos token.Position
	Target  TypeExpr
}

func (d *AliasDecl) Pos() token.Position { return d.NamePos }
func (d *AliasDecl) DeclName() string    { return d.Name }

// EnumDecl is `enum Name : uint<N> { members }`.
type EnumDecl struct {
	Name       string
	NamePos    token.Position
	Backing    *BaseTypeExpr
	Extensible bool // syntactically accepted, semantically rejected
	ExtPos     token.Position
	Members    []*EnumMember
}

func (d *EnumDecl) Pos() token.Position { return d.NamePos }
func (d *EnumDecl) DeclName() string    { return d.Name }

// EnumMember is one `NAME = value` item.
type EnumMember struct {
	Name    string
	NamePos token.Position
	Value   int64
	ValPos  token.Position
}

func (m *EnumMember) Pos() token.Position { return m.NamePos }

// MessageDecl is `message Name ['] { items }`.
type MessageDecl struct {
	Name       string
	NamePos    token.Position
	Extensible bool
	Fields     []*FieldDecl
	Decls      []Decl // nested const/alias/enum/message/option, source order
}

func (d *MessageDecl) Pos() token.Position { return d.NamePos }
func (d *MessageDecl) DeclName() string    { return d.Name }

// FieldDecl is `type name = number`.
type FieldDecl struct {
	Type    TypeExpr
	Name    string
	NamePos token.Position
	Number  int64
	NumPos  token.Position
}

func (d *FieldDecl) Pos() token.Position { return d.NamePos }
func (d *FieldDecl) DeclName() string    { return d.Name }

// OptionDecl is `option dotted.name = literal`.
type OptionDecl struct {
	Name    string // dotted
	NamePos token.Position
	Value   Expr
}

func (d *OptionDecl) Pos() token.Position { return d.NamePos }
func (d *OptionDecl) DeclName() string    { return d.Name }

// TypeExpr is a syntactic type reference.
type TypeExpr interface {
	Node
	typeExpr()
}

// BaseTypeKind identifies the builtin scalar types.
type BaseTypeKind int

const (
	BaseBool BaseTypeKind = iota
	BaseByte
	BaseUint
	BaseInt
)

// BaseTypeExpr is bool, byte, uint<N> or int<N>.
type BaseTypeExpr struct {
	Kind    BaseTypeKind
	Bits    int // declared N for uint/int
	TypePos token.Position
}

func (t *BaseTypeExpr) Pos() token.Position { return t.TypePos }
func (t *BaseTypeExpr) typeExpr()           {}

// NamedTypeExpr is a possibly dotted reference to a declared type:
// `Color`, `shared.Timestamp`, `Outer.Inner`. ExtMarker records a
// trailing ' on the reference; analysis requires the referenced message
// to be declared extensible.
type NamedTypeExpr struct {
	Parts     []string
	PartsPos  token.Position
	ExtMarker bool
}

func (t *NamedTypeExpr) Pos() token.Position { return t.PartsPos }
func (t *NamedTypeExpr) typeExpr()           {}

// ArrayTypeExpr is `elem[cap]` with an optional extensibility marker.
type ArrayTypeExpr struct {
	Elem       TypeExpr
	Cap        Expr
	Extensible bool
	ExtPos     token.Position
}

func (t *ArrayTypeExpr) Pos() token.Position { return t.Elem.Pos() }
func (t *ArrayTypeExpr) typeExpr()           {}

// Expr is a constant expression.
type Expr interface {
	Node
	expr()
}

// IntLit is an integer literal.
type IntLit struct {
	Value  int64
	LitPos token.Position
}

func (e *IntLit) Pos() token.Position { return e.LitPos }
func (e *IntLit) expr()               {}

// BoolLit is true/yes or false/no.
type BoolLit struct {
	Value  bool
	LitPos token.Position
}

func (e *BoolLit) Pos() token.Position { return e.LitPos }
func (e *BoolLit) expr()               {}

// StringLit is a double-quoted string.
type StringLit struct {
	Value  string
	LitPos token.Position
}

func (e *StringLit) Pos() token.Position { return e.LitPos }
func (e *StringLit) expr()               {}

// RefExpr is a possibly dotted reference to a constant or enum member.
type RefExpr struct {
	Parts    []string
	PartsPos token.Position
}

func (e *RefExpr) Pos() token.Position { return e.PartsPos }
func (e *RefExpr) expr()               {}

// BinaryOp identifies an arithmetic operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
)

// String returns the operator's source spelling.
func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	default:
		return "/"
	}
}

// BinaryExpr is `x op y`.
type BinaryExpr struct {
	Op    BinaryOp
	OpPos token.Position
	X, Y  Expr
}

func (e *BinaryExpr) Pos() token.Position { return e.X.Pos() }
func (e *BinaryExpr) expr()               {}
