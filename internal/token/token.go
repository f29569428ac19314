// Package token defines the lexical tokens of the bitproto schema language
// and the source positions attached to them.
package token

import "fmt"

// Kind identifies the class of a token.
type Kind int

const (
	KindInvalid Kind = iota
	KindEOF

	// Literals and names.
	KindIdent  // message names, field names, dotted-path components
	KindInt    // 42, 0x2A
	KindString // "pkg/color.bitproto"

	// Keywords.
	KindProto
	KindImport
	KindConst
	KindOption
	KindEnum
	KindMessage
	KindType
	KindRender
	KindTemplate
	KindFor
	KindOn
	KindTrue  // true, yes
	KindFalse // false, no

	// Base type tokens.
	KindBool
	KindByte
	KindTypeUint // uint<N>, width in Token.Width
	KindTypeInt  // int<N>, width in Token.Width

	// Punctuation and operators.
	KindLBrace    // {
	KindRBrace    // }
	KindLBracket  // [
	KindRBracket  // ]
	KindLParen    // (
	KindRParen    // )
	KindAssign    // =
	KindColon     // :
	KindDot       // .
	KindSemicolon // ;
	KindQuote     // ' (extensibility marker)
	KindPlus      // +
	KindMinus     // -
	KindStar      // *
	KindSlash     // /
)

var kindNames = map[Kind]string{
	KindInvalid:   "invalid",
	KindEOF:       "end of file",
	KindIdent:     "identifier",
	KindInt:       "integer literal",
	KindString:    "string literal",
	KindProto:     "'proto'",
	KindImport:    "'import'",
	KindConst:     "'const'",
	KindOption:    "'option'",
	KindEnum:      "'enum'",
	KindMessage:   "'message'",
	KindType:      "'type'",
	KindRender:    "'render'",
	KindTemplate:  "'template'",
	KindFor:       "'for'",
	KindOn:        "'on'",
	KindTrue:      "'true'",
	KindFalse:     "'false'",
	KindBool:      "'bool'",
	KindByte:      "'byte'",
	KindTypeUint:  "unsigned integer type",
	KindTypeInt:   "signed integer type",
	KindLBrace:    "'{'",
	KindRBrace:    "'}'",
	KindLBracket:  "'['",
	KindRBracket:  "']'",
	KindLParen:    "'('",
	KindRParen:    "')'",
	KindAssign:    "'='",
	KindColon:     "':'",
	KindDot:       "'.'",
	KindSemicolon: "';'",
	KindQuote:     "\"'\"",
	KindPlus:      "'+'",
	KindMinus:     "'-'",
	KindStar:      "'*'",
	KindSlash:     "'/'",
}

// String returns a human-readable name for the kind, suitable for
// "expected X, got Y" diagnostics.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Keywords maps keyword spellings to their token kinds. The boolean
// spellings yes/no are aliases of true/false.
var Keywords = map[string]Kind{
	"proto":    KindProto,
	"import":   KindImport,
	"const":    KindConst,
	"option":   KindOption,
	"enum":     KindEnum,
	"message":  KindMessage,
	"type":     KindType,
	"render":   KindRender,
	"template": KindTemplate,
	"for":      KindFor,
	"on":       KindOn,
	"true":     KindTrue,
	"yes":      KindTrue,
	"false":    KindFalse,
	"no":       KindFalse,
	"bool":     KindBool,
	"byte":     KindByte,
}

// Position is a location in a source file. Line and Column are 1-based.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// String formats the position as file:line:column.
func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// IsValid reports whether the position carries a real location.
func (p Position) IsValid() bool { return p.Line > 0 }

// Token is a single lexical token.
type Token struct {
	Kind  Kind
	Pos   Position
	Text  string // raw source text of the token
	Int   int64  // value for KindInt
	Str   string // unquoted value for KindString
	Width int    // declared width for KindTypeUint / KindTypeInt
	Bool  bool   // value for KindTrue / KindFalse
}

// String returns the token's source text, or the kind name for tokens
// without interesting text.
func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Kind.String()
}

// Is reports whether the token has the given kind.
func (t Token) Is(k Kind) bool { return t.Kind == k }
