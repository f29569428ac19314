// Package parser builds the syntax tree for one bitproto source file.
package parser

import (
	"github.com/bitproto/bitproto/internal/ast"
	"github.com/bitproto/bitproto/internal/diag"
	"github.com/bitproto/bitproto/internal/lexer"
	"github.com/bitproto/bitproto/internal/token"
)

// Parse lexes and parses src. On lexical errors the parse is not
// attempted; on a syntax error the parse stops at the first problem.
func Parse(filename string, src []byte) (*ast.File, *diag.List) {
	toks, ds := lexer.Tokenize(filename, src)
	if ds.HasErrors() {
		return nil, ds
	}
	p := &parser{toks: toks}
	file, d := p.parseFile(filename)
	if d != nil {
		ds.Append(d)
		return nil, ds
	}
	return file, ds
}

type parser struct {
	toks []token.Token
	off  int
}

func (p *parser) cur() token.Token { return p.toks[p.off] }

func (p *parser) next() token.Token {
	t := p.toks[p.off]
	if t.Kind != token.KindEOF {
		p.off++
	}
	return t
}

func (p *parser) at(k token.Kind) bool { return p.cur().Kind == k }

// accept consumes the current token if it has the given kind.
func (p *parser) accept(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.next(), true
	}
	return token.Token{}, false
}

func (p *parser) expect(k token.Kind) (token.Token, *diag.Diagnostic) {
	if t, ok := p.accept(k); ok {
		return t, nil
	}
	t := p.cur()
	return token.Token{}, diag.Errorf(t.Pos, "syntax/unexpected-token", "expected %s, got %s", k, t)
}

func (p *parser) skipSemicolons() {
	for p.at(token.KindSemicolon) {
		p.next()
	}
}

func (p *parser) parseFile(filename string) (*ast.File, *diag.Diagnostic) {
	file := &ast.File{Filename: filename}

	p.skipSemicolons()
	if _, d := p.expect(token.KindProto); d != nil {
		return nil, d
	}
	name, d := p.expect(token.KindIdent)
	if d != nil {
		return nil, d
	}
	file.Proto = ast.ProtoDecl{Name: name.Text, NamePos: name.Pos}

	for {
		p.skipSemicolons()
		t := p.cur()
		switch t.Kind {
		case token.KindEOF:
			return file, nil
		case token.KindImport:
			imp, d := p.parseImport()
			if d != nil {
				return nil, d
			}
			file.Imports = append(file.Imports, imp)
		default:
			decl, d := p.parseDecl(false)
			if d != nil {
				return nil, d
			}
			file.Decls = append(file.Decls, decl)
		}
	}
}

func (p *parser) parseImport() (*ast.ImportDecl, *diag.Diagnostic) {
	p.next() // 'import'
	imp := &ast.ImportDecl{}
	if alias, ok := p.accept(token.KindIdent); ok {
		imp.Alias = alias.Text
		imp.AliasPos = alias.Pos
	}
	path, d := p.expect(token.KindString)
	if d != nil {
		return nil, d
	}
	imp.Path = path.Str
	imp.PathPos = path.Pos
	return imp, nil
}

// parseDecl parses one declaration. Fields are only legal inside
// messages (inMessage true).
func (p *parser) parseDecl(inMessage bool) (ast.Decl, *diag.Diagnostic) {
	t := p.cur()
	switch t.Kind {
	case token.KindConst:
		return p.parseConst()
	case token.KindType:
		return p.parseAlias()
	case token.KindEnum:
		return p.parseEnum()
	case token.KindMessage:
		return p.parseMessage()
	case token.KindOption:
		return p.parseOption()
	case token.KindBool, token.KindByte, token.KindTypeUint, token.KindTypeInt, token.KindIdent:
		if inMessage {
			return p.parseField()
		}
		return nil, diag.Errorf(t.Pos, "syntax/unexpected-token",
			"fields are only allowed inside messages, got %s", t)
	default:
		return nil, diag.Errorf(t.Pos, "syntax/unexpected-token", "expected declaration, got %s", t)
	}
}

func (p *parser) parseConst() (*ast.ConstDecl, *diag.Diagnostic) {
	p.next() // 'const'
	name, d := p.expect(token.KindIdent)
	if d != nil {
		return nil, d
	}
	if _, d := p.expect(token.KindAssign); d != nil {
		return nil, d
	}
	value, d := p.parseExpr()
	if d != nil {
		return nil, d
	}
	return &ast.ConstDecl{Name: name.Text, NamePos: name.Pos, Value: value}, nil
}

func (p *parser) parseAlias() (*ast.AliasDecl, *diag.Diagnostic) {
	p.next() // 'type'
	name, d := p.expect(token.KindIdent)
	if d != nil {
		return nil, d
	}
	if _, d := p.expect(token.KindAssign); d != nil {
		return nil, d
	}
	target, d := p.parseType()
	if d != nil {
		return nil, d
	}
	return &ast.AliasDecl{Name: name.Text, NamePos: name.Pos, Target: target}, nil
}

func (p *parser) parseEnum() (*ast.EnumDecl, *diag.Diagnostic) {
	p.next() // 'enum'
	name, d := p.expect(token.KindIdent)
	if d != nil {
		return nil, d
	}
	decl := &ast.EnumDecl{Name: name.Text, NamePos: name.Pos}
	if _, d := p.expect(token.KindColon); d != nil {
		return nil, d
	}

	bt := p.cur()
	switch bt.Kind {
	case token.KindTypeUint:
		decl.Backing = &ast.BaseTypeExpr{Kind: ast.BaseUint, Bits: bt.Width, TypePos: bt.Pos}
		p.next()
	case token.KindBool, token.KindByte, token.KindTypeInt:
		// Recognized here to give a dedicated error: only uint backs an enum.
		return nil, diag.Errorf(bt.Pos, "syntax/bad-enum-backing",
			"enum %s must be backed by a uint type, got %s", decl.Name, bt)
	default:
		return nil, diag.Errorf(bt.Pos, "syntax/unexpected-token", "expected uint type, got %s", bt)
	}
	if q, ok := p.accept(token.KindQuote); ok {
		decl.Extensible = true
		decl.ExtPos = q.Pos
	}

	if _, d := p.expect(token.KindLBrace); d != nil {
		return nil, d
	}
	for {
		p.skipSemicolons()
		if _, ok := p.accept(token.KindRBrace); ok {
			return decl, nil
		}
		mname, d := p.expect(token.KindIdent)
		if d != nil {
			return nil, d
		}
		if _, d := p.expect(token.KindAssign); d != nil {
			return nil, d
		}
		val, d := p.expect(token.KindInt)
		if d != nil {
			return nil, d
		}
		decl.Members = append(decl.Members, &ast.EnumMember{
			Name: mname.Text, NamePos: mname.Pos, Value: val.Int, ValPos: val.Pos,
		})
	}
}

func (p *parser) parseMessage() (*ast.MessageDecl, *diag.Diagnostic) {
	p.next() // 'message'
	name, d := p.expect(token.KindIdent)
	if d != nil {
		return nil, d
	}
	decl := &ast.MessageDecl{Name: name.Text, NamePos: name.Pos}
	if _, ok := p.accept(token.KindQuote); ok {
		decl.Extensible = true
	}
	if _, d := p.expect(token.KindLBrace); d != nil {
		return nil, d
	}
	for {
		p.skipSemicolons()
		if _, ok := p.accept(token.KindRBrace); ok {
			return decl, nil
		}
		item, d := p.parseDecl(true)
		if d != nil {
			return nil, d
		}
		if f, ok := item.(*ast.FieldDecl); ok {
			decl.Fields = append(decl.Fields, f)
		} else {
			decl.Decls = append(decl.Decls, item)
		}
	}
}

func (p *parser) parseField() (*ast.FieldDecl, *diag.Diagnostic) {
	typ, d := p.parseType()
	if d != nil {
		return nil, d
	}
	name, d := p.expect(token.KindIdent)
	if d != nil {
		return nil, d
	}
	if _, d := p.expect(token.KindAssign); d != nil {
		return nil, d
	}
	num, d := p.expect(token.KindInt)
	if d != nil {
		return nil, d
	}
	return &ast.FieldDecl{
		Type: typ, Name: name.Text, NamePos: name.Pos, Number: num.Int, NumPos: num.Pos,
	}, nil
}

func (p *parser) parseOption() (*ast.OptionDecl, *diag.Diagnostic) {
	p.next() // 'option'
	name, d := p.expect(token.KindIdent)
	if d != nil {
		return nil, d
	}
	full := name.Text
	for {
		if _, ok := p.accept(token.KindDot); !ok {
			break
		}
		part, d := p.expect(token.KindIdent)
		if d != nil {
			return nil, d
		}
		full += "." + part.Text
	}
	if _, d := p.expect(token.KindAssign); d != nil {
		return nil, d
	}
	value, d := p.parseExpr()
	if d != nil {
		return nil, d
	}
	return &ast.OptionDecl{Name: full, NamePos: name.Pos, Value: value}, nil
}

// parseType parses base types, dotted named references and array
// suffixes, with the optional trailing extensibility marker.
func (p *parser) parseType() (ast.TypeExpr, *diag.Diagnostic) {
	var typ ast.TypeExpr

	t := p.cur()
	switch t.Kind {
	case token.KindBool:
		typ = &ast.BaseTypeExpr{Kind: ast.BaseBool, Bits: 1, TypePos: t.Pos}
		p.next()
	case token.KindByte:
		typ = &ast.BaseTypeExpr{Kind: ast.BaseByte, Bits: 8, TypePos: t.Pos}
		p.next()
	case token.KindTypeUint:
		typ = &ast.BaseTypeExpr{Kind: ast.BaseUint, Bits: t.Width, TypePos: t.Pos}
		p.next()
	case token.KindTypeInt:
		typ = &ast.BaseTypeExpr{Kind: ast.BaseInt, Bits: t.Width, TypePos: t.Pos}
		p.next()
	case token.KindIdent:
		named := &ast.NamedTypeExpr{Parts: []string{t.Text}, PartsPos: t.Pos}
		p.next()
		for p.at(token.KindDot) {
			p.next()
			part, d := p.expect(token.KindIdent)
			if d != nil {
				return nil, d
			}
			named.Parts = append(named.Parts, part.Text)
		}
		// A quote directly after a named type marks a reference to an
		// extensible message; validity is checked during analysis.
		if _, ok := p.accept(token.KindQuote); ok {
			named.ExtMarker = true
		}
		typ = named
	default:
		return nil, diag.Errorf(t.Pos, "syntax/unexpected-token", "expected type, got %s", t)
	}

	for p.at(token.KindLBracket) {
		p.next()
		capExpr, d := p.parseExpr()
		if d != nil {
			return nil, d
		}
		if _, d := p.expect(token.KindRBracket); d != nil {
			return nil, d
		}
		arr := &ast.ArrayTypeExpr{Elem: typ, Cap: capExpr}
		if q, ok := p.accept(token.KindQuote); ok {
			arr.Extensible = true
			arr.ExtPos = q.Pos
		}
		typ = arr
	}
	return typ, nil
}

// Expression grammar: expr := term {('+'|'-') term};
// term := factor {('*'|'/') factor};
// factor := INT | STRING | BOOL | ref | '(' expr ')'.
func (p *parser) parseExpr() (ast.Expr, *diag.Diagnostic) {
	x, d := p.parseTerm()
	if d != nil {
		return nil, d
	}
	for {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.KindPlus:
			op = ast.OpAdd
		case token.KindMinus:
			op = ast.OpSub
		default:
			return x, nil
		}
		opTok := p.next()
		y, d := p.parseTerm()
		if d != nil {
			return nil, d
		}
		x = &ast.BinaryExpr{Op: op, OpPos: opTok.Pos, X: x, Y: y}
	}
}

func (p *parser) parseTerm() (ast.Expr, *diag.Diagnostic) {
	x, d := p.parseFactor()
	if d != nil {
		return nil, d
	}
	for {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.KindStar:
			op = ast.OpMul
		case token.KindSlash:
			op = ast.OpDiv
		default:
			return x, nil
		}
		opTok := p.next()
		y, d := p.parseFactor()
		if d != nil {
			return nil, d
		}
		x = &ast.BinaryExpr{Op: op, OpPos: opTok.Pos, X: x, Y: y}
	}
}

func (p *parser) parseFactor() (ast.Expr, *diag.Diagnostic) {
	t := p.cur()
	switch t.Kind {
	case token.KindInt:
		p.next()
		return &ast.IntLit{Value: t.Int, LitPos: t.Pos}, nil
	case token.KindMinus:
		p.next()
		x, d := p.parseFactor()
		if d != nil {
			return nil, d
		}
		return &ast.BinaryExpr{
			Op: ast.OpSub, OpPos: t.Pos,
			X: &ast.IntLit{Value: 0, LitPos: t.Pos}, Y: x,
		}, nil
	case token.KindString:
		p.next()
		return &ast.StringLit{Value: t.Str, LitPos: t.Pos}, nil
	case token.KindTrue, token.KindFalse:
		p.next()
		return &ast.BoolLit{Value: t.Bool, LitPos: t.Pos}, nil
	case token.KindIdent:
		ref := &ast.RefExpr{Parts: []string{t.Text}, PartsPos: t.Pos}
		p.next()
		for p.at(token.KindDot) {
			p.next()
			part, d := p.expect(token.KindIdent)
			if d != nil {
				return nil, d
			}
			ref.Parts = append(ref.Parts, part.Text)
		}
		return ref, nil
	case token.KindLParen:
		p.next()
		x, d := p.parseExpr()
		if d != nil {
			return nil, d
		}
		if _, d := p.expect(token.KindRParen); d != nil {
			return nil, d
		}
		return x, nil
	default:
		return nil, diag.Errorf(t.Pos, "syntax/unexpected-token", "expected expression, got %s", t)
	}
}
