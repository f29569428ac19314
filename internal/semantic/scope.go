package semantic

import (
	"github.com/agnivade/levenshtein"

	"github.com/bitproto/bitproto/internal/ast"
	"github.com/bitproto/bitproto/internal/ir"
	"github.com/bitproto/bitproto/internal/token"
)

// resolveState tracks lazy resolution of constants and aliases so that
// reference cycles are detected instead of recursing forever.
type resolveState int

const (
	unresolved resolveState = iota
	resolving
	resolved
)

// symbol is one named declaration in a scope. At most one of the node
// pointers is set; field names carry none.
type symbol struct {
	name string
	pos  token.Position

	cons   *ir.Constant
	alias  *ir.Alias
	enum   *ir.Enum
	msg    *ir.Message
	imp    *ir.Import
	member *ir.EnumMember // not set by the analyzer; enum members are found via ir.Enum.Member

	// Pending syntax for lazily resolved symbols, and the scope the
	// declaration appeared in (resolution context).
	consAST  *ast.ConstDecl
	aliasAST *ast.AliasDecl
	owner    *scope

	state resolveState
}

// scope is one lexical scope: the proto itself or a message body.
type scope struct {
	parent *scope
	owner  *ir.Message // nil for the proto scope
	syms   map[string]*symbol
	names  []string // declaration order, for suggestions
}

func newScope(parent *scope, owner *ir.Message) *scope {
	return &scope{parent: parent, owner: owner, syms: make(map[string]*symbol)}
}

// declare adds a symbol, returning the previous one on a duplicate.
func (s *scope) declare(sym *symbol) *symbol {
	if prev, ok := s.syms[sym.name]; ok {
		return prev
	}
	sym.owner = s
	s.syms[sym.name] = sym
	s.names = append(s.names, sym.name)
	return nil
}

// lookup finds name in this scope only.
func (s *scope) lookup(name string) *symbol {
	return s.syms[name]
}

// lookupChain walks the scope chain from nearest to outermost.
func (s *scope) lookupChain(name string) *symbol {
	for sc := s; sc != nil; sc = sc.parent {
		if sym := sc.lookup(name); sym != nil {
			return sym
		}
	}
	return nil
}

// suggest returns the closest declared name within edit distance 2 of
// name, searching the whole scope chain. Empty when nothing is close.
func (s *scope) suggest(name string) string {
	best, bestDist := "", 3
	for sc := s; sc != nil; sc = sc.parent {
		for _, cand := range sc.names {
			if cand == name {
				continue
			}
			if d := levenshtein.ComputeDistance(name, cand); d < bestDist {
				best, bestDist = cand, d
			}
		}
	}
	return best
}
