// Package lint provides the non-fatal style checks run after semantic
// analysis: naming conventions and enum hygiene. Findings are warnings;
// they never fail a build.
package lint

import (
	"regexp"

	"github.com/bitproto/bitproto/internal/diag"
	"github.com/bitproto/bitproto/internal/ir"
)

// Rule is one lint check over a resolved proto.
type Rule struct {
	ID          string
	Description string
	Check       func(p *ir.Proto, report func(d *diag.Diagnostic))
}

// Engine holds an ordered rule set. Use NewEngine for the default set.
type Engine struct {
	rules    []*Rule
	disabled map[string]bool
}

// NewEngine creates an engine with the default rules.
func NewEngine() *Engine {
	e := &Engine{disabled: make(map[string]bool)}
	for _, r := range defaultRules {
		e.rules = append(e.rules, r)
	}
	return e
}

// Disable suppresses the rule with the given ID.
func (e *Engine) Disable(id string) {
	e.disabled[id] = true
}

// Rules returns the registered rules in execution order.
func (e *Engine) Rules() []*Rule {
	out := make([]*Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Run executes every enabled rule against p and returns the findings.
func (e *Engine) Run(p *ir.Proto) *diag.List {
	ds := &diag.List{}
	for _, r := range e.rules {
		if e.disabled[r.ID] {
			continue
		}
		r.Check(p, func(d *diag.Diagnostic) {
			d.Severity = diag.SeverityWarning
			d.Code = r.ID
			ds.Append(d)
		})
	}
	return ds
}

var (
	snakeCase      = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	pascalCase     = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	upperSnakeCase = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

var defaultRules = []*Rule{
	{
		ID:          "lint/proto-name",
		Description: "proto names use snake_case",
		Check: func(p *ir.Proto, report func(*diag.Diagnostic)) {
			if !snakeCase.MatchString(p.Name) {
				report(diag.Warnf(p.Pos, "", "proto name %q should be snake_case", p.Name))
			}
		},
	},
	{
		ID:          "lint/type-name",
		Description: "message, enum and alias names use PascalCase",
		Check: func(p *ir.Proto, report func(*diag.Diagnostic)) {
			for _, m := range p.AllMessages() {
				if !pascalCase.MatchString(m.Name) {
					report(diag.Warnf(m.Pos, "", "message name %q should be PascalCase", m.Name))
				}
				for _, e := range m.Enums {
					if !pascalCase.MatchString(e.Name) {
						report(diag.Warnf(e.Pos, "", "enum name %q should be PascalCase", e.Name))
					}
				}
				for _, al := range m.Aliases {
					if !pascalCase.MatchString(al.Name) {
						report(diag.Warnf(al.Pos, "", "type alias name %q should be PascalCase", al.Name))
					}
				}
			}
			for _, e := range p.Enums {
				if !pascalCase.MatchString(e.Name) {
					report(diag.Warnf(e.Pos, "", "enum name %q should be PascalCase", e.Name))
				}
			}
			for _, al := range p.Aliases {
				if !pascalCase.MatchString(al.Name) {
					report(diag.Warnf(al.Pos, "", "type alias name %q should be PascalCase", al.Name))
				}
			}
		},
	},
	{
		ID:          "lint/field-name",
		Description: "message field names use snake_case",
		Check: func(p *ir.Proto, report func(*diag.Diagnostic)) {
			for _, m := range p.AllMessages() {
				for _, f := range m.Fields {
					if !snakeCase.MatchString(f.Name) {
						report(diag.Warnf(f.Pos, "", "field name %q should be snake_case", f.Name))
					}
				}
			}
		},
	},
	{
		ID:          "lint/enum-value-name",
		Description: "enum value names use UPPER_SNAKE_CASE",
		Check: func(p *ir.Proto, report func(*diag.Diagnostic)) {
			forEachEnum(p, func(e *ir.Enum) {
				for _, m := range e.Members {
					if !upperSnakeCase.MatchString(m.Name) {
						report(diag.Warnf(m.Pos, "", "enum value %q should be UPPER_SNAKE_CASE", m.Name))
					}
				}
			})
		},
	},
	{
		ID:          "lint/const-name",
		Description: "constant names use UPPER_SNAKE_CASE",
		Check: func(p *ir.Proto, report func(*diag.Diagnostic)) {
			check := func(c *ir.Constant) {
				if !upperSnakeCase.MatchString(c.Name) {
					report(diag.Warnf(c.Pos, "", "constant name %q should be UPPER_SNAKE_CASE", c.Name))
				}
			}
			for _, c := range p.Constants {
				check(c)
			}
			for _, m := range p.AllMessages() {
				for _, c := range m.Constants {
					check(c)
				}
			}
		},
	},
	{
		ID:          "lint/enum-zero",
		Description: "enums define a zero value as the unknown sentinel",
		Check: func(p *ir.Proto, report func(*diag.Diagnostic)) {
			forEachEnum(p, func(e *ir.Enum) {
				if !e.HasZero() {
					report(diag.Warnf(e.Pos, "", "enum %s defines no zero value; 0 is conventionally the unknown sentinel", e))
				}
			})
		},
	},
}

func forEachEnum(p *ir.Proto, fn func(*ir.Enum)) {
	for _, e := range p.Enums {
		fn(e)
	}
	for _, m := range p.AllMessages() {
		for _, e := range m.Enums {
			fn(e)
		}
	}
}
