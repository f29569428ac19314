// Package diag provides positioned diagnostics for the compiler front-end.
// A Diagnostic is a single finding; a List accumulates findings across a
// run so that one invocation can report many problems at once.
package diag

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"

	"github.com/bitproto/bitproto/internal/token"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError   Severity = iota // blocks the build
	SeverityWarning                 // lint finding, non-fatal
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is a single compiler finding with source context.
type Diagnostic struct {
	Pos        token.Position
	Severity   Severity
	Code       string // stable machine-readable code, e.g. "name/unresolved"
	Message    string
	Suggestion string // optional "did you mean" text
}

// Errorf creates an error diagnostic at pos.
func Errorf(pos token.Position, code, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Pos:      pos,
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warnf creates a warning diagnostic at pos.
func Warnf(pos token.Position, code, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Pos:      pos,
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	s := fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
	if d.Suggestion != "" {
		s += fmt.Sprintf(" (did you mean %q?)", d.Suggestion)
	}
	return s
}

// List accumulates diagnostics. The zero value is ready to use.
type List struct {
	diags []*Diagnostic
}

// Append adds diagnostics to the list. Nil entries are ignored.
func (l *List) Append(ds ...*Diagnostic) {
	for _, d := range ds {
		if d != nil {
			l.diags = append(l.diags, d)
		}
	}
}

// Merge appends every diagnostic of other.
func (l *List) Merge(other *List) {
	if other != nil {
		l.diags = append(l.diags, other.diags...)
	}
}

// All returns the accumulated diagnostics in report order: by file, then
// line, then column, warnings after errors at the same position.
func (l *List) All() []*Diagnostic {
	out := make([]*Diagnostic, len(l.diags))
	copy(out, l.diags)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pos.Filename != b.Pos.Filename {
			return a.Pos.Filename < b.Pos.Filename
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		if a.Pos.Column != b.Pos.Column {
			return a.Pos.Column < b.Pos.Column
		}
		return a.Severity < b.Severity
	})
	return out
}

// Errors returns only the error-severity diagnostics.
func (l *List) Errors() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range l.diags {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (l *List) Warnings() []*Diagnostic {
	var out []*Diagnostic
	for _, d := range l.diags {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether the list contains at least one error.
func (l *List) HasErrors() bool {
	for _, d := range l.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the number of accumulated diagnostics.
func (l *List) Len() int { return len(l.diags) }

// Err collapses the error-severity diagnostics into a single error, or
// nil if there are none. Callers can unwrap individual diagnostics with
// errors.As over the multierror.
func (l *List) Err() error {
	var merr *multierror.Error
	for _, d := range l.Errors() {
		merr = multierror.Append(merr, d)
	}
	return merr.ErrorOrNil()
}

var (
	errorLabel = color.New(color.FgRed, color.Bold)
	warnLabel  = color.New(color.FgYellow, color.Bold)
	posLabel   = color.New(color.Bold)
)

// Render writes a human-readable report of every diagnostic to w.
// Color is applied according to the fatih/color global settings, so
// output to a non-terminal stays plain.
func (l *List) Render(w io.Writer) {
	for _, d := range l.All() {
		label := errorLabel
		if d.Severity == SeverityWarning {
			label = warnLabel
		}
		fmt.Fprintf(w, "%s: %s: %s", posLabel.Sprint(d.Pos.String()), label.Sprint(d.Severity.String()), d.Message)
		if d.Suggestion != "" {
			fmt.Fprintf(w, " (did you mean %q?)", d.Suggestion)
		}
		if d.Code != "" {
			fmt.Fprintf(w, " [%s]", d.Code)
		}
		fmt.Fprintln(w)
	}
}
