package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitproto/bitproto/internal/token"
)

func pos(file string, line, col int) token.Position {
	return token.Position{Filename: file, Line: line, Column: col}
}

func TestList_ErrAggregatesErrorsOnly(t *testing.T) {
	var l List
	l.Append(
		Warnf(pos("a.bitproto", 1, 1), "lint/x", "style nit"),
		Errorf(pos("a.bitproto", 3, 5), "name/unresolved", "unresolved reference %q", "Foo"),
	)

	require.True(t, l.HasErrors())
	assert.Len(t, l.Warnings(), 1)
	assert.Len(t, l.Errors(), 1)

	err := l.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved")
	assert.NotContains(t, err.Error(), "style nit")

	var d *Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, "name/unresolved", d.Code)
}

func TestList_ErrEmpty(t *testing.T) {
	var l List
	assert.NoError(t, l.Err())

	l.Append(Warnf(pos("a", 1, 1), "lint/x", "only a warning"))
	assert.NoError(t, l.Err())
}

func TestList_AllSortsByPosition(t *testing.T) {
	var l List
	l.Append(
		Errorf(pos("b.bitproto", 1, 1), "c1", "third"),
		Errorf(pos("a.bitproto", 9, 1), "c2", "second"),
		Errorf(pos("a.bitproto", 2, 4), "c3", "first"),
	)
	all := l.All()
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].Message)
	assert.Equal(t, "second", all[1].Message)
	assert.Equal(t, "third", all[2].Message)
}

func TestDiagnostic_ErrorIncludesSuggestion(t *testing.T) {
	d := Errorf(pos("x.bitproto", 4, 2), "name/unresolved", "unresolved reference %q", "Colr")
	d.Suggestion = "Color"
	assert.Contains(t, d.Error(), `did you mean "Color"?`)
	assert.Contains(t, d.Error(), "x.bitproto:4:2")
}

func TestList_Render(t *testing.T) {
	var (
		l   List
		buf bytes.Buffer
	)
	l.Append(
		Errorf(pos("p.bitproto", 1, 2), "syntax/unexpected-token", "expected type"),
		Warnf(pos("p.bitproto", 5, 1), "lint/enum-zero", "enum Mode defines no zero value"),
	)
	l.Render(&buf)

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "p.bitproto:1:2")
	assert.Contains(t, lines[0], "error")
	assert.Contains(t, lines[0], "[syntax/unexpected-token]")
	assert.Contains(t, lines[1], "warning")
}

func TestMerge(t *testing.T) {
	var a, b List
	a.Append(Errorf(pos("x", 1, 1), "c", "one"))
	b.Append(Errorf(pos("x", 2, 1), "c", "two"))
	a.Merge(&b)
	assert.Equal(t, 2, a.Len())
}
