package lint

import (
	"testing"

	"github.com/bitproto/bitproto/internal/ir"
	"github.com/bitproto/bitproto/internal/parser"
	"github.com/bitproto/bitproto/internal/semantic"
)

func analyze(t *testing.T, src string) *ir.Proto {
	t.Helper()
	file, ds := parser.Parse("test.bitproto", []byte(src))
	if file == nil {
		t.Fatalf("parse failed: %v", ds.Err())
	}
	p, ads := semantic.Analyze(file, nil)
	if p == nil {
		t.Fatalf("analysis failed: %v", ads.Err())
	}
	return p
}

func codes(t *testing.T, src string) map[string]int {
	t.Helper()
	findings := NewEngine().Run(analyze(t, src))
	out := make(map[string]int)
	for _, d := range findings.Warnings() {
		out[d.Code]++
	}
	if findings.HasErrors() {
		t.Fatal("lint produced error-severity diagnostics")
	}
	return out
}

func TestLint_CleanSchema(t *testing.T) {
	got := codes(t, `
proto drone_control
const MAX_SPEED = 120
enum Mode : uint2 {
    MODE_UNKNOWN = 0
    MODE_MANUAL = 1
}
message Command {
    Mode mode = 1
    uint7 throttle_pct = 2
}
`)
	if len(got) != 0 {
		t.Errorf("findings on clean schema: %v", got)
	}
}

func TestLint_NamingRules(t *testing.T) {
	got := codes(t, `
proto DroneControl
const maxSpeed = 120
enum mode : uint2 {
    modeUnknown = 0
}
message command {
    uint7 ThrottlePct = 1
}
`)
	for _, want := range []string{
		"lint/proto-name",
		"lint/const-name",
		"lint/type-name",
		"lint/enum-value-name",
		"lint/field-name",
	} {
		if got[want] == 0 {
			t.Errorf("missing finding %s (got %v)", want, got)
		}
	}
}

func TestLint_EnumZero(t *testing.T) {
	got := codes(t, `
proto p
enum Mode : uint2 { MODE_ON = 1 }
`)
	if got["lint/enum-zero"] != 1 {
		t.Errorf("enum-zero findings = %d, want 1", got["lint/enum-zero"])
	}
}

func TestLint_Disable(t *testing.T) {
	e := NewEngine()
	e.Disable("lint/enum-zero")
	p := analyze(t, "proto p\nenum Mode : uint2 { MODE_ON = 1 }")
	if n := e.Run(p).Len(); n != 0 {
		t.Errorf("findings = %d, want 0 with rule disabled", n)
	}
}

func TestLint_NestedDeclarations(t *testing.T) {
	got := codes(t, `
proto p
message Outer {
    enum bad_name : uint2 { BAD = 0 }
    message inner { bool ok = 1 }
}
`)
	if got["lint/type-name"] < 2 {
		t.Errorf("type-name findings = %d, want 2 (nested enum and message)", got["lint/type-name"])
	}
}
