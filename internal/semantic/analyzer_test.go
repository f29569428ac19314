package semantic

import (
	"strings"
	"testing"

	"github.com/bitproto/bitproto/internal/diag"
	"github.com/bitproto/bitproto/internal/ir"
	"github.com/bitproto/bitproto/internal/parser"
)

func analyze(t *testing.T, src string) *ir.Proto {
	t.Helper()
	p, ds := analyzeMaybe(t, src)
	if p == nil {
		t.Fatalf("analysis failed: %v", ds.Err())
	}
	return p
}

func analyzeMaybe(t *testing.T, src string) (*ir.Proto, *diag.List) {
	t.Helper()
	file, ds := parser.Parse("test.bitproto", []byte(src))
	if file == nil {
		t.Fatalf("parse failed: %v", ds.Err())
	}
	p, ads := Analyze(file, nil)
	ds.Merge(ads)
	return p, ds
}

func analyzeErr(t *testing.T, src, wantCode string) *diag.Diagnostic {
	t.Helper()
	p, ds := analyzeMaybe(t, src)
	if p != nil {
		t.Fatalf("expected analysis error %s, got success", wantCode)
	}
	for _, d := range ds.Errors() {
		if d.Code == wantCode {
			return d
		}
	}
	t.Fatalf("no %s error; got %v", wantCode, ds.Err())
	return nil
}

func TestAnalyze_MessageSizing(t *testing.T) {
	p := analyze(t, `
proto drone
message Flight {
    uint3 mode = 1
    bool armed = 2
    int24 altitude = 3
    byte[8] tag = 4
}
`)
	m := p.Message("Flight")
	if m == nil {
		t.Fatal("no message Flight")
	}
	if got := m.Nbits(); got != 3+1+24+64 {
		t.Errorf("Nbits = %d, want 92", got)
	}
	if got := m.ByteSize(); got != 12 {
		t.Errorf("ByteSize = %d, want 12", got)
	}
}

func TestAnalyze_ExtensibleSizing(t *testing.T) {
	p := analyze(t, `
proto p
message Middle' { bool x = 1 }
message Outer {
    Middle m = 1
    uint7 tail = 2
}
`)
	if got := p.Message("Middle").Nbits(); got != 17 {
		t.Errorf("Middle nbits = %d, want 17", got)
	}
	if got := p.Message("Outer").Nbits(); got != 24 {
		t.Errorf("Outer nbits = %d, want 24", got)
	}
}

func TestAnalyze_FieldsSortedByNumber(t *testing.T) {
	p := analyze(t, `
proto p
message M {
    uint8 b = 2
    uint8 a = 1
}
`)
	m := p.Message("M")
	if m.Fields[0].Name != "a" || m.Fields[1].Name != "b" {
		t.Errorf("wire order = %s, %s", m.Fields[0].Name, m.Fields[1].Name)
	}
	if m.DeclOrder[0].Name != "b" {
		t.Errorf("decl order lost: %s", m.DeclOrder[0].Name)
	}
}

func TestAnalyze_ConstEval(t *testing.T) {
	p := analyze(t, `
proto p
const BASE = 4
const N = (BASE + 1) * 2
message M { byte[N] data = 1 }
`)
	if c := p.Constants[1]; c.Int != 10 {
		t.Errorf("N = %d, want 10", c.Int)
	}
	arr := p.Message("M").Fields[0].Type.(*ir.Array)
	if arr.Cap != 10 {
		t.Errorf("cap = %d, want 10", arr.Cap)
	}
}

func TestAnalyze_EnumMemberAsCapacity(t *testing.T) {
	p := analyze(t, `
proto p
enum Size : uint4 {
    SIZE_ZERO = 0
    SIZE_BIG = 12
}
message M { bool[Size.SIZE_BIG] flags = 1 }
`)
	arr := p.Message("M").Fields[0].Type.(*ir.Array)
	if arr.Cap != 12 {
		t.Errorf("cap = %d, want 12", arr.Cap)
	}
}

func TestAnalyze_ScopeResolution(t *testing.T) {
	p := analyze(t, `
proto p
enum Mode : uint2 { MODE_OFF = 0 }
message Outer {
    enum Mode : uint3 { MODE_ALL = 0 }
    message Inner {
        Mode m = 1
    }
    Inner in = 1
}
message Other { Mode m = 1 }
`)
	inner := p.Message("Outer.Inner")
	if inner == nil {
		t.Fatal("no Outer.Inner")
	}
	// Inner.m resolves to the nearest enclosing Mode (uint3).
	if e, ok := inner.Fields[0].Type.(*ir.Enum); !ok || e.Backing.Bits != 3 {
		t.Errorf("Inner.m type = %v", inner.Fields[0].Type)
	}
	// Other.m resolves to the proto-scope Mode (uint2).
	other := p.Message("Other")
	if e, ok := other.Fields[0].Type.(*ir.Enum); !ok || e.Backing.Bits != 2 {
		t.Errorf("Other.m type = %v", other.Fields[0].Type)
	}
}

func TestAnalyze_DottedScopeChainReference(t *testing.T) {
	p := analyze(t, `
proto p
message Outer {
    message Inner { bool enabled = 1 }
}
message M { Outer.Inner x = 1 }
`)
	f := p.Message("M").Fields[0]
	if m, ok := f.Type.(*ir.Message); !ok || m.String() != "Outer.Inner" {
		t.Errorf("x type = %v", f.Type)
	}
}

func TestAnalyze_AliasTargets(t *testing.T) {
	p := analyze(t, `
proto p
type Timestamp = int64
type Tag = byte[16]
message M {
    Timestamp t = 1
    Tag tag = 2
}
`)
	m := p.Message("M")
	if got := m.Nbits(); got != 64+128 {
		t.Errorf("Nbits = %d, want 192", got)
	}
	al, ok := m.Fields[0].Type.(*ir.Alias)
	if !ok {
		t.Fatalf("field type = %T, want alias", m.Fields[0].Type)
	}
	if _, ok := al.Target.(*ir.IntType); !ok {
		t.Errorf("alias target = %T", al.Target)
	}
}

func TestAnalyze_ExtensibleReferenceMarker(t *testing.T) {
	p := analyze(t, `
proto p
message Middle' { bool x = 1 }
message Outer {
    Middle' m = 1
    uint7 tail = 2
}
`)
	if got := p.Message("Outer").Nbits(); got != 24 {
		t.Errorf("Outer nbits = %d, want 24", got)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code string
	}{
		{
			"unresolved type",
			"proto p\nmessage M { Missing x = 1 }",
			"name/unresolved",
		},
		{
			"duplicate name",
			"proto p\nmessage M { bool a = 1 }\nmessage M { bool b = 1 }",
			"name/duplicate",
		},
		{
			"duplicate field name",
			"proto p\nmessage M { bool a = 1; uint3 a = 2 }",
			"name/duplicate",
		},
		{
			"duplicate field number",
			"proto p\nmessage M { bool a = 1; bool b = 1 }",
			"type/field-number",
		},
		{
			"field number too large",
			"proto p\nmessage M { bool a = 256 }",
			"type/field-number",
		},
		{
			"width out of range",
			"proto p\nmessage M { uint65 a = 1 }",
			"type/bad-width",
		},
		{
			"array capacity zero",
			"proto p\nmessage M { byte[0] a = 1 }",
			"type/array-cap",
		},
		{
			"array capacity overflow",
			"proto p\nmessage M { bool[65536] a = 1 }",
			"type/array-cap",
		},
		{
			"nested array",
			"proto p\nmessage M { byte[2][3] a = 1 }",
			"type/nested-array",
		},
		{
			"alias to message",
			"proto p\nmessage M { bool a = 1 }\ntype N = M",
			"name/alias-named-target",
		},
		{
			"enum value overflow",
			"proto p\nenum E : uint3 { E_A = 0; E_B = 8 }",
			"type/enum-value-range",
		},
		{
			"extensible enum",
			"proto p\nenum E : uint3' { E_A = 0 }",
			"extensibility/enum",
		},
		{
			"extensible marker on plain message",
			"proto p\nmessage M { bool a = 1 }\nmessage N { M' m = 1 }",
			"extensibility/marker",
		},
		{
			"message too wide",
			"proto p\nmessage M { bool[65535] a = 1; bool b = 2 }",
			"type/message-size",
		},
		{
			"max_bytes exceeded",
			"proto p\nmessage M { option max_bytes = 2; uint32 x = 1 }",
			"type/max-bytes",
		},
		{
			"unknown option",
			"proto p\noption cpp.namespace = \"x\"",
			"option/unknown",
		},
		{
			"option value type",
			"proto p\nmessage M { option max_bytes = \"big\"; bool a = 1 }",
			"option/bad-value",
		},
		{
			"division by zero",
			"proto p\nconst A = 1 / 0",
			"const/div-zero",
		},
		{
			"constant cycle",
			"proto p\nconst A = B\nconst B = A",
			"const/cycle",
		},
		{
			"containment cycle",
			"proto p\nmessage M { M m = 1 }",
			"type/containment-cycle",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analyzeErr(t, tc.src, tc.code)
		})
	}
}

func TestAnalyze_UnresolvedSuggestion(t *testing.T) {
	d := analyzeErr(t, `
proto p
enum Color : uint3 { COLOR_UNKNOWN = 0 }
message M { Colr c = 1 }
`, "name/unresolved")
	if d.Suggestion != "Color" {
		t.Errorf("suggestion = %q, want Color", d.Suggestion)
	}
}

func TestAnalyze_ProtoOptions(t *testing.T) {
	p := analyze(t, `
proto p
option c.struct_packing_alignment = 1
option go.package_path = "github.com/example/p"
message M { bool a = 1 }
`)
	if o := p.Option("go.package_path"); o == nil || o.Value.Str != "github.com/example/p" {
		t.Errorf("go.package_path = %#v", o)
	}
	if o := p.Option("c.struct_packing_alignment"); o == nil || o.Value.Int != 1 {
		t.Errorf("c.struct_packing_alignment = %#v", o)
	}
}

func TestAnalyze_ImportAliasCollisionWarns(t *testing.T) {
	imported := analyze(t, "proto shared\nmessage Shared { bool a = 1 }")
	file, ds := parser.Parse("main.bitproto", []byte(`
proto main
message shared { bool b = 1 }
`))
	if file == nil {
		t.Fatalf("parse failed: %v", ds.Err())
	}
	imp := &ir.Import{Alias: "shared", Path: "shared.bitproto", Proto: imported}
	p, ads := Analyze(file, []*ir.Import{imp})
	if p == nil {
		t.Fatalf("analysis failed: %v", ads.Err())
	}
	var found bool
	for _, w := range ads.Warnings() {
		if w.Code == "import/alias-collision" && strings.Contains(w.Message, "shared") {
			found = true
		}
	}
	if !found {
		t.Error("expected an alias-collision warning")
	}
}

func TestAnalyze_ImportedTypes(t *testing.T) {
	imported := analyze(t, `
proto shared
enum Unit : uint2 { UNIT_NONE = 0 }
const WIDTH = 3
message Point { uint8 x = 1; uint8 y = 2 }
`)
	file, ds := parser.Parse("main.bitproto", []byte(`
proto main
message Path {
    shared.Point[shared.WIDTH] points = 1
    shared.Unit unit = 2
}
`))
	if file == nil {
		t.Fatalf("parse failed: %v", ds.Err())
	}
	imp := &ir.Import{Alias: "shared", Path: "shared.bitproto", Proto: imported}
	p, ads := Analyze(file, []*ir.Import{imp})
	if p == nil {
		t.Fatalf("analysis failed: %v", ads.Err())
	}
	m := p.Message("Path")
	if got := m.Nbits(); got != 3*16+2 {
		t.Errorf("Path nbits = %d, want 50", got)
	}
}
