package descriptor

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bitproto/bitproto/codec"
	"github.com/bitproto/bitproto/internal/ir"
	"github.com/bitproto/bitproto/internal/parser"
	"github.com/bitproto/bitproto/internal/semantic"
)

func compile(t *testing.T, src string) *ir.Proto {
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

func lower(t *testing.T, p *ir.Proto, name string) *codec.Descriptor {
	t.Helper()
	m := p.Message(name)
	if m == nil {
		t.Fatalf("no message %s", name)
	}
	d, err := NewBuilder().Message(m)
	if err != nil {
		t.Fatalf("lowering %s: %v", name, err)
	}
	return d
}

func TestBuilder_WidthsAgreeWithIR(t *testing.T) {
	p := compile(t, `
proto p
enum Color : uint3 { COLOR_UNKNOWN = 0 }
type Tag = byte[4]
message Middle' { bool x = 1 }
message M {
    uint3 a = 1
    bool b = 2
    int24 c = 3
    Color color = 4
    Tag tag = 5
    uint16[3]' xs = 6
    Middle mid = 7
}
`)
	m := p.Message("M")
	d := lower(t, p, "M")
	if d.Nbits() != m.Nbits() {
		t.Errorf("descriptor nbits = %d, ir nbits = %d", d.Nbits(), m.Nbits())
	}
	if d.ByteSize() != m.ByteSize() {
		t.Errorf("descriptor bytes = %d, ir bytes = %d", d.ByteSize(), m.ByteSize())
	}
}

func TestBuilder_SharedTypesLowerOnce(t *testing.T) {
	p := compile(t, `
proto p
message Point { uint8 x = 1; uint8 y = 2 }
message Line {
    Point a = 1
    Point b = 2
}
`)
	b := NewBuilder()
	d, err := b.Message(p.Message("Line"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Fields[0].Type != d.Fields[1].Type {
		t.Error("the two Point fields should share one descriptor")
	}
}

// End-to-end: compile a schema, lower it, and check codec behavior
// against hand-computed wire bytes.
func TestEndToEnd_EncodeDecode(t *testing.T) {
	p := compile(t, `
proto example
enum Color : uint3 {
    COLOR_UNKNOWN = 0
    COLOR_BLUE = 3
}
message Pen {
    Color color = 1
    int24[2] coords = 2
    bool capped = 3
}
`)
	d := lower(t, p, "Pen")

	v := codec.NewValue(d)
	v.Field("color").SetUint(3)
	v.Field("coords").Index(0).SetInt(-11)
	v.Field("capped").SetBool(true)

	out := make([]byte, d.ByteSize())
	v.Encode(out)

	// color: 3 bits; coords: 48 bits; capped: 1 bit = 52 bits, 7 bytes.
	// Stream = 011 | F5FFFF LE-packed | 000000 | 1.
	want := []byte{0xAB, 0xFF, 0xFF, 0x07, 0x00, 0x00, 0x08}
	if !bytes.Equal(out, want) {
		t.Fatalf("encoded = % X, want % X", out, want)
	}

	back := codec.NewValue(d)
	back.Decode(out)
	if diff := cmp.Diff(v.Bytes(), back.Bytes()); diff != "" {
		t.Errorf("round-trip storage mismatch (-want +got):\n%s", diff)
	}
	if x := back.Field("coords").Index(0).Int(); x != -11 {
		t.Errorf("coords[0] = %d, want -11", x)
	}
	if !back.Field("capped").Bool() {
		t.Error("capped = false, want true")
	}
}

func TestEndToEnd_JSON(t *testing.T) {
	p := compile(t, `
proto example
message Fix {
    uint7 sats = 1
    int24 alt = 2
    bool valid = 3
}
`)
	d := lower(t, p, "Fix")
	v := codec.NewValue(d)
	v.Field("sats").SetUint(12)
	v.Field("alt").SetInt(-40)
	v.Field("valid").SetBool(true)

	out := make([]byte, 256)
	n, err := codec.FormatJSON(v, out)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"sats":12,"alt":-40,"valid":true}`
	if got := string(out[:n]); got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}

func TestEndToEnd_PlanAgreesWithInterpreter(t *testing.T) {
	p := compile(t, `
proto example
message S {
    uint3 a = 1
    uint32 b = 2
}
`)
	d := lower(t, p, "S")
	plan, err := codec.NewPlan(d)
	if err != nil {
		t.Fatal(err)
	}

	v := codec.NewValue(d)
	v.Field("a").SetUint(5)
	v.Field("b").SetUint(0xDEADBEEF)

	a := make([]byte, d.ByteSize())
	b := make([]byte, d.ByteSize())
	v.Encode(a)
	plan.Encode(v, b)
	if !bytes.Equal(a, b) {
		t.Fatalf("interpreter = % X, plan = % X", a, b)
	}
	want := []byte{0x7D, 0xF7, 0x6D, 0xF5, 0x06}
	if !bytes.Equal(a, want) {
		t.Fatalf("encoded = % X, want % X", a, want)
	}
}

func TestEndToEnd_PlanRefusesExtensible(t *testing.T) {
	p := compile(t, `
proto example
message Inner' { bool x = 1 }
message Outer { Inner in = 1 }
`)
	d := lower(t, p, "Outer")
	if _, err := codec.NewPlan(d); err == nil {
		t.Error("plan over a schema with a reachable extensible message should fail")
	}
}
