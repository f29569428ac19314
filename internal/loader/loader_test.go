package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_SingleFile(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "pen.bitproto", `
proto pen
message Pen { uint3 color = 1 }
`)
	l := New()
	p, ds := l.Load(main)
	if p == nil {
		t.Fatalf("load failed: %v", ds.Err())
	}
	if p.Name != "pen" {
		t.Errorf("proto name = %q", p.Name)
	}
	if len(l.Protos()) != 1 {
		t.Errorf("loaded protos = %d", len(l.Protos()))
	}
}

func TestLoad_ImportsAndAliases(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.bitproto", `
proto shared
message Point { uint8 x = 1; uint8 y = 2 }
`)
	writeFile(t, dir, "nav/gps.bitproto", `
proto gps
message Fix { uint32 lat = 1; uint32 lon = 2 }
`)
	main := writeFile(t, dir, "main.bitproto", `
proto main
import "shared.bitproto"
import nav "nav/gps.bitproto"
message Route {
    shared.Point a = 1
    nav.Fix fix = 2
}
`)
	l := New()
	p, ds := l.Load(main)
	if p == nil {
		t.Fatalf("load failed: %v", ds.Err())
	}
	if got := p.Message("Route").Nbits(); got != 16+64 {
		t.Errorf("Route nbits = %d, want 80", got)
	}
	// Default alias derives from the basename; explicit alias wins.
	if p.Import("shared") == nil || p.Import("nav") == nil {
		t.Error("missing import aliases")
	}
	if len(l.Protos()) != 3 {
		t.Errorf("loaded protos = %d, want 3", len(l.Protos()))
	}
	// Dependency order puts leaves first.
	if l.Protos()[len(l.Protos())-1].Name != "main" {
		t.Errorf("last proto = %q, want main", l.Protos()[len(l.Protos())-1].Name)
	}
}

func TestLoad_SharedImportIsSingleInstance(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.bitproto", `
proto base
message B { bool x = 1 }
`)
	writeFile(t, dir, "mid.bitproto", `
proto mid
import "base.bitproto"
message M { base.B b = 1 }
`)
	main := writeFile(t, dir, "main.bitproto", `
proto main
import "base.bitproto"
import "mid.bitproto"
message Top {
    base.B b = 1
    mid.M m = 2
}
`)
	l := New()
	p, ds := l.Load(main)
	if p == nil {
		t.Fatalf("load failed: %v", ds.Err())
	}
	if len(l.Protos()) != 3 {
		t.Errorf("loaded protos = %d, want 3 (base loaded once)", len(l.Protos()))
	}
	base := p.Import("base").Proto
	mid := p.Import("mid").Proto
	if base != mid.Import("base").Proto {
		t.Error("base.bitproto loaded twice; imports must share one instance per canonical path")
	}
}

func TestLoad_SearchPaths(t *testing.T) {
	libDir := t.TempDir()
	writeFile(t, libDir, "units.bitproto", `
proto units
enum Unit : uint2 { UNIT_NONE = 0 }
`)
	dir := t.TempDir()
	main := writeFile(t, dir, "main.bitproto", `
proto main
import "units.bitproto"
message M { units.Unit u = 1 }
`)
	if p, ds := New().Load(main); p != nil {
		t.Fatalf("load should fail without search path, got %v", ds.Err())
	}
	p, ds := New(libDir).Load(main)
	if p == nil {
		t.Fatalf("load with search path failed: %v", ds.Err())
	}
}

func TestLoad_MissingImport(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.bitproto", `
proto main
import "nope.bitproto"
`)
	p, ds := New().Load(main)
	if p != nil {
		t.Fatal("expected failure")
	}
	found := false
	for _, d := range ds.Errors() {
		if d.Code == "import/missing" {
			found = true
		}
	}
	if !found {
		t.Errorf("no import/missing error: %v", ds.Err())
	}
}

func TestLoad_ImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bitproto", `
proto a
import "b.bitproto"
`)
	writeFile(t, dir, "b.bitproto", `
proto b
import "a.bitproto"
`)
	p, ds := New().Load(filepath.Join(dir, "a.bitproto"))
	if p != nil {
		t.Fatal("expected failure")
	}
	found := false
	for _, d := range ds.Errors() {
		if d.Code == "import/cycle" {
			found = true
		}
	}
	if !found {
		t.Errorf("no import/cycle error: %v", ds.Err())
	}
}

func TestLoad_DuplicateAlias(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.bitproto", "proto x")
	writeFile(t, dir, "sub/x.bitproto", "proto sub_x")
	main := writeFile(t, dir, "main.bitproto", `
proto main
import "x.bitproto"
import "sub/x.bitproto"
`)
	p, ds := New().Load(main)
	if p != nil {
		t.Fatal("expected failure: both imports derive alias x")
	}
	found := false
	for _, d := range ds.Errors() {
		if d.Code == "import/alias-collision" {
			found = true
		}
	}
	if !found {
		t.Errorf("no import/alias-collision error: %v", ds.Err())
	}
}
