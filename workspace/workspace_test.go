package workspace

import (
	"strings"
	"testing"
)

func TestCheckOutOfOrderConstant(t *testing.T) {
	w := New()
	if err := w.LoadSource("test://out-of-order", "a := b; b : int : 5;"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := w.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	a, ok := w.Lookup("a")
	if !ok || a.Type().String() != "s32" {
		t.Fatalf("a: got %v, want s32", a)
	}

	b, ok := w.Lookup("b")
	if !ok || b.Type().String() != "s32" {
		t.Fatalf("b: got %v, want s32", b)
	}
}

func TestCheckFixedSizeArrayConstant(t *testing.T) {
	w := New()
	if err := w.LoadSource("test://fixed-array", "N :: 4; a : [N]int;"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := w.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	a, ok := w.Lookup("a")
	if !ok || a.Type().String() != "[4]s32" {
		t.Fatalf("a: got %v, want [4]s32", a)
	}
}

func TestCheckForeignVarargProcedure(t *testing.T) {
	w := New()
	src := "printf :: (format : *char, ..) -> int #foreign;"
	if err := w.LoadSource("test://printf", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := w.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	printf, ok := w.Lookup("printf")
	if !ok || printf.Type().String() != "(*u8) -> s32" {
		t.Fatalf("printf: got %v, want (*u8) -> s32", printf)
	}
}

func TestCompileCompoundAssignmentEmitsAdd(t *testing.T) {
	w := New()
	src := "Add :: (n : int) -> int { n += 5; return n; }"
	if err := w.LoadSource("test://compound-assignment", src); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := w.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}

	e, err := w.Emit("test")
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	defer e.Dispose()

	ir := e.Module().String()
	if !strings.Contains(ir, "add") {
		t.Fatalf("expected an 'add' instruction in emitted IR, got:\n%s", ir)
	}
}
