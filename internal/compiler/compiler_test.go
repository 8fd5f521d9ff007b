package compiler

import (
	"strings"
	"testing"

	"github.com/chazu/loxvm/internal/alloc"
	"github.com/chazu/loxvm/internal/bytecode"
)

func compileOK(t *testing.T, source string) *bytecode.FunctionObj {
	t.Helper()
	fn, errs := Compile(source, alloc.New())
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors for %q: %v", source, errs)
	}
	return fn
}

func disasm(fn *bytecode.FunctionObj) string {
	return bytecode.Disassemble(fn.Chunk, fn.Name)
}

func TestCompileArithmeticPrecedence(t *testing.T) {
	fn := compileOK(t, "1 + 2 * 3;")
	out := disasm(fn)
	if !strings.Contains(out, "MULTIPLY") || !strings.Contains(out, "ADD") {
		t.Fatalf("expected multiply before add in:\n%s", out)
	}
	mulIdx := strings.Index(out, "MULTIPLY")
	addIdx := strings.Index(out, "ADD")
	if mulIdx > addIdx {
		t.Fatalf("MULTIPLY should be emitted before ADD:\n%s", out)
	}
}

func TestCompileVarAndGlobalOps(t *testing.T) {
	fn := compileOK(t, "var x = 1; x = 2;")
	out := disasm(fn)
	if !strings.Contains(out, "DEFINE_GLOBAL") || !strings.Contains(out, "SET_GLOBAL") {
		t.Fatalf("expected global define/set:\n%s", out)
	}
}

func TestCompileLocalsUseGetSetLocal(t *testing.T) {
	fn := compileOK(t, "{ var x = 1; x = x + 1; }")
	out := disasm(fn)
	if !strings.Contains(out, "GET_LOCAL") || !strings.Contains(out, "SET_LOCAL") {
		t.Fatalf("expected local get/set:\n%s", out)
	}
	if strings.Contains(out, "DEFINE_GLOBAL") {
		t.Fatalf("a block-scoped var must not become a global:\n%s", out)
	}
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	fn := compileOK(t, `
		fun outer() {
			var x = 1;
			fun inner() { return x; }
			return inner;
		}
	`)
	out := disasm(fn)
	if !strings.Contains(out, "CLOSURE") {
		t.Fatalf("expected a CLOSURE instruction:\n%s", out)
	}
}

func TestCompileClassInheritanceAndSuper(t *testing.T) {
	fn := compileOK(t, `
		class A { greet() { return "a"; } }
		class B < A { greet() { return super.greet(); } }
	`)
	// Method bodies live in their own chunks, referenced as function
	// constants of the script, so include them in the listing.
	out := disasm(fn)
	for _, k := range fn.Chunk.Constants {
		if inner, ok := k.AsObject().(*bytecode.FunctionObj); ok {
			out += disasm(inner)
		}
	}
	for _, want := range []string{"CLASS", "INHERIT", "METHOD", "SUPER_INVOKE"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in disassembly:\n%s", want, out)
		}
	}
}

func TestCompileMethodCallFusesInvoke(t *testing.T) {
	fn := compileOK(t, `
		class A { greet() { return "hi"; } }
		var a = A();
		a.greet();
	`)
	out := disasm(fn)
	if !strings.Contains(out, "INVOKE") {
		t.Fatalf("expected dotted call to fuse into INVOKE:\n%s", out)
	}
}

func TestCompileForLoopDesugarsToLoop(t *testing.T) {
	fn := compileOK(t, "for (var i = 0; i < 3; i = i + 1) {}")
	out := disasm(fn)
	if !strings.Contains(out, "LOOP") {
		t.Fatalf("expected LOOP instruction from for-loop desugaring:\n%s", out)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name   string
		source string
		kind   ErrorKind
	}{
		{"redefined local", "{ var a = 1; var a = 2; }", RedefinedInSameScope},
		{"return at top level", "return 1;", ReturnOutsideFunction},
		{"this outside class", "fun f() { return this; }", ThisOutsideClass},
		{"super outside class", "fun f() { return super.x(); }", SuperOutsideClass},
		{"super without superclass", "class A { m() { return super.m(); } }", SuperInClassWithNoSuperclass},
		{"cyclic inheritance", "class A < A {}", CyclicInheritance},
		{"invalid assignment target", "1 = 2;", InvalidAssignmentTarget},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, errs := Compile(c.source, alloc.New())
			if len(errs) == 0 {
				t.Fatalf("expected a compile error for %q", c.source)
			}
			found := false
			for _, e := range errs {
				if e.Kind == c.kind {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error kind %v, got %v", c.kind, errs)
			}
		})
	}
}

func TestReturnInsideInitializerIsAnError(t *testing.T) {
	_, errs := Compile(`class A { init() { return 1; } }`, alloc.New())
	if len(errs) == 0 || errs[0].Kind != ReturnInsideInitializer {
		t.Fatalf("expected ReturnInsideInitializer, got %v", errs)
	}
}

func TestLocalLimitExceeded(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i := 0; i < maxLocals+1; i++ {
		sb.WriteString("var v")
		sb.WriteString(itoa(i))
		sb.WriteString(" = 0;\n")
	}
	sb.WriteString("}\n")

	_, errs := Compile(sb.String(), alloc.New())
	found := false
	for _, e := range errs {
		if e.Kind == LocalLimitExceeded {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected LocalLimitExceeded, got %v", errs)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
