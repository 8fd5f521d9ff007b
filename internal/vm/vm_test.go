package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/loxvm/internal/alloc"
)

func newTestVM(t *testing.T) (*VM, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a := alloc.New()
	v := New(a, Config{Stdout: &out, Stderr: &out})
	return v, &out
}

func run(t *testing.T, source string) (string, error) {
	t.Helper()
	v, out := newTestVM(t)
	err := v.Interpret(source)
	return out.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, `print(1 + 2 * 3);`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("got %q, want 7", out)
	}
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print("foo" + "bar");`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "foobar" {
		t.Fatalf("got %q", out)
	}
}

func TestGlobalsAndLocals(t *testing.T) {
	out, err := run(t, `
		var x = 10;
		{
			var y = 20;
			print(x + y);
		}
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "30" {
		t.Fatalf("got %q", out)
	}
}

func TestIfElseBranching(t *testing.T) {
	out, err := run(t, `
		if (1 < 2) { print("yes"); } else { print("no"); }
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "yes" {
		t.Fatalf("got %q", out)
	}
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print(sum);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "10" {
		t.Fatalf("got %q", out)
	}
}

func TestForLoop(t *testing.T) {
	out, err := run(t, `
		var total = 0;
		for (var i = 0; i < 4; i = i + 1) {
			total = total + i;
		}
		print(total);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "6" {
		t.Fatalf("got %q", out)
	}
}

func TestFunctionsAndRecursion(t *testing.T) {
	out, err := run(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print(fib(10));
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "55" {
		t.Fatalf("got %q", out)
	}
}

func TestClosuresCaptureSharedUpvalue(t *testing.T) {
	out, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print(counter());
		print(counter());
		print(counter());
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Fields(out)
	if strings.Join(lines, ",") != "1,2,3" {
		t.Fatalf("got %q, want 1 2 3 across three shared-upvalue calls", out)
	}
}

func TestClassesMethodsAndFields(t *testing.T) {
	out, err := run(t, `
		class Counter {
			init(start) {
				this.value = start;
			}
			increment() {
				this.value = this.value + 1;
				return this.value;
			}
		}
		var c = Counter(9);
		print(c.increment());
		print(c.value);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "10\n10" {
		t.Fatalf("got %q", out)
	}
}

func TestInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
		class Animal {
			speak() { return "..."; }
			describe() { return "I say " + this.speak(); }
		}
		class Dog < Animal {
			speak() { return "woof"; }
			describe() { return super.describe() + "!"; }
		}
		print(Dog().describe());
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "I say woof!" {
		t.Fatalf("got %q", out)
	}
}

func TestRuntimeErrorTypeMismatch(t *testing.T) {
	_, err := run(t, `print(1 + "a");`)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	_, err := run(t, `print(doesNotExist);`)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if !strings.Contains(re.Error(), "Undefined variable") {
		t.Fatalf("got %q", re.Error())
	}
}

func TestRuntimeErrorIncludesStackTrace(t *testing.T) {
	_, err := run(t, `
		fun a() { return 1 + "x"; }
		fun b() { return a(); }
		b();
	`)
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if !strings.Contains(re.Error(), "in a()") || !strings.Contains(re.Error(), "in b()") || !strings.Contains(re.Error(), "in script") {
		t.Fatalf("expected a full frame trace, got:\n%s", re.Error())
	}
}

func TestCompileErrorsPropagate(t *testing.T) {
	_, err := run(t, `var = 1;`)
	if _, ok := err.(CompileErrors); !ok {
		t.Fatalf("expected CompileErrors, got %T: %v", err, err)
	}
}

func TestClockNativeReturnsNumber(t *testing.T) {
	out, err := run(t, `print(clock() >= 0);`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("got %q", out)
	}
}

func TestStackOverflowIsARuntimeError(t *testing.T) {
	_, err := run(t, `
		fun recurse() { return recurse(); }
		recurse();
	`)
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected a stack-overflow *RuntimeError, got %T: %v", err, err)
	}
}

func TestArityMismatchIsARuntimeError(t *testing.T) {
	_, err := run(t, `
		fun f(a, b) { return a + b; }
		f(1);
	`)
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if !strings.Contains(re.Error(), "Expected 2 arguments but got 1") {
		t.Fatalf("got %q", re.Error())
	}
}
