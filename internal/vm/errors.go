package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/loxvm/internal/compiler"
)

// traceFrame is one line of a runtime error's stack trace, innermost
// frame first.
type traceFrame struct {
	Line int
	Name string // empty for the top-level script
}

// RuntimeError is raised when the VM hits an error while executing
// already-compiled bytecode: a bad operand type, an undefined variable,
// a stack overflow, an arity mismatch, and so on. Its Error() rendering
// matches the reference implementation's _runtime_error: the message,
// then one "[line N] in name()" per active call frame.
type RuntimeError struct {
	Message string
	Trace   []traceFrame
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, f := range e.Trace {
		sb.WriteByte('\n')
		fmt.Fprintf(&sb, "[line %d] in ", f.Line)
		if f.Name == "" {
			sb.WriteString("script")
		} else {
			fmt.Fprintf(&sb, "%s()", f.Name)
		}
	}
	return sb.String()
}

// CompileErrors wraps every error accumulated by one compile attempt.
// It is what Interpret returns when compilation fails; the VM never
// runs the partially-compiled function in that case.
type CompileErrors []compiler.CompileError

func (e CompileErrors) Error() string {
	lines := make([]string, len(e))
	for i, ce := range e {
		lines[i] = ce.Error()
	}
	return strings.Join(lines, "\n")
}
