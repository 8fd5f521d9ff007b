package compiler

import "fmt"

// ErrorKind enumerates every compile-time error the spec names.
type ErrorKind int

const (
	LocalLimitExceeded ErrorKind = iota
	UpvalueLimitExceeded
	RedefinedInSameScope
	ConstantLimitExceeded
	JumpLimitExceeded
	LoopLimitExceeded
	ReturnOutsideFunction
	ReturnInsideInitializer
	ThisOutsideClass
	SuperOutsideClass
	SuperInClassWithNoSuperclass
	CyclicInheritance
	InvalidAssignmentTarget
	UnexpectedToken
)

var errorMessages = map[ErrorKind]string{
	LocalLimitExceeded:            "Too many local variables in function.",
	UpvalueLimitExceeded:          "Too many closure variables in function.",
	RedefinedInSameScope:          "Already a variable with this name in this scope.",
	ConstantLimitExceeded:         "Too many constants in one chunk.",
	JumpLimitExceeded:             "Too much code to jump over.",
	LoopLimitExceeded:             "Loop body too large.",
	ReturnOutsideFunction:         "Can't return from top-level code.",
	ReturnInsideInitializer:       "Can't return a value from an initializer.",
	ThisOutsideClass:              "Can't use 'this' outside of a class.",
	SuperOutsideClass:             "Can't use 'super' outside of a class.",
	SuperInClassWithNoSuperclass:  "Can't use 'super' in a class with no superclass.",
	CyclicInheritance:             "A class can't inherit from itself.",
	InvalidAssignmentTarget:       "Invalid assignment target.",
	UnexpectedToken:               "Unexpected token.",
}

// CompileError is one reported compile error: its kind, the offending
// line and lexeme, and a human-readable message.
type CompileError struct {
	Kind    ErrorKind
	Line    int
	Lexeme  string
	Message string
}

func (e CompileError) Error() string {
	if e.Lexeme != "" {
		return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Lexeme, e.Message)
	}
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}
