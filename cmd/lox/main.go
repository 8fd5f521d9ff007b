// Command lox is the interpreter's entrypoint: `lox [path]` runs a file,
// `lox` with no arguments starts a REPL, and `-lsp` starts the language
// server on stdio instead of either.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/chazu/loxvm/internal/alloc"
	"github.com/chazu/loxvm/internal/config"
	"github.com/chazu/loxvm/internal/gcsnapshot"
	"github.com/chazu/loxvm/internal/langserver"
	natdb "github.com/chazu/loxvm/internal/natives/db"
	"github.com/chazu/loxvm/internal/vm"
)

const (
	exitOK      = 0
	exitUsage   = 64
	exitCompile = 65
	exitRuntime = 70
)

func main() {
	os.Exit(run())
}

func run() int {
	lsp := flag.Bool("lsp", false, "start the language server on stdio instead of running a script")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lox [path]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}
	cfg, err := config.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}

	if *lsp {
		return runLanguageServer()
	}

	args := flag.Args()
	switch len(args) {
	case 0:
		return runREPL(cfg)
	case 1:
		return runFile(cfg, args[0])
	default:
		fmt.Fprintln(os.Stderr, "Usage: lox [path]")
		return exitUsage
	}
}

func newVM(cfg *config.Config) (*vm.VM, *alloc.Allocator, *gcsnapshot.Recorder) {
	a := alloc.New()
	a.SetGrowthFactor(cfg.GC.GrowthFactor)
	a.SetStressGC(cfg.GC.Stress)

	var rec *gcsnapshot.Recorder
	if cfg.GC.SnapshotFormat == "cbor" {
		rec = &gcsnapshot.Recorder{}
		rec.Attach(a)
	}

	v := vm.New(a, vm.Config{
		MaxFrames:          cfg.VM.MaxFrames,
		StackSlotsPerFrame: cfg.VM.StackSlotsPerFrame,
		TraceExecution:     cfg.VM.TraceExecution,
		Stdout:             os.Stdout,
		Stderr:             os.Stderr,
	})
	natdb.Register(v, a)

	return v, a, rec
}

func runLanguageServer() int {
	server := langserver.New()
	if err := server.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}
	return exitOK
}

func runFile(cfg *config.Config, path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}

	v, _, rec := newVM(cfg)
	err = v.Interpret(string(source))
	if rec != nil && cfg.GC.SnapshotPath != "" {
		if werr := rec.WriteFile(cfg.GC.SnapshotPath); werr != nil {
			fmt.Fprintln(os.Stderr, werr)
		}
	}

	switch e := err.(type) {
	case nil:
		return exitOK
	case vm.CompileErrors:
		for _, ce := range e {
			fmt.Fprintln(os.Stderr, ce.Error())
		}
		return exitCompile
	case *vm.RuntimeError:
		fmt.Fprintln(os.Stderr, e.Error())
		return exitRuntime
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}
}

// runREPL reads one logical statement at a time, accumulating
// additional lines while braces/parens are unbalanced so a multi-line
// function or class body can be entered across several prompts before
// it is compiled.
func runREPL(cfg *config.Config) int {
	session := uuid.New()
	fmt.Fprintf(os.Stdout, "lox REPL (session %s)\n", session)

	v, _, _ := newVM(cfg)
	scanner := bufio.NewScanner(os.Stdin)

	var buf strings.Builder
	depth := 0

	prompt := func() {
		if depth > 0 {
			fmt.Fprint(os.Stdout, "... ")
		} else {
			fmt.Fprint(os.Stdout, "> ")
		}
	}

	prompt()
	for scanner.Scan() {
		line := scanner.Text()
		depth += braceDelta(line)
		buf.WriteString(line)
		buf.WriteByte('\n')

		if depth > 0 {
			prompt()
			continue
		}

		source := buf.String()
		buf.Reset()
		depth = 0

		if strings.TrimSpace(source) != "" {
			if err := v.Interpret(source); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		prompt()
	}
	fmt.Fprintln(os.Stdout)
	return exitOK
}

// braceDelta counts the net change in nesting depth a line contributes,
// ignoring braces/parens that appear inside string literals or line
// comments so a statement like `print("{");` doesn't wedge the REPL.
func braceDelta(line string) int {
	delta := 0
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inString:
			if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return delta
		case c == '{' || c == '(':
			delta++
		case c == '}' || c == ')':
			delta--
		}
	}
	return delta
}
