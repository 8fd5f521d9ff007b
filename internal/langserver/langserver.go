// Package langserver implements editor integration over LSP: live
// compile-error diagnostics as a document is edited, served via
// tliron/glsp the way server/lsp.go bridges the reference VM.
package langserver

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/loxvm/internal/alloc"
	"github.com/chazu/loxvm/internal/compiler"
)

const serverName = "lox-lsp"

// Server bridges LSP document lifecycle events to the compiler.
type Server struct {
	worker *Worker

	docs map[string]string

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// New creates a Server. Each Allocator passed to compiler.Compile is
// scratch: diagnostics only need the accumulated CompileErrors, never
// the resulting FunctionObj, so a fresh one is cheap to discard per
// compile.
func New() *Server {
	s := &Server{
		worker:  NewWorker(),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,
	}

	s.server = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// Run starts the LSP server on stdio. It blocks until the client
// disconnects.
func (s *Server) Run() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "lox language server initializing")

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text
	s.docs[string(uri)] = text
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	s.docs[string(uri)] = whole.Text
	s.publishDiagnostics(ctx, uri, whole.Text)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	delete(s.docs, string(uri))
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// publishDiagnostics compiles text on the worker goroutine and reports
// every CompileError as an LSP diagnostic.
func (s *Server) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, _ := s.worker.Do(func(a *alloc.Allocator) any {
		_, errs := compiler.Compile(text, a)
		return errs
	})

	errs, _ := result.([]compiler.CompileError)
	diagnostics := make([]protocol.Diagnostic, 0, len(errs))
	for _, e := range errs {
		line := e.Line - 1
		if line < 0 {
			line = 0
		}
		severity := protocol.DiagnosticSeverityError
		source := serverName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(line), Character: 0},
				End:   protocol.Position{Line: uint32(line), Character: 1},
			},
			Severity: &severity,
			Source:   &source,
			Message:  e.Message,
		})
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func boolPtr(b bool) *bool { return &b }
