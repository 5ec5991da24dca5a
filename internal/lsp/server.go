// Package lsp implements the JSON-RPC / LSP Dispatcher (spec.md §4.4): the
// server lifecycle state machine, method routing, and the error-taxonomy
// wiring between internal/rpcframe and internal/docstore.
//
// Grounded on the teacher's stdio-driven LSP server loop and on
// original_source/src/language_server.c's state/method handling, rebuilt
// around an explicitly-passed Server value rather than process-global state
// (spec.md §9's "Process-wide server state" design note).
package lsp

import (
	"bufio"
	"errors"
	"io"

	"github.com/orizon-lang/docsync-lsp/internal/cli"
	"github.com/orizon-lang/docsync-lsp/internal/docstore"
	"github.com/orizon-lang/docsync-lsp/internal/rpcframe"
)

type state int

const (
	stateUninitialised state = iota
	stateInitialised
	stateShutdownRequested
	stateExited
)

// TraceLevel mirrors the initialize request's trace field (spec.md §4.4.4;
// SPEC_FULL.md §4 item 6).
type TraceLevel int

const (
	TraceOff TraceLevel = iota
	TraceMessages
	TraceVerbose
)

func parseTraceLevel(s string) TraceLevel {
	switch s {
	case "messages":
		return TraceMessages
	case "verbose":
		return TraceVerbose
	default:
		return TraceOff
	}
}

// Server holds the process-wide dispatcher state of spec.md §3.6: lifecycle
// flags and the Document Store. It is threaded explicitly through the
// dispatch loop rather than kept as a package-level global.
type Server struct {
	state             state
	shutdownRequested bool
	exitCode          int

	store *docstore.Store
	log   *cli.Logger
	trace TraceLevel

	chunkSize int
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithChunkSize overrides the text-buffer chunk size new documents are
// allocated with; production code leaves this at docstore.ChunkSize.
func WithChunkSize(n int) Option {
	return func(s *Server) { s.chunkSize = n }
}

// NewServer creates an uninitialised Server with a fresh, empty Document
// Store.
func NewServer(log *cli.Logger, opts ...Option) *Server {
	s := &Server{log: log, chunkSize: docstore.ChunkSize}
	for _, opt := range opts {
		opt(s)
	}
	s.store = docstore.NewSized(log, docstoreTableSize, s.chunkSize)
	return s
}

const docstoreTableSize = 256

// Exited reports whether an exit notification has been processed.
func (s *Server) Exited() bool { return s.state == stateExited }

// ExitCode reports the process exit code: after an exit notification, 0 if
// a prior shutdown request preceded it and 1 otherwise (spec.md §4.4.4, §6);
// 1 if initialize found the parent process gone; 0 if neither happened.
func (s *Server) ExitCode() int { return s.exitCode }

// Run drives the dispatcher loop over r/w, reading one framed message at a
// time, until exit is processed or r reaches end of stream (spec.md
// §4.4.5, §5 "single-threaded cooperative" scheduling).
func (s *Server) Run(r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for !s.Exited() {
		body, err := rpcframe.ReadMessage(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.handleMessage(writer, body)
	}
	return nil
}

// handleMessage parses and routes a single framed body, recovering from any
// panic so one malformed message cannot take the process down (spec.md
// §7's "malformed inputs never crash the server").
func (s *Server) handleMessage(w *bufio.Writer, body []byte) {
	defer func() {
		if r := recover(); r != nil && s.log != nil {
			s.log.Error("recovered while handling message: %v", r)
		}
	}()

	req, perr := rpcframe.Parse(body)
	if perr != nil {
		s.writeError(w, nil, perr)
		return
	}
	if s.trace != TraceOff && s.log != nil {
		s.log.Info("trace <- %s", req.Method)
	}

	if s.state == stateUninitialised && req.Method != "initialize" {
		if req.Method == "exit" {
			s.handleExit(req)
			return
		}
		if req.IsNotification() {
			if s.log != nil {
				s.log.Warn("dropping %q received before initialize", req.Method)
			}
			return
		}
		s.writeError(w, req.ID, rpcframe.NewError(rpcframe.ErrServerNotInitialized, "Server not initialised", nil))
		return
	}

	s.dispatch(w, req)
}

// dispatch routes a request or notification once the pre-initialisation
// guard has been cleared (spec.md §4.4.4).
func (s *Server) dispatch(w *bufio.Writer, req *rpcframe.Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(w, req)
	case "shutdown":
		s.handleShutdown(w, req)
	case "exit":
		s.handleExit(req)
	case "textDocument/didOpen":
		s.handleDidOpen(req)
	case "textDocument/didChange":
		s.handleDidChange(req)
	case "textDocument/didSave":
		s.handleDidSave(req)
	case "textDocument/didClose":
		s.handleDidClose(req)
	case "$/cancelRequest":
		// Tolerated no-op: cancellation is unsupported (spec.md §5), and the
		// original implementation accepts but ignores it.
	default:
		if req.IsNotification() {
			if s.log != nil {
				s.log.Warn("dropping unknown notification %q", req.Method)
			}
			return
		}
		s.writeError(w, req.ID, rpcframe.NewError(rpcframe.ErrMethodNotFound, "Method not found", req.Method))
	}
}

func (s *Server) writeResult(w *bufio.Writer, id *rpcframe.ID, result interface{}) {
	if id == nil {
		return
	}
	s.send(w, rpcframe.Success(*id, result))
}

func (s *Server) writeError(w *bufio.Writer, id *rpcframe.ID, rerr *rpcframe.Error) {
	s.send(w, rpcframe.Failure(id, rerr))
}

func (s *Server) send(w *bufio.Writer, resp *rpcframe.Response) {
	body, err := resp.Marshal()
	if err != nil {
		if s.log != nil {
			s.log.Error("failed to marshal response: %v", err)
		}
		return
	}
	if s.trace != TraceOff && s.log != nil {
		s.log.Info("trace -> %s", body)
	}
	if err := rpcframe.WriteMessage(w, body); err != nil && s.log != nil {
		s.log.Error("failed to write response: %v", err)
	}
}
