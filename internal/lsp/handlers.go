package lsp

import (
	"bufio"

	"github.com/orizon-lang/docsync-lsp/internal/cli"
	"github.com/orizon-lang/docsync-lsp/internal/rpcframe"
)

// handleInitialize parses processId/rootUri/trace, probes parent-process
// liveness, advertises capabilities, and transitions to initialised
// (spec.md §4.4.4).
func (s *Server) handleInitialize(w *bufio.Writer, req *rpcframe.Request) {
	var params initializeParams
	if err := rpcframe.DecodeParams(req.Params, &params); err != nil {
		s.writeError(w, req.ID, rpcframe.NewError(rpcframe.ErrInvalidParams, "Invalid params", err.Error()))
		return
	}
	if params.RootURI == nil {
		s.writeError(w, req.ID, rpcframe.NewError(rpcframe.ErrInvalidParams, "Invalid params", "rootUri must not be null"))
		return
	}
	s.trace = parseTraceLevel(params.Trace)

	if params.ProcessID != nil && !isProcessAlive(*params.ProcessID) {
		if s.log != nil {
			s.log.Error("parent process %d is not running, exiting", *params.ProcessID)
		}
		s.state = stateExited
		s.exitCode = 1
		return
	}

	s.state = stateInitialised
	result := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    2,
				"save":      map[string]interface{}{"includeText": false},
			},
		},
		"serverInfo": map[string]interface{}{
			"name":    "docsync-lsp",
			"version": cli.Version,
		},
	}
	s.writeResult(w, req.ID, result)
}

// handleShutdown releases every open document and arms the exit/exitCode
// decision (spec.md §4.4.4).
func (s *Server) handleShutdown(w *bufio.Writer, req *rpcframe.Request) {
	s.store.Free()
	s.shutdownRequested = true
	s.state = stateShutdownRequested
	s.writeResult(w, req.ID, nil)
}

// handleExit sets the process exit code and marks the server exited
// (spec.md §4.4.4, §6).
func (s *Server) handleExit(req *rpcframe.Request) {
	_ = req
	if s.shutdownRequested {
		s.exitCode = 0
	} else {
		s.exitCode = 1
	}
	s.state = stateExited
}

func (s *Server) handleDidOpen(req *rpcframe.Request) {
	var params didOpenParams
	if err := rpcframe.DecodeParams(req.Params, &params); err != nil {
		if s.log != nil {
			s.log.Warn("didOpen: invalid params: %v", err)
		}
		return
	}
	if err := s.store.Open(params.URI, params.Version, params.Text); err != nil && s.log != nil {
		s.log.Warn("didOpen(%s): %v", params.URI, err)
	}
}

func (s *Server) handleDidChange(req *rpcframe.Request) {
	var params didChangeParams
	if err := rpcframe.DecodeParams(req.Params, &params); err != nil {
		if s.log != nil {
			s.log.Warn("didChange: invalid params: %v", err)
		}
		return
	}
	edits := editsFromContentChanges(params.ContentChanges)
	if err := s.store.Change(params.TextDocument.URI, params.TextDocument.Version, edits); err != nil && s.log != nil {
		s.log.Warn("didChange(%s): %v", params.TextDocument.URI, err)
	}
}

// handleDidSave validates the optional version against the store without
// erroring (spec.md §4.4.4: "if version is supplied and disagrees with the
// store's version, log but do not error").
func (s *Server) handleDidSave(req *rpcframe.Request) {
	var params didSaveParams
	if err := rpcframe.DecodeParams(req.Params, &params); err != nil {
		if s.log != nil {
			s.log.Warn("didSave: invalid params: %v", err)
		}
		return
	}
	doc, err := s.store.Lookup(params.TextDocument.URI)
	if err != nil {
		if s.log != nil {
			s.log.Warn("didSave(%s): %v", params.TextDocument.URI, err)
		}
		return
	}
	if params.TextDocument.Version != nil && *params.TextDocument.Version != doc.Version && s.log != nil {
		s.log.Warn("didSave(%s): client version %d disagrees with store version %d",
			params.TextDocument.URI, *params.TextDocument.Version, doc.Version)
	}
}

func (s *Server) handleDidClose(req *rpcframe.Request) {
	var params didCloseParams
	if err := rpcframe.DecodeParams(req.Params, &params); err != nil {
		if s.log != nil {
			s.log.Warn("didClose: invalid params: %v", err)
		}
		return
	}
	if err := s.store.Close(params.TextDocument.URI); err != nil && s.log != nil {
		s.log.Warn("didClose(%s): %v", params.TextDocument.URI, err)
	}
}
