package lsp

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/orizon-lang/docsync-lsp/internal/cli"
)

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func runServer(t *testing.T, s *Server, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := s.Run(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func newTestServer() *Server {
	return NewServer(cli.NewLogger(false, false), WithChunkSize(16))
}

func TestRequestBeforeInitializeIsRejected(t *testing.T) {
	s := newTestServer()
	in := frame(`{"jsonrpc":"2.0","method":"shutdown","id":1}`)
	out := runServer(t, s, in)
	if !strings.Contains(out, `"code":-32002`) {
		t.Fatalf("output = %q, want -32002", out)
	}
}

func TestNotificationBeforeInitializeIsDroppedNotErrored(t *testing.T) {
	s := newTestServer()
	in := frame(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"uri":"file:///a.txt","version":1,"text":"x"}}`)
	out := runServer(t, s, in)
	if out != "" {
		t.Fatalf("output = %q, want empty (no response to a notification)", out)
	}
	if s.Exited() {
		t.Fatalf("server exited unexpectedly")
	}
}

func TestExitBeforeInitializeExitsWithOne(t *testing.T) {
	s := newTestServer()
	in := frame(`{"jsonrpc":"2.0","method":"exit"}`)
	runServer(t, s, in)
	if !s.Exited() || s.ExitCode() != 1 {
		t.Fatalf("exited=%v code=%d, want exited with code 1", s.Exited(), s.ExitCode())
	}
}

func initializeMessage() string {
	return frame(`{"jsonrpc":"2.0","method":"initialize","params":{"rootUri":"file:///root","trace":"off"},"id":1}`)
}

func TestInitializeRespondsWithCapabilities(t *testing.T) {
	s := newTestServer()
	out := runServer(t, s, initializeMessage())
	if !strings.Contains(out, `"openClose":true`) || !strings.Contains(out, `"change":2`) {
		t.Fatalf("output = %q, missing expected capabilities", out)
	}
	if s.state != stateInitialised {
		t.Fatalf("state = %v, want initialised", s.state)
	}
}

func TestInitializeWithNullRootURIIsInvalidParams(t *testing.T) {
	s := newTestServer()
	in := frame(`{"jsonrpc":"2.0","method":"initialize","params":{"rootUri":null},"id":1}`)
	out := runServer(t, s, in)
	if !strings.Contains(out, `"code":-32602`) {
		t.Fatalf("output = %q, want -32602", out)
	}
}

func TestFullLifecycleOpenChangeCloseShutdownExit(t *testing.T) {
	s := newTestServer()
	var msgs []string
	msgs = append(msgs, initializeMessage())
	msgs = append(msgs, frame(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"uri":"file:///a.txt","version":1,"text":"hello world"}}`))
	msgs = append(msgs, frame(`{"jsonrpc":"2.0","method":"textDocument/didChange","params":{"textDocument":{"uri":"file:///a.txt","version":2},"contentChanges":[{"range":{"start":{"line":0,"character":6},"end":{"line":0,"character":11}},"text":"there"}]}}`))

	if err := s.Run(strings.NewReader(strings.Join(msgs, "")), &bytes.Buffer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, lookupErr := s.store.Lookup("file:///a.txt")
	if lookupErr != nil {
		t.Fatalf("Lookup: %v", lookupErr)
	}
	if got.Text.String() != "hello there" {
		t.Fatalf("document text = %q, want %q", got.Text.String(), "hello there")
	}

	closeAndShutdown := frame(`{"jsonrpc":"2.0","method":"textDocument/didClose","params":{"textDocument":{"uri":"file:///a.txt"}}}`) +
		frame(`{"jsonrpc":"2.0","method":"shutdown","id":2}`) +
		frame(`{"jsonrpc":"2.0","method":"exit"}`)
	out2 := runServer(t, s, closeAndShutdown)
	if !strings.Contains(out2, `"result":null`) {
		t.Fatalf("shutdown response missing null result: %q", out2)
	}
	if !s.Exited() || s.ExitCode() != 0 {
		t.Fatalf("exited=%v code=%d, want exited with code 0 after shutdown", s.Exited(), s.ExitCode())
	}
}

func TestUnknownMethodAfterInitializeIsMethodNotFound(t *testing.T) {
	s := newTestServer()
	msgs := initializeMessage() + frame(`{"jsonrpc":"2.0","method":"sum","params":[1,4],"id":"a"}`)
	out := runServer(t, s, msgs)
	if !strings.Contains(out, `"code":-32601`) || !strings.Contains(out, `"data":"sum"`) {
		t.Fatalf("output = %q, want method-not-found for sum", out)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	s := newTestServer()
	out := runServer(t, s, frame(`{}`))
	if !strings.Contains(out, `"code":-32600`) {
		t.Fatalf("output = %q, want -32600", out)
	}
}

func TestParseErrorOnTruncatedBody(t *testing.T) {
	s := newTestServer()
	out := runServer(t, s, frame(`{"foo`))
	if !strings.Contains(out, `"code":-32700`) || !strings.Contains(out, `"line 1, offset 6"`) {
		t.Fatalf("output = %q, want parse error with offset", out)
	}
}

func TestCancelRequestIsIgnored(t *testing.T) {
	s := newTestServer()
	msgs := initializeMessage() + frame(`{"jsonrpc":"2.0","method":"$/cancelRequest","params":{"id":1}}`)
	out := runServer(t, s, msgs)
	// Only the initialize response should be present.
	if strings.Count(out, "Content-Length") != 1 {
		t.Fatalf("output = %q, want exactly one framed response", out)
	}
}

func TestDidSaveVersionMismatchLogsNoError(t *testing.T) {
	s := newTestServer()
	msgs := initializeMessage() +
		frame(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"uri":"file:///a.txt","version":1,"text":"x"}}`) +
		frame(`{"jsonrpc":"2.0","method":"textDocument/didSave","params":{"textDocument":{"uri":"file:///a.txt","version":9}}}`)
	out := runServer(t, s, msgs)
	// didSave is a notification: no response body beyond the initialize one.
	if strings.Count(out, "Content-Length") != 1 {
		t.Fatalf("output = %q, want exactly one framed response", out)
	}
}

func TestWholeDocumentReplaceViaDidChange(t *testing.T) {
	s := newTestServer()
	msgs := initializeMessage() +
		frame(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"uri":"file:///a.txt","version":1,"text":"old content"}}`) +
		frame(`{"jsonrpc":"2.0","method":"textDocument/didChange","params":{"textDocument":{"uri":"file:///a.txt","version":2},"contentChanges":[{"text":"new content"}]}}`)
	runServer(t, s, msgs)

	doc, err := s.store.Lookup("file:///a.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if doc.Text.String() != "new content" {
		t.Fatalf("text = %q, want %q", doc.Text.String(), "new content")
	}
}
