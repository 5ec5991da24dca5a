package rpcframe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// std is the JSON codec used for every JSON-RPC envelope: jsoniter
// configured to match encoding/json's marshal/unmarshal semantics exactly,
// grounded on minio-simdjson-go's use of the same library for fast
// untrusted-JSON parsing.
var std = jsoniter.ConfigCompatibleWithStandardLibrary

// JSON-RPC 2.0 error codes (spec.md §4.4.3), plus the custom
// pre-initialisation guard code this implementation chooses to enforce
// (spec.md §9, SPEC_FULL.md §4 item 4).
const (
	ErrParse                = -32700
	ErrInvalidRequest       = -32600
	ErrMethodNotFound       = -32601
	ErrInvalidParams        = -32602
	ErrInternalError        = -32603
	ErrServerNotInitialized = -32002
)

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpcframe: %d %s", e.Code, e.Message)
}

// NewError constructs an Error, omitting data entirely when nil.
func NewError(code int, message string, data interface{}) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// ID is a JSON-RPC request identifier: a JSON string or number. A nil *ID
// means the id field was absent, marking a Notification.
type ID struct {
	str   string
	num   float64
	isStr bool
}

// NewStringID and NewNumberID build request identifiers for tests and for
// server-originated requests (this implementation issues none, but the
// constructors keep the type usable symmetrically).
func NewStringID(s string) ID  { return ID{str: s, isStr: true} }
func NewNumberID(n float64) ID { return ID{num: n} }

func (id ID) String() string {
	if id.isStr {
		return id.str
	}
	return strconvFloat(id.num)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := std.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID{str: s, isStr: true}
		return nil
	}
	var n float64
	if err := std.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("rpcframe: id must be a string or number: %w", err)
	}
	*id = ID{num: n}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return std.Marshal(id.str)
	}
	return std.Marshal(id.num)
}

// rawEnvelope is the generic, pre-validation shape every inbound message is
// decoded into (spec.md §4.4.2).
type rawEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      *ID             `json:"id"`
}

// Request is a validated inbound Request-or-Notification. ID is nil for a
// Notification (spec.md §4.4.2).
type Request struct {
	Method string
	Params json.RawMessage
	ID     *ID
}

// IsNotification reports whether the message carries no id.
func (r *Request) IsNotification() bool { return r.ID == nil }

// DecodeParams unmarshals raw (typically a Request's Params) into v using
// the same codec as the rest of the envelope. An empty/absent raw leaves v
// untouched rather than erroring, matching methods whose params are
// entirely optional.
func DecodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return std.Unmarshal(raw, v)
}

// Parse decodes body as JSON and validates it as a Request-or-Notification.
// A JSON syntax failure returns an ErrParse Error; a structurally invalid
// (but syntactically valid) message returns an ErrInvalidRequest Error
// (spec.md §4.4.2, §4.4.3).
func Parse(body []byte) (*Request, *Error) {
	var env rawEnvelope
	if err := std.Unmarshal(body, &env); err != nil {
		if json.Valid(body) {
			// Well-formed JSON whose members have the wrong types (a
			// non-string method, a boolean id, a top-level array, ...).
			return nil, NewError(ErrInvalidRequest, "Invalid request", nil)
		}
		return nil, NewError(ErrParse, "Parse error", parseErrorData(body, err))
	}

	if env.JSONRPC != "2.0" || env.Method == nil || *env.Method == "" {
		return nil, NewError(ErrInvalidRequest, "Invalid request", nil)
	}
	if len(env.Params) > 0 {
		trimmed := bytes.TrimSpace(env.Params)
		if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
			return nil, NewError(ErrInvalidRequest, "Invalid request", "params must be an object or array")
		}
	}
	return &Request{Method: *env.Method, Params: env.Params, ID: env.ID}, nil
}

// parseErrorData produces a human-readable "line N, offset M" description
// of where in body the JSON parse failed, 1-based, matching spec.md §8.2
// scenario 6's expectation for a truncated body.
func parseErrorData(body []byte, err error) string {
	offset := len(body) + 1

	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		offset = int(syn.Offset) + 1
	}
	if offset > len(body)+1 {
		offset = len(body) + 1
	}

	scanned := body
	if offset-1 < len(body) {
		scanned = body[:offset-1]
	}
	line := 1 + bytes.Count(scanned, []byte("\n"))
	col := offset
	if idx := bytes.LastIndexByte(scanned, '\n'); idx >= 0 {
		col = offset - idx - 1
	}
	return fmt.Sprintf("line %d, offset %d", line, col)
}

// Response is an outbound JSON-RPC 2.0 response: exactly one of Result or
// Err is meaningful, never both (spec.md §4.4.3). A successful response
// with a nil Result still marshals an explicit "result": null member.
type Response struct {
	ID     *ID
	Result interface{}
	Err    *Error
}

// Success builds a successful response carrying result (which may be nil).
func Success(id ID, result interface{}) *Response {
	return &Response{ID: &id, Result: result}
}

// Failure builds an error response. id is nil when the failing message
// could not be correlated to a request (e.g. on a parse error).
func Failure(id *ID, err *Error) *Response {
	return &Response{ID: id, Err: err}
}

func (r *Response) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"jsonrpc": "2.0"}
	if r.ID != nil {
		out["id"] = r.ID
	}
	if r.Err != nil {
		out["error"] = r.Err
	} else {
		out["result"] = r.Result
	}
	return std.Marshal(out)
}

// Marshal serialises the response body (without framing).
func (r *Response) Marshal() ([]byte, error) { return std.Marshal(r) }

func strconvFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
