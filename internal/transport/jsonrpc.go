package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
	// ErrApplication is used for domain errors; data carries the API code.
	ErrApplication = -32000
)

// maxRequestBytes bounds a single /rpc body. Generated pages are the largest
// payloads clients send back.
const maxRequestBytes = 4 << 20

var (
	errParse   = errors.New("parse error")
	errInvalid = errors.New("invalid request")
)

// Request is a decoded JSON-RPC 2.0 call. ID keeps the caller's raw id so it
// is echoed back byte for byte.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the caller expects no response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseRequest decodes one JSON-RPC request. Params, when present, must be an
// object since every method takes named arguments. Batches are not accepted.
func ParseRequest(body io.Reader) (Request, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxRequestBytes+1))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", errParse, err)
	}
	if len(data) > maxRequestBytes {
		return Request{}, fmt.Errorf("%w: body exceeds %d bytes", errInvalid, maxRequestBytes)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return Request{}, fmt.Errorf("%w: batch requests are not supported", errInvalid)
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", errParse, err)
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return Request{}, errInvalid
	}
	if bytes.Equal(req.ID, []byte("null")) {
		req.ID = nil
	}
	switch p := bytes.TrimSpace(req.Params); {
	case len(p) == 0, bytes.Equal(p, []byte("null")):
		req.Params = nil
	case p[0] != '{':
		return req, fmt.Errorf("%w: params must be an object", errInvalid)
	}
	return req, nil
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id json.RawMessage, result any) {
	writeJSON(w, Response{JSONRPC: "2.0", Result: result, ID: responseID(id)})
}

// WriteError writes a JSON-RPC error response. A nil id is sent as null.
func WriteError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message, Data: data},
		ID:      responseID(id),
	})
}

func responseID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func writeJSON(w http.ResponseWriter, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
