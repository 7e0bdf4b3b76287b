// Copyright 2024 The pallas Authors
// This file is part of the pallas library.
//
// The pallas library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The pallas library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the pallas library. If not, see <http://www.gnu.org/licenses/>.

// Package rpc is a purpose-built JSON-RPC 2.0 transport for the engine
// namespace: it binds exactly the four Engine API methods plus
// engine_exchangeCapabilities over HTTP and WebSocket, with JWT
// authentication and a CORS allow-list, rather than the general dynamic
// namespace/reflection dispatcher a full node ships.
package rpc

import "encoding/json"

// Error is implemented by errors that carry a JSON-RPC error code, the same
// marker interface go-ethereum's own rpc package uses so that handler errors
// translate into wire-level codes instead of the generic -32000.
type Error interface {
	Error() string
	ErrorCode() int
}

// DataError is implemented by errors that also carry a structured data
// payload, e.g. the Engine API's {err: "..."} data field.
type DataError interface {
	Error
	ErrorData() interface{}
}

// jsonrpcVersion is the only version this transport accepts.
const jsonrpcVersion = "2.0"

// request is the JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// response is the JSON-RPC 2.0 response envelope. Exactly one of Result and
// Error is set.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *errorObject    `json:"error,omitempty"`
}

type errorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func errorResponse(id json.RawMessage, err error) *response {
	obj := &errorObject{Code: -32000, Message: err.Error()}
	if rpcErr, ok := err.(Error); ok {
		obj.Code = rpcErr.ErrorCode()
	}
	if dataErr, ok := err.(DataError); ok {
		obj.Data = dataErr.ErrorData()
	}
	return &response{JSONRPC: jsonrpcVersion, ID: id, Error: obj}
}

func resultResponse(id json.RawMessage, result interface{}) *response {
	return &response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

// parseError reports a malformed request, rejected at the transport layer
// before it ever reaches a handler.
func parseError(id json.RawMessage, msg string) *response {
	return &response{JSONRPC: jsonrpcVersion, ID: id, Error: &errorObject{Code: -32700, Message: msg}}
}

func methodNotFound(id json.RawMessage, method string) *response {
	return &response{JSONRPC: jsonrpcVersion, ID: id, Error: &errorObject{Code: -32601, Message: "the method " + method + " does not exist/is not available"}}
}

func invalidParamsError(id json.RawMessage, msg string) *response {
	return &response{JSONRPC: jsonrpcVersion, ID: id, Error: &errorObject{Code: -32602, Message: msg}}
}
