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

package engine

import (
	"github.com/ethereum/go-ethereum/common"
)

// EngineAPIError is a standardized error message between consensus and
// execution clients, carrying the JSON-RPC error code the Engine API wire
// format prescribes plus any wrapped, implementation-specific detail.
type EngineAPIError struct {
	code int
	msg  string
	err  error
}

func (e *EngineAPIError) ErrorCode() int { return e.code }
func (e *EngineAPIError) Error() string  { return e.msg }
func (e *EngineAPIError) ErrorData() interface{} {
	if e.err == nil {
		return nil
	}
	return struct {
		Error string `json:"err"`
	}{e.err.Error()}
}

// With returns a copy of the error with a new embedded custom data field.
func (e *EngineAPIError) With(err error) *EngineAPIError {
	return &EngineAPIError{
		code: e.code,
		msg:  e.msg,
		err:  err,
	}
}

// EngineAPIError satisfies the rpc package's Error/DataError marker
// interfaces structurally (see rpc/types.go); there is no compile-time
// assertion of this, which keeps this package from importing rpc.

// The Engine API error-code table. Codes below -38000 are Engine API
// specific; -32602 and -32000 are ordinary JSON-RPC codes reused as the
// Engine API prescribes.
var (
	GenericServerError       = &EngineAPIError{code: -32000, msg: "Server error"}
	UnknownPayload           = &EngineAPIError{code: -38001, msg: "Unknown payload"}
	InvalidForkChoiceState   = &EngineAPIError{code: -38002, msg: "Invalid forkchoice state"}
	InvalidPayloadAttributes = &EngineAPIError{code: -38003, msg: "Invalid payload attributes"}
	TooLargeRequest          = &EngineAPIError{code: -38004, msg: "Too large request"}
	InvalidParams            = &EngineAPIError{code: -32602, msg: "Invalid parameters"}

	// InvalidBlockHash is returned when the caller-supplied blockHash does not
	// match the hash of the reconstructed header; it maps to INVALID with an
	// empty latestValidHash rather than a bare decode failure.
	InvalidBlockHash = &EngineAPIError{code: -32602, msg: "invalid blockhash"}
)

// INVALID_TERMINAL_BLOCK is the canned PayloadStatusV1 the coordinator
// returns when forkchoiceUpdated names a head that has not reached the
// terminal total difficulty.
var INVALID_TERMINAL_BLOCK = PayloadStatusV1{Status: INVALID, LatestValidHash: &common.Hash{}}
