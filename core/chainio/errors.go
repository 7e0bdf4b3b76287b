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

package chainio

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// HeaderRejected reports that a block's header failed consensus validation
// before its body ever reached the Executor.
type HeaderRejected struct {
	Reason error
}

func (e *HeaderRejected) Error() string { return fmt.Sprintf("header rejected: %v", e.Reason) }
func (e *HeaderRejected) Unwrap() error { return e.Reason }

// TxRejected reports that the Executor refused one specific transaction
// within a block's body, identified by its index in that body.
type TxRejected struct {
	Index  int
	Reason error
}

func (e *TxRejected) Error() string {
	return fmt.Sprintf("transaction %d rejected: %v", e.Index, e.Reason)
}
func (e *TxRejected) Unwrap() error { return e.Reason }

// StateMismatch reports that the Executor produced a state root other than
// the one the block's header claims, the signature of an inconsistent or
// stale payload rather than an outright invalid one.
type StateMismatch struct {
	Expected common.Hash
	Got      common.Hash
}

func (e *StateMismatch) Error() string {
	return fmt.Sprintf("state root mismatch: expected %x, got %x", e.Expected, e.Got)
}
