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

package chainsim

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"

	"github.com/pallaschain/pallas/core/chainio"
)

// StubExecutor is a deterministic stand-in for the real EVM and state
// database, both external collaborators this driver only references through
// the core/chainio contracts. It derives a
// state root by hash-chaining the parent root with the block's coinbase and
// transaction set rather than running any state transition, so it is only
// fit for exercising the Engine API driver's own control flow in tests and
// the bundled demo node, never for real execution.
type StubExecutor struct {
	chain *Chain
}

// NewStubExecutor builds a StubExecutor that resolves parent state roots
// through chain.
func NewStubExecutor(chain *Chain) *StubExecutor {
	return &StubExecutor{chain: chain}
}

func (e *StubExecutor) Execute(header *types.Header, body *types.Body) (stateRoot, receiptsRoot common.Hash, logsBloom types.Bloom, gasUsed uint64, err error) {
	parent := e.chain.GetHeaderByHash(header.ParentHash)
	var parentRoot common.Hash
	if parent != nil {
		parentRoot = parent.Root
	}

	input := make([]byte, 0, common.HashLength+common.AddressLength+len(body.Transactions)*common.HashLength)
	input = append(input, parentRoot[:]...)
	input = append(input, header.Coinbase[:]...)
	for _, tx := range body.Transactions {
		h := tx.Hash()
		input = append(input, h[:]...)
	}
	stateRoot = crypto.Keccak256Hash(input)

	if len(body.Transactions) == 0 {
		receiptsRoot = types.EmptyRootHash
	} else {
		var receiptInput []byte
		for _, tx := range body.Transactions {
			h := tx.Hash()
			receiptInput = append(receiptInput, h[:]...)
		}
		receiptsRoot = crypto.Keccak256Hash(receiptInput)
	}

	gasUsed = uint64(len(body.Transactions)) * params.TxGas
	return stateRoot, receiptsRoot, logsBloom, gasUsed, nil
}

// FaultyExecutor wraps a StubExecutor with two on-demand failure modes, so
// tests can exercise the Chain Inserter's ExecutionFailed and state-root
// mismatch INVALID paths without StubExecutor's always-succeeds determinism
// getting in the way.
type FaultyExecutor struct {
	*StubExecutor

	// FailAtTx, when >= 0, makes Execute reject the transaction at that
	// index instead of computing a state transition.
	FailAtTx int
	FailWith error

	// Mismatch makes Execute return a state root that disagrees with the
	// one StubExecutor would have produced for the same inputs.
	Mismatch bool

	// Calls counts Execute invocations, so tests can assert a code path
	// short-circuited before reaching execution.
	Calls int
}

// NewFaultyExecutor builds a FaultyExecutor with both failure modes
// disabled; set FailAtTx/FailWith or Mismatch to arm one.
func NewFaultyExecutor(chain *Chain) *FaultyExecutor {
	return &FaultyExecutor{StubExecutor: NewStubExecutor(chain), FailAtTx: -1, FailWith: errors.New("execution reverted")}
}

func (e *FaultyExecutor) Execute(header *types.Header, body *types.Body) (stateRoot, receiptsRoot common.Hash, logsBloom types.Bloom, gasUsed uint64, err error) {
	e.Calls++
	if e.FailAtTx >= 0 && e.FailAtTx < len(body.Transactions) {
		return common.Hash{}, common.Hash{}, types.Bloom{}, 0, &chainio.TxRejected{Index: e.FailAtTx, Reason: e.FailWith}
	}
	stateRoot, receiptsRoot, logsBloom, gasUsed, err = e.StubExecutor.Execute(header, body)
	if err != nil || !e.Mismatch {
		return stateRoot, receiptsRoot, logsBloom, gasUsed, err
	}
	return crypto.Keccak256Hash(stateRoot[:], []byte("mismatch")), receiptsRoot, logsBloom, gasUsed, nil
}
