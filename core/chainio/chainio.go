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

// Package chainio declares the contracts the Engine API driver needs from
// its surrounding node: a chain database capable of storing side chains and
// flipping the canonical pointer, a state executor, and a transaction pool.
// Each is treated as an external collaborator the driver only calls through
// these interfaces; the concrete implementation a production node wires in
// (a full Merkle-Patricia state database and EVM) is out of scope here. See
// core/chainsim for a reference implementation used by the driver's own
// tests and the bundled demo node.
package chainio

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Database stores headers, bodies and receipts, maintains the canonical
// number index and the accumulated-difficulty index, and tracks the safe
// and finalized pointers the Fork-Choice Coordinator advances.
type Database interface {
	// GetHeader returns the header for the given hash/number pair, or nil if
	// unknown.
	GetHeader(hash common.Hash, number uint64) *types.Header

	// GetHeaderByHash returns the header for the given hash regardless of
	// its number, or nil if unknown.
	GetHeaderByHash(hash common.Hash) *types.Header

	// GetBlock returns the full block for the given hash/number pair, or
	// nil if unknown.
	GetBlock(hash common.Hash, number uint64) *types.Block

	// GetCanonicalHash returns the hash recorded in the canonical-number
	// index at the given height, or the zero hash if the canonical chain
	// does not reach that high.
	GetCanonicalHash(number uint64) common.Hash

	// CurrentBlock returns the header of the current canonical head.
	CurrentBlock() *types.Header

	// GetTd returns the total difficulty accumulated at the given
	// hash/number pair, or nil if unknown.
	GetTd(hash common.Hash, number uint64) *big.Int

	// HasBlockAndState reports whether both the block and the state it
	// produces are locally available, i.e. whether the Executor could
	// process a child of this block without first syncing.
	HasBlockAndState(hash common.Hash, number uint64) bool

	// InsertSideBlock appends a block to the database without making it
	// canonical. It returns an error only if the block cannot be stored at
	// all (e.g. its parent is unknown); a successful call may still leave
	// the block off the canonical chain.
	InsertSideBlock(block *types.Block, stateRoot, receiptsRoot common.Hash, logsBloom types.Bloom, gasUsed uint64) error

	// SetCanonical rewrites the canonical-number index so that block becomes
	// the new head, reorging away any blocks previously canonical at or
	// above the fork point. It returns the dropped chain segment, oldest
	// first, for reorg notifications.
	SetCanonical(block *types.Block) (dropped []*types.Block, err error)

	// SetFinalized records the finalized block hash reported by the
	// consensus client. A zero hash clears it.
	SetFinalized(hash common.Hash)

	// SetSafe records the safe block hash reported by the consensus client.
	// A zero hash clears it.
	SetSafe(hash common.Hash)

	// FinalizedBlock returns the header last passed to SetFinalized, or nil
	// if none has been reported yet.
	FinalizedBlock() *types.Header

	// SafeBlock returns the header last passed to SetSafe, or nil if none
	// has been reported yet.
	SafeBlock() *types.Header
}

// Executor runs the state transition for a proposed block body on top of
// its parent's state and reports the resulting roots. It stands in for the
// EVM and state database, both explicitly out of scope for this driver.
type Executor interface {
	// Execute runs every transaction in body against the state committed by
	// header.ParentHash and returns the resulting state root, receipts
	// root, logs bloom and cumulative gas used. It returns an error if any
	// transaction is invalid or the parent state is unavailable.
	Execute(header *types.Header, body *types.Body) (stateRoot, receiptsRoot common.Hash, logsBloom types.Bloom, gasUsed uint64, err error)
}

// TxPool supplies pending transactions to the Payload Assembler and learns
// about new heads so it can drop transactions that no longer apply.
type TxPool interface {
	// CurrentHead returns the hash of the head the pool last re-validated
	// its contents against, or the zero hash if it has not seen one yet.
	CurrentHead() common.Hash

	// Pending returns the transactions currently eligible for inclusion,
	// highest-priority first.
	Pending() []*types.Transaction

	// HeadChanged is called after the canonical head changes so the pool
	// can re-validate its contents against the new state. reinject carries
	// the transactions of any blocks SetCanonical dropped from the
	// canonical chain, oldest block first, so the pool can offer them for
	// inclusion again instead of losing them to the reorg.
	HeadChanged(head *types.Header, reinject []*types.Transaction)
}

// FlattenTransactions concatenates the transactions of dropped, in block
// order, for use as the reinject argument to TxPool.HeadChanged after a
// SetCanonical call that reorged blocks off the canonical chain.
func FlattenTransactions(dropped []*types.Block) []*types.Transaction {
	var txs []*types.Transaction
	for _, block := range dropped {
		txs = append(txs, block.Transactions()...)
	}
	return txs
}
