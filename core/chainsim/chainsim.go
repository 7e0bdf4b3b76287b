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

// Package chainsim is an in-memory reference implementation of the
// core/chainio contracts, used by the driver's own test suite and the
// bundled demo node in place of a real persistent database and EVM.
package chainsim

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Chain is an in-memory block/header/receipt store with a canonical-number
// index and accumulated-difficulty tracking, implementing
// core/chainio.Database.
type Chain struct {
	mu sync.RWMutex

	blocks    map[common.Hash]*types.Block
	headers   map[common.Hash]*types.Header
	td        map[common.Hash]*big.Int
	canonical map[uint64]common.Hash
	stateless map[common.Hash]struct{}

	head      common.Hash
	headNum   uint64
	finalized common.Hash
	safe      common.Hash
}

// NewChain creates a chain seeded with a single genesis block. The genesis
// is treated as already canonical with total difficulty equal to its own
// difficulty.
func NewChain(genesis *types.Block) *Chain {
	c := &Chain{
		blocks:    make(map[common.Hash]*types.Block),
		headers:   make(map[common.Hash]*types.Header),
		td:        make(map[common.Hash]*big.Int),
		canonical: make(map[uint64]common.Hash),
		stateless: make(map[common.Hash]struct{}),
	}
	hash := genesis.Hash()
	num := genesis.NumberU64()
	c.blocks[hash] = genesis
	c.headers[hash] = genesis.Header()
	c.td[hash] = new(big.Int).Set(genesis.Difficulty())
	c.canonical[num] = hash
	c.head = hash
	c.headNum = num
	return c
}

func (c *Chain) GetHeader(hash common.Hash, number uint64) *types.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.headers[hash]
	if !ok || h.Number.Uint64() != number {
		return nil
	}
	return h
}

func (c *Chain) GetHeaderByHash(hash common.Hash) *types.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers[hash]
}

func (c *Chain) GetBlock(hash common.Hash, number uint64) *types.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocks[hash]
	if !ok || b.NumberU64() != number {
		return nil
	}
	return b
}

func (c *Chain) GetCanonicalHash(number uint64) common.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canonical[number]
}

func (c *Chain) CurrentBlock() *types.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers[c.head]
}

func (c *Chain) GetTd(hash common.Hash, number uint64) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	td, ok := c.td[hash]
	if !ok {
		return nil
	}
	return new(big.Int).Set(td)
}

func (c *Chain) HasBlockAndState(hash common.Hash, number uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, pruned := c.stateless[hash]; pruned {
		return false
	}
	_, ok := c.blocks[hash]
	return ok
}

// PruneState marks a stored block's post-state as unavailable, the way a
// snap sync leaves gaps behind its pivot. The block and header themselves
// stay readable; only HasBlockAndState starts reporting false for it.
func (c *Chain) PruneState(hash common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateless[hash] = struct{}{}
}

// InsertSideBlock stores block without altering the canonical pointer. The
// state/receipts roots and gas used are expected to already be set on
// block's header by the caller (the Payload Assembler or NewPayload, via
// the Executor). Full post-merge header validation (extradata bound,
// timestamp, gas accounting, number continuity, zero difficulty, EIP-1559
// base fee) runs in the caller via consensus/beacon.VerifyHeader before
// InsertSideBlock is reached — InsertSideBlock itself is also the landing
// point for the pre-Merge Sealing Loop's clique-sealed, non-zero-difficulty
// blocks, so it cannot apply the post-merge rules unconditionally.
func (c *Chain) InsertSideBlock(block *types.Block, stateRoot, receiptsRoot common.Hash, logsBloom types.Bloom, gasUsed uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.headers[block.ParentHash()]
	if !ok {
		return fmt.Errorf("unknown ancestor %x", block.ParentHash())
	}
	parentTD, ok := c.td[block.ParentHash()]
	if !ok {
		return fmt.Errorf("missing total difficulty for %x", block.ParentHash())
	}

	hash := block.Hash()
	c.blocks[hash] = block
	c.headers[hash] = block.Header()
	c.td[hash] = new(big.Int).Add(parentTD, block.Difficulty())
	return nil
}

// SetCanonical rewrites the canonical-number index so block becomes the new
// head, returning the previously canonical blocks at or above the fork
// point, oldest first. It handles every reorg shape: extending the current
// head, forking off to a sibling branch at or below the current head's
// number, and reverting to a shorter, already-canonical ancestor.
func (c *Chain) SetCanonical(block *types.Block) ([]*types.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := block.Hash()
	if _, ok := c.blocks[hash]; !ok {
		return nil, fmt.Errorf("unknown block %x", hash)
	}

	oldHead, oldNum := c.head, c.headNum
	newNum := block.NumberU64()

	// Walk the previous head and the new head back in lock-step until they
	// meet at their common ancestor, collecting every previously-canonical
	// block shed along the way. This correctly finds the fork point
	// whether the new chain is longer, shorter, or the same length as the
	// old one.
	var dropped []*types.Block
	oldCursor, oldN := oldHead, oldNum
	newCursor, newN := hash, newNum
	for oldCursor != newCursor {
		switch {
		case oldN > newN:
			if oldBlock, ok := c.blocks[oldCursor]; ok {
				dropped = append(dropped, oldBlock)
			}
			oldCursor = c.headers[oldCursor].ParentHash
			oldN--
		case newN > oldN:
			newCursor = c.headers[newCursor].ParentHash
			newN--
		default:
			if oldBlock, ok := c.blocks[oldCursor]; ok {
				dropped = append(dropped, oldBlock)
			}
			oldCursor = c.headers[oldCursor].ParentHash
			newCursor = c.headers[newCursor].ParentHash
			oldN--
			newN--
		}
	}
	for i, j := 0, len(dropped)-1; i < j; i, j = i+1, j-1 {
		dropped[i], dropped[j] = dropped[j], dropped[i]
	}

	// A shorter new chain leaves stale entries above newNum that the
	// forward rewrite below never visits; drop them explicitly.
	for n := newNum + 1; n <= oldNum; n++ {
		delete(c.canonical, n)
	}

	cursor := hash
	for n := newNum; ; {
		c.canonical[n] = cursor
		if n == 0 {
			break
		}
		parentHash := c.headers[cursor].ParentHash
		if c.canonical[n-1] == parentHash {
			break
		}
		cursor = parentHash
		n--
	}

	c.head = hash
	c.headNum = newNum
	return dropped, nil
}

func (c *Chain) SetFinalized(hash common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalized = hash
}

func (c *Chain) SetSafe(hash common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.safe = hash
}

func (c *Chain) FinalizedBlock() *types.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.finalized == (common.Hash{}) {
		return nil
	}
	return c.headers[c.finalized]
}

func (c *Chain) SafeBlock() *types.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.safe == (common.Hash{}) {
		return nil
	}
	return c.headers[c.safe]
}
