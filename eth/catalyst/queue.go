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

package catalyst

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pallaschain/pallas/beacon/engine"
	"github.com/pallaschain/pallas/miner"
)

// defaultPayloadCacheCapacity bounds both Payload Cache maps when the
// operator leaves config.EngineConfig.PayloadCacheN unset: a handful of
// in-flight builds is normal, and anything larger almost certainly signals a
// consensus client leaking payload requests rather than legitimate backlog.
const defaultPayloadCacheCapacity = 10

// payloadQueue is the payloadId → assembled payload half of the Payload
// Cache, an LRU map evicted strictly by last access.
type payloadQueue struct {
	cache *lru.Cache[engine.PayloadID, *miner.Payload]
}

func newPayloadQueue(capacity int) *payloadQueue {
	if capacity <= 0 {
		capacity = defaultPayloadCacheCapacity
	}
	cache, err := lru.New[engine.PayloadID, *miner.Payload](capacity)
	if err != nil {
		panic(err) // only fails for a non-positive size, which the check above rules out
	}
	return &payloadQueue{cache: cache}
}

func (q *payloadQueue) put(id engine.PayloadID, payload *miner.Payload) {
	q.cache.Add(id, payload)
}

func (q *payloadQueue) get(id engine.PayloadID) *engine.ExecutionPayloadEnvelope {
	payload, ok := q.cache.Get(id)
	if !ok {
		return nil
	}
	return payload.Resolve()
}

func (q *payloadQueue) has(id engine.PayloadID) bool {
	return q.cache.Contains(id)
}

// headerQueue is the blockHash → buffered header half of the Payload Cache:
// blocks whose parent was not yet known (or whose parent state was not yet
// available) when newPayload was called, awaiting a later forkchoiceUpdated
// to resolve them. The full block, not just its
// header, is kept: resolving a buffered entry means executing it for the
// first time, which needs its transaction list too.
type headerQueue struct {
	cache *lru.Cache[common.Hash, *types.Block]
}

func newHeaderQueue(capacity int) *headerQueue {
	if capacity <= 0 {
		capacity = defaultPayloadCacheCapacity
	}
	cache, err := lru.New[common.Hash, *types.Block](capacity)
	if err != nil {
		panic(err)
	}
	return &headerQueue{cache: cache}
}

func (q *headerQueue) put(hash common.Hash, block *types.Block) {
	q.cache.Add(hash, block)
}

func (q *headerQueue) get(hash common.Hash) *types.Block {
	block, ok := q.cache.Get(hash)
	if !ok {
		return nil
	}
	return block
}
