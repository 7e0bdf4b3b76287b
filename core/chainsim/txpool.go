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
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// StubPool is an in-memory transaction pool implementing
// core/chainio.TxPool. It keeps every submitted transaction until the head
// changes, at which point it keeps only the transactions reinjected from
// dropped blocks, without re-validating anything against the new state.
type StubPool struct {
	mu      sync.Mutex
	head    common.Hash
	pending []*types.Transaction
}

// NewStubPool creates an empty pool.
func NewStubPool() *StubPool {
	return &StubPool{}
}

// Add enqueues a transaction for the next payload assembly.
func (p *StubPool) Add(tx *types.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, tx)
}

func (p *StubPool) CurrentHead() common.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.head
}

func (p *StubPool) Pending() []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.Transaction, len(p.pending))
	copy(out, p.pending)
	return out
}

// HeadChanged drops the pool's current contents (no re-validation against
// the new head, matching StubPool's no-revalidation design) and re-offers
// any transactions carried by blocks the reorg dropped from the canonical
// chain, so a revert never silently loses a transaction that was included
// only on the now-discarded branch.
func (p *StubPool) HeadChanged(head *types.Header, reinject []*types.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head = head.Hash()
	p.pending = append([]*types.Transaction{}, reinject...)
}
