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

// Package merge tracks the one-way transition from proof-of-work sealing to
// proof-of-stake driving. Once the terminal total difficulty is reached, or
// once the Engine API has been told the network finalized a post-merge
// block, the transition cannot be undone for the lifetime of the process.
package merge

import "sync/atomic"

// Merger is a shared latch observed by both the sealing loop and the Engine
// API surface. The sealing loop stops producing blocks once TTDReached
// returns true. The fork-choice coordinator latches PoSFinalized when a
// forkchoiceUpdated call names a non-zero finalized block; no component in
// this module changes its behaviour based on PoSFinalized.
type Merger struct {
	ttdReached   atomic.Bool
	posFinalized atomic.Bool
}

// New creates a Merger in its pre-merge state.
func New() *Merger {
	return &Merger{}
}

// ReachTTD is called once the local chain accumulates total difficulty at or
// above the terminal total difficulty. It is idempotent: calling it again
// after the network has already transitioned is a no-op.
func (m *Merger) ReachTTD() {
	m.ttdReached.Store(true)
}

// TTDReached reports whether the terminal total difficulty has been
// observed on the local chain.
func (m *Merger) TTDReached() bool {
	return m.ttdReached.Load()
}

// FinalizePoS records that the beacon chain has finalized a post-merge
// block. This also implies TTD was reached, so it latches ttdReached too.
// The call is one-way: there is no path back to pre-merge operation.
func (m *Merger) FinalizePoS() {
	m.posFinalized.Store(true)
	m.ttdReached.Store(true)
}

// PoSFinalized reports whether the beacon chain has finalized a post-merge
// block.
func (m *Merger) PoSFinalized() bool {
	return m.posFinalized.Load()
}
