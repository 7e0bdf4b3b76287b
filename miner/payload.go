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

// Package miner drives the Payload Assembler: it turns a forkchoiceUpdated
// request's payload attributes into a sealed candidate block by pulling
// pending transactions from the pool and running them through the state
// executor. It also hosts the pre-Merge sealing loop that produces blocks on
// a fixed clique period until the Merge Latch trips.
package miner

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pallaschain/pallas/beacon/engine"
)

// BuildPayloadArgs mirrors the payload attributes a forkchoiceUpdated call
// supplies, plus the parent it builds on top of. It is the sole input to
// payload identifier computation, so two equal values must always compute
// the same Id().
type BuildPayloadArgs struct {
	Parent       common.Hash    // the block to build payload on top of
	Timestamp    uint64         // the requested timestamp of the generated payload
	FeeRecipient common.Address // the requested recipient for collecting transaction fees
	Random       common.Hash    // the requested prevRandao value
}

// Id computes the 8-byte payload identifier: a keccak hash over the parent
// hash, timestamp, prevRandao and fee recipient, truncated, stable across
// repeated calls with identical arguments.
func (args *BuildPayloadArgs) Id() engine.PayloadID {
	return engine.ComputePayloadId(args.Parent, &engine.PayloadAttributes{
		Timestamp:             args.Timestamp,
		Random:                args.Random,
		SuggestedFeeRecipient: args.FeeRecipient,
	})
}

// buildResult is the executor output for one assembled candidate: the block
// itself plus the cumulative fee paid to the fee recipient, reported to the
// consensus client as an informative aid (ExecutionPayloadEnvelope.BlockValue).
type buildResult struct {
	data *engine.ExecutableData
	fees *big.Int
}

// Payload wraps a single build request's output for the Payload Cache.
// Assembly in this driver is a single synchronous pass, so Payload holds
// both the empty and the fully-populated candidate it produced; the empty
// variant exists so a consensus client that cannot wait always has a block
// to propose, even though this driver never runs a background
// fee-improvement loop.
type Payload struct {
	mu    sync.Mutex
	id    engine.PayloadID
	empty *buildResult
	full  *buildResult
}

func newPayload(id engine.PayloadID, empty, full *buildResult) *Payload {
	return &Payload{id: id, empty: empty, full: full}
}

// Resolve returns the best available variant: the full block if assembly
// produced one, otherwise the empty block. Safe to call more than once; it
// always returns an equal result.
func (p *Payload) Resolve() *engine.ExecutionPayloadEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full != nil {
		return &engine.ExecutionPayloadEnvelope{ExecutionPayload: p.full.data, BlockValue: p.full.fees}
	}
	return &engine.ExecutionPayloadEnvelope{ExecutionPayload: p.empty.data, BlockValue: p.empty.fees}
}

// ResolveEmpty returns the empty-block variant, regardless of whether a
// fuller block was also assembled. Exercised by tests that need to observe
// the pre-pool baseline.
func (p *Payload) ResolveEmpty() *engine.ExecutionPayloadEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &engine.ExecutionPayloadEnvelope{ExecutionPayload: p.empty.data, BlockValue: p.empty.fees}
}

// ResolveFull returns the fully-populated variant, or nil if assembly had no
// pending transactions to include beyond the empty baseline.
func (p *Payload) ResolveFull() *engine.ExecutionPayloadEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full == nil {
		return nil
	}
	return &engine.ExecutionPayloadEnvelope{ExecutionPayload: p.full.data, BlockValue: p.full.fees}
}
