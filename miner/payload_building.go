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

package miner

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/pallaschain/pallas/beacon/engine"
	"github.com/pallaschain/pallas/consensus/beacon"
	"github.com/pallaschain/pallas/core/chainio"
)

// MaxExtraDataSize bounds extradata on assembled blocks, matching the
// post-merge header rule the Chain Inserter enforces on the way in.
const MaxExtraDataSize = 32

// Miner owns the collaborators payload assembly needs: a view of the
// chain to read the parent header from, a state executor, and the
// transaction pool that supplies the candidate transaction list.
type Miner struct {
	chain chainio.Database
	exec  chainio.Executor
	pool  chainio.TxPool
}

// New creates a Miner wired to the given collaborators.
func New(chain chainio.Database, exec chainio.Executor, pool chainio.TxPool) *Miner {
	return &Miner{chain: chain, exec: exec, pool: pool}
}

// BuildPayload assembles a candidate block on top of args.Parent: an
// empty-transaction baseline first (so a payload always exists to resolve),
// then a second pass against the pool's current pending set. Both passes
// share the same post-merge environment (zero difficulty, zero nonce, the
// supplied prevRandao/timestamp/fee-recipient and the EIP-1559 base fee
// computed from the parent).
func (m *Miner) BuildPayload(args *BuildPayloadArgs) (*Payload, error) {
	parent := m.chain.GetHeaderByHash(args.Parent)
	if parent == nil {
		return nil, fmt.Errorf("unknown parent %x", args.Parent)
	}
	if args.Timestamp <= parent.Time {
		return nil, fmt.Errorf("invalid timestamp: parent %d, requested %d", parent.Time, args.Timestamp)
	}

	// Rebase the pool if it is still tracking some other head, so the
	// pending set it hands back applies on top of parent. A pool that has
	// never seen a head has nothing to rebase from.
	if cur := m.pool.CurrentHead(); cur != (common.Hash{}) && cur != parent.Hash() {
		m.pool.HeadChanged(parent, nil)
	}

	empty, err := m.generate(parent, args, nil)
	if err != nil {
		return nil, err
	}

	var full *buildResult
	if pending := m.pool.Pending(); len(pending) > 0 {
		full, err = m.generate(parent, args, pending)
		if err != nil {
			return nil, err
		}
	}
	return newPayload(args.Id(), empty, full), nil
}

// generate runs one assembly pass: build the header against parent and the
// requested attributes, execute txs through the state executor, and compute
// the fee total paid to the coinbase.
func (m *Miner) generate(parent *types.Header, args *BuildPayloadArgs, txs []*types.Transaction) (*buildResult, error) {
	header := &types.Header{
		ParentHash: parent.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Coinbase:   args.FeeRecipient,
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		GasLimit:   parent.GasLimit,
		Time:       args.Timestamp,
		Extra:      []byte{},
		Difficulty: common.Big0,
		MixDigest:  args.Random,
		BaseFee:    beacon.NextBaseFee(parent),
		TxHash:     engine.DeriveTxHash(txs),
	}
	if len(header.Extra) > MaxExtraDataSize {
		return nil, fmt.Errorf("extradata too long: %d bytes", len(header.Extra))
	}

	body := &types.Body{Transactions: txs}
	stateRoot, receiptsRoot, logsBloom, gasUsed, err := m.exec.Execute(header, body)
	if err != nil {
		return nil, fmt.Errorf("payload execution failed: %w", err)
	}
	header.Root = stateRoot
	header.ReceiptHash = receiptsRoot
	header.Bloom = logsBloom
	header.GasUsed = gasUsed

	block := types.NewBlockWithHeader(header).WithBody(txs, nil)
	return &buildResult{
		data: engine.BlockToExecutableData(block),
		fees: blockValue(header, gasUsed),
	}, nil
}

// blockValue reports the fee paid to the coinbase at the block's base fee,
// a lower bound on the real total (it ignores any priority tip, which this
// driver's stub executor does not model). The arithmetic is done in
// uint256, the same fixed width the EVM's gas accounting uses.
func blockValue(header *types.Header, gasUsed uint64) *big.Int {
	if header.BaseFee == nil || gasUsed == 0 {
		return new(big.Int)
	}
	baseFee, overflow := uint256.FromBig(header.BaseFee)
	if overflow {
		return new(big.Int)
	}
	used := uint256.NewInt(gasUsed)
	total := new(uint256.Int).Mul(baseFee, used)
	return total.ToBig()
}
