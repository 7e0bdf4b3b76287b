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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"

	"github.com/pallaschain/pallas/consensus/beacon"
)

// GenesisConfig describes the pre-merge genesis the simulator seeds before
// layering post-merge blocks on top, including the terminal total
// difficulty the Merge Latch watches for.
type GenesisConfig struct {
	Difficulty              *big.Int
	GasLimit                uint64
	Timestamp               uint64
	ExtraData               []byte
	TerminalTotalDifficulty *big.Int
}

// DefaultGenesisConfig returns reasonable defaults for tests and the demo
// node: a small fixed difficulty so a handful of pre-merge blocks cross the
// terminal total difficulty quickly.
func DefaultGenesisConfig() GenesisConfig {
	return GenesisConfig{
		Difficulty:              big.NewInt(1),
		GasLimit:                30_000_000,
		Timestamp:               1_700_000_000,
		ExtraData:               []byte("chainsim genesis"),
		TerminalTotalDifficulty: big.NewInt(10),
	}
}

// NewGenesisBlock builds the pre-merge genesis block described by cfg. Its
// base fee is seeded at params.InitialBaseFee so the first post-London
// child can run the ordinary EIP-1559 adjustment formula.
func NewGenesisBlock(cfg GenesisConfig) *types.Block {
	header := &types.Header{
		ParentHash: common.Hash{},
		UncleHash:  types.EmptyUncleHash,
		Root:       common.Hash{},
		TxHash:     types.EmptyRootHash,
		Number:     big.NewInt(0),
		GasLimit:   cfg.GasLimit,
		GasUsed:    0,
		Time:       cfg.Timestamp,
		Extra:      cfg.ExtraData,
		Difficulty: new(big.Int).Set(cfg.Difficulty),
		BaseFee:    big.NewInt(int64(params.InitialBaseFee)),
	}
	return types.NewBlockWithHeader(header)
}

// GeneratePreMergeChain extends genesis with n proof-of-work-styled blocks
// of fixed difficulty, returning them in order. It mirrors the shape of a
// real pre-merge import so the simulator's TD bookkeeping and the Merge
// Latch can be exercised the same way a live pre-merge sync would drive
// them.
func GeneratePreMergeChain(genesis *types.Block, n int, difficulty *big.Int) []*types.Block {
	blocks := make([]*types.Block, 0, n)
	parent := genesis
	for i := 0; i < n; i++ {
		header := &types.Header{
			ParentHash: parent.Hash(),
			UncleHash:  types.EmptyUncleHash,
			Root:       parent.Root(),
			TxHash:     types.EmptyRootHash,
			Number:     new(big.Int).Add(parent.Number(), common.Big1),
			GasLimit:   parent.GasLimit(),
			Time:       parent.Time() + 12,
			Extra:      []byte("pre-merge"),
			Difficulty: new(big.Int).Set(difficulty),
			BaseFee:    beacon.NextBaseFee(parent.Header()),
		}
		block := types.NewBlockWithHeader(header)
		blocks = append(blocks, block)
		parent = block
	}
	return blocks
}
