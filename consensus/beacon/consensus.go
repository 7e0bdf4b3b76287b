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

// Package beacon implements the post-merge header validation rules applied
// to every incoming execution payload: fixed zero difficulty, a monotonic
// timestamp, a bounded extradata field, and an EIP-1559 base fee that tracks
// its parent. It replaces the proof-of-work difficulty/nonce checks a
// pre-merge consensus engine would run.
package beacon

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus/misc/eip1559"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// postLondon treats every block as subject to the EIP-1559 rules; a payload
// arriving over the Engine API can never predate the London fork.
var postLondon = &params.ChainConfig{LondonBlock: new(big.Int)}

// ErrInvalidTimestamp is returned by VerifyHeader when a header's timestamp
// does not strictly increase over its parent's.
var ErrInvalidTimestamp = errors.New("Invalid timestamp")

// MaxExtraDataSize is the extradata length bound the Engine API imposes on
// every post-merge header, independent of any pre-merge clique vanity/seal
// allowance.
const MaxExtraDataSize = 32

// VerifyHeader checks a header against its parent under the post-merge
// rules. It is called from NewPayload before a block is handed to the
// Executor, so that a malformed header is rejected as INVALID without ever
// reaching state execution.
func VerifyHeader(header, parent *types.Header) error {
	if len(header.Extra) > MaxExtraDataSize {
		return fmt.Errorf("extra-data longer than %d bytes (%d)", MaxExtraDataSize, len(header.Extra))
	}
	if header.Time <= parent.Time {
		return ErrInvalidTimestamp
	}
	if header.GasLimit > params.MaxGasLimit {
		return fmt.Errorf("invalid gasLimit: have %v, max %v", header.GasLimit, params.MaxGasLimit)
	}
	if header.GasUsed > header.GasLimit {
		return fmt.Errorf("invalid gasUsed: have %d, gasLimit %d", header.GasUsed, header.GasLimit)
	}
	if diff := new(big.Int).Sub(header.Number, parent.Number); diff.Cmp(common.Big1) != 0 {
		return fmt.Errorf("invalid block number: parent %v, header %v", parent.Number, header.Number)
	}
	if header.Difficulty == nil || header.Difficulty.Sign() != 0 {
		return errors.New("invalid difficulty: post-merge blocks must have difficulty 0")
	}
	if err := eip1559.VerifyEIP1559Header(postLondon, parent, header); err != nil {
		return err
	}
	return nil
}

// NextBaseFee computes the EIP-1559 base fee a child block building on
// parent must carry.
func NextBaseFee(parent *types.Header) *big.Int {
	return eip1559.CalcBaseFee(postLondon, parent)
}
