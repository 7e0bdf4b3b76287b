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

package engine

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestPayloadAttributesJSONUsesHexQuantities(t *testing.T) {
	attrs := PayloadAttributes{
		Timestamp:             1700000000,
		Random:                common.HexToHash("0x02"),
		SuggestedFeeRecipient: common.HexToAddress("0xaa"),
	}
	enc, err := json.Marshal(attrs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(enc, &wire); err != nil {
		t.Fatalf("unmarshal to map: %v", err)
	}
	ts, ok := wire["timestamp"].(string)
	if !ok || ts[:2] != "0x" {
		t.Fatalf("expected timestamp to encode as 0x-prefixed hex, got %v", wire["timestamp"])
	}

	var back PayloadAttributes
	if err := json.Unmarshal(enc, &back); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
	if back != attrs {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, attrs)
	}
}

func TestBlockToExecutableDataRoundTrip(t *testing.T) {
	header := &types.Header{
		ParentHash:  common.HexToHash("0x01"),
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    common.HexToAddress("0xaa"),
		Root:        common.HexToHash("0x02"),
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Difficulty:  common.Big0,
		Number:      big.NewInt(5),
		GasLimit:    30_000_000,
		GasUsed:     0,
		Time:        1700000000,
		BaseFee:     big.NewInt(7),
		Extra:       []byte{},
		MixDigest:   common.HexToHash("0x03"),
	}
	block := types.NewBlockWithHeader(header).WithBody(nil, nil)

	data := BlockToExecutableData(block)
	if data.BlockHash != block.Hash() {
		t.Fatalf("blockHash mismatch: got %v want %v", data.BlockHash, block.Hash())
	}
	if len(data.Transactions) != 0 {
		t.Fatalf("expected no transactions, got %d", len(data.Transactions))
	}

	got, err := ExecutableDataToBlock(*data)
	if err != nil {
		t.Fatalf("ExecutableDataToBlock failed: %v", err)
	}
	if got.Hash() != block.Hash() {
		t.Fatalf("round trip hash mismatch: got %v want %v", got.Hash(), block.Hash())
	}
	if got.Header().TxHash != types.EmptyRootHash {
		t.Fatalf("empty transaction list must derive EmptyRootHash, got %v", got.Header().TxHash)
	}
}

func TestExecutableDataToBlockRejectsHashMismatch(t *testing.T) {
	header := &types.Header{
		ParentHash:  common.HexToHash("0x01"),
		UncleHash:   types.EmptyUncleHash,
		Root:        common.HexToHash("0x02"),
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Difficulty:  common.Big0,
		Number:      big.NewInt(1),
		GasLimit:    30_000_000,
		Time:        1700000000,
		BaseFee:     big.NewInt(1),
		Extra:       []byte{},
	}
	block := types.NewBlockWithHeader(header).WithBody(nil, nil)
	data := BlockToExecutableData(block)
	data.BlockHash = common.HexToHash("0xdeadbeef")

	if _, err := ExecutableDataToBlock(*data); err != InvalidBlockHash {
		t.Fatalf("expected InvalidBlockHash, got %v", err)
	}
}

func TestExecutableDataToBlockRejectsOversizedExtraData(t *testing.T) {
	header := &types.Header{
		ParentHash:  common.HexToHash("0x01"),
		UncleHash:   types.EmptyUncleHash,
		Root:        common.HexToHash("0x02"),
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		Difficulty:  common.Big0,
		Number:      big.NewInt(1),
		GasLimit:    30_000_000,
		Time:        1700000000,
		BaseFee:     big.NewInt(1),
		Extra:       make([]byte, 33),
	}
	block := types.NewBlockWithHeader(header).WithBody(nil, nil)
	data := BlockToExecutableData(block)

	if _, err := ExecutableDataToBlock(*data); err == nil {
		t.Fatal("expected an error for 33-byte extradata, got nil")
	}
}

func TestComputePayloadIdDeterministic(t *testing.T) {
	head := common.HexToHash("0x01")
	attrs := &PayloadAttributes{
		Timestamp:             1700000000,
		Random:                common.HexToHash("0x02"),
		SuggestedFeeRecipient: common.HexToAddress("0xaa"),
	}
	id1 := ComputePayloadId(head, attrs)
	id2 := ComputePayloadId(head, attrs)
	if id1 != id2 {
		t.Fatalf("expected deterministic payload id, got %v != %v", id1, id2)
	}

	cases := []*PayloadAttributes{
		{Timestamp: 1700000001, Random: attrs.Random, SuggestedFeeRecipient: attrs.SuggestedFeeRecipient},
		{Timestamp: attrs.Timestamp, Random: common.HexToHash("0x03"), SuggestedFeeRecipient: attrs.SuggestedFeeRecipient},
		{Timestamp: attrs.Timestamp, Random: attrs.Random, SuggestedFeeRecipient: common.HexToAddress("0xbb")},
	}
	seen := map[PayloadID]bool{id1: true}
	for i, c := range cases {
		id := ComputePayloadId(head, c)
		if seen[id] {
			t.Fatalf("case %d: payload id collided with a previous case", i)
		}
		seen[id] = true
	}

	otherHead := common.HexToHash("0x09")
	if id := ComputePayloadId(otherHead, attrs); id == id1 {
		t.Fatal("expected different head hash to change the payload id")
	}
}

func TestPayloadIDTextRoundTrip(t *testing.T) {
	var id PayloadID
	copy(id[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var got PayloadID
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if got != id {
		t.Fatalf("round trip mismatch: got %v want %v", got, id)
	}
}
