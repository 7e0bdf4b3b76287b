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
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pallaschain/pallas/core/chainsim"
)

func newTestMiner(t *testing.T) (*Miner, *chainsim.Chain, *chainsim.StubPool) {
	t.Helper()
	genesis := chainsim.NewGenesisBlock(chainsim.DefaultGenesisConfig())
	chain := chainsim.NewChain(genesis)
	pool := chainsim.NewStubPool()
	exec := chainsim.NewStubExecutor(chain)
	return New(chain, exec, pool), chain, pool
}

func TestBuildPayload(t *testing.T) {
	t.Parallel()
	recipient := common.HexToAddress("0xdeadbeef")
	m, chain, pool := newTestMiner(t)

	pendingTxs := 3
	for i := 0; i < pendingTxs; i++ {
		pool.Add(types.NewTransaction(uint64(i), common.Address{byte(i)}, big.NewInt(0), 21000, big.NewInt(1), nil))
	}

	timestamp := chain.CurrentBlock().Time + 12
	args := &BuildPayloadArgs{
		Parent:       chain.CurrentBlock().Hash(),
		Timestamp:    timestamp,
		Random:       common.Hash{},
		FeeRecipient: recipient,
	}
	payload, err := m.BuildPayload(args)
	if err != nil {
		t.Fatalf("Failed to build payload %v", err)
	}

	empty := payload.ResolveEmpty()
	if empty.ExecutionPayload.ParentHash != chain.CurrentBlock().Hash() {
		t.Fatal("unexpected parent hash on empty payload")
	}
	if len(empty.ExecutionPayload.Transactions) != 0 {
		t.Fatal("expected the empty variant to carry no transactions")
	}

	full := payload.ResolveFull()
	if full == nil {
		t.Fatal("expected a full payload since the pool had pending transactions")
	}
	if full.ExecutionPayload.ParentHash != chain.CurrentBlock().Hash() {
		t.Fatal("unexpected parent hash on full payload")
	}
	if full.ExecutionPayload.Random != (common.Hash{}) {
		t.Fatal("unexpected random value")
	}
	if full.ExecutionPayload.Timestamp != timestamp {
		t.Fatal("unexpected timestamp")
	}
	if full.ExecutionPayload.FeeRecipient != recipient {
		t.Fatal("unexpected fee recipient")
	}
	if len(full.ExecutionPayload.Transactions) != pendingTxs {
		t.Fatal("unexpected transaction set")
	}

	// Resolve can be called multiple times and must return an equal result.
	dataOne := payload.Resolve()
	dataTwo := payload.Resolve()
	if !reflect.DeepEqual(dataOne, dataTwo) {
		t.Fatal("unexpected payload data")
	}
}

func TestBuildPayloadEmptyPoolHasNoFullVariant(t *testing.T) {
	t.Parallel()
	m, chain, _ := newTestMiner(t)

	args := &BuildPayloadArgs{
		Parent:       chain.CurrentBlock().Hash(),
		Timestamp:    chain.CurrentBlock().Time + 12,
		FeeRecipient: common.HexToAddress("0x01"),
	}
	payload, err := m.BuildPayload(args)
	if err != nil {
		t.Fatalf("Failed to build payload %v", err)
	}
	if payload.ResolveFull() != nil {
		t.Fatal("expected no full variant when the pool is empty")
	}
	if got := payload.Resolve(); len(got.ExecutionPayload.Transactions) != 0 {
		t.Fatal("expected Resolve to fall back to the empty variant")
	}
}

func TestBuildPayloadRebasesStalePool(t *testing.T) {
	t.Parallel()
	m, chain, pool := newTestMiner(t)

	// Leave the pool tracking a head other than the one we build on; the
	// stale pending set must be rebased away rather than included.
	stale := &types.Header{Number: big.NewInt(99)}
	pool.HeadChanged(stale, nil)
	pool.Add(types.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil))

	parent := chain.CurrentBlock()
	payload, err := m.BuildPayload(&BuildPayloadArgs{
		Parent:    parent.Hash(),
		Timestamp: parent.Time + 12,
	})
	if err != nil {
		t.Fatalf("Failed to build payload %v", err)
	}
	if payload.ResolveFull() != nil {
		t.Fatal("expected the stale pending set to be dropped by the rebase")
	}
	if pool.CurrentHead() != parent.Hash() {
		t.Fatal("expected the pool to track the build parent after the rebase")
	}
}

func TestPayloadId(t *testing.T) {
	t.Parallel()
	ids := make(map[string]int)
	for i, tt := range []*BuildPayloadArgs{
		{
			Parent:       common.Hash{1},
			Timestamp:    1,
			Random:       common.Hash{0x1},
			FeeRecipient: common.Address{0x1},
		},
		// Different parent
		{
			Parent:       common.Hash{2},
			Timestamp:    1,
			Random:       common.Hash{0x1},
			FeeRecipient: common.Address{0x1},
		},
		// Different timestamp
		{
			Parent:       common.Hash{2},
			Timestamp:    2,
			Random:       common.Hash{0x1},
			FeeRecipient: common.Address{0x1},
		},
		// Different Random
		{
			Parent:       common.Hash{2},
			Timestamp:    2,
			Random:       common.Hash{0x2},
			FeeRecipient: common.Address{0x1},
		},
		// Different fee-recipient
		{
			Parent:       common.Hash{2},
			Timestamp:    2,
			Random:       common.Hash{0x2},
			FeeRecipient: common.Address{0x2},
		},
	} {
		id := tt.Id().String()
		if prev, exists := ids[id]; exists {
			t.Errorf("ID collision, case %d and case %d: id %v", prev, i, id)
		}
		ids[id] = i
	}
}

func TestPayloadIdDeterministic(t *testing.T) {
	args := &BuildPayloadArgs{
		Parent:       common.Hash{9},
		Timestamp:    42,
		Random:       common.Hash{0x5},
		FeeRecipient: common.Address{0x7},
	}
	if args.Id() != args.Id() {
		t.Fatal("expected Id() to be deterministic for identical arguments")
	}
}
