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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// insertCanonical inserts block as a side block and immediately makes it
// canonical, the way GetHeader-driven production code always does in
// sequence. It returns SetCanonical's dropped set for callers that care.
func insertCanonical(t *testing.T, c *Chain, block *types.Block) []*types.Block {
	t.Helper()
	require.NoError(t, c.InsertSideBlock(block, block.Root(), block.Header().ReceiptHash, block.Header().Bloom, 0))
	dropped, err := c.SetCanonical(block)
	require.NoError(t, err)
	return dropped
}

func TestSetCanonicalExtendingHeadDropsNothing(t *testing.T) {
	genesis := NewGenesisBlock(DefaultGenesisConfig())
	c := NewChain(genesis)
	chain := GeneratePreMergeChain(genesis, 3, big.NewInt(1))

	for _, b := range chain {
		dropped := insertCanonical(t, c, b)
		require.Empty(t, dropped)
	}
	require.Equal(t, chain[2].Hash(), c.CurrentBlock().Hash())
}

func TestSetCanonicalSiblingForkDropsOldBranch(t *testing.T) {
	genesis := NewGenesisBlock(DefaultGenesisConfig())
	c := NewChain(genesis)
	main := GeneratePreMergeChain(genesis, 2, big.NewInt(1))
	for _, b := range main {
		insertCanonical(t, c, b)
	}

	// A sibling of main[1] with different extradata, so it hashes
	// differently despite sharing main[1]'s parent and number.
	siblingHeader := &types.Header{
		ParentHash: main[0].Hash(),
		UncleHash:  types.EmptyUncleHash,
		Root:       main[0].Root(),
		TxHash:     types.EmptyRootHash,
		Number:     new(big.Int).Set(main[1].Number()),
		GasLimit:   main[1].GasLimit(),
		Time:       main[1].Time(),
		Extra:      []byte("sibling"),
		Difficulty: big.NewInt(1),
		BaseFee:    main[1].BaseFee(),
	}
	sibling := types.NewBlockWithHeader(siblingHeader)
	require.NotEqual(t, main[1].Hash(), sibling.Hash())

	dropped := insertCanonical(t, c, sibling)
	require.Equal(t, []*types.Block{main[1]}, dropped)
	require.Equal(t, sibling.Hash(), c.CurrentBlock().Hash())
	require.Equal(t, sibling.Hash(), c.canonical[2])
}

// TestSetCanonicalRevertToShorterAncestor exercises the "forkchoiceUpdated
// back to an ancestor" shape: the new head is shorter than the current head
// and already canonical up to the fork point. A correct
// SetCanonical must walk the *old* head down to the fork point to compute
// the dropped set, and must scrub the canonical index above the new head.
func TestSetCanonicalRevertToShorterAncestor(t *testing.T) {
	genesis := NewGenesisBlock(DefaultGenesisConfig())
	c := NewChain(genesis)
	chain := GeneratePreMergeChain(genesis, 3, big.NewInt(1))
	for _, b := range chain {
		insertCanonical(t, c, b)
	}
	require.Equal(t, chain[2].Hash(), c.CurrentBlock().Hash())

	dropped, err := c.SetCanonical(chain[0])
	require.NoError(t, err)
	require.Equal(t, []*types.Block{chain[1], chain[2]}, dropped)

	require.Equal(t, chain[0].Hash(), c.CurrentBlock().Hash())
	require.Equal(t, uint64(1), c.headNum)

	// The stale entries above the new head must not linger in the
	// canonical index, or a later GetHeader(hash, number) style lookup at
	// those numbers would still resolve to the reverted-away blocks.
	_, stillPresent := c.canonical[2]
	require.False(t, stillPresent)
	_, stillPresent = c.canonical[3]
	require.False(t, stillPresent)
	require.Equal(t, chain[0].Hash(), c.canonical[1])
}

func TestGetCanonicalHashTracksHead(t *testing.T) {
	genesis := NewGenesisBlock(DefaultGenesisConfig())
	c := NewChain(genesis)
	chain := GeneratePreMergeChain(genesis, 2, big.NewInt(1))
	for _, b := range chain {
		insertCanonical(t, c, b)
	}

	require.Equal(t, genesis.Hash(), c.GetCanonicalHash(0))
	require.Equal(t, chain[0].Hash(), c.GetCanonicalHash(1))
	require.Equal(t, chain[1].Hash(), c.GetCanonicalHash(2))
	require.Equal(t, common.Hash{}, c.GetCanonicalHash(3))

	_, err := c.SetCanonical(chain[0])
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, c.GetCanonicalHash(2))
}

func TestPruneStateMakesStateUnavailable(t *testing.T) {
	genesis := NewGenesisBlock(DefaultGenesisConfig())
	c := NewChain(genesis)

	require.True(t, c.HasBlockAndState(genesis.Hash(), 0))
	c.PruneState(genesis.Hash())
	require.False(t, c.HasBlockAndState(genesis.Hash(), 0))
	// The block and header themselves stay readable.
	require.NotNil(t, c.GetBlock(genesis.Hash(), 0))
	require.NotNil(t, c.GetHeaderByHash(genesis.Hash()))
}

func TestInsertSideBlockRejectsUnknownParent(t *testing.T) {
	genesis := NewGenesisBlock(DefaultGenesisConfig())
	c := NewChain(genesis)
	orphan := &types.Header{
		ParentHash: common.HexToHash("0xdead"),
		Number:     big.NewInt(1),
		Difficulty: big.NewInt(1),
	}
	err := c.InsertSideBlock(types.NewBlockWithHeader(orphan), common.Hash{}, common.Hash{}, types.Bloom{}, 0)
	require.Error(t, err)
}
