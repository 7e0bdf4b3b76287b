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

func TestStubPoolHeadChangedReinjectsDroppedTransactions(t *testing.T) {
	p := NewStubPool()
	stale := types.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	p.Add(stale)

	reinject := types.NewTransaction(1, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	p.HeadChanged(&types.Header{Number: big.NewInt(1)}, []*types.Transaction{reinject})

	require.Equal(t, []*types.Transaction{reinject}, p.Pending())
}

func TestStubPoolTracksCurrentHead(t *testing.T) {
	p := NewStubPool()
	require.Equal(t, common.Hash{}, p.CurrentHead())

	head := &types.Header{Number: big.NewInt(1)}
	p.HeadChanged(head, nil)
	require.Equal(t, head.Hash(), p.CurrentHead())
}

func TestStubPoolHeadChangedWithNoReinjectEmptiesPool(t *testing.T) {
	p := NewStubPool()
	p.Add(types.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil))

	p.HeadChanged(&types.Header{Number: big.NewInt(1)}, nil)

	require.Empty(t, p.Pending())
}
