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

package chainio

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestFlattenTransactionsConcatenatesInBlockOrder(t *testing.T) {
	tx1 := types.NewTransaction(0, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	tx2 := types.NewTransaction(1, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)
	tx3 := types.NewTransaction(2, common.Address{}, big.NewInt(0), 21000, big.NewInt(1), nil)

	older := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(1)}).WithBody([]*types.Transaction{tx1, tx2}, nil)
	newer := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(2)}).WithBody([]*types.Transaction{tx3}, nil)

	got := FlattenTransactions([]*types.Block{older, newer})
	require.Equal(t, []*types.Transaction{tx1, tx2, tx3}, got)
}

func TestFlattenTransactionsHandlesEmptyInput(t *testing.T) {
	require.Nil(t, FlattenTransactions(nil))
}
