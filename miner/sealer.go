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
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/pallaschain/pallas/beacon/engine"
	"github.com/pallaschain/pallas/consensus/beacon"
	"github.com/pallaschain/pallas/consensus/clique"
	"github.com/pallaschain/pallas/consensus/merge"
	"github.com/pallaschain/pallas/core/chainio"
)

// Sealer drives the pre-merge block-production control loop:
// every cliquePeriod it assembles a block from the pool, has the clique
// signer produce a seal, and installs the result as the new canonical tip.
// It is a single-threaded periodic task, not a persistent goroutine-per-
// request service, so it needs no locking beyond what the Chain Inserter
// already provides.
type Sealer struct {
	chain  chainio.Database
	exec   chainio.Executor
	pool   chainio.TxPool
	signer *clique.Signer
	merger *merge.Merger
	period time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewSealer builds a Sealer that stops producing blocks permanently once
// merger reports TTDReached.
func NewSealer(chain chainio.Database, exec chainio.Executor, pool chainio.TxPool, signer *clique.Signer, merger *merge.Merger, period time.Duration) *Sealer {
	return &Sealer{
		chain:  chain,
		exec:   exec,
		pool:   pool,
		signer: signer,
		merger: merger,
		period: period,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the sealing loop in a new goroutine. Stop cancels it; Wait
// blocks until the goroutine has returned.
func (s *Sealer) Start() {
	go s.loop()
}

// Stop cancels the sealing loop. It is safe to call once; the loop aborts
// at its next tick or sleep, never in the middle of sealing a block.
func (s *Sealer) Stop() {
	close(s.stop)
}

// Wait blocks until the sealing loop has exited.
func (s *Sealer) Wait() {
	<-s.done
}

func (s *Sealer) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.merger.TTDReached() {
				log.Info("Sealing loop stopping", "reason", "terminal total difficulty reached")
				return
			}
			if err := s.sealOne(); err != nil {
				log.Warn("Sealing loop failed to produce a block", "err", err)
			}
		}
	}
}

// sealOne assembles, seals, and imports exactly one block on top of the
// current canonical head.
func (s *Sealer) sealOne() error {
	parent := s.chain.CurrentBlock()
	pending := s.pool.Pending()
	header := &types.Header{
		ParentHash: parent.Hash(),
		UncleHash:  types.EmptyUncleHash,
		Coinbase:   s.signer.Address(),
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		GasLimit:   parent.GasLimit,
		Time:       parent.Time + uint64(s.period.Seconds()),
		Extra:      []byte{},
		TxHash:     engine.DeriveTxHash(pending),
		BaseFee:    beacon.NextBaseFee(parent),
	}

	body := &types.Body{Transactions: pending}
	stateRoot, receiptsRoot, logsBloom, gasUsed, err := s.exec.Execute(header, body)
	if err != nil {
		return err
	}
	header.Root = stateRoot
	header.ReceiptHash = receiptsRoot
	header.Bloom = logsBloom
	header.GasUsed = gasUsed

	if err := s.signer.Seal(header); err != nil {
		return err
	}

	block := types.NewBlockWithHeader(header).WithBody(body.Transactions, nil)
	if err := s.chain.InsertSideBlock(block, stateRoot, receiptsRoot, logsBloom, gasUsed); err != nil {
		return err
	}
	dropped, err := s.chain.SetCanonical(block)
	if err != nil {
		return err
	}
	s.pool.HeadChanged(header, chainio.FlattenTransactions(dropped))
	return nil
}
