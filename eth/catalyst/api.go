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

// Package catalyst implements the Engine API surface a consensus client
// drives: newPayload, forkchoiceUpdated, getPayload and
// exchangeTransitionConfiguration, plus the Payload Cache and fork-choice
// bookkeeping those calls share.
package catalyst

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/pallaschain/pallas/beacon/engine"
	"github.com/pallaschain/pallas/consensus/beacon"
	"github.com/pallaschain/pallas/consensus/merge"
	"github.com/pallaschain/pallas/core/chainio"
	"github.com/pallaschain/pallas/miner"
)

// ConsensusAPI implements the four Engine API methods on top of a chain
// database, a state executor, a transaction pool, the Payload Assembler and
// the Merge Latch. One instance serves every consensus-client connection;
// forkchoiceLock and newPayloadLock serialize the two request families the
// way a single event-loop thread would, without requiring one.
type ConsensusAPI struct {
	chain  chainio.Database
	exec   chainio.Executor
	pool   chainio.TxPool
	miner  *miner.Miner
	merger *merge.Merger

	ttd                 *big.Int
	terminalBlockHash   common.Hash
	terminalBlockNumber uint64

	payloads *payloadQueue
	headers  *headerQueue
	invalid  *invalidChains
	beat     *beaconHeartbeat

	forkchoiceLock sync.Mutex
	newPayloadLock sync.Mutex
}

// NewConsensusAPI builds a ConsensusAPI wired to the given collaborators and
// starts its beacon-liveness heartbeat. payloadCacheN sizes both halves of
// the Payload Cache (config.EngineConfig.PayloadCacheN); a value <= 0 falls
// back to defaultPayloadCacheCapacity. Callers should call Stop on shutdown.
func NewConsensusAPI(chain chainio.Database, exec chainio.Executor, pool chainio.TxPool, m *miner.Miner, merger *merge.Merger, ttd *big.Int, terminalBlockHash common.Hash, terminalBlockNumber uint64, payloadCacheN int) *ConsensusAPI {
	api := &ConsensusAPI{
		chain:               chain,
		exec:                exec,
		pool:                pool,
		miner:               m,
		merger:              merger,
		ttd:                 ttd,
		terminalBlockHash:   terminalBlockHash,
		terminalBlockNumber: terminalBlockNumber,
		payloads:            newPayloadQueue(payloadCacheN),
		headers:             newHeaderQueue(payloadCacheN),
		invalid:             newInvalidChains(),
		beat:                newBeaconHeartbeat(),
	}
	go api.beat.run()
	return api
}

// Stop shuts down the background heartbeat goroutine.
func (api *ConsensusAPI) Stop() {
	api.beat.Stop()
}

// NewPayloadV1 implements engine_newPayloadV1.
func (api *ConsensusAPI) NewPayloadV1(params engine.ExecutableData) (engine.PayloadStatusV1, error) {
	api.newPayloadLock.Lock()
	defer api.newPayloadLock.Unlock()
	api.beat.markNewPayload()

	block, err := engine.ExecutableDataToBlock(params)
	if err != nil {
		if err == engine.InvalidBlockHash {
			zero := common.Hash{}
			msg := "blockhash mismatch"
			return engine.PayloadStatusV1{Status: engine.INVALID, LatestValidHash: &zero, ValidationError: &msg}, nil
		}
		msg := err.Error()
		return engine.PayloadStatusV1{Status: engine.INVALID, ValidationError: &msg}, nil
	}

	// Idempotent: a block already stored has already been judged VALID.
	if existing := api.chain.GetBlock(block.Hash(), block.NumberU64()); existing != nil {
		hash := block.Hash()
		return engine.PayloadStatusV1{Status: engine.VALID, LatestValidHash: &hash}, nil
	}

	// A block rejected before, or one descending from a rejected ancestor,
	// is refused from the bookkeeping without re-running execution.
	if res := api.invalid.checkInvalidAncestor(block.Hash(), block.Hash()); res != nil {
		return *res, nil
	}
	if res := api.invalid.checkInvalidAncestor(block.ParentHash(), block.Hash()); res != nil {
		return *res, nil
	}

	parent := api.chain.GetHeaderByHash(block.ParentHash())
	if parent == nil {
		// Execution must never trigger a reorg on its own; buffer the block
		// and let a later forkchoiceUpdated resolve it.
		api.headers.put(block.Hash(), block)
		return engine.PayloadStatusV1{Status: engine.SYNCING}, nil
	}

	parentTd := api.chain.GetTd(parent.Hash(), parent.Number.Uint64())
	if parentTd == nil || parentTd.Cmp(api.ttd) < 0 {
		zero := common.Hash{}
		msg := "pre-merge payload rejected"
		return engine.PayloadStatusV1{Status: engine.INVALID, LatestValidHash: &zero, ValidationError: &msg}, nil
	}

	if err := beacon.VerifyHeader(block.Header(), parent); err != nil {
		head := api.chain.CurrentBlock().Hash()
		api.invalid.setInvalidAncestor(block.Header(), block.Header())
		msg := (&chainio.HeaderRejected{Reason: err}).Error()
		return engine.PayloadStatusV1{Status: engine.INVALID, LatestValidHash: &head, ValidationError: &msg}, nil
	}

	if !api.chain.HasBlockAndState(parent.Hash(), parent.Number.Uint64()) {
		api.headers.put(block.Hash(), block)
		return engine.PayloadStatusV1{Status: engine.ACCEPTED, LatestValidHash: api.latestValidAncestor(parent)}, nil
	}

	stateRoot, receiptsRoot, logsBloom, gasUsed, err := api.exec.Execute(block.Header(), &types.Body{Transactions: block.Transactions()})
	if err != nil {
		ancestor := api.latestValidAncestor(parent)
		api.invalid.setInvalidAncestor(block.Header(), block.Header())
		msg := err.Error()
		return engine.PayloadStatusV1{Status: engine.INVALID, LatestValidHash: ancestor, ValidationError: &msg}, nil
	}
	if stateRoot != block.Root() {
		ancestor := api.latestValidAncestor(parent)
		api.invalid.setInvalidAncestor(block.Header(), block.Header())
		msg := (&chainio.StateMismatch{Expected: block.Root(), Got: stateRoot}).Error()
		return engine.PayloadStatusV1{Status: engine.INVALID, LatestValidHash: ancestor, ValidationError: &msg}, nil
	}

	if err := api.chain.InsertSideBlock(block, stateRoot, receiptsRoot, logsBloom, gasUsed); err != nil {
		return engine.PayloadStatusV1{}, err
	}
	api.merger.ReachTTD()

	hash := block.Hash()
	return engine.PayloadStatusV1{Status: engine.VALID, LatestValidHash: &hash}, nil
}

// ForkchoiceUpdatedV1 implements engine_forkchoiceUpdatedV1.
func (api *ConsensusAPI) ForkchoiceUpdatedV1(state engine.ForkchoiceStateV1, attrs *engine.PayloadAttributes) (engine.ForkChoiceResponse, error) {
	api.forkchoiceLock.Lock()
	defer api.forkchoiceLock.Unlock()
	api.beat.markForkchoiceUpdate()

	if state.HeadBlockHash == (common.Hash{}) {
		return engine.STATUS_INVALID, nil
	}

	if res := api.invalid.checkInvalidAncestor(state.HeadBlockHash, state.HeadBlockHash); res != nil {
		return engine.ForkChoiceResponse{PayloadStatus: *res}, nil
	}

	head := api.chain.GetHeaderByHash(state.HeadBlockHash)
	if head == nil {
		buffered := api.headers.get(state.HeadBlockHash)
		if buffered == nil {
			return engine.STATUS_SYNCING, nil
		}
		resolved, err := api.resolveBuffered(buffered)
		if err != nil {
			return engine.STATUS_SYNCING, nil
		}
		head = resolved
	}

	// A pre-merge head is acceptable only if it is the terminal block: its
	// own total difficulty must have reached the terminal threshold while
	// its parent's must not have. Anything else would reorg proof-of-work
	// history after the transition.
	if head.Difficulty.Sign() > 0 || head.Number.Sign() == 0 {
		td := api.chain.GetTd(head.Hash(), head.Number.Uint64())
		var ptd *big.Int
		if head.Number.Sign() > 0 {
			ptd = api.chain.GetTd(head.ParentHash, head.Number.Uint64()-1)
		}
		if td == nil || (head.Number.Sign() > 0 && ptd == nil) {
			log.Error("TDs unavailable for TTD check", "number", head.Number, "hash", head.Hash())
			return engine.STATUS_INVALID, errors.New("TDs unavailable for TTD check")
		}
		if td.Cmp(api.ttd) < 0 {
			log.Warn("Refusing beacon update to pre-merge head", "number", head.Number, "hash", head.Hash())
			return engine.ForkChoiceResponse{PayloadStatus: engine.INVALID_TERMINAL_BLOCK}, nil
		}
		if head.Number.Sign() > 0 && ptd.Cmp(api.ttd) >= 0 {
			log.Warn("Parent of the announced head is already post-merge", "number", head.Number, "hash", head.Hash())
			return engine.ForkChoiceResponse{PayloadStatus: engine.INVALID_TERMINAL_BLOCK}, nil
		}
	}

	current := api.chain.CurrentBlock()
	if head.Hash() != current.Hash() {
		block := api.chain.GetBlock(head.Hash(), head.Number.Uint64())
		if block == nil {
			// Not yet executed by either newPayload or the buffered-resolve
			// path above: nothing to make canonical yet.
			return engine.STATUS_SYNCING, nil
		}
		dropped, err := api.chain.SetCanonical(block)
		if err != nil {
			ancestor := api.latestValidAncestor(current)
			msg := err.Error()
			return engine.ForkChoiceResponse{PayloadStatus: engine.PayloadStatusV1{
				Status:          engine.INVALID,
				LatestValidHash: ancestor,
				ValidationError: &msg,
			}}, nil
		}
		api.pool.HeadChanged(head, chainio.FlattenTransactions(dropped))
	}

	if state.FinalizedBlockHash != (common.Hash{}) {
		if err := api.verifyCanonical(state.FinalizedBlockHash); err != nil {
			return engine.ForkChoiceResponse{}, engine.InvalidForkChoiceState.With(err)
		}
		// Once set, the finalized pointer may only move forward.
		final := api.chain.GetHeaderByHash(state.FinalizedBlockHash)
		if prev := api.chain.FinalizedBlock(); prev != nil && final.Number.Cmp(prev.Number) < 0 {
			return engine.ForkChoiceResponse{}, engine.InvalidForkChoiceState.With(fmt.Errorf("finalized block %v regresses behind %v", final.Number, prev.Number))
		}
		api.chain.SetFinalized(state.FinalizedBlockHash)
		api.merger.FinalizePoS()
	}

	if state.SafeBlockHash != (common.Hash{}) {
		if err := api.verifyCanonical(state.SafeBlockHash); err != nil {
			return engine.ForkChoiceResponse{}, engine.InvalidForkChoiceState.With(err)
		}
		api.chain.SetSafe(state.SafeBlockHash)
	}

	headHash := head.Hash()
	status := engine.PayloadStatusV1{Status: engine.VALID, LatestValidHash: &headHash}

	if attrs == nil {
		return engine.ForkChoiceResponse{PayloadStatus: status}, nil
	}

	args := &miner.BuildPayloadArgs{
		Parent:       head.Hash(),
		Timestamp:    attrs.Timestamp,
		Random:       attrs.Random,
		FeeRecipient: attrs.SuggestedFeeRecipient,
	}
	payload, err := api.miner.BuildPayload(args)
	if err != nil {
		return engine.ForkChoiceResponse{}, engine.InvalidPayloadAttributes.With(err)
	}
	id := args.Id()
	api.payloads.put(id, payload)
	return engine.ForkChoiceResponse{PayloadStatus: status, PayloadID: &id}, nil
}

// resolveBuffered executes a block that was previously buffered by
// NewPayloadV1 because its parent was unknown or its state unavailable, now
// that a forkchoiceUpdated call names it as head. It returns an error if the
// parent is still missing, leaving the block buffered for a later attempt.
func (api *ConsensusAPI) resolveBuffered(block *types.Block) (*types.Header, error) {
	if existing := api.chain.GetBlock(block.Hash(), block.NumberU64()); existing != nil {
		return existing.Header(), nil
	}
	parent := api.chain.GetHeaderByHash(block.ParentHash())
	if parent == nil || !api.chain.HasBlockAndState(parent.Hash(), parent.Number.Uint64()) {
		return nil, fmt.Errorf("parent state unavailable for buffered block %x", block.Hash())
	}
	if err := beacon.VerifyHeader(block.Header(), parent); err != nil {
		api.invalid.setInvalidAncestor(block.Header(), block.Header())
		return nil, &chainio.HeaderRejected{Reason: err}
	}
	stateRoot, receiptsRoot, logsBloom, gasUsed, err := api.exec.Execute(block.Header(), &types.Body{Transactions: block.Transactions()})
	if err != nil {
		api.invalid.setInvalidAncestor(block.Header(), block.Header())
		return nil, err
	}
	if stateRoot != block.Root() {
		api.invalid.setInvalidAncestor(block.Header(), block.Header())
		return nil, &chainio.StateMismatch{Expected: block.Root(), Got: stateRoot}
	}
	if err := api.chain.InsertSideBlock(block, stateRoot, receiptsRoot, logsBloom, gasUsed); err != nil {
		return nil, err
	}
	api.merger.ReachTTD()
	return block.Header(), nil
}

// verifyCanonical checks that hash names a locally known header whose
// canonical-number entry is that same hash, the precondition both the
// finalized and safe pointers must satisfy before they are persisted.
func (api *ConsensusAPI) verifyCanonical(hash common.Hash) error {
	header := api.chain.GetHeaderByHash(hash)
	if header == nil {
		return fmt.Errorf("unknown header %x", hash)
	}
	if api.chain.GetCanonicalHash(header.Number.Uint64()) != hash {
		return fmt.Errorf("header %x is not canonical at number %d", hash, header.Number.Uint64())
	}
	return nil
}

// GetPayloadV1 implements engine_getPayloadV1.
func (api *ConsensusAPI) GetPayloadV1(payloadID engine.PayloadID) (*engine.ExecutionPayloadEnvelope, error) {
	envelope := api.payloads.get(payloadID)
	if envelope == nil {
		return nil, engine.UnknownPayload
	}
	return envelope, nil
}

// ExchangeTransitionConfigurationV1 implements
// engine_exchangeTransitionConfigurationV1.
func (api *ConsensusAPI) ExchangeTransitionConfigurationV1(config engine.TransitionConfigurationV1) (*engine.TransitionConfigurationV1, error) {
	if config.TerminalTotalDifficulty == nil {
		return nil, engine.InvalidParams.With(errors.New("missing terminal total difficulty"))
	}
	if (*big.Int)(config.TerminalTotalDifficulty).Cmp(api.ttd) != 0 {
		return nil, engine.InvalidParams.With(fmt.Errorf("invalid terminal total difficulty: execution %v, consensus %v", api.ttd, (*big.Int)(config.TerminalTotalDifficulty)))
	}
	if config.TerminalBlockHash != (common.Hash{}) {
		if header := api.chain.GetHeader(config.TerminalBlockHash, uint64(config.TerminalBlockNumber)); header == nil {
			return nil, engine.InvalidParams.With(errors.New("invalid terminal block hash"))
		}
	}
	api.beat.markTransition()
	return &engine.TransitionConfigurationV1{
		TerminalTotalDifficulty: (*hexutil.Big)(api.ttd),
		TerminalBlockHash:       api.terminalBlockHash,
		TerminalBlockNumber:     hexutil.Uint64(api.terminalBlockNumber),
	}, nil
}

// ExchangeCapabilities reports the Engine API methods this driver serves, the
// ambient housekeeping call every real consensus/execution pairing makes on
// connection before exchanging any payloads.
func (api *ConsensusAPI) ExchangeCapabilities([]string) []string {
	return []string{
		"engine_newPayloadV1",
		"engine_forkchoiceUpdatedV1",
		"engine_getPayloadV1",
		"engine_exchangeTransitionConfigurationV1",
		"engine_exchangeCapabilities",
	}
}

// latestValidAncestor walks header's ancestors until it finds one whose
// total difficulty reached the terminal threshold, returning the zero hash
// if the chain never crosses it.
func (api *ConsensusAPI) latestValidAncestor(header *types.Header) *common.Hash {
	for header != nil {
		if td := api.chain.GetTd(header.Hash(), header.Number.Uint64()); td != nil && td.Cmp(api.ttd) >= 0 {
			hash := header.Hash()
			return &hash
		}
		header = api.chain.GetHeaderByHash(header.ParentHash)
	}
	zero := common.Hash{}
	return &zero
}
