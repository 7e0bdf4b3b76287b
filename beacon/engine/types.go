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

// Package engine defines the wire types shared between the Engine API
// surface and the rest of the driver: execution payloads, payload
// attributes, fork-choice state, and the status/error taxonomy the
// consensus client observes.
package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// PayloadID is an identifier of the payload build process.
type PayloadID [8]byte

func (p PayloadID) String() string {
	return hexutil.Encode(p[:])
}

func (p PayloadID) MarshalText() ([]byte, error) {
	return hexutil.Bytes(p[:]).MarshalText()
}

func (p *PayloadID) UnmarshalText(input []byte) error {
	err := hexutil.UnmarshalFixedText("PayloadID", input, p[:])
	if err != nil {
		return fmt.Errorf("invalid payload id %q: %w", input, err)
	}
	return nil
}

// PayloadVersion denotes the version of the PayloadID.
type PayloadVersion byte

var PayloadV1 PayloadVersion = 0x1

// PayloadAttributes describes the environment context in which a block
// should be built.
type PayloadAttributes struct {
	Timestamp             uint64         `json:"timestamp"             gencodec:"required"`
	Random                common.Hash    `json:"prevRandao"            gencodec:"required"`
	SuggestedFeeRecipient common.Address `json:"suggestedFeeRecipient" gencodec:"required"`
}

// ExecutableData is the data necessary to execute an EL payload. These fields
// are the ones already present in an execution header/block, that is, fields
// that can be computed from a given execution block without extra data.
type ExecutableData struct {
	ParentHash    common.Hash    `json:"parentHash"    gencodec:"required"`
	FeeRecipient  common.Address `json:"feeRecipient"  gencodec:"required"`
	StateRoot     common.Hash    `json:"stateRoot"     gencodec:"required"`
	ReceiptsRoot  common.Hash    `json:"receiptsRoot"  gencodec:"required"`
	LogsBloom     []byte         `json:"logsBloom"     gencodec:"required"`
	Random        common.Hash    `json:"prevRandao"    gencodec:"required"`
	Number        uint64         `json:"blockNumber"   gencodec:"required"`
	GasLimit      uint64         `json:"gasLimit"      gencodec:"required"`
	GasUsed       uint64         `json:"gasUsed"       gencodec:"required"`
	Timestamp     uint64         `json:"timestamp"     gencodec:"required"`
	ExtraData     []byte         `json:"extraData"     gencodec:"required"`
	BaseFeePerGas *big.Int       `json:"baseFeePerGas" gencodec:"required"`
	BlockHash     common.Hash    `json:"blockHash"      gencodec:"required"`
	Transactions  [][]byte       `json:"transactions"  gencodec:"required"`
}

// ExecutionPayloadEnvelope is the response to GetPayloadV1: the payload plus
// the fee accrued while assembling it. The fee is reported as an informative
// aid for the consensus client; it is not verified by NewPayload.
type ExecutionPayloadEnvelope struct {
	ExecutionPayload *ExecutableData `json:"executionPayload" gencodec:"required"`
	BlockValue       *big.Int        `json:"blockValue"       gencodec:"required"`
}

// JSON type overrides for ExecutableData, mirrored by hand in gen_ed.go since
// gencodec itself cannot be run here.
type executableDataMarshaling struct {
	Number        hexutil.Uint64
	GasLimit      hexutil.Uint64
	GasUsed       hexutil.Uint64
	Timestamp     hexutil.Uint64
	BaseFeePerGas *hexutil.Big
	ExtraData     hexutil.Bytes
	LogsBloom     hexutil.Bytes
	Transactions  []hexutil.Bytes
}

// ForkchoiceStateV1 is the structure sent in a forkchoiceUpdated call.
type ForkchoiceStateV1 struct {
	HeadBlockHash      common.Hash `json:"headBlockHash"      gencodec:"required"`
	SafeBlockHash      common.Hash `json:"safeBlockHash"      gencodec:"required"`
	FinalizedBlockHash common.Hash `json:"finalizedBlockHash" gencodec:"required"`
}

// PayloadStatusV1 is the result of a newPayload or forkchoiceUpdated call.
type PayloadStatusV1 struct {
	Status          string       `json:"status"`
	LatestValidHash *common.Hash `json:"latestValidHash"`
	ValidationError *string      `json:"validationError"`
}

// ForkChoiceResponse is the response to a forkchoiceUpdated call.
type ForkChoiceResponse struct {
	PayloadStatus PayloadStatusV1 `json:"payloadStatus"`
	PayloadID     *PayloadID      `json:"payloadId"`
}

// TransitionConfigurationV1 carries the merge transition parameters both
// sides of the Engine API must agree on bit-exactly.
type TransitionConfigurationV1 struct {
	TerminalTotalDifficulty *hexutil.Big   `json:"terminalTotalDifficulty"`
	TerminalBlockHash       common.Hash    `json:"terminalBlockHash"`
	TerminalBlockNumber     hexutil.Uint64 `json:"terminalBlockNumber"`
}

// Status values that can be returned in PayloadStatusV1.Status.
const (
	VALID                = "VALID"
	INVALID              = "INVALID"
	SYNCING              = "SYNCING"
	ACCEPTED             = "ACCEPTED"
	INVALIDBLOCKHASH     = "INVALID_BLOCK_HASH"
	INVALIDTERMINALBLOCK = "INVALID_TERMINAL_BLOCK"
)

var (
	STATUS_SYNCING = ForkChoiceResponse{PayloadStatus: PayloadStatusV1{Status: SYNCING}, PayloadID: nil}
	STATUS_INVALID = ForkChoiceResponse{PayloadStatus: PayloadStatusV1{Status: INVALID}, PayloadID: nil}
)

// BlockToExecutableData constructs the Engine API wire representation of a
// locally assembled block.
func BlockToExecutableData(block *types.Block) *ExecutableData {
	header := block.Header()
	return &ExecutableData{
		BlockHash:     block.Hash(),
		ParentHash:    header.ParentHash,
		FeeRecipient:  header.Coinbase,
		StateRoot:     header.Root,
		Number:        header.Number.Uint64(),
		GasLimit:      header.GasLimit,
		GasUsed:       header.GasUsed,
		BaseFeePerGas: header.BaseFee,
		Timestamp:     header.Time,
		ReceiptsRoot:  header.ReceiptHash,
		LogsBloom:     header.Bloom[:],
		Transactions:  encodeTransactions(block.Transactions()),
		Random:        header.MixDigest,
		ExtraData:     nonNilSlice(header.Extra),
	}
}

// ExecutableDataToBlock reconstructs a block from its Engine API wire
// representation. When the recomputed block hash differs from
// ExecutableData.BlockHash it returns the block together with
// InvalidBlockHash; NewPayloadV1 maps that error to an INVALID status with a
// zero latestValidHash rather than a decode error.
func ExecutableDataToBlock(params ExecutableData) (*types.Block, error) {
	txs, err := decodeTransactions(params.Transactions)
	if err != nil {
		return nil, err
	}
	if len(params.ExtraData) > 32 {
		return nil, fmt.Errorf("invalid extradata length: %v", len(params.ExtraData))
	}
	if len(params.LogsBloom) != 256 {
		return nil, fmt.Errorf("invalid logsBloom length: %v", len(params.LogsBloom))
	}
	var bloom types.Bloom
	copy(bloom[:], params.LogsBloom)

	header := &types.Header{
		ParentHash:  params.ParentHash,
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    params.FeeRecipient,
		Root:        params.StateRoot,
		TxHash:      DeriveTxHash(txs),
		ReceiptHash: params.ReceiptsRoot,
		Bloom:       bloom,
		Difficulty:  common.Big0,
		Number:      new(big.Int).SetUint64(params.Number),
		GasLimit:    params.GasLimit,
		GasUsed:     params.GasUsed,
		Time:        params.Timestamp,
		BaseFee:     params.BaseFeePerGas,
		Extra:       params.ExtraData,
		MixDigest:   params.Random,
	}
	block := types.NewBlockWithHeader(header).WithBody(txs, nil)
	if block.Hash() != params.BlockHash {
		return block, InvalidBlockHash
	}
	return block, nil
}

func encodeTransactions(txs types.Transactions) [][]byte {
	enc := make([][]byte, len(txs))
	for i, tx := range txs {
		enc[i], _ = tx.MarshalBinary()
	}
	return enc
}

func decodeTransactions(enc [][]byte) ([]*types.Transaction, error) {
	txs := make([]*types.Transaction, len(enc))
	for i, encTx := range enc {
		var tx types.Transaction
		if err := tx.UnmarshalBinary(encTx); err != nil {
			return nil, fmt.Errorf("invalid transaction %d: %v", i, err)
		}
		txs[i] = &tx
	}
	return txs, nil
}

func nonNilSlice(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// DeriveTxHash stands in for the real Merkle-Patricia transaction trie, which
// belongs to the state/trie package this driver treats as an external
// collaborator. It reproduces the one property callers actually depend on:
// the empty list hashes to types.EmptyRootHash, and any other ordered list
// hashes deterministically and collision-resistantly under keccak256 of its
// RLP encoding. Exported so the Payload Assembler can compute the same
// header field before it ever goes through the wire encode/decode round
// trip.
func DeriveTxHash(txs []*types.Transaction) common.Hash {
	if len(txs) == 0 {
		return types.EmptyRootHash
	}
	enc, err := rlp.EncodeToBytes(types.Transactions(txs))
	if err != nil {
		return types.EmptyRootHash
	}
	return crypto.Keccak256Hash(enc)
}

// ComputePayloadId computes an 8-byte identifier by truncating the keccak256
// hash of the head block hash and the serialized payload attributes, per the
// "collision-resistant under honest consensus clients" contract.
func ComputePayloadId(headBlockHash common.Hash, params *PayloadAttributes) PayloadID {
	input := make([]byte, 0, common.HashLength+8+common.HashLength+common.AddressLength)
	input = append(input, headBlockHash[:]...)
	input = appendUint64(input, params.Timestamp)
	input = append(input, params.Random[:]...)
	input = append(input, params.SuggestedFeeRecipient[:]...)
	digest := crypto.Keccak256(input)
	var out PayloadID
	copy(out[:], digest[:8])
	return out
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * (7 - i)))
	}
	return append(b, buf[:]...)
}
