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

// Package clique implements the minimal pre-merge PoA seal the Sealing Loop
// applies to each block it proposes: a single authorized signer's ECDSA
// signature over the header, in the last 65 bytes of extradata, exactly as
// the upstream clique engine lays it out. Validator-set voting and
// snapshotting are out of scope here: this driver runs a single fixed
// signer acting as a sealing collaborator, not a full consensus engine.
package clique

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	extraVanity = 32 // fixed number of leading bytes reserved for signer vanity
	extraSeal   = 65 // fixed number of trailing bytes reserved for the signer seal
)

// diffInTurn is the block difficulty assigned to every block this single
// fixed signer produces; the in-turn/out-of-turn distinction only matters
// once more than one authorized signer rotates, which this driver's single-
// signer Sealing Loop never exercises.
var diffInTurn = big.NewInt(2)

var errUnauthorizedSigner = errors.New("header signed by an address other than the configured signer")

// Signer seals headers on behalf of a single fixed PoA authority.
type Signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewSigner wraps a private key as the sole sealing authority.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the signer's account address.
func (s *Signer) Address() common.Address {
	return s.addr
}

// Seal fills in header.Extra's vanity/seal layout and signs the result,
// mutating header in place. The caller is expected to have already set
// every other header field (number, parent hash, state root, gas
// accounting, timestamp); Seal sets Difficulty to diffInTurn (2) and adds
// the PoA authorization.
func (s *Signer) Seal(header *types.Header) error {
	header.Extra = make([]byte, extraVanity+extraSeal)
	header.Difficulty = new(big.Int).Set(diffInTurn)
	sighash, err := crypto.Sign(SealHash(header).Bytes(), s.key)
	if err != nil {
		return err
	}
	copy(header.Extra[len(header.Extra)-extraSeal:], sighash)
	return nil
}

// Recover returns the address that sealed header, or an error if the
// signature is malformed.
func Recover(header *types.Header) (common.Address, error) {
	if len(header.Extra) < extraSeal {
		return common.Address{}, errors.New("extra-data too short to hold a seal")
	}
	sig := header.Extra[len(header.Extra)-extraSeal:]
	pubkey, err := crypto.Ecrecover(SealHash(header).Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	var addr common.Address
	copy(addr[:], crypto.Keccak256(pubkey[1:])[12:])
	return addr, nil
}

// VerifySeal checks that header was signed by signer.
func VerifySeal(header *types.Header, signer common.Address) error {
	got, err := Recover(header)
	if err != nil {
		return err
	}
	if got != signer {
		return errUnauthorizedSigner
	}
	return nil
}

// SealHash returns the hash of a header prior to it being sealed: identical
// to the header's ordinary RLP hash except that the trailing extraSeal bytes
// of extradata (the seal itself) are excluded, since the signature cannot
// cover its own bytes.
func SealHash(header *types.Header) common.Hash {
	stripped := types.CopyHeader(header)
	if len(stripped.Extra) >= extraSeal {
		stripped.Extra = stripped.Extra[:len(stripped.Extra)-extraSeal]
	}
	hasher := crypto.NewKeccakState()
	rlp.Encode(hasher, stripped)
	var hash common.Hash
	hasher.Read(hash[:])
	return hash
}
