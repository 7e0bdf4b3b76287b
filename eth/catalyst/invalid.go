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

package catalyst

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/pallaschain/pallas/beacon/engine"
)

const (
	// invalidBlockHitEviction is how many times a chain tip can be rejected
	// against the same bad ancestor before the bookkeeping is dropped and the
	// chain is given a chance to be reprocessed, in case the original failure
	// was a data race rather than a genuine invalidity.
	invalidBlockHitEviction = 128

	// invalidTipsetsCap bounds the invalid-tipset map so a hostile or
	// confused peer feeding an endless stream of bad chains cannot grow it
	// without bound.
	invalidTipsetsCap = 512
)

// invalidChains tracks descendants of blocks that failed validation so that
// repeated submissions of the same bad chain short-circuit instead of
// re-running execution every time.
type invalidChains struct {
	mu                sync.Mutex
	invalidBlocksHits map[common.Hash]int
	invalidTipsets    map[common.Hash]*types.Header
	descendants       mapset.Set[common.Hash]
}

func newInvalidChains() *invalidChains {
	return &invalidChains{
		invalidBlocksHits: make(map[common.Hash]int),
		invalidTipsets:    make(map[common.Hash]*types.Header),
		descendants:       mapset.NewSet[common.Hash](),
	}
}

// setInvalidAncestor records that head's chain links back to the bad header
// invalid, discovered while processing origin.
func (c *invalidChains) setInvalidAncestor(invalid *types.Header, origin *types.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidTipsets[origin.Hash()] = invalid
	c.descendants.Add(origin.Hash())
	c.invalidBlocksHits[invalid.Hash()]++
}

// checkInvalidAncestor reports whether check links to a previously rejected
// ancestor. If it does, it builds the INVALID PayloadStatusV1 the caller
// should return instead of re-running validation; a nil result means check
// is not known to be bad.
func (c *invalidChains) checkInvalidAncestor(check, head common.Hash) *engine.PayloadStatusV1 {
	c.mu.Lock()
	defer c.mu.Unlock()

	invalid, ok := c.invalidTipsets[check]
	if !ok {
		return nil
	}
	badHash := invalid.Hash()

	c.invalidBlocksHits[badHash]++
	if c.invalidBlocksHits[badHash] >= invalidBlockHitEviction {
		log.Warn("Too many bad block import attempts, evicting", "number", invalid.Number, "hash", badHash)
		delete(c.invalidBlocksHits, badHash)
		for descendant, badHeader := range c.invalidTipsets {
			if badHeader.Hash() == badHash {
				delete(c.invalidTipsets, descendant)
				c.descendants.Remove(descendant)
			}
		}
		return nil
	}

	if check != head {
		log.Warn("Marked new chain head as invalid", "hash", head, "badnumber", invalid.Number, "badhash", badHash)
		for c.descendants.Cardinality() >= invalidTipsetsCap {
			for key := range c.invalidTipsets {
				delete(c.invalidTipsets, key)
				c.descendants.Remove(key)
				break
			}
		}
		c.invalidTipsets[head] = invalid
		c.descendants.Add(head)
	}

	lastValid := invalid.ParentHash
	failure := "links to previously rejected block"
	return &engine.PayloadStatusV1{
		Status:          engine.INVALID,
		LatestValidHash: &lastValid,
		ValidationError: &failure,
	}
}
