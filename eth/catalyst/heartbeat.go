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
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const (
	// beaconUpdateStartupTimeout is how long to stay quiet on startup before
	// warning about a missing beacon client; give one a chance to attach.
	beaconUpdateStartupTimeout = 30 * time.Second

	// beaconUpdateConsensusTimeout is the longest gap allowed between
	// forkchoiceUpdated/newPayload calls before the node suspects its beacon
	// client has gone quiet.
	beaconUpdateConsensusTimeout = 2 * time.Minute

	// beaconUpdateWarnFrequency caps how often the warning repeats so a
	// long outage doesn't spam the log.
	beaconUpdateWarnFrequency = 5 * time.Minute
)

// beaconHeartbeat tracks the most recent Engine API calls received from a
// consensus client and raises a log warning when they stop arriving, so an
// operator can tell "never had one" apart from "had one, it went quiet".
type beaconHeartbeat struct {
	mu                   sync.Mutex
	lastTransitionUpdate time.Time
	lastForkchoiceUpdate time.Time
	lastNewPayloadUpdate time.Time

	stop chan struct{}
}

func newBeaconHeartbeat() *beaconHeartbeat {
	return &beaconHeartbeat{stop: make(chan struct{})}
}

func (h *beaconHeartbeat) markTransition() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTransitionUpdate = time.Now()
}

func (h *beaconHeartbeat) markForkchoiceUpdate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastForkchoiceUpdate = time.Now()
}

func (h *beaconHeartbeat) markNewPayload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastNewPayloadUpdate = time.Now()
}

// run loops until stopped, periodically checking whether a consensus-client
// update has been seen recently and logging a warning when it hasn't.
func (h *beaconHeartbeat) run() {
	timer := time.NewTimer(beaconUpdateStartupTimeout)
	defer timer.Stop()

	select {
	case <-h.stop:
		return
	case <-timer.C:
	}

	var offlineLogged time.Time
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		h.mu.Lock()
		lastTransitionUpdate := h.lastTransitionUpdate
		lastForkchoiceUpdate := h.lastForkchoiceUpdate
		lastNewPayloadUpdate := h.lastNewPayloadUpdate
		h.mu.Unlock()

		if time.Since(lastForkchoiceUpdate) <= beaconUpdateConsensusTimeout || time.Since(lastNewPayloadUpdate) <= beaconUpdateConsensusTimeout {
			offlineLogged = time.Time{}
			continue
		}

		if time.Since(offlineLogged) > beaconUpdateWarnFrequency {
			switch {
			case lastForkchoiceUpdate.IsZero() && lastNewPayloadUpdate.IsZero() && lastTransitionUpdate.IsZero():
				log.Warn("No beacon client seen. Please launch one to follow the chain!")
			case lastForkchoiceUpdate.IsZero() && lastNewPayloadUpdate.IsZero():
				log.Warn("Beacon client online, but never received consensus updates. Please ensure your beacon client is operational to follow the chain!")
			default:
				log.Warn("Beacon client online, but no consensus updates received in a while. Please fix your beacon client to follow the chain!")
			}
			offlineLogged = time.Now()
		}
	}
}

func (h *beaconHeartbeat) Stop() {
	close(h.stop)
}
