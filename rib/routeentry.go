// Copyright 2026 The Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rib

import (
	"fmt"
	"net/netip"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

// EntryState is the RouteEntry lifecycle state machine:
//
//	EMPTY -> HAS_CANDIDATES -> RESOLVING -> RESOLVED | UNRESOLVED
//	HAS_CANDIDATES -> EMPTY (last candidate removed, entry destroyed)
type EntryState int

const (
	StateEmpty EntryState = iota
	StateHasCandidates
	StateResolving
	StateResolved
	StateUnresolved
)

func (s EntryState) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateHasCandidates:
		return "HAS_CANDIDATES"
	case StateResolving:
		return "RESOLVING"
	case StateResolved:
		return "RESOLVED"
	case StateUnresolved:
		return "UNRESOLVED"
	default:
		return "UNKNOWN"
	}
}

// Resolution is the cached result of resolving a RouteEntry's best
// candidate. Exactly one of the three outcomes applies:
// NextHops is populated (Action == ActionNextHops), Action is
// ActionDrop/ActionToCPU, or the entry is unresolved.
type Resolution struct {
	Action   nexthop.Action
	NextHops []nexthop.Resolved
}

// RouteEntry is one prefix's multi-client state: a mapping from client to
// candidate entry, plus the cached result of the last commit's resolution.
type RouteEntry struct {
	Prefix netip.Prefix

	candidates map[ribtypes.ClientId]nexthop.Candidate

	state      EntryState
	resolution Resolution
	connected  bool
}

// NewRouteEntry returns an empty RouteEntry for prefix. An entry with no
// candidates does not really "exist"; callers create one only as part of
// adding its first candidate.
func NewRouteEntry(prefix netip.Prefix) *RouteEntry {
	return &RouteEntry{
		Prefix:     prefix,
		candidates: map[ribtypes.ClientId]nexthop.Candidate{},
		state:      StateEmpty,
	}
}

// AddOrReplace inserts or replaces client's candidate and invalidates the
// cached resolution.
func (e *RouteEntry) AddOrReplace(client ribtypes.ClientId, c nexthop.Candidate) {
	e.candidates[client] = c
	e.state = StateHasCandidates
}

// Remove deletes client's candidate. It returns true if the entry is now
// empty and should be destroyed by the caller.
func (e *RouteEntry) Remove(client ribtypes.ClientId) bool {
	delete(e.candidates, client)
	if len(e.candidates) == 0 {
		e.state = StateEmpty
		return true
	}
	e.state = StateHasCandidates
	return false
}

// Empty reports whether the entry currently has no candidates.
func (e *RouteEntry) Empty() bool {
	return len(e.candidates) == 0
}

// Candidates returns the client -> candidate mapping. The returned map
// must not be mutated by the caller.
func (e *RouteEntry) Candidates() map[ribtypes.ClientId]nexthop.Candidate {
	return e.candidates
}

// Best returns the candidate that wins admin-distance tie-breaking: the
// numerically smallest AdminDistance, ties broken by the fixed
// client-priority order in ribtypes.Priority. It returns false if the
// entry has no candidates.
func (e *RouteEntry) Best() (ribtypes.ClientId, nexthop.Candidate, bool) {
	var (
		bestClient ribtypes.ClientId
		bestCand   nexthop.Candidate
		found      bool
	)

	for client, cand := range e.candidates {
		switch {
		case !found:
			bestClient, bestCand, found = client, cand, true
		case cand.AdminDistance < bestCand.AdminDistance:
			bestClient, bestCand = client, cand
		case cand.AdminDistance == bestCand.AdminDistance &&
			ribtypes.Priority(client) < ribtypes.Priority(bestClient):
			bestClient, bestCand = client, cand
		}
	}

	return bestClient, bestCand, found
}

// State returns the entry's current lifecycle state.
func (e *RouteEntry) State() EntryState {
	return e.state
}

// Connected reports whether the best candidate's owner is the INTERFACE
// client, i.e. this is a directly-connected route.
func (e *RouteEntry) Connected() bool {
	return e.connected
}

// setResolution is called by RouteUpdater.commit to record the outcome of
// resolving this entry, transitioning HAS_CANDIDATES -> RESOLVING ->
// RESOLVED|UNRESOLVED.
func (e *RouteEntry) setResolution(r Resolution, connected bool) {
	e.state = StateResolving
	e.resolution = r
	e.connected = connected
	e.state = StateResolved
}

// setUnresolved marks the entry UNRESOLVED: it is retained in the RIB but
// excluded from the next FIB snapshot.
func (e *RouteEntry) setUnresolved() {
	e.state = StateResolving
	e.resolution = Resolution{}
	e.connected = false
	e.state = StateUnresolved
}

// Resolved returns the cached resolution. It errors if the entry has
// never been resolved in the current commit.
func (e *RouteEntry) Resolved() (Resolution, error) {
	switch e.state {
	case StateResolved:
		return e.resolution, nil
	case StateUnresolved:
		return Resolution{}, fmt.Errorf("rib: prefix %s is unresolved", e.Prefix)
	default:
		return Resolution{}, fmt.Errorf("rib: prefix %s has not been resolved in this commit (state %s)", e.Prefix, e.state)
	}
}
