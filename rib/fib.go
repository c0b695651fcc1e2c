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
	"net/netip"
	"sort"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/prefixtable"
	"github.com/dendisuhubdy/fboss/rib/nhtable"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

// ForwardingEntry is one prefix's flattened forwarding instruction within
// a ForwardingSnapshot.
type ForwardingEntry struct {
	Prefix   netip.Prefix
	Action   nexthop.Action
	NextHops []nexthop.Resolved  // meaningful only when Action == ActionNextHops
	ECMP     nhtable.Handle      // nhtable.NoHandle when len(NextHops) <= 1
}

// ForwardingSnapshot is the immutable (v4, v6) forwarding table BuildFIB
// produces after a committed RouteUpdater transaction. No field is ever
// mutated after construction, so it may be shared freely between the
// RIB's last-applied pointer and any reader, including the hardware
// programmer.
type ForwardingSnapshot struct {
	VRF ribtypes.VrfId
	V4  []ForwardingEntry
	V6  []ForwardingEntry
}

// ecmpHandles returns the distinct nhtable handles snap references, used
// by the RIB to release a superseded snapshot's group references.
func (snap *ForwardingSnapshot) ecmpHandles() []nhtable.Handle {
	if snap == nil {
		return nil
	}
	var out []nhtable.Handle
	for _, fe := range snap.V4 {
		if fe.ECMP != nhtable.NoHandle {
			out = append(out, fe.ECMP)
		}
	}
	for _, fe := range snap.V6 {
		if fe.ECMP != nhtable.NoHandle {
			out = append(out, fe.ECMP)
		}
	}
	return out
}

// BuildFIB scans tables' committed RouteEntries and materializes the
// RESOLVED subset into a new ForwardingSnapshot, acquiring an nhtable
// handle for any next-hop group of cardinality > 1. UNRESOLVED entries,
// and entries that have never been resolved in this commit, are skipped.
func BuildFIB(vrf ribtypes.VrfId, tables *vrfTables, nht *nhtable.Table) *ForwardingSnapshot {
	return &ForwardingSnapshot{
		VRF: vrf,
		V4:  buildFamily(tables.v4, nht),
		V6:  buildFamily(tables.v6, nht),
	}
}

func buildFamily(tbl *prefixtable.Table[*RouteEntry], nht *nhtable.Table) []ForwardingEntry {
	out := make([]ForwardingEntry, 0, tbl.Len())
	tbl.Iter(func(p netip.Prefix, e *RouteEntry) bool {
		res, err := e.Resolved()
		if err != nil {
			return true // UNRESOLVED, or never resolved this commit.
		}
		fe := ForwardingEntry{Prefix: p, Action: res.Action, NextHops: res.NextHops}
		if res.Action == nexthop.ActionNextHops {
			fe.ECMP = nht.Acquire(res.NextHops)
		}
		out = append(out, fe)
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		return comparePrefix(out[i].Prefix, out[j].Prefix) < 0
	})
	return out
}

// comparePrefix orders prefixes by (network, mask length) so snapshots
// and the serialized route list stay byte-stable across runs.
func comparePrefix(a, b netip.Prefix) int {
	aAddr, bAddr := a.Addr().As16(), b.Addr().As16()
	for i := range aAddr {
		if aAddr[i] != bAddr[i] {
			if aAddr[i] < bAddr[i] {
				return -1
			}
			return 1
		}
	}
	return a.Bits() - b.Bits()
}
