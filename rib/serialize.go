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
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/rib/nhtable"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

// jsonNextHop is the wire form of one resolved next hop.
type jsonNextHop struct {
	Gateway  string   `json:"gateway"`
	EgressID uint32   `json:"egressId"`
	Weight   uint32   `json:"weight,omitempty"`
	Labels   []uint32 `json:"labels,omitempty"`
}

// jsonRoute is the wire form of one ForwardingEntry. Exactly one of
// EgressID and ECMPEgressID is populated when Action is NEXTHOPS: the
// former for a single-path route, the latter for a deduplicated group.
type jsonRoute struct {
	Network      string        `json:"network"`
	MaskLen      int           `json:"maskLen"`
	Action       string        `json:"action"`
	ECMP         bool          `json:"ecmp"`
	EgressID     *uint32       `json:"egressId,omitempty"`
	ECMPEgressID *uint64       `json:"ecmpEgressId,omitempty"`
	NextHops     []jsonNextHop `json:"nextHops,omitempty"`
}

// jsonSnapshot is the persisted form of one VRF's ForwardingSnapshot. The
// route list is ordered by (family, network, mask length) so successive
// serializations of equivalent snapshots are byte-identical and
// diffable.
type jsonSnapshot struct {
	VRF    uint32      `json:"vrf"`
	Routes []jsonRoute `json:"routes"`
}

func toJSONRoute(fe ForwardingEntry) jsonRoute {
	jr := jsonRoute{
		Network: fe.Prefix.Addr().String(),
		MaskLen: fe.Prefix.Bits(),
		Action:  fe.Action.String(),
	}
	if fe.Action != nexthop.ActionNextHops {
		return jr
	}

	for _, nh := range fe.NextHops {
		jnh := jsonNextHop{
			Gateway:  nh.Gateway.String(),
			EgressID: uint32(nh.Egress),
			Weight:   nh.Weight,
		}
		for _, l := range nh.Labels {
			jnh.Labels = append(jnh.Labels, uint32(l))
		}
		jr.NextHops = append(jr.NextHops, jnh)
	}

	if fe.ECMP != nhtable.NoHandle {
		jr.ECMP = true
		h := uint64(fe.ECMP)
		jr.ECMPEgressID = &h
	} else if len(fe.NextHops) == 1 {
		e := uint32(fe.NextHops[0].Egress)
		jr.EgressID = &e
	}
	return jr
}

func fromJSONRoute(jr jsonRoute) (ForwardingEntry, error) {
	addr, err := netip.ParseAddr(jr.Network)
	if err != nil {
		return ForwardingEntry{}, fmt.Errorf("rib: bad network %q: %w", jr.Network, err)
	}
	prefix, err := addr.Prefix(jr.MaskLen)
	if err != nil {
		return ForwardingEntry{}, fmt.Errorf("rib: bad mask length %d for %s: %w", jr.MaskLen, jr.Network, err)
	}

	fe := ForwardingEntry{Prefix: prefix}
	switch jr.Action {
	case nexthop.ActionNextHops.String():
		fe.Action = nexthop.ActionNextHops
	case nexthop.ActionDrop.String():
		fe.Action = nexthop.ActionDrop
	case nexthop.ActionToCPU.String():
		fe.Action = nexthop.ActionToCPU
	default:
		return ForwardingEntry{}, fmt.Errorf("rib: unknown action %q for %s", jr.Action, jr.Network)
	}

	for _, jnh := range jr.NextHops {
		gw, err := netip.ParseAddr(jnh.Gateway)
		if err != nil {
			return ForwardingEntry{}, fmt.Errorf("rib: bad gateway %q for %s: %w", jnh.Gateway, jr.Network, err)
		}
		nh := nexthop.Resolved{
			Gateway: gw,
			Egress:  ribtypes.InterfaceId(jnh.EgressID),
			Weight:  jnh.Weight,
		}
		for _, l := range jnh.Labels {
			nh.Labels = append(nh.Labels, nexthop.MPLSLabel(l))
		}
		fe.NextHops = append(fe.NextHops, nh)
	}

	if jr.ECMP {
		if jr.ECMPEgressID == nil {
			return ForwardingEntry{}, fmt.Errorf("rib: ecmp route %s has no ecmpEgressId", jr.Network)
		}
		fe.ECMP = nhtable.Handle(*jr.ECMPEgressID)
	}
	return fe, nil
}

// MarshalSnapshot serializes snap as a deterministic, sorted JSON
// document. The route list concatenates the v4 entries then the v6
// entries, each already ordered by (network, mask length) from BuildFIB.
func MarshalSnapshot(snap *ForwardingSnapshot) ([]byte, error) {
	js := jsonSnapshot{VRF: uint32(snap.VRF)}
	for _, fe := range snap.V4 {
		js.Routes = append(js.Routes, toJSONRoute(fe))
	}
	for _, fe := range snap.V6 {
		js.Routes = append(js.Routes, toJSONRoute(fe))
	}
	return json.MarshalIndent(js, "", "  ")
}

// UnmarshalSnapshot parses a document produced by MarshalSnapshot back
// into a ForwardingSnapshot. Routes are rebucketed by address family; the
// serialized ordering is preserved within each family.
func UnmarshalSnapshot(data []byte) (*ForwardingSnapshot, error) {
	var js jsonSnapshot
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, fmt.Errorf("rib: unmarshal snapshot: %w", err)
	}

	snap := &ForwardingSnapshot{VRF: ribtypes.VrfId(js.VRF)}
	for _, jr := range js.Routes {
		fe, err := fromJSONRoute(jr)
		if err != nil {
			return nil, err
		}
		if fe.Prefix.Addr().Is4() {
			snap.V4 = append(snap.V4, fe)
		} else {
			snap.V6 = append(snap.V6, fe)
		}
	}
	return snap, nil
}
