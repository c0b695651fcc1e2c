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

// Package nexthop implements the next-hop model: the unresolved
// (client-supplied) next hop, the per-client candidate entry that wraps
// it, and the resolved forwarding next hop that a RouteUpdater commit
// produces. Normalization (dedup, weight-policy, link-local scope
// checking) lives here since it's the same logic regardless of whether the
// next-hop set belongs to an unresolved candidate or an already-resolved
// one.
package nexthop

import (
	"fmt"
	"net/netip"
	"sort"

	"lukechampine.com/uint128"

	"github.com/dendisuhubdy/fboss/ribtypes"
)

// MaxMPLSLabel is the largest legal MPLS label value (20 bits).
const MaxMPLSLabel = 1_048_575

// MPLSLabel is a single label in an ordered MPLS label stack.
type MPLSLabel uint32

// Action describes what a candidate entry (or its resolution) does with
// matching traffic.
type Action int

const (
	// ActionNextHops forwards to the next-hop set.
	ActionNextHops Action = iota
	// ActionDrop silently discards matching traffic.
	ActionDrop
	// ActionToCPU punts matching traffic to the control plane.
	ActionToCPU
)

func (a Action) String() string {
	switch a {
	case ActionNextHops:
		return "NEXTHOPS"
	case ActionDrop:
		return "DROP"
	case ActionToCPU:
		return "TO_CPU"
	default:
		return "UNKNOWN"
	}
}

// Unresolved is a single client-supplied next hop: a gateway address, an
// optional interface scope (required when the gateway is link-local), a
// weight, and an optional MPLS label stack.
type Unresolved struct {
	Gateway      netip.Addr
	Interface    ribtypes.InterfaceId
	HasInterface bool
	Weight       uint32
	Labels       []MPLSLabel
}

// key returns the (gateway, labels) identity used to collapse duplicate
// next hops during normalization.
func (n Unresolved) key() string {
	b := make([]byte, 0, 20+4*len(n.Labels))
	b = append(b, n.Gateway.AsSlice()...)
	for _, l := range n.Labels {
		b = append(b, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
	}
	return string(b)
}

// Resolved is the resolved forwarding next hop produced by RouteUpdater
// resolution: the original gateway, the resolved egress interface, a
// weight, and the carried-through label stack.
type Resolved struct {
	Gateway netip.Addr
	Egress  ribtypes.InterfaceId
	Weight  uint32
	Labels  []MPLSLabel
}

func (n Resolved) key() string {
	b := make([]byte, 0, 24+4*len(n.Labels))
	b = append(b, n.Gateway.AsSlice()...)
	b = append(b, byte(n.Egress>>24), byte(n.Egress>>16), byte(n.Egress>>8), byte(n.Egress))
	for _, l := range n.Labels {
		b = append(b, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
	}
	return string(b)
}

// addrKey returns a big-endian, family-agnostic sort key for addr using
// uint128 arithmetic, so IPv4 and IPv6 gateways can share one canonical
// ordering (addresses compare as unsigned big-endian byte sequences).
func addrKey(addr netip.Addr) uint128.Uint128 {
	if addr.Is4() {
		a4 := addr.As4()
		return uint128.FromBytesBE(append(make([]byte, 12), a4[:]...))
	}
	a16 := addr.As16()
	return uint128.FromBytesBE(a16[:])
}

// IsLinkLocal reports whether addr falls in fe80::/10 or 169.254.0.0/16,
// the two ranges reserved for the LINK_LOCAL client.
func IsLinkLocal(addr netip.Addr) bool {
	switch {
	case addr.Is4():
		return netip.MustParsePrefix("169.254.0.0/16").Contains(addr)
	case addr.Is6():
		return netip.MustParsePrefix("fe80::/10").Contains(addr)
	default:
		return false
	}
}

// NormalizeUnresolved normalizes an unresolved next-hop set:
//
//  1. entries with a zero/invalid gateway are dropped (only meaningful
//     when action is NEXTHOPS; callers with a DROP/TO_CPU candidate
//     should not call this).
//  2. duplicate (gateway, labels) entries are collapsed, summing weight;
//     if any surviving weight is zero the whole set becomes equal-cost
//     (all weights reset to zero).
//  3. a link-local gateway without an interface scope is rejected.
func NormalizeUnresolved(nhs []Unresolved) ([]Unresolved, error) {
	byKey := map[string]*Unresolved{}
	order := []string{}

	for _, nh := range nhs {
		if !nh.Gateway.IsValid() || nh.Gateway.IsUnspecified() {
			continue
		}
		if IsLinkLocal(nh.Gateway) && !nh.HasInterface {
			return nil, fmt.Errorf("next hop %s is link-local but has no interface scope", nh.Gateway)
		}

		k := nh.key()
		if existing, ok := byKey[k]; ok {
			existing.Weight += nh.Weight
			continue
		}
		cp := nh
		cp.Labels = append([]MPLSLabel(nil), nh.Labels...)
		byKey[k] = &cp
		order = append(order, k)
	}

	out := make([]Unresolved, 0, len(order))
	anyZero := false
	for _, k := range order {
		out = append(out, *byKey[k])
		if byKey[k].Weight == 0 {
			anyZero = true
		}
	}
	if anyZero {
		for i := range out {
			out[i].Weight = 0
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return addrKey(out[i].Gateway).Cmp(addrKey(out[j].Gateway)) < 0
	})

	return out, nil
}

// NormalizeResolved applies the same dedup/weight-equalization policy as
// NormalizeUnresolved to a set of already-resolved forwarding next hops,
// merging entries that resolved to the same (gateway, egress, labels).
func NormalizeResolved(nhs []Resolved) []Resolved {
	byKey := map[string]*Resolved{}
	order := []string{}

	for _, nh := range nhs {
		k := nh.key()
		if existing, ok := byKey[k]; ok {
			existing.Weight += nh.Weight
			continue
		}
		cp := nh
		cp.Labels = append([]MPLSLabel(nil), nh.Labels...)
		byKey[k] = &cp
		order = append(order, k)
	}

	out := make([]Resolved, 0, len(order))
	anyZero := false
	for _, k := range order {
		out = append(out, *byKey[k])
		if byKey[k].Weight == 0 {
			anyZero = true
		}
	}
	if anyZero {
		for i := range out {
			out[i].Weight = 0
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if c := addrKey(out[i].Gateway).Cmp(addrKey(out[j].Gateway)); c != 0 {
			return c < 0
		}
		return out[i].Egress < out[j].Egress
	})

	return out
}

// Candidate is one client's proposed treatment for a prefix.
type Candidate struct {
	Action        Action
	NextHops      []Unresolved
	AdminDistance ribtypes.AdminDistance
}

// Validate normalizes c's next-hop set in place (when Action is
// ActionNextHops) and rejects malformed candidates.
func (c *Candidate) Validate() error {
	if c.Action != ActionNextHops {
		c.NextHops = nil
		return nil
	}
	nhs, err := NormalizeUnresolved(c.NextHops)
	if err != nil {
		return err
	}
	c.NextHops = nhs
	return nil
}
