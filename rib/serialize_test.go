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
	"bytes"
	"net/netip"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/rib/nhtable"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

func testSnapshot(t *testing.T) *ForwardingSnapshot {
	t.Helper()
	return &ForwardingSnapshot{
		VRF: ribtypes.DefaultVrf,
		V4: []ForwardingEntry{
			{
				Prefix: mustPrefix(t, "0.0.0.0/0"),
				Action: nexthop.ActionNextHops,
				NextHops: []nexthop.Resolved{
					{Gateway: mustAddr(t, "192.0.2.1"), Egress: ribtypes.InterfaceId(1), Weight: 1},
					{Gateway: mustAddr(t, "198.51.100.1"), Egress: ribtypes.InterfaceId(2), Weight: 1},
				},
				ECMP: nhtable.Handle(3),
			},
			{
				Prefix: mustPrefix(t, "10.0.0.0/8"),
				Action: nexthop.ActionDrop,
			},
			{
				Prefix: mustPrefix(t, "192.0.2.0/24"),
				Action: nexthop.ActionNextHops,
				NextHops: []nexthop.Resolved{
					{Gateway: mustAddr(t, "192.0.2.1"), Egress: ribtypes.InterfaceId(1)},
				},
			},
		},
		V6: []ForwardingEntry{
			{
				Prefix: mustPrefix(t, "fe80::/10"),
				Action: nexthop.ActionToCPU,
			},
			{
				Prefix: mustPrefix(t, "2001:db8::/32"),
				Action: nexthop.ActionNextHops,
				NextHops: []nexthop.Resolved{
					{Gateway: mustAddr(t, "2001:db8::1"), Egress: ribtypes.InterfaceId(4), Labels: []nexthop.MPLSLabel{100, 200}},
				},
			},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	want := testSnapshot(t)

	data, err := MarshalSnapshot(want)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("UnmarshalSnapshot: %v", err)
	}

	if diff := cmp.Diff(want, got, cmpopts.EquateComparable(netip.Addr{}, netip.Prefix{})); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotMarshalDeterministic(t *testing.T) {
	snap := testSnapshot(t)

	a, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalSnapshot #1: %v", err)
	}
	b, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalSnapshot #2: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("serializing the same snapshot twice produced different bytes")
	}
}

func TestSnapshotMarshalFields(t *testing.T) {
	snap := testSnapshot(t)

	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("MarshalSnapshot: %v", err)
	}
	doc := string(data)

	for _, want := range []string{
		`"ecmpEgressId": 3`,
		`"egressId": 1`,
		`"action": "DROP"`,
		`"action": "TO_CPU"`,
		`"network": "fe80::"`,
		`"maskLen": 10`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("serialized document missing %s:\n%s", want, doc)
		}
	}
}

func TestSnapshotUnmarshalRejectsBadInput(t *testing.T) {
	tests := []struct {
		desc string
		doc  string
	}{
		{desc: "not json", doc: "{"},
		{desc: "bad network", doc: `{"vrf":0,"routes":[{"network":"not-an-ip","maskLen":8,"action":"DROP"}]}`},
		{desc: "bad mask length", doc: `{"vrf":0,"routes":[{"network":"10.0.0.0","maskLen":64,"action":"DROP"}]}`},
		{desc: "unknown action", doc: `{"vrf":0,"routes":[{"network":"10.0.0.0","maskLen":8,"action":"TELEPORT"}]}`},
		{desc: "ecmp without handle", doc: `{"vrf":0,"routes":[{"network":"10.0.0.0","maskLen":8,"action":"NEXTHOPS","ecmp":true}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if _, err := UnmarshalSnapshot([]byte(tt.doc)); err == nil {
				t.Fatalf("UnmarshalSnapshot accepted malformed input")
			}
		})
	}
}
