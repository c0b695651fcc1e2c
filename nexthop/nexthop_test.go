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

package nexthop

import (
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dendisuhubdy/fboss/ribtypes"
)

func addr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatalf("invalid address %s: %v", s, err)
	}
	return a
}

func TestNormalizeUnresolved(t *testing.T) {
	tests := []struct {
		desc    string
		in      []Unresolved
		want    []Unresolved
		wantErr bool
	}{
		{
			desc: "drops zero gateway",
			in: []Unresolved{
				{Gateway: netip.Addr{}},
				{Gateway: addr(t, "10.0.0.1"), Weight: 1},
			},
			want: []Unresolved{{Gateway: addr(t, "10.0.0.1"), Weight: 1}},
		},
		{
			desc: "collapses duplicates summing weight",
			in: []Unresolved{
				{Gateway: addr(t, "10.0.0.1"), Weight: 3},
				{Gateway: addr(t, "10.0.0.1"), Weight: 4},
			},
			want: []Unresolved{{Gateway: addr(t, "10.0.0.1"), Weight: 7}},
		},
		{
			desc: "any zero weight forces equal-cost",
			in: []Unresolved{
				{Gateway: addr(t, "10.0.0.1"), Weight: 5},
				{Gateway: addr(t, "10.0.0.2"), Weight: 0},
			},
			want: []Unresolved{
				{Gateway: addr(t, "10.0.0.1"), Weight: 0},
				{Gateway: addr(t, "10.0.0.2"), Weight: 0},
			},
		},
		{
			desc: "link-local without scope is rejected",
			in: []Unresolved{
				{Gateway: addr(t, "169.254.0.1"), Weight: 1},
			},
			wantErr: true,
		},
		{
			desc: "link-local with scope is accepted",
			in: []Unresolved{
				{Gateway: addr(t, "fe80::1"), Weight: 1, Interface: ribtypes.InterfaceId(1), HasInterface: true},
			},
			want: []Unresolved{
				{Gateway: addr(t, "fe80::1"), Weight: 1, Interface: ribtypes.InterfaceId(1), HasInterface: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := NormalizeUnresolved(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeUnresolved() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got, cmp.Comparer(func(a, b netip.Addr) bool { return a == b })); diff != "" {
				t.Fatalf("NormalizeUnresolved() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsLinkLocal(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"169.254.1.1", true},
		{"10.0.0.1", false},
		{"fe80::1", true},
		{"2001:db8::1", false},
	}
	for _, tt := range tests {
		if got := IsLinkLocal(addr(t, tt.addr)); got != tt.want {
			t.Errorf("IsLinkLocal(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestNormalizeResolvedECMPWeightShare(t *testing.T) {
	in := []Resolved{
		{Gateway: addr(t, "10.0.0.1"), Egress: 1, Weight: 1},
		{Gateway: addr(t, "10.0.0.1"), Egress: 1, Weight: 1},
		{Gateway: addr(t, "10.0.0.2"), Egress: 2, Weight: 2},
	}
	got := NormalizeResolved(in)
	if len(got) != 2 {
		t.Fatalf("NormalizeResolved() returned %d entries; want 2", len(got))
	}
	var total uint32
	for _, nh := range got {
		total += nh.Weight
	}
	if total != 4 {
		t.Fatalf("total weight = %d; want 4 (1+1+2)", total)
	}
}
