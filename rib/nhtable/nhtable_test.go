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

package nhtable

import (
	"fmt"
	"net/netip"
	"testing"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

func resolved(t *testing.T, gw string, egress, weight uint32) nexthop.Resolved {
	t.Helper()
	a, err := netip.ParseAddr(gw)
	if err != nil {
		t.Fatalf("invalid address %s: %v", gw, err)
	}
	return nexthop.Resolved{Gateway: a, Egress: ribtypes.InterfaceId(egress), Weight: weight}
}

func TestSingleEntryGroupNotDeduplicated(t *testing.T) {
	tbl := New()
	nhs := []nexthop.Resolved{resolved(t, "10.0.0.1", 1, 0)}
	if h := tbl.Acquire(nhs); h != NoHandle {
		t.Fatalf("Acquire() of a single-entry group = %d; want NoHandle", h)
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d; want 0 for undeduplicated groups", tbl.Len())
	}
}

func TestIdenticalGroupsShareHandle(t *testing.T) {
	tbl := New()
	a := []nexthop.Resolved{resolved(t, "10.0.0.1", 1, 1), resolved(t, "10.0.0.2", 2, 1)}
	b := []nexthop.Resolved{resolved(t, "10.0.0.1", 1, 1), resolved(t, "10.0.0.2", 2, 1)}

	h1 := tbl.Acquire(a)
	h2 := tbl.Acquire(b)
	if h1 != h2 {
		t.Fatalf("Acquire() of identical groups returned different handles: %d vs %d", h1, h2)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", tbl.Len())
	}
	if rc := tbl.RefCount(h1); rc != 2 {
		t.Fatalf("RefCount() = %d; want 2", rc)
	}
}

func TestReleaseRemovesAtZero(t *testing.T) {
	tbl := New()
	nhs := []nexthop.Resolved{resolved(t, "10.0.0.1", 1, 1), resolved(t, "10.0.0.2", 2, 1)}

	h := tbl.Acquire(nhs)
	tbl.Acquire(nhs)
	tbl.Release(h)
	if tbl.RefCount(h) != 1 {
		t.Fatalf("RefCount() after one release = %d; want 1", tbl.RefCount(h))
	}
	tbl.Release(h)
	if _, ok := tbl.Group(h); ok {
		t.Fatalf("Group() found entry after refcount reached zero")
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d after last release; want 0", tbl.Len())
	}
}

func TestDistinctGroupsGetDistinctHandles(t *testing.T) {
	tbl := New()
	a := []nexthop.Resolved{resolved(t, "10.0.0.1", 1, 1), resolved(t, "10.0.0.2", 2, 1)}
	b := []nexthop.Resolved{resolved(t, "10.0.0.3", 3, 1), resolved(t, "10.0.0.4", 4, 1)}

	h1 := tbl.Acquire(a)
	h2 := tbl.Acquire(b)
	if h1 == h2 {
		t.Fatalf("distinct groups got the same handle %d", h1)
	}
}

func TestLargeECMPGroup(t *testing.T) {
	tbl := New()
	var nhs []nexthop.Resolved
	for i := 0; i < 256; i++ {
		nhs = append(nhs, resolved(t, fmt.Sprintf("10.0.%d.%d", i/256, i%256), uint32(i), 1))
	}
	h := tbl.Acquire(nhs)
	if h == NoHandle {
		t.Fatalf("Acquire() of 256-way group returned NoHandle")
	}
	got, ok := tbl.Group(h)
	if !ok || len(got) != 256 {
		t.Fatalf("Group() = %d entries, %v; want 256, true", len(got), ok)
	}
}
