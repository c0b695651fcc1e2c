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

// Package nhtable implements the multipath next-hop table:
// reference-counted deduplication of resolved next-hop groups of size > 1,
// handed out to RouteEntries as a stable handle that the hardware
// programmer can use to recognize a shared ECMP group across successive
// FIB snapshots.
package nhtable

import (
	"sync"

	"github.com/dendisuhubdy/fboss/nexthop"
)

// Handle identifies a deduplicated ECMP group. The zero value, NoHandle,
// means "not deduplicated" -- the caller should use a direct per-entry
// egress. Groups of size 1 never get a table entry.
type Handle uint64

// NoHandle is the handle returned for a next-hop set that doesn't warrant
// deduplication (cardinality <= 1).
const NoHandle Handle = 0

// group is one deduplicated, reference-counted ECMP next-hop set.
type group struct {
	handle   Handle
	nhs      []nexthop.Resolved
	refcount int
}

// Table is the process-wide table of deduplicated next-hop groups,
// shared across every VRF's snapshots. A Table is safe for concurrent
// use.
type Table struct {
	mu       sync.Mutex
	byKey    map[string]*group
	byHandle map[Handle]*group
	next     Handle
}

// New returns an empty multipath next-hop table.
func New() *Table {
	return &Table{
		byKey:    map[string]*group{},
		byHandle: map[Handle]*group{},
	}
}

// groupKey returns the canonical key for an already-normalized, sorted
// next-hop set.
func groupKey(nhs []nexthop.Resolved) string {
	b := make([]byte, 0, 32*len(nhs))
	for _, nh := range nhs {
		g := nh.Gateway.AsSlice()
		b = append(b, byte(len(g)))
		b = append(b, g...)
		b = append(b, byte(nh.Egress>>24), byte(nh.Egress>>16), byte(nh.Egress>>8), byte(nh.Egress))
		b = append(b, byte(nh.Weight>>24), byte(nh.Weight>>16), byte(nh.Weight>>8), byte(nh.Weight))
		for _, l := range nh.Labels {
			b = append(b, byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
		}
		b = append(b, 0xff) // entry separator
	}
	return string(b)
}

// Acquire returns a stable handle for the already-normalized next-hop set
// nhs. Identical groups (by canonical key) share a handle and a reference
// count; Acquire increments that count. A next-hop set with cardinality
// <= 1 is never deduplicated and Acquire returns NoHandle.
func (t *Table) Acquire(nhs []nexthop.Resolved) Handle {
	if len(nhs) <= 1 {
		return NoHandle
	}

	key := groupKey(nhs)

	t.mu.Lock()
	defer t.mu.Unlock()

	if g, ok := t.byKey[key]; ok {
		g.refcount++
		return g.handle
	}

	t.next++
	g := &group{
		handle:   t.next,
		nhs:      append([]nexthop.Resolved(nil), nhs...),
		refcount: 1,
	}
	t.byKey[key] = g
	t.byHandle[g.handle] = g
	return g.handle
}

// Release decrements the reference count for handle. Once the count
// reaches zero the group is removed from the table. Release is a no-op
// for NoHandle or an unknown handle (e.g. a double release).
func (t *Table) Release(handle Handle) {
	if handle == NoHandle {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.byHandle[handle]
	if !ok {
		return
	}
	g.refcount--
	if g.refcount <= 0 {
		delete(t.byHandle, handle)
		delete(t.byKey, groupKey(g.nhs))
	}
}

// Group returns the next-hop set registered under handle.
func (t *Table) Group(handle Handle) ([]nexthop.Resolved, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.byHandle[handle]
	if !ok {
		return nil, false
	}
	return append([]nexthop.Resolved(nil), g.nhs...), true
}

// RefCount returns the current reference count for handle, or 0 if the
// handle is unknown. Exposed for tests and introspection only.
func (t *Table) RefCount(handle Handle) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.byHandle[handle]
	if !ok {
		return 0
	}
	return g.refcount
}

// Len returns the number of distinct ECMP groups currently tracked.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byHandle)
}
