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

// Package prefixtable implements a longest-prefix-match container: a
// single generic type instantiated once for IPv4 and once for IPv6. The
// heavy lifting -- O(W) longest-prefix lookup -- is delegated to a
// crit-bit trie (github.com/k-sone/critbitgo), the same structure
// production BGP speakers in Go build their LPM route tables on. Exact
// lookup goes through a map keyed by the canonical prefix.
package prefixtable

import (
	"net"
	"net/netip"

	"github.com/k-sone/critbitgo"
)

// Table is a longest-prefix-match container keyed by (network, mask
// length), parameterized by the value type V. A Table is not safe for
// concurrent use; callers (the RIB/RouteUpdater) serialize access with
// their own lock.
//
// The trie (net) only ever stores the canonical netip.Prefix as its value;
// the actual V payload lives in entries, keyed by that same canonical
// prefix. This keeps the generic bookkeeping (Table[V]) decoupled from
// critbitgo's interface{}-typed API.
type Table[V any] struct {
	net     *critbitgo.Net
	entries map[netip.Prefix]V
}

// New returns an empty prefix table.
func New[V any]() *Table[V] {
	return &Table[V]{
		net:     critbitgo.NewNet(),
		entries: map[netip.Prefix]V{},
	}
}

// Len returns the number of bindings currently stored.
func (t *Table[V]) Len() int {
	return len(t.entries)
}

// Insert binds prefix to value, replacing any existing binding. It returns
// the previous value and true if one existed. The prefix is canonicalized
// (host bits outside the mask are cleared) before being stored.
func (t *Table[V]) Insert(prefix netip.Prefix, value V) (V, bool) {
	prefix = prefix.Masked()

	old, hadOld := t.entries[prefix]
	ipnet := toIPNet(prefix)
	if hadOld {
		// critbitgo.Net.Add does not implicitly replace an existing leaf,
		// so drop it first to avoid accumulating duplicate entries for
		// the same key.
		_, _, _ = t.net.Delete(ipnet)
	}

	// The error return of Add is only non-nil for a malformed *net.IPNet,
	// which toIPNet never produces.
	_ = t.net.Add(ipnet, prefix)
	t.entries[prefix] = value

	return old, hadOld
}

// Remove deletes the exact binding for prefix. It is a no-op if prefix is
// not present.
func (t *Table[V]) Remove(prefix netip.Prefix) {
	prefix = prefix.Masked()
	if _, ok := t.entries[prefix]; !ok {
		return
	}
	delete(t.entries, prefix)
	_, _, _ = t.net.Delete(toIPNet(prefix))
}

// Get returns the exact binding for prefix, if any.
func (t *Table[V]) Get(prefix netip.Prefix) (V, bool) {
	v, ok := t.entries[prefix.Masked()]
	return v, ok
}

// LongestMatch returns the binding whose prefix is the longest that covers
// addr. The zero value and false are returned if the table is empty or no
// stored prefix covers addr.
func (t *Table[V]) LongestMatch(addr netip.Addr) (netip.Prefix, V, bool) {
	var zero V
	if len(t.entries) == 0 {
		return netip.Prefix{}, zero, false
	}

	route, val, err := t.net.Match(hostNet(addr))
	if err != nil || route == nil {
		return netip.Prefix{}, zero, false
	}

	matched := val.(netip.Prefix)
	v, ok := t.entries[matched]
	if !ok {
		// Can't happen unless net and entries have drifted out of sync.
		return netip.Prefix{}, zero, false
	}
	return matched, v, true
}

// Iter calls fn once for each (prefix, value) binding in the table. Iter
// stops early if fn returns false. Iteration order is unspecified;
// callers that need a deterministic order must sort.
func (t *Table[V]) Iter(fn func(netip.Prefix, V) bool) {
	for p, v := range t.entries {
		if !fn(p, v) {
			return
		}
	}
}

// toIPNet converts a canonical netip.Prefix to the *net.IPNet form
// critbitgo's API expects.
func toIPNet(p netip.Prefix) *net.IPNet {
	addr := p.Addr()
	return &net.IPNet{
		IP:   net.IP(addr.AsSlice()),
		Mask: net.CIDRMask(p.Bits(), addr.BitLen()),
	}
}

// hostNet builds a host (/32 or /128) *net.IPNet for addr, suitable for a
// longest-prefix "Match" query against a critbitgo.Net.
func hostNet(addr netip.Addr) *net.IPNet {
	bits := addr.BitLen()
	return &net.IPNet{
		IP:   net.IP(addr.AsSlice()),
		Mask: net.CIDRMask(bits, bits),
	}
}
