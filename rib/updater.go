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

	"github.com/eapache/queue"
	"golang.org/x/sync/errgroup"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/prefixtable"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

// MaxResolutionDepth bounds recursive next-hop resolution.
const MaxResolutionDepth = 32

var (
	linkLocalV6 = netip.MustParsePrefix("fe80::/10")
	linkLocalV4 = netip.MustParsePrefix("169.254.0.0/16")
)

// vrfTables is one VRF's pair of longest-prefix-match route tables,
// exclusively owned by the RIB.
type vrfTables struct {
	v4 *prefixtable.Table[*RouteEntry]
	v6 *prefixtable.Table[*RouteEntry]
}

func newVRFTables() *vrfTables {
	return &vrfTables{
		v4: prefixtable.New[*RouteEntry](),
		v6: prefixtable.New[*RouteEntry](),
	}
}

// tableFor returns the v4 or v6 table that prefix belongs in; the two
// tables never mix address families.
func (t *vrfTables) tableFor(prefix netip.Prefix) (*prefixtable.Table[*RouteEntry], error) {
	if err := validatePrefixFamily(prefix); err != nil {
		return nil, err
	}
	if prefix.Addr().Is4() {
		return t.v4, nil
	}
	return t.v6, nil
}

// validatePrefixFamily checks that prefix is well-formed and belongs to
// a known address family, independent of any particular VRF's table
// state. Kept table-independent so callers (RIB.Update, RIB.Reconfigure)
// can pre-validate an entire batch and fail the whole transaction before
// mutating anything.
func validatePrefixFamily(prefix netip.Prefix) error {
	if !prefix.IsValid() {
		return errInvalidPrefix(prefix, "invalid prefix")
	}
	if !prefix.Addr().Is4() && !prefix.Addr().Is6() {
		return errInvalidPrefix(prefix, "neither IPv4 nor IPv6")
	}
	return nil
}

// validateCandidate checks and normalizes cand in place, independent of
// any particular VRF's table state, for the same pre-mutation batch
// validation reason as validatePrefixFamily.
func validateCandidate(cand *nexthop.Candidate) error {
	if cand.AdminDistance == ribtypes.MaxAdminDistance {
		return errInvalidAdminDistance(cand.AdminDistance)
	}
	if err := cand.Validate(); err != nil {
		return errInvalidNextHop(err.Error())
	}
	for _, nh := range cand.NextHops {
		for _, l := range nh.Labels {
			if l > nexthop.MaxMPLSLabel {
				return errInvalidLabel(l)
			}
		}
	}
	return nil
}

// RouteUpdater is a single transaction's mutation engine over one VRF's
// (v4, v6) prefix maps. It is not reusable across transactions:
// RIB.Update/SyncFib/Reconfigure construct one, drive it through add/del
// calls, and call Commit exactly once.
type RouteUpdater struct {
	vrf    ribtypes.VrfId
	tables *vrfTables

	touched map[netip.Prefix]bool // prefixes mutated this transaction
	created map[netip.Prefix]bool // of touched, those newly created

	stats UpdateStatistics
}

func newRouteUpdater(vrf ribtypes.VrfId, tables *vrfTables) *RouteUpdater {
	return &RouteUpdater{
		vrf:     vrf,
		tables:  tables,
		touched: map[netip.Prefix]bool{},
		created: map[netip.Prefix]bool{},
	}
}

// Add installs or replaces client's candidate for prefix. The candidate
// is validated and normalized before being stored; an invalid candidate
// returns an error without mutating the RIB.
func (u *RouteUpdater) Add(prefix netip.Prefix, client ribtypes.ClientId, cand nexthop.Candidate) error {
	prefix = prefix.Masked()

	if err := validateCandidate(&cand); err != nil {
		return err
	}

	tbl, err := u.tables.tableFor(prefix)
	if err != nil {
		return err
	}

	entry, existed := tbl.Get(prefix)
	if !existed {
		entry = NewRouteEntry(prefix)
		tbl.Insert(prefix, entry)
		u.created[prefix] = true
	}
	entry.AddOrReplace(client, cand)
	u.touched[prefix] = true

	if prefix.Addr().Is4() {
		u.stats.V4Added++
	} else {
		u.stats.V6Added++
	}
	return nil
}

// Del removes client's candidate for prefix. It is a no-op if the prefix,
// or the client's candidate on it, does not exist. An emptied entry is
// pruned from the prefix table.
func (u *RouteUpdater) Del(prefix netip.Prefix, client ribtypes.ClientId) error {
	prefix = prefix.Masked()
	tbl, err := u.tables.tableFor(prefix)
	if err != nil {
		return err
	}

	entry, ok := tbl.Get(prefix)
	if !ok {
		return nil
	}
	if _, hadCand := entry.Candidates()[client]; !hadCand {
		return nil
	}

	if entry.Remove(client) {
		tbl.Remove(prefix)
	}
	u.touched[prefix] = true

	if prefix.Addr().Is4() {
		u.stats.V4Deleted++
	} else {
		u.stats.V6Deleted++
	}
	return nil
}

// RemoveAllForClient drops client's candidate from every prefix in both
// address families, pruning any entry left empty.
func (u *RouteUpdater) RemoveAllForClient(client ribtypes.ClientId) {
	for _, tbl := range []*prefixtable.Table[*RouteEntry]{u.tables.v4, u.tables.v6} {
		var toPrune []netip.Prefix
		tbl.Iter(func(p netip.Prefix, e *RouteEntry) bool {
			if _, ok := e.Candidates()[client]; !ok {
				return true
			}
			u.touched[p] = true
			if p.Addr().Is4() {
				u.stats.V4Deleted++
			} else {
				u.stats.V6Deleted++
			}
			if e.Remove(client) {
				toPrune = append(toPrune, p)
			}
			return true
		})
		for _, p := range toPrune {
			tbl.Remove(p)
		}
	}
}

// AddInterfaceRoute installs a connected route under ClientInterface for
// prefix, reachable via iface. gateway becomes this connected route's own
// resolved next hop; routes that resolve recursively through this prefix
// keep their original gateway and adopt only iface as their egress. The
// resolved entry's Connected flag is set once committed.
func (u *RouteUpdater) AddInterfaceRoute(prefix netip.Prefix, gateway netip.Addr, iface ribtypes.InterfaceId) error {
	return u.Add(prefix, ribtypes.ClientInterface, nexthop.Candidate{
		Action: nexthop.ActionNextHops,
		NextHops: []nexthop.Unresolved{{
			Gateway:      gateway,
			Interface:    iface,
			HasInterface: true,
		}},
	})
}

// AddLinkLocalRoutes ensures fe80::/10 and 169.254.0.0/16 exist with
// TO_CPU under ClientLinkLocal. Idempotent: calling it again on a VRF
// that already has them under LINK_LOCAL is a no-op.
func (u *RouteUpdater) AddLinkLocalRoutes() error {
	for _, p := range []netip.Prefix{linkLocalV6, linkLocalV4} {
		tbl, err := u.tables.tableFor(p)
		if err != nil {
			return err
		}
		if entry, ok := tbl.Get(p); ok {
			if _, ok := entry.Candidates()[ribtypes.ClientLinkLocal]; ok {
				continue
			}
		}
		if err := u.Add(p, ribtypes.ClientLinkLocal, nexthop.Candidate{Action: nexthop.ActionToCPU}); err != nil {
			return err
		}
	}
	return nil
}

// Commit runs recursive resolution over both address families and
// returns the transaction's UpdateStatistics. The v4 and v6 tables are
// resolved concurrently: each family's recursion only ever writes to
// RouteEntries that belong to the family its own goroutine is iterating;
// cross-family gateway lookups are read-only and race-free.
func (u *RouteUpdater) Commit() (UpdateStatistics, error) {
	var eg errgroup.Group
	eg.Go(func() error {
		u.resolveTable(u.tables.v4)
		return nil
	})
	eg.Go(func() error {
		u.resolveTable(u.tables.v6)
		return nil
	})
	_ = eg.Wait()
	return u.stats, nil
}

// diffsFor returns the {added, changed, removed} diff for every prefix
// this transaction touched, for UpdateLogger to fire.
func (u *RouteUpdater) diffsFor(vrf ribtypes.VrfId) []RouteDiff {
	var out []RouteDiff
	for p := range u.touched {
		tbl, err := u.tables.tableFor(p)
		if err != nil {
			continue
		}
		if _, ok := tbl.Get(p); !ok {
			out = append(out, RouteDiff{VRF: vrf, Prefix: p, Kind: DiffRemoved})
			continue
		}
		kind := DiffChanged
		if u.created[p] {
			kind = DiffAdded
		}
		out = append(out, RouteDiff{VRF: vrf, Prefix: p, Kind: kind})
	}
	return out
}

func (u *RouteUpdater) resolveTable(tbl *prefixtable.Table[*RouteEntry]) {
	tbl.Iter(func(_ netip.Prefix, entry *RouteEntry) bool {
		u.resolveEntry(entry)
		return true
	})
}

// resolveEntry resolves entry's best candidate.
func (u *RouteUpdater) resolveEntry(entry *RouteEntry) {
	bestClient, cand, ok := entry.Best()
	if !ok {
		return
	}

	switch cand.Action {
	case nexthop.ActionDrop:
		entry.setResolution(Resolution{Action: nexthop.ActionDrop}, false)
		return
	case nexthop.ActionToCPU:
		entry.setResolution(Resolution{Action: nexthop.ActionToCPU}, false)
		return
	}

	if bestClient == ribtypes.ClientInterface {
		// Connected: the candidate's own next hops already name the
		// egress interface; resolution terminates here.
		resolved := make([]nexthop.Resolved, 0, len(cand.NextHops))
		for _, nh := range cand.NextHops {
			resolved = append(resolved, nexthop.Resolved{
				Gateway: nh.Gateway,
				Egress:  nh.Interface,
				Weight:  nh.Weight,
				Labels:  nh.Labels,
			})
		}
		entry.setResolution(Resolution{
			Action:   nexthop.ActionNextHops,
			NextHops: nexthop.NormalizeResolved(resolved),
		}, true)
		return
	}

	var (
		allResolved  []nexthop.Resolved
		shortCircuit nexthop.Action = -1
		anyFailed    bool
	)

	for _, nh := range cand.NextHops {
		paths, outcome := u.resolveNextHop(nh, entry.Prefix)
		switch outcome {
		case resolveOK:
			allResolved = append(allResolved, paths...)
		case resolveDrop:
			shortCircuit = nexthop.ActionDrop
		case resolveToCPU:
			shortCircuit = nexthop.ActionToCPU
		case resolveFailed:
			anyFailed = true
		}
	}

	switch {
	case shortCircuit == nexthop.ActionDrop:
		entry.setResolution(Resolution{Action: nexthop.ActionDrop}, false)
	case shortCircuit == nexthop.ActionToCPU:
		entry.setResolution(Resolution{Action: nexthop.ActionToCPU}, false)
	case anyFailed || len(allResolved) == 0:
		entry.setUnresolved()
	default:
		entry.setResolution(Resolution{
			Action:   nexthop.ActionNextHops,
			NextHops: nexthop.NormalizeResolved(allResolved),
		}, false)
	}
}

// resolveOutcome classifies how one unresolved next hop's recursive
// chain terminated.
type resolveOutcome int

const (
	resolveOK resolveOutcome = iota
	resolveDrop
	resolveToCPU
	resolveFailed
)

// frontierItem is one pending lookup in resolveNextHop's worklist: the
// address to look up, the weight share and label stack it carries
// forward, and how many hops of recursion produced it. The original
// gateway is not part of the item; it stays constant for the whole
// chain and is emitted on every terminal path.
type frontierItem struct {
	lookup netip.Addr
	weight uint32
	labels []nexthop.MPLSLabel
	depth  int
}

// resolveNextHop follows nh's gateway through the same VRF's prefix maps
// up to MaxResolutionDepth. A connected route terminates a path, keeping
// the original gateway IP but adopting the connected route's egress
// interface; intermediate routes only redirect the lookup, they never
// replace the gateway. Fanning out into a NEXTHOPS entry divides the
// carried weight share across its next hops. The worklist is an explicit
// FIFO (github.com/eapache/queue) rather than native recursion, so depth
// tracking and ECMP fanout are both simple queue operations.
func (u *RouteUpdater) resolveNextHop(nh nexthop.Unresolved, ownPrefix netip.Prefix) ([]nexthop.Resolved, resolveOutcome) {
	q := queue.New()
	q.Add(frontierItem{lookup: nh.Gateway, weight: nh.Weight, labels: nh.Labels, depth: 0})

	var out []nexthop.Resolved
	for q.Length() > 0 {
		item := q.Remove().(frontierItem)

		if item.depth > MaxResolutionDepth {
			return nil, resolveFailed
		}

		tbl := u.tables.v4
		if item.lookup.Is6() {
			tbl = u.tables.v6
		}

		matched, target, ok := tbl.LongestMatch(item.lookup)
		if !ok {
			return nil, resolveFailed
		}

		bestClient, cand, ok := target.Best()
		if !ok {
			return nil, resolveFailed
		}

		if matched == ownPrefix && bestClient != ribtypes.ClientInterface {
			// A gateway whose longest match is its own prefix does not
			// self-resolve unless that match is connected.
			return nil, resolveFailed
		}

		switch {
		case bestClient == ribtypes.ClientInterface:
			for _, tnh := range cand.NextHops {
				out = append(out, nexthop.Resolved{
					Gateway: nh.Gateway,
					Egress:  tnh.Interface,
					Weight:  item.weight,
					Labels:  item.labels,
				})
			}
		case cand.Action == nexthop.ActionDrop:
			return nil, resolveDrop
		case cand.Action == nexthop.ActionToCPU:
			return nil, resolveToCPU
		default: // NEXTHOPS, not connected: keep walking.
			n := uint32(len(cand.NextHops))
			if n == 0 {
				continue
			}
			for _, tnh := range cand.NextHops {
				w := item.weight
				if w != 0 {
					w /= n
					if w == 0 {
						w = 1
					}
				}
				q.Add(frontierItem{lookup: tnh.Gateway, weight: w, labels: item.labels, depth: item.depth + 1})
			}
		}
	}

	if len(out) == 0 {
		return nil, resolveFailed
	}
	return out, resolveOK
}
