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

// Package rib implements the per-VRF Routing Information Base: the
// RouteUpdater mutation engine, recursive next-hop resolution, the
// multipath next-hop table, the FIB builder, and the RIB's top-level
// update/syncFib/reconfigure API.
package rib

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/prefixtable"
	"github.com/dendisuhubdy/fboss/rib/nhtable"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

// ApplyFunc is the external "apply forwarding snapshot" callback. It
// must block until snapshot is either programmed to hardware or durably
// rejected. If it returns an error, the RIB's in-memory state still
// reflects the attempted update; there is no rollback.
type ApplyFunc func(updateType ribtypes.UpdateType, snapshot *ForwardingSnapshot) error

// RouteAdd is one entry of an Update/Reconfigure transaction's add list.
// AdminDistance overrides the transaction's defaultAdminDistance for
// this route only; leave it nil to use the default.
type RouteAdd struct {
	Prefix        netip.Prefix
	Candidate     nexthop.Candidate
	AdminDistance *ribtypes.AdminDistance
}

// InterfaceRoute describes one connected route installed by Reconfigure.
type InterfaceRoute struct {
	Prefix  netip.Prefix
	Gateway netip.Addr
	Iface   ribtypes.InterfaceId
}

// StaticRoute describes one operator-configured static route with a
// next-hop set, installed by Reconfigure's StaticWithNextHops.
type StaticRoute struct {
	Prefix        netip.Prefix
	NextHops      []nexthop.Unresolved
	AdminDistance ribtypes.AdminDistance
}

// ReconfigureConfig is the atomic VRF-set-and-static-table replacement
// input to RIB.Reconfigure.
type ReconfigureConfig struct {
	VRFs               []ribtypes.VrfId
	InterfaceRoutes    map[ribtypes.VrfId][]InterfaceRoute
	StaticWithNextHops map[ribtypes.VrfId][]StaticRoute
	StaticToCPU        map[ribtypes.VrfId][]netip.Prefix
	StaticToNull       map[ribtypes.VrfId][]netip.Prefix
}

// UnicastRoute is one client's candidate for one prefix, as returned by
// the read-only query API.
type UnicastRoute struct {
	Prefix    netip.Prefix
	Client    ribtypes.ClientId
	Candidate nexthop.Candidate
}

// RouteDetails is a prefix's full RIB-side state: its winning candidate
// plus the cached resolution, if any.
type RouteDetails struct {
	Prefix     netip.Prefix
	BestClient ribtypes.ClientId
	Best       nexthop.Candidate
	State      EntryState
	Resolution Resolution
}

// vrfState is everything the RIB keeps for one VRF: its route tables and
// the last ForwardingSnapshot applied for it (kept so a new snapshot can
// release the multipath handles the old one held once it's superseded).
type vrfState struct {
	tables   *vrfTables
	lastSnap *ForwardingSnapshot
}

// RIB is the top-level routing state holder. It owns one (v4, v6)
// route-table pair per VRF, under a single process-wide writer lock,
// and drives RouteUpdater -> BuildFIB -> ApplyFunc -> UpdateLogger on
// every transaction.
type RIB struct {
	// mu guards vrfs and every VRF's route tables. Update, SyncFib, and
	// Reconfigure hold it for the whole transaction, including the
	// caller-supplied ApplyFunc. Read-only queries take the reader lock.
	mu sync.RWMutex

	vrfs map[ribtypes.VrfId]*vrfState
	nht  *nhtable.Table

	logger *UpdateLogger
}

// New returns an empty RIB with no VRFs configured. Call Reconfigure to
// establish the initial VRF set.
func New() *RIB {
	return &RIB{
		vrfs:   map[ribtypes.VrfId]*vrfState{},
		nht:    nhtable.New(),
		logger: NewUpdateLogger(),
	}
}

func (r *RIB) releaseSnapshot(snap *ForwardingSnapshot) {
	for _, h := range snap.ecmpHandles() {
		r.nht.Release(h)
	}
}

// Update runs one transaction against vrf's tables for client: if
// resetClient, first removes all of client's existing
// candidates; applies toDelete; then applies toAdd (adds win over
// deletes of the same prefix, since they run last); commits (running
// recursive resolution); rebuilds the FIB; and invokes applyFn while
// still holding the writer lock. It errors, without mutating the RIB, if
// vrf does not exist.
func (r *RIB) Update(
	vrf ribtypes.VrfId,
	client ribtypes.ClientId,
	defaultAdminDistance ribtypes.AdminDistance,
	toAdd []RouteAdd,
	toDelete []netip.Prefix,
	resetClient bool,
	updateType ribtypes.UpdateType,
	applyFn ApplyFunc,
) (UpdateStatistics, error) {
	start := time.Now()
	txID := uuid.New().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	vs, ok := r.vrfs[vrf]
	if !ok {
		return UpdateStatistics{}, errUnknownVRF(vrf)
	}

	log.V(2).Infof("rib: tx %s %s vrf=%d client=%s reset=%v adds=%d deletes=%d", txID, updateType, vrf, client, resetClient, len(toAdd), len(toDelete))

	// Validate the whole batch before mutating anything: a malformed entry
	// anywhere in toAdd/toDelete fails the transaction with nothing
	// committed, not just aborting partway through.
	for _, p := range toDelete {
		if err := validatePrefixFamily(p); err != nil {
			return UpdateStatistics{}, err
		}
	}
	adds := make([]nexthop.Candidate, len(toAdd))
	for i, ra := range toAdd {
		cand := ra.Candidate
		if ra.AdminDistance != nil {
			cand.AdminDistance = *ra.AdminDistance
		} else {
			cand.AdminDistance = defaultAdminDistance
		}
		if err := validatePrefixFamily(ra.Prefix); err != nil {
			return UpdateStatistics{}, err
		}
		if err := validateCandidate(&cand); err != nil {
			return UpdateStatistics{}, err
		}
		adds[i] = cand
	}

	u := newRouteUpdater(vrf, vs.tables)

	if resetClient {
		u.RemoveAllForClient(client)
	}
	for _, p := range toDelete {
		_ = u.Del(p, client)
	}
	for i, ra := range toAdd {
		_ = u.Add(ra.Prefix, client, adds[i])
	}

	stats, _ := u.Commit()
	snap := BuildFIB(vrf, vs.tables, r.nht)

	// Retain the new snapshot before invoking applyFn: the RIB keeps the
	// post-mutation state even when the apply fails, and the superseded
	// snapshot's multipath handles must be released either way.
	r.releaseSnapshot(vs.lastSnap)
	vs.lastSnap = snap

	if applyFn != nil {
		if err := applyFn(updateType, snap); err != nil {
			stats.Duration = time.Since(start)
			log.Warningf("rib: tx %s apply callback failed: %v", txID, err)
			return stats, fmt.Errorf("rib: tx %s apply callback failed: %w", txID, err)
		}
	}

	for _, d := range u.diffsFor(vrf) {
		r.logger.fire(d)
	}

	stats.Duration = time.Since(start)
	log.V(2).Infof("rib: tx %s committed in %s (v4 +%d/-%d, v6 +%d/-%d)", txID, stats.Duration, stats.V4Added, stats.V4Deleted, stats.V6Added, stats.V6Deleted)
	return stats, nil
}

// SyncFib replaces all of client's routes in vrf with routes, in one
// transaction: equivalent to Update with resetClient=true and an empty
// toDelete.
func (r *RIB) SyncFib(
	vrf ribtypes.VrfId,
	client ribtypes.ClientId,
	defaultAdminDistance ribtypes.AdminDistance,
	routes []RouteAdd,
	applyFn ApplyFunc,
) (UpdateStatistics, error) {
	return r.Update(vrf, client, defaultAdminDistance, routes, nil, true, ribtypes.UpdateSync, applyFn)
}

// Reconfigure atomically replaces the VRF set and, for each surviving or
// newly-added VRF, replaces all of its interface and static routes.
// Other clients' routes in VRFs that continue to exist are preserved;
// VRFs dropped from cfg.VRFs are removed along with all of their
// routes. Link-local routes are (re)seeded for every VRF in the new
// set.
func (r *RIB) Reconfigure(cfg ReconfigureConfig, applyFn ApplyFunc) (map[ribtypes.VrfId]UpdateStatistics, error) {
	start := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	newSet := map[ribtypes.VrfId]bool{}
	for _, v := range cfg.VRFs {
		newSet[v] = true
	}

	// Validate every route in cfg before touching r.vrfs or any table: a
	// malformed entry anywhere in the config fails the whole call before
	// any mutation.
	for v := range newSet {
		for _, ir := range cfg.InterfaceRoutes[v] {
			if err := validatePrefixFamily(ir.Prefix); err != nil {
				return nil, err
			}
			cand := nexthop.Candidate{
				Action:   nexthop.ActionNextHops,
				NextHops: []nexthop.Unresolved{{Gateway: ir.Gateway, Interface: ir.Iface, HasInterface: true}},
			}
			if err := validateCandidate(&cand); err != nil {
				return nil, err
			}
		}
		for _, sr := range cfg.StaticWithNextHops[v] {
			if err := validatePrefixFamily(sr.Prefix); err != nil {
				return nil, err
			}
			cand := nexthop.Candidate{Action: nexthop.ActionNextHops, NextHops: sr.NextHops, AdminDistance: sr.AdminDistance}
			if err := validateCandidate(&cand); err != nil {
				return nil, err
			}
		}
		for _, p := range cfg.StaticToCPU[v] {
			if err := validatePrefixFamily(p); err != nil {
				return nil, err
			}
		}
		for _, p := range cfg.StaticToNull[v] {
			if err := validatePrefixFamily(p); err != nil {
				return nil, err
			}
		}
	}

	for v, vs := range r.vrfs {
		if !newSet[v] {
			r.releaseSnapshot(vs.lastSnap)
			delete(r.vrfs, v)
		}
	}
	for v := range newSet {
		if _, ok := r.vrfs[v]; !ok {
			r.vrfs[v] = &vrfState{tables: newVRFTables()}
		}
	}

	results := map[ribtypes.VrfId]UpdateStatistics{}
	for v := range newSet {
		vs := r.vrfs[v]
		u := newRouteUpdater(v, vs.tables)

		// The config is authoritative for INTERFACE and STATIC: reset
		// before re-adding so routes the new config dropped don't
		// survive.
		u.RemoveAllForClient(ribtypes.ClientInterface)
		u.RemoveAllForClient(ribtypes.ClientStatic)

		for _, ir := range cfg.InterfaceRoutes[v] {
			if err := u.AddInterfaceRoute(ir.Prefix, ir.Gateway, ir.Iface); err != nil {
				return nil, err
			}
		}
		for _, sr := range cfg.StaticWithNextHops[v] {
			if err := u.Add(sr.Prefix, ribtypes.ClientStatic, nexthop.Candidate{
				Action:        nexthop.ActionNextHops,
				NextHops:      sr.NextHops,
				AdminDistance: sr.AdminDistance,
			}); err != nil {
				return nil, err
			}
		}
		for _, p := range cfg.StaticToCPU[v] {
			if err := u.Add(p, ribtypes.ClientStatic, nexthop.Candidate{Action: nexthop.ActionToCPU}); err != nil {
				return nil, err
			}
		}
		for _, p := range cfg.StaticToNull[v] {
			if err := u.Add(p, ribtypes.ClientStatic, nexthop.Candidate{Action: nexthop.ActionDrop}); err != nil {
				return nil, err
			}
		}
		if err := u.AddLinkLocalRoutes(); err != nil {
			return nil, err
		}

		stats, _ := u.Commit()
		snap := BuildFIB(v, vs.tables, r.nht)

		// As in Update: retain the snapshot before applyFn so the old
		// one's multipath handles are released even if the apply fails.
		r.releaseSnapshot(vs.lastSnap)
		vs.lastSnap = snap

		if applyFn != nil {
			if err := applyFn(ribtypes.UpdateReconfigure, snap); err != nil {
				return results, fmt.Errorf("rib: reconfigure apply callback failed for vrf %d: %w", v, err)
			}
		}

		for _, d := range u.diffsFor(v) {
			r.logger.fire(d)
		}

		stats.Duration = time.Since(start)
		results[v] = stats
	}

	return results, nil
}

// RoutesForClient returns client's candidates across both address
// families in vrf.
func (r *RIB) RoutesForClient(vrf ribtypes.VrfId, client ribtypes.ClientId) ([]UnicastRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs, ok := r.vrfs[vrf]
	if !ok {
		return nil, errUnknownVRF(vrf)
	}

	var out []UnicastRoute
	collect := func(tbl *prefixtable.Table[*RouteEntry]) {
		tbl.Iter(func(p netip.Prefix, e *RouteEntry) bool {
			if c, ok := e.Candidates()[client]; ok {
				out = append(out, UnicastRoute{Prefix: p, Client: client, Candidate: c})
			}
			return true
		})
	}
	collect(vs.tables.v4)
	collect(vs.tables.v6)
	return out, nil
}

// AllRoutes returns every client's candidate for every prefix in vrf.
func (r *RIB) AllRoutes(vrf ribtypes.VrfId) ([]UnicastRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs, ok := r.vrfs[vrf]
	if !ok {
		return nil, errUnknownVRF(vrf)
	}

	var out []UnicastRoute
	collect := func(tbl *prefixtable.Table[*RouteEntry]) {
		tbl.Iter(func(p netip.Prefix, e *RouteEntry) bool {
			for c, cand := range e.Candidates() {
				out = append(out, UnicastRoute{Prefix: p, Client: c, Candidate: cand})
			}
			return true
		})
	}
	collect(vs.tables.v4)
	collect(vs.tables.v6)
	return out, nil
}

// RouteDetailsList returns the full RIB-side state of every prefix in
// vrf.
func (r *RIB) RouteDetailsList(vrf ribtypes.VrfId) ([]RouteDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs, ok := r.vrfs[vrf]
	if !ok {
		return nil, errUnknownVRF(vrf)
	}

	var out []RouteDetails
	collect := func(tbl *prefixtable.Table[*RouteEntry]) {
		tbl.Iter(func(_ netip.Prefix, e *RouteEntry) bool {
			out = append(out, routeDetailsFor(e))
			return true
		})
	}
	collect(vs.tables.v4)
	collect(vs.tables.v6)
	return out, nil
}

// IPRoute returns the winning candidate for the longest-match route
// covering ip in vrf.
func (r *RIB) IPRoute(vrf ribtypes.VrfId, ip netip.Addr) (UnicastRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs, ok := r.vrfs[vrf]
	if !ok {
		return UnicastRoute{}, errUnknownVRF(vrf)
	}

	tbl := vs.tables.v4
	if ip.Is6() {
		tbl = vs.tables.v6
	}
	_, e, ok := tbl.LongestMatch(ip)
	if !ok {
		return UnicastRoute{}, errRouteNotFound(netip.PrefixFrom(ip, ip.BitLen()))
	}
	bestClient, best, _ := e.Best()
	return UnicastRoute{Prefix: e.Prefix, Client: bestClient, Candidate: best}, nil
}

// IPRouteDetails returns the full RIB-side state of the longest-match
// route covering ip in vrf.
func (r *RIB) IPRouteDetails(vrf ribtypes.VrfId, ip netip.Addr) (RouteDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vs, ok := r.vrfs[vrf]
	if !ok {
		return RouteDetails{}, errUnknownVRF(vrf)
	}

	tbl := vs.tables.v4
	if ip.Is6() {
		tbl = vs.tables.v6
	}
	_, e, ok := tbl.LongestMatch(ip)
	if !ok {
		return RouteDetails{}, errRouteNotFound(netip.PrefixFrom(ip, ip.BitLen()))
	}
	return routeDetailsFor(e), nil
}

func routeDetailsFor(e *RouteEntry) RouteDetails {
	bestClient, best, _ := e.Best()
	res, _ := e.Resolved()
	return RouteDetails{
		Prefix:     e.Prefix,
		BestClient: bestClient,
		Best:       best,
		State:      e.State(),
		Resolution: res,
	}
}

// StartLogging registers a new UpdateLogger subscription.
func (r *RIB) StartLogging(prefix netip.Prefix, identifier string, exact bool) <-chan interface{} {
	return r.logger.StartLogging(prefix, identifier, exact)
}

// StopLogging removes the subscription matching (prefix, identifier).
func (r *RIB) StopLogging(prefix netip.Prefix, identifier string) {
	r.logger.StopLogging(prefix, identifier)
}

// StopLoggingByIdentifier removes every subscription registered under
// identifier.
func (r *RIB) StopLoggingByIdentifier(identifier string) {
	r.logger.StopLoggingByIdentifier(identifier)
}

// TrackedPrefixes returns the distinct set of prefixes with an active
// UpdateLogger subscription.
func (r *RIB) TrackedPrefixes() []netip.Prefix {
	return r.logger.TrackedPrefixes()
}
