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

// Command ribd is a minimal demonstration of wiring a rib.RIB directly:
// it configures a single default VRF with one connected interface route
// and one static route, applies the resulting forwarding snapshot to a
// logging stand-in for a hardware programmer, and prints the result.
package main

import (
	"flag"
	"net/netip"

	log "github.com/golang/glog"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/rib"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

var (
	ifacePrefix = flag.String("iface_prefix", "192.0.2.0/24", "connected prefix to install on the demo interface")
	ifaceID     = flag.Uint("iface_id", 1, "interface ID to associate with iface_prefix")
	staticDest  = flag.String("static_dest", "10.0.0.0/8", "destination prefix for the demo static route")
	staticNH    = flag.String("static_nexthop", "192.0.2.1", "gateway address for the demo static route")
)

func applyToLog(updateType ribtypes.UpdateType, snap *rib.ForwardingSnapshot) error {
	log.Infof("applying %s snapshot for vrf %d: %d v4 entries, %d v6 entries", updateType, snap.VRF, len(snap.V4), len(snap.V6))
	for _, fe := range snap.V4 {
		log.Infof("  %s -> action=%s nexthops=%v", fe.Prefix, fe.Action, fe.NextHops)
	}
	data, err := rib.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	log.V(1).Infof("serialized snapshot:\n%s", data)
	return nil
}

func main() {
	flag.Parse()

	ifacePfx, err := netip.ParsePrefix(*ifacePrefix)
	if err != nil {
		log.Exitf("invalid -iface_prefix: %v", err)
	}
	staticPfx, err := netip.ParsePrefix(*staticDest)
	if err != nil {
		log.Exitf("invalid -static_dest: %v", err)
	}
	staticGW, err := netip.ParseAddr(*staticNH)
	if err != nil {
		log.Exitf("invalid -static_nexthop: %v", err)
	}

	r := rib.New()

	cfg := rib.ReconfigureConfig{
		VRFs: []ribtypes.VrfId{ribtypes.DefaultVrf},
		InterfaceRoutes: map[ribtypes.VrfId][]rib.InterfaceRoute{
			ribtypes.DefaultVrf: {{
				Prefix:  ifacePfx,
				Gateway: ifacePfx.Addr(),
				Iface:   ribtypes.InterfaceId(*ifaceID),
			}},
		},
		StaticWithNextHops: map[ribtypes.VrfId][]rib.StaticRoute{
			ribtypes.DefaultVrf: {{
				Prefix:        staticPfx,
				NextHops:      []nexthop.Unresolved{{Gateway: staticGW, Weight: 1}},
				AdminDistance: ribtypes.AdminDistance(1),
			}},
		},
	}

	if _, err := r.Reconfigure(cfg, applyToLog); err != nil {
		log.Exitf("reconfigure failed: %v", err)
	}

	details, err := r.RouteDetailsList(ribtypes.DefaultVrf)
	if err != nil {
		log.Exitf("could not list routes: %v", err)
	}
	for _, d := range details {
		log.Infof("route %s: best client=%s state=%s", d.Prefix, d.BestClient, d.State)
	}
}
