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

// Package ribtypes defines the identifiers and small enumerated types that
// are shared amongst the rib and nexthop packages.
package ribtypes

import "fmt"

// VrfId identifies a virtual routing and forwarding instance. The zero value
// is the default VRF.
type VrfId uint32

// DefaultVrf is the VrfId used when a caller does not specify one.
const DefaultVrf VrfId = 0

// InterfaceId identifies a router interface (a routed port or VLAN/SVI).
type InterfaceId uint32

// PortId identifies a physical or logical switch port.
type PortId uint32

// VlanId identifies an 802.1Q VLAN.
type VlanId uint16

// AdminDistance is a per-candidate priority; the numerically smallest value
// wins when two clients offer a route for the same prefix.
type AdminDistance uint8

// MaxAdminDistance is reserved as an "unreachable" sentinel and is never a
// valid candidate distance; adds carrying it are rejected.
const MaxAdminDistance AdminDistance = 255

// ClientId names the source of a route. Each prefix may have at most one
// candidate entry per client.
type ClientId uint8

const (
	// ClientUnspecified is the zero value and is never a valid route owner.
	ClientUnspecified ClientId = iota
	// ClientInterface owns routes for directly connected subnets.
	ClientInterface
	// ClientLinkLocal owns the link-local/TO_CPU routes seeded by
	// RouteUpdater.AddLinkLocalRoutes.
	ClientLinkLocal
	// ClientStatic owns operator-configured static routes.
	ClientStatic
	// ClientBGP owns routes learned from BGP.
	ClientBGP
)

// clientNames gives a human-readable name to well-known clients, used only
// for logging.
var clientNames = map[ClientId]string{
	ClientUnspecified: "UNSPECIFIED",
	ClientInterface:   "INTERFACE",
	ClientLinkLocal:   "LINK_LOCAL",
	ClientStatic:      "STATIC",
	ClientBGP:         "BGP",
}

func (c ClientId) String() string {
	if n, ok := clientNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CLIENT(%d)", uint8(c))
}

// clientPriority is the fixed tie-break order: lower value wins when two
// candidates share the same admin distance. INTERFACE < LINK_LOCAL <
// STATIC < BGP, configured once at startup.
var clientPriority = map[ClientId]int{
	ClientInterface: 0,
	ClientLinkLocal: 1,
	ClientStatic:    2,
	ClientBGP:       3,
}

// defaultPriority is handed to any client that wasn't given an explicit
// slot in clientPriority, so unknown clients always lose ties.
const defaultPriority = 1 << 30

// Priority returns c's position in the fixed client tie-break order. Lower
// values win ties on AdminDistance.
func Priority(c ClientId) int {
	if p, ok := clientPriority[c]; ok {
		return p
	}
	return defaultPriority
}

// UpdateType enumerates the kind of transaction that produced a forwarding
// snapshot, passed through to the apply callback.
type UpdateType int

const (
	_ UpdateType = iota
	// UpdateAdd indicates routes were added/replaced in the transaction.
	UpdateAdd
	// UpdateDelete indicates routes were withdrawn in the transaction.
	UpdateDelete
	// UpdateSync indicates a per-client bulk replacement (syncFib).
	UpdateSync
	// UpdateReconfigure indicates a VRF-set and static/interface-table
	// reconfiguration.
	UpdateReconfigure
)

func (u UpdateType) String() string {
	switch u {
	case UpdateAdd:
		return "ADD"
	case UpdateDelete:
		return "DELETE"
	case UpdateSync:
		return "SYNC"
	case UpdateReconfigure:
		return "RECONFIGURE"
	default:
		return "UNSPECIFIED"
	}
}
