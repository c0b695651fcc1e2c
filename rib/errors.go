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

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dendisuhubdy/fboss/nexthop"
	"github.com/dendisuhubdy/fboss/ribtypes"
)

// Every error the core surfaces to a caller carries a codes.Code kind tag
// (retrievable with status.Code(err)) and a human message, built with
// status.Newf(code, format, args).Err().

func errUnknownVRF(vrf ribtypes.VrfId) error {
	return status.Newf(codes.NotFound, "rib: unknown VRF %d", vrf).Err()
}

func errInvalidPrefix(p netip.Prefix, reason string) error {
	return status.Newf(codes.InvalidArgument, "rib: invalid prefix %s: %s", p, reason).Err()
}

func errInvalidNextHop(reason string) error {
	return status.Newf(codes.InvalidArgument, "rib: invalid next hop: %s", reason).Err()
}

func errInvalidAdminDistance(d ribtypes.AdminDistance) error {
	return status.Newf(codes.InvalidArgument, "rib: invalid admin distance %d", d).Err()
}

func errInvalidLabel(l nexthop.MPLSLabel) error {
	return status.Newf(codes.InvalidArgument, "rib: invalid MPLS label %d (max %d)", l, nexthop.MaxMPLSLabel).Err()
}

func errRouteNotFound(p netip.Prefix) error {
	return status.Newf(codes.NotFound, "rib: no route for %s", p).Err()
}

// IsNotFound reports whether err is a structured "not found" error raised
// by this package (unknown VRF or missing route).
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// IsInvalidArgument reports whether err is a structured validation error
// raised by this package.
func IsInvalidArgument(err error) bool {
	return status.Code(err) == codes.InvalidArgument
}
