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

// Package chk implements checks against RIB return values, it can be
// used to determine whether an update produced the expected statistics
// or forwarding snapshot.
//
// Package chk relies on the testing package, and therefore is a test only
// package - that should be used as a helper to tests that are executed by
// 'go test'.
package chk

import (
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dendisuhubdy/fboss/rib"
)

// resultOpt is an interface implemented by all options that can be handed
// to HasStatistics or HasSnapshot.
type resultOpt interface {
	isResultOpt()
}

// ignoreECMP is an option that specifies that a ForwardingSnapshot
// comparison should ignore ForwardingEntry.ECMP handles.
type ignoreECMP struct{}

func (*ignoreECMP) isResultOpt() {}

// IgnoreECMPHandles specifies that HasSnapshot should not compare
// nhtable.Handle values. Handles are allocation-order-dependent, so tests
// that only care about the resolved next-hop set, not the specific handle
// assigned to it, should pass this option.
func IgnoreECMPHandles() *ignoreECMP {
	return &ignoreECMP{}
}

func hasIgnoreECMPHandles(opt []resultOpt) bool {
	for _, v := range opt {
		if _, ok := v.(*ignoreECMP); ok {
			return true
		}
	}
	return false
}

// HasStatistics checks that got matches want, ignoring the nondeterministic
// Duration field.
func HasStatistics(t testing.TB, got, want rib.UpdateStatistics) {
	t.Helper()

	opts := []cmp.Option{
		cmpopts.IgnoreFields(rib.UpdateStatistics{}, "Duration"),
	}
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("statistics did not match, diff (-want, +got):\n%s", diff)
	}
}

// HasSnapshot checks that got matches want. By default the comparison is
// exact, including nhtable.Handle assignment; pass IgnoreECMPHandles if the
// test only cares about which next hops were resolved, not the handle
// identity.
func HasSnapshot(t testing.TB, got, want *rib.ForwardingSnapshot, opt ...resultOpt) {
	t.Helper()

	opts := []cmp.Option{
		cmpopts.EquateComparable(netip.Addr{}, netip.Prefix{}),
	}
	if hasIgnoreECMPHandles(opt) {
		opts = append(opts, cmpopts.IgnoreFields(rib.ForwardingEntry{}, "ECMP"))
	}
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("snapshot did not match, diff (-want, +got):\n%s", diff)
	}
}
