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
	"sync"

	"github.com/eapache/channels"

	"github.com/dendisuhubdy/fboss/ribtypes"
)

// DiffKind classifies one prefix's change in a committed transaction.
type DiffKind int

const (
	DiffAdded DiffKind = iota
	DiffChanged
	DiffRemoved
)

func (k DiffKind) String() string {
	switch k {
	case DiffAdded:
		return "ADDED"
	case DiffChanged:
		return "CHANGED"
	case DiffRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// RouteDiff is one prefix's change, delivered to UpdateLogger subscribers
// after each commit.
type RouteDiff struct {
	VRF    ribtypes.VrfId
	Prefix netip.Prefix
	Kind   DiffKind
}

// subscription is one (prefix, identifier, exact) registration.
type subscription struct {
	prefix     netip.Prefix
	identifier string
	exact      bool
	ch         *channels.InfiniteChannel
}

// matches reports whether diff's prefix falls within s's subscription:
// an exact subscription matches only an equal prefix; a non-exact one
// matches any prefix whose network is contained by s's prefix.
func (s *subscription) matches(diff RouteDiff) bool {
	if s.prefix.Addr().BitLen() != diff.Prefix.Addr().BitLen() {
		return false // different address family
	}
	if s.exact {
		return s.prefix == diff.Prefix
	}
	return s.prefix.Bits() <= diff.Prefix.Bits() && s.prefix.Contains(diff.Prefix.Addr())
}

// UpdateLogger is a prefix-indexed subscription registry. Firing never
// blocks the caller: each subscription gets its own unbounded
// channels.InfiniteChannel, so one slow subscriber only grows its own
// backlog instead of blocking the writer lock that
// RIB.Update/SyncFib/Reconfigure hold across the apply callback.
type UpdateLogger struct {
	mu   sync.Mutex
	subs []*subscription
}

// NewUpdateLogger returns an empty UpdateLogger.
func NewUpdateLogger() *UpdateLogger {
	return &UpdateLogger{}
}

// StartLogging registers a new subscription and returns the channel on
// which matching RouteDiffs will be delivered.
func (l *UpdateLogger) StartLogging(prefix netip.Prefix, identifier string, exact bool) <-chan interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := &subscription{
		prefix:     prefix.Masked(),
		identifier: identifier,
		exact:      exact,
		ch:         channels.NewInfiniteChannel(),
	}
	l.subs = append(l.subs, s)
	return s.ch.Out()
}

// StopLogging removes every subscription matching the exact (prefix,
// identifier) pair.
func (l *UpdateLogger) StopLogging(prefix netip.Prefix, identifier string) {
	prefix = prefix.Masked()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.subs[:0]
	for _, s := range l.subs {
		if s.prefix == prefix && s.identifier == identifier {
			s.ch.Close()
			continue
		}
		kept = append(kept, s)
	}
	l.subs = kept
}

// StopLoggingByIdentifier removes every subscription registered under
// identifier, regardless of prefix. Multiple subscriptions may share an
// identifier; all of them are removed.
func (l *UpdateLogger) StopLoggingByIdentifier(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.subs[:0]
	for _, s := range l.subs {
		if s.identifier == identifier {
			s.ch.Close()
			continue
		}
		kept = append(kept, s)
	}
	l.subs = kept
}

// TrackedPrefixes returns the distinct set of prefixes with at least one
// active subscription.
func (l *UpdateLogger) TrackedPrefixes() []netip.Prefix {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := map[netip.Prefix]bool{}
	var out []netip.Prefix
	for _, s := range l.subs {
		if !seen[s.prefix] {
			seen[s.prefix] = true
			out = append(out, s.prefix)
		}
	}
	return out
}

// fire delivers diff to every matching subscription.
func (l *UpdateLogger) fire(diff RouteDiff) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.subs {
		if s.matches(diff) {
			s.ch.In() <- diff
		}
	}
}
