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

import "time"

// UpdateStatistics summarizes the effect of one RouteUpdater commit,
// split by address family. SyncFib bulk replacements count every route
// displaced by the sync as a delete, even when an identical route is
// immediately re-added under the new client generation.
type UpdateStatistics struct {
	V4Added   int
	V4Deleted int
	V6Added   int
	V6Deleted int
	Duration  time.Duration
}

// Add merges other into s in place, accumulating counts and duration.
func (s *UpdateStatistics) Add(other UpdateStatistics) {
	s.V4Added += other.V4Added
	s.V4Deleted += other.V4Deleted
	s.V6Added += other.V6Added
	s.V6Deleted += other.V6Deleted
	s.Duration += other.Duration
}
