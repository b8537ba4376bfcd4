// Copyright 2026 The Pintosfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sectorcache

import "github.com/prometheus/client_golang/prometheus"

// metrics groups the cache's Prometheus instrumentation. A Cache built
// by NewCache with a nil Registerer skips registration, which is handy for tests that
// construct many short-lived caches and would otherwise collide on the
// default registry.
type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	dirty     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pintosfs_cache_hits_total",
			Help: "Sector cache lookups that found the sector already resident.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pintosfs_cache_misses_total",
			Help: "Sector cache lookups that required loading the sector from the device.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pintosfs_cache_evictions_total",
			Help: "Slots reclaimed from the LRU tail to make room for a miss.",
		}),
		dirty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pintosfs_cache_dirty_slots",
			Help: "Slots currently holding writes not yet on the device.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.evictions, m.dirty)
	}
	return m
}
