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

// Package sectorcache implements a bounded, write-back sector cache: a
// fixed number of slots, each holding one sector's worth of data;
// reader/writer concurrency per slot; MRU-bump/
// tail-evict LRU approximation; asynchronous read-ahead of the next
// sequential sector on a miss; and a periodic background write-back pass
// plus an explicit Flush for shutdown.
package sectorcache

import (
	"container/list"
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pintosfs/core/clock"
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/logger"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

// MaxCacheSize is the fixed slot count.
const MaxCacheSize = 64

// DefaultWriteBackInterval is how often the background task writes back
// every dirty slot without evicting.
const DefaultWriteBackInterval = 10 * time.Second

// Cache is the sector cache. The zero value is not usable; construct with
// NewCache.
type Cache struct {
	dev      device.BlockDevice
	clk      clock.Clock
	interval time.Duration
	metrics  *metrics

	slots [MaxCacheSize]*slot

	// lruMu guards lru itself (the list structure), independent of any
	// individual slot's metaMu. A plain mutex is simplest; a slightly
	// stale LRU order under contention is tolerated.
	lruMu sync.Mutex
	lru   *list.List // elements are *slot; front = MRU, back = LRU

	closeCh chan struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// NewCache constructs a Cache over dev, driven by clk for the periodic
// write-back task. reg may be nil to skip Prometheus registration (tests
// constructing many Caches should pass nil to avoid duplicate-registration
// panics).
func NewCache(dev device.BlockDevice, clk clock.Clock, interval time.Duration, reg prometheus.Registerer) *Cache {
	if interval <= 0 {
		interval = DefaultWriteBackInterval
	}
	c := &Cache{
		dev:      dev,
		clk:      clk,
		interval: interval,
		metrics:  newMetrics(reg),
		lru:      list.New(),
		closeCh:  make(chan struct{}),
	}
	for i := range c.slots {
		sl := newSlot()
		sl.lruElem = c.lru.PushBack(sl)
		c.slots[i] = sl
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.writeBackLoop()
	}()
	return c
}

// ReadSector copies the current contents of sector s into out, loading it
// from the device first if it is not resident.
func (c *Cache) ReadSector(s device.SectorID, out []byte) {
	sl, ok := c.lookup(s)
	if ok {
		c.metrics.hits.Inc()
	} else {
		c.metrics.misses.Inc()
		sl = c.load(s)
	}
	sl.rw.RLock()
	copy(out, sl.data[:])
	sl.rw.RUnlock()
}

// WriteSector copies in into the resident slot for s, loading it first if
// necessary, and marks the slot dirty.
func (c *Cache) WriteSector(s device.SectorID, in []byte) {
	sl, ok := c.lookup(s)
	if ok {
		c.metrics.hits.Inc()
	} else {
		c.metrics.misses.Inc()
		sl = c.load(s)
	}
	sl.rw.Lock()
	copy(sl.data[:], in)
	sl.rw.Unlock()

	sl.metaMu.Lock()
	wasDirty := sl.dirty
	sl.dirty = true
	sl.metaMu.Unlock()
	if !wasDirty {
		c.metrics.dirty.Inc()
	}
}

// Flush writes every dirty slot back to the device and resets every slot
// to empty. It is called at shutdown only, after in-flight operations
// have drained, so unlike the periodic write-back pass it does not need
// to coordinate with concurrent readers/writers of a slot's data.
func (c *Cache) Flush() {
	for _, sl := range c.slots {
		sl.metaMu.Lock()
		if sl.occupied && sl.dirty {
			c.dev.WriteSector(sl.sector, sl.data[:])
			c.metrics.dirty.Dec()
		}
		sl.occupied = false
		sl.dirty = false
		sl.sector = 0
		sl.metaMu.Unlock()
	}
}

// Close stops the background write-back task and waits for any in-flight
// read-ahead goroutines to finish. It does not flush; callers follow the
// shutdown sequence: drain in-flight filesystem operations,
// Close the cache, then Flush.
func (c *Cache) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.closeCh)
	}
	c.wg.Wait()
}

// lookup performs a linear scan to find the slot holding sector s, if
// any, promoting it to MRU on a hit. Each slot's metaMu is
// acquired in turn, which serializes the scan against concurrent
// claims/evictions of that slot: an unlocked peek at occupied/sector
// would be a data race under Go's memory model rather than merely a
// stale read.
func (c *Cache) lookup(s device.SectorID) (*slot, bool) {
	for _, sl := range c.slots {
		sl.metaMu.Lock()
		if sl.occupied && sl.sector == s {
			sl.metaMu.Unlock()
			c.bumpMRU(sl)
			return sl, true
		}
		sl.metaMu.Unlock()
	}
	return nil, false
}

// bumpMRU moves sl to the front (MRU end) of the LRU list.
func (c *Cache) bumpMRU(sl *slot) {
	c.lruMu.Lock()
	c.lru.MoveToFront(sl.lruElem)
	c.lruMu.Unlock()
}

// claimFreeSlot scans for a slot whose metadata lock is uncontended and
// which is free, marking it occupied and MRU; if none is free, it evicts
// one from the LRU tail and retries.
func (c *Cache) claimFreeSlot() *slot {
	for {
		if sl, ok := c.getFree(); ok {
			return sl
		}
		if !c.evictOne() {
			// Nothing could be evicted this pass (all slots busy); give
			// contending operations a chance to drain before retrying.
			runtime.Gosched()
		}
	}
}

// getFree returns the first slot, in array order, whose metadata lock can
// be acquired without contention and which is not occupied.
func (c *Cache) getFree() (*slot, bool) {
	for _, sl := range c.slots {
		if !sl.metaMu.TryLock() {
			continue
		}
		if !sl.occupied {
			sl.occupied = true
			sl.metaMu.Unlock()
			c.bumpMRU(sl)
			return sl, true
		}
		sl.metaMu.Unlock()
	}
	return nil, false
}

// evictOne tries, starting from the LRU tail, to reclaim exactly one
// slot. It reports whether a slot was reclaimed (the caller should retry
// getFree) or not (the caller should back off).
func (c *Cache) evictOne() bool {
	c.lruMu.Lock()
	elem := c.lru.Back()
	c.lruMu.Unlock()

	for elem != nil {
		sl := elem.Value.(*slot)
		if sl.metaMu.TryLock() {
			if !sl.occupied {
				// Already free (raced with a concurrent release); nothing
				// to do on this pass.
				sl.metaMu.Unlock()
				return false
			}
			evicted := c.forceOne(sl, false)
			sl.metaMu.Unlock()
			return evicted
		}

		c.lruMu.Lock()
		elem = elem.Prev()
		c.lruMu.Unlock()
	}
	return false
}

// forceOne must be called with sl.metaMu held. With force=false it
// reclaims sl only if no reader or writer currently holds it, writing
// back first if dirty. With force=true it reclaims unconditionally, on
// the assumption the caller has already drained all other operations.
// Flush does not call it; it performs the same write-back-and-free steps
// inline.
func (c *Cache) forceOne(sl *slot, force bool) bool {
	if !force {
		if !sl.rw.TryLock() {
			return false
		}
		if sl.dirty {
			c.dev.WriteSector(sl.sector, sl.data[:])
			c.metrics.dirty.Dec()
		}
		sl.occupied = false
		sl.dirty = false
		sl.rw.Unlock()
		c.metrics.evictions.Inc()
		return true
	}

	if sl.dirty {
		c.dev.WriteSector(sl.sector, sl.data[:])
		c.metrics.dirty.Dec()
	}
	sl.occupied = false
	sl.dirty = false
	return true
}

// load is the miss path: claim a free slot, assign it to s, read the
// sector through the slot's writer lock, then kick off read-ahead of
// s+1.
func (c *Cache) load(s device.SectorID) *slot {
	sl := c.claimFreeSlot()

	sl.metaMu.Lock()
	sl.sector = s
	sl.dirty = false
	sl.metaMu.Unlock()

	sl.rw.Lock()
	c.dev.ReadSector(s, sl.data[:])
	sl.rw.Unlock()
	c.bumpMRU(sl)

	c.spawnReadAhead(s + 1)
	return sl
}

// spawnReadAhead starts the read-ahead task for target and blocks until
// that task has reserved its slot (recorded sector = target), preventing
// the caller from racing a second load of the same sector. The handshake
// is a one-shot use of a weighted semaphore of capacity 1: the caller
// holds the only unit until the child releases it right after claiming
// its slot.
func (c *Cache) spawnReadAhead(target device.SectorID) {
	if c.closed.Load() {
		return
	}

	sem := semaphore.NewWeighted(1)
	ctx := context.Background()
	_ = sem.Acquire(ctx, 1)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.readAhead(target, sem)
	}()

	_ = sem.Acquire(ctx, 1) // blocks until the child releases
}

// readAhead is the body of the background read-ahead task.
func (c *Cache) readAhead(target device.SectorID, sem *semaphore.Weighted) {
	log := logger.Named("cache-read-ahead")

	if target >= c.dev.SectorCount() {
		sem.Release(1)
		return
	}
	if _, ok := c.lookup(target); ok {
		sem.Release(1)
		return
	}

	sl := c.claimFreeSlot()
	sl.metaMu.Lock()
	sl.sector = target
	sl.dirty = false
	sl.metaMu.Unlock()

	sem.Release(1)

	sl.rw.Lock()
	c.dev.ReadSector(target, sl.data[:])
	sl.rw.Unlock()
	c.bumpMRU(sl)
	log.Debug("read-ahead completed", "sector", target)
}

// writeBackLoop is the background task that, every interval, writes back
// every dirty slot without evicting.
func (c *Cache) writeBackLoop() {
	log := logger.Named("cache-periodic-flush")
	for {
		select {
		case <-c.closeCh:
			return
		case <-c.clk.After(c.interval):
			c.writeBackPass(log)
		}
	}
}

func (c *Cache) writeBackPass(log interface{ Debug(string, ...any) }) {
	for _, sl := range c.slots {
		sl.metaMu.Lock()
		occupied, dirty, sector := sl.occupied, sl.dirty, sl.sector
		sl.metaMu.Unlock()
		if !occupied || !dirty {
			continue
		}

		sl.rw.RLock()
		var buf [device.SectorSize]byte
		copy(buf[:], sl.data[:])
		sl.rw.RUnlock()

		c.dev.WriteSector(sector, buf[:])

		sl.metaMu.Lock()
		if sl.occupied && sl.sector == sector && sl.dirty {
			sl.dirty = false
			c.metrics.dirty.Dec()
		}
		sl.metaMu.Unlock()
	}
	log.Debug("write-back pass complete")
}

// ResidentSectors returns the set of sectors currently cached, for use by
// tests verifying the LRU eviction shape.
func (c *Cache) ResidentSectors() []device.SectorID {
	var out []device.SectorID
	for _, sl := range c.slots {
		sl.metaMu.Lock()
		if sl.occupied {
			out = append(out, sl.sector)
		}
		sl.metaMu.Unlock()
	}
	return out
}
