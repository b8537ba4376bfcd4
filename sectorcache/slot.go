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

import (
	"container/list"
	"sync"

	"github.com/pintosfs/core/device"
)

// slot is one cache entry: one sector's worth of data plus the metadata
// needed for lookup, eviction, and the reader/writer discipline. The
// short-lived metadata lock (guarding sector/occupied/dirty/lruElem) is
// kept separate from the rw-lock (guarding data); that separation is what
// lets a lookup hold the metadata lock only briefly while a reader or
// writer may hold the rw-lock for the full duration of a device I/O.
type slot struct {
	// metaMu guards every field below except data and the rw-lock itself.
	// Held only for short, bounded operations: lookup, LRU maintenance,
	// claiming a free slot, marking dirty.
	metaMu sync.Mutex

	occupied bool          // GUARDED_BY(metaMu); false means "free"
	sector   device.SectorID // GUARDED_BY(metaMu); valid iff occupied
	dirty    bool          // GUARDED_BY(metaMu)
	lruElem  *list.Element // GUARDED_BY(metaMu); this slot's node in the cache's LRU list

	rw   *rwlock
	data [device.SectorSize]byte // GUARDED_BY(rw)
}

// rwlock is a reader/writer discipline: any number of readers may hold it
// concurrently; a writer is exclusive. Acquisition is the textbook
// condition-variable loop — readers wait while writer is set, writers wait
// while writer is set or readers > 0 — which gives writer-blocking-readers
// semantics without a fairness guarantee.
type rwlock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	writer  bool
	readers int
}

func newRWLock() *rwlock {
	l := &rwlock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *rwlock) RLock() {
	l.mu.Lock()
	for l.writer {
		l.cond.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

func (l *rwlock) RUnlock() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.cond.Signal()
	}
	l.mu.Unlock()
}

func (l *rwlock) Lock() {
	l.mu.Lock()
	for l.writer || l.readers > 0 {
		l.cond.Wait()
	}
	l.writer = true
	l.mu.Unlock()
}

func (l *rwlock) Unlock() {
	l.mu.Lock()
	l.writer = false
	l.mu.Unlock()
	l.cond.Broadcast()
}

// TryLock acquires the writer lock only if it is uncontended: no reader
// and no writer currently holds it. Used by eviction to decide whether a
// slot can be reclaimed without waiting.
func (l *rwlock) TryLock() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer || l.readers > 0 {
		return false
	}
	l.writer = true
	return true
}

func newSlot() *slot {
	return &slot{rw: newRWLock()}
}
