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

// Package allocator defines the free-sector Allocator contract the core
// consumes and a reference bitmap implementation. The free-map's own
// persistence to disk is an opaque concern beyond this module; the
// reference implementation here keeps the bitmap in memory, which is
// sufficient for the core's own test suite and for a
// demo CLI run.
package allocator

import (
	"sync"

	"github.com/pintosfs/core/device"
)

// Allocator hands out and reclaims contiguous runs of sectors. The core
// reports allocation failure during create as fserrors.ErrNoSpace; a
// failure while growing a file in inode.Store.WriteAt is fatal.
type Allocator interface {
	// Allocate returns the first sector of a run of n contiguous free
	// sectors, marking them used, or ok=false if no such run exists.
	Allocate(n uint32) (first device.SectorID, ok bool)

	// Release marks the n sectors starting at first as free again.
	Release(first device.SectorID, n uint32)
}

// Bitmap is a reference Allocator backed by an in-memory bit-per-sector
// free map with a simple first-fit scan. It does not itself use the
// sector cache; the free-map's own persistence is treated as an external
// collaborator's concern, so a production embedding would instead back
// Allocator with a bitmap inode read and written through sectorcache/
// inode the same way file data is.
type Bitmap struct {
	mu   sync.Mutex
	used []bool // GUARDED_BY(mu)
}

// NewBitmap returns an allocator over total sectors, with the first
// reserved sectors already marked used (boot sector, free-map inode,
// root directory inode — the fixed on-disk layout).
func NewBitmap(total device.SectorID, reserved uint32) *Bitmap {
	b := &Bitmap{used: make([]bool, total)}
	for i := uint32(0); i < reserved && i < uint32(total); i++ {
		b.used[i] = true
	}
	return b
}

func (b *Bitmap) Allocate(n uint32) (device.SectorID, bool) {
	if n == 0 {
		return 0, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	run := uint32(0)
	for i := 0; i < len(b.used); i++ {
		if b.used[i] {
			run = 0
			continue
		}
		run++
		if run == n {
			first := device.SectorID(i+1) - device.SectorID(n)
			for j := int(first); j <= i; j++ {
				b.used[j] = true
			}
			return first, true
		}
	}
	return 0, false
}

func (b *Bitmap) Release(first device.SectorID, n uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := uint32(0); i < n; i++ {
		idx := int(first) + int(i)
		if idx < 0 || idx >= len(b.used) {
			continue
		}
		b.used[idx] = false
	}
}

// FreeCount returns the number of sectors currently marked free. Used by
// the test suite to check that create-then-remove leaves the free count
// unchanged.
func (b *Bitmap) FreeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, u := range b.used {
		if !u {
			n++
		}
	}
	return n
}
