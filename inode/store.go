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

package inode

import (
	"sync"

	"github.com/jacobsa/syncutil"
	"github.com/pintosfs/core/allocator"
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/fserrors"
	"github.com/pintosfs/core/sectorcache"
	"github.com/prometheus/client_golang/prometheus"
)

// Handle is the in-memory, reference-counted representation of an open
// inode. Two Open calls for the same sector
// share one Handle, enforced by Store's open-inodes table.
type Handle struct {
	sector device.SectorID // identity; constant for the Handle's lifetime

	// Mu guards every mutable field below. It is a syncutil.InvariantMutex:
	// the invariant checker re-validates the cheap, always-true invariants
	// (length >= 0, magic intact) on every unlock, the way
	// fs/inode.DirInode.checkInvariants does for its own fields.
	Mu syncutil.InvariantMutex

	// GUARDED_BY(Mu)
	openCnt uint32
	// GUARDED_BY(Mu)
	denyWriteCnt uint32
	// GUARDED_BY(Mu)
	removed bool
	// GUARDED_BY(Mu)
	disk diskInode
}

func (h *Handle) checkInvariants() {
	if h.disk.Length < 0 {
		fserrors.Raise("inode: negative length")
	}
	if h.disk.Magic != Magic {
		fserrors.Raise("inode: magic corrupted in memory")
	}
}

// Sector returns the inode's own sector number — its inumber.
func (h *Handle) Sector() device.SectorID { return h.sector }

// Store owns the global open-inodes table and issues all disk I/O
// through a sectorcache.Cache.
type Store struct {
	cache *sectorcache.Cache
	alloc allocator.Allocator

	tableMu sync.Mutex
	open    map[device.SectorID]*Handle // GUARDED_BY(tableMu)

	openGauge prometheus.Gauge
}

// NewStore constructs a Store. reg may be nil to skip metrics
// registration.
func NewStore(cache *sectorcache.Cache, alloc allocator.Allocator, reg prometheus.Registerer) *Store {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pintosfs_inodes_open",
		Help: "Inodes currently open in the InodeStore's table.",
	})
	if reg != nil {
		reg.MustRegister(g)
	}
	return &Store{
		cache:     cache,
		alloc:     alloc,
		open:      make(map[device.SectorID]*Handle),
		openGauge: g,
	}
}

// Create initializes an on-disk inode at sector: length, magic, an
// all-NIL block map, and parent_dir = parent (NIL for a regular file,
// otherwise the directory's own inode sector). It grows the block map
// to cover length bytes before writing the inode sector.
func (s *Store) Create(sector device.SectorID, length int64, parent device.SectorID) error {
	d := newEmptyDiskInode(parent)
	if err := s.allocateData(d, 0, bytesToSectors(length)); err != nil {
		return err
	}
	d.Length = int32(length)
	s.writeDiskInode(sector, d)
	return nil
}

func (s *Store) writeDiskInode(sector device.SectorID, d *diskInode) {
	buf := d.marshal()
	s.cache.WriteSector(sector, buf[:])
}

// Open returns the shared Handle for sector, reading it from disk on the
// first open and incrementing openCnt on every subsequent one. Concurrent
// opens of the same sector are serialized by tableMu and so always
// observe (and extend) the same Handle.
func (s *Store) Open(sector device.SectorID) (*Handle, error) {
	s.tableMu.Lock()
	if h, ok := s.open[sector]; ok {
		h.Mu.Lock()
		h.openCnt++
		h.Mu.Unlock()
		s.tableMu.Unlock()
		return h, nil
	}

	var buf [device.SectorSize]byte
	s.cache.ReadSector(sector, buf[:])
	d := unmarshalDiskInode(buf[:])
	if d.Magic != Magic {
		s.tableMu.Unlock()
		fserrors.Raise("inode: magic mismatch opening sector")
	}

	h := &Handle{sector: sector, disk: *d, openCnt: 1}
	h.Mu = syncutil.NewInvariantMutex(h.checkInvariants)
	s.open[sector] = h
	s.tableMu.Unlock()
	s.openGauge.Inc()
	return h, nil
}

// Reopen increments the reference count of an already-open Handle. It is
// equivalent to Open(h.Sector()) but avoids a table lookup when the
// caller already holds a Handle (e.g. duplicating a file descriptor).
func (s *Store) Reopen(h *Handle) {
	h.Mu.Lock()
	h.openCnt++
	h.Mu.Unlock()
}

// Close decrements h's reference count. At zero it removes h from the
// open-inodes table and, if Remove had marked it removed, releases the
// inode sector and every data/index sector it owns, in a fixed order:
// inode sector, then direct sectors, then each indirect block's directs
// followed by the indirect itself, then likewise for the double-indirect.
func (s *Store) Close(h *Handle) {
	h.Mu.Lock()
	h.openCnt--
	cnt := h.openCnt
	removed := h.removed
	disk := h.disk
	h.Mu.Unlock()

	if cnt > 0 {
		return
	}

	s.tableMu.Lock()
	delete(s.open, h.sector)
	s.tableMu.Unlock()
	s.openGauge.Dec()

	if removed {
		s.releaseAll(h.sector, &disk)
	}
}

// Remove marks h for deletion: its sectors are released when the last
// opener closes it, not immediately, since other callers may still hold
// the Handle open.
func (s *Store) Remove(h *Handle) {
	h.Mu.Lock()
	h.removed = true
	h.Mu.Unlock()
}

// Length returns the inode's current byte length.
func (s *Store) Length(h *Handle) int64 {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return int64(h.disk.Length)
}

// IsDir reports whether h is a directory (parent_dir != NIL).
func (s *Store) IsDir(h *Handle) bool {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.disk.ParentDir != device.NIL
}

// Parent returns the inode sector of h's parent directory, or NIL for a
// regular file.
func (s *Store) Parent(h *Handle) device.SectorID {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.disk.ParentDir
}

// Inumber returns the inode's own sector number.
func (s *Store) Inumber(h *Handle) device.SectorID {
	return h.sector
}

// DenyWrite increments h's deny-write count. Used by the loader to keep
// an executable's backing inode read-only while a process image built
// from it is active; at most once per opener.
func (s *Store) DenyWrite(h *Handle) {
	h.Mu.Lock()
	h.denyWriteCnt++
	h.Mu.Unlock()
}

// AllowWrite decrements h's deny-write count.
func (s *Store) AllowWrite(h *Handle) {
	h.Mu.Lock()
	if h.denyWriteCnt > 0 {
		h.denyWriteCnt--
	}
	h.Mu.Unlock()
}
