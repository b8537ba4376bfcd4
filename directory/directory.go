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

package directory

import (
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/fserrors"
	"github.com/pintosfs/core/inode"
)

// initialCapacity is the number of blank entries a freshly created
// directory is pre-grown to hold, so the first few Add calls extend the
// block map only once.
const initialCapacity = 4

// Directory is a view over an open inode Handle that is a directory
// (ParentDir != NIL), implementing a fixed-record entry layout. All
// entry I/O goes through the wrapped Store's ReadAt/WriteAt, so a
// Directory carries no state beyond the Handle it was opened with.
type Directory struct {
	store  *inode.Store
	handle *inode.Handle
}

// Open wraps an already-open directory Handle.
func Open(store *inode.Store, handle *inode.Handle) *Directory {
	return &Directory{store: store, handle: handle}
}

// Create formats sector as a new, empty directory whose parent is parent,
// pre-grown to hold initialCapacity blank entries, opens it, and returns
// the Directory view.
func Create(store *inode.Store, sector, parent device.SectorID) (*Directory, error) {
	return CreateWithCapacity(store, sector, parent, initialCapacity)
}

// CreateWithCapacity is Create with an explicit initial entry capacity,
// used for the root directory's larger initial capacity of 16 entries.
func CreateWithCapacity(store *inode.Store, sector, parent device.SectorID, capacity int) (*Directory, error) {
	if err := store.Create(sector, 0, parent); err != nil {
		return nil, err
	}
	h, err := store.Open(sector)
	if err != nil {
		return nil, err
	}
	d := &Directory{store: store, handle: h}
	if err := d.growBlank(capacity); err != nil {
		store.Remove(h)
		store.Close(h)
		return nil, err
	}
	return d, nil
}

// Handle returns the wrapped inode Handle, for callers (the fs façade)
// that need to pass it to InodeStore operations directly.
func (d *Directory) Handle() *inode.Handle { return d.handle }

// Sector returns the directory's own inode sector (its inumber).
func (d *Directory) Sector() device.SectorID { return d.store.Inumber(d.handle) }

// Inumber is an alias for Sector, matching the inumber terminology used
// for on-disk identity elsewhere in the core.
func (d *Directory) Inumber() device.SectorID { return d.Sector() }

// ParentSector returns the inode sector of d's parent directory. The root
// directory is its own parent.
func (d *Directory) ParentSector() device.SectorID {
	p := d.store.Parent(d.handle)
	if p == device.NIL {
		return d.Sector()
	}
	return p
}

func (d *Directory) entryCount() int {
	return int(d.store.Length(d.handle) / entrySize)
}

func (d *Directory) readEntry(i int) DirEntry {
	var buf [entrySize]byte
	d.store.ReadAt(d.handle, buf[:], int64(i)*entrySize)
	return unmarshalEntry(buf[:])
}

func (d *Directory) writeEntry(i int, e DirEntry) {
	buf := e.marshal()
	d.store.WriteAt(d.handle, buf[:], int64(i)*entrySize)
}

// growBlank appends n freed (in_use=false) entries, used to pre-allocate
// a newly created directory's initial capacity.
func (d *Directory) growBlank(n int) error {
	start := d.entryCount()
	for i := 0; i < n; i++ {
		d.writeEntry(start+i, DirEntry{})
	}
	return nil
}

// Lookup scans for an in-use entry named name.
func (d *Directory) Lookup(name string) (device.SectorID, bool) {
	n := d.entryCount()
	for i := 0; i < n; i++ {
		e := d.readEntry(i)
		if e.InUse && e.Name == name {
			return e.InodeSector, true
		}
	}
	return device.NIL, false
}

// Add inserts a new entry (name -> sector), reusing a freed slot if one
// exists, otherwise appending. It rejects a name already in use and a
// name longer than NameMax.
func (d *Directory) Add(name string, sector device.SectorID) error {
	if len(name) == 0 || len(name) > NameMax {
		return fserrors.ErrNameTooLong
	}

	n := d.entryCount()
	freeSlot := -1
	for i := 0; i < n; i++ {
		e := d.readEntry(i)
		if e.InUse {
			if e.Name == name {
				return fserrors.ErrExists
			}
			continue
		}
		if freeSlot < 0 {
			freeSlot = i
		}
	}

	idx := freeSlot
	if idx < 0 {
		idx = n
	}
	d.writeEntry(idx, DirEntry{InUse: true, InodeSector: sector, Name: name})
	return nil
}

// isEmpty reports whether d has no in-use entries. "." and ".." are
// synthesized by Readdir, never stored, so this alone decides emptiness
// for the directory-removal rule that refuses to remove a non-empty
// directory.
func (d *Directory) isEmpty() bool {
	n := d.entryCount()
	for i := 0; i < n; i++ {
		if d.readEntry(i).InUse {
			return false
		}
	}
	return true
}

// Remove deletes the entry named name: it frees the slot and marks the
// child inode removed via the wrapped Store, refusing to do so if the
// child is itself a non-empty directory. The child's Handle is opened and closed
// internally purely to inspect it; any other opener's reference is
// unaffected.
func (d *Directory) Remove(name string) error {
	n := d.entryCount()
	idx := -1
	var target DirEntry
	for i := 0; i < n; i++ {
		e := d.readEntry(i)
		if e.InUse && e.Name == name {
			idx = i
			target = e
			break
		}
	}
	if idx < 0 {
		return fserrors.ErrNotFound
	}

	childHandle, err := d.store.Open(target.InodeSector)
	if err != nil {
		return err
	}

	if d.store.IsDir(childHandle) {
		child := Open(d.store, childHandle)
		if !child.isEmpty() {
			d.store.Close(childHandle)
			return fserrors.ErrDirNotEmpty
		}
	}

	target.InUse = false
	d.writeEntry(idx, target)

	d.store.Remove(childHandle)
	d.store.Close(childHandle)
	return nil
}

// Readdir returns every entry visible in d: the synthesized "." and
// "..", followed by every in-use stored entry.
func (d *Directory) Readdir() []DirEntry {
	out := []DirEntry{
		{InUse: true, InodeSector: d.Sector(), Name: "."},
		{InUse: true, InodeSector: d.ParentSector(), Name: ".."},
	}
	n := d.entryCount()
	for i := 0; i < n; i++ {
		e := d.readEntry(i)
		if e.InUse {
			out = append(out, e)
		}
	}
	return out
}
