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
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/fserrors"
)

// ReadAt walks h's block map sector by sector starting at off, copying
// into buf until len(buf) is exhausted or off reaches the inode's
// length, whichever comes first. It returns the
// number of bytes actually read.
func (s *Store) ReadAt(h *Handle, buf []byte, off int64) int {
	h.Mu.Lock()
	d := h.disk
	h.Mu.Unlock()

	length := int64(d.Length)
	if off >= length {
		return 0
	}
	if off+int64(len(buf)) > length {
		buf = buf[:length-off]
	}

	read := 0
	for read < len(buf) {
		pos := off + int64(read)
		sector, ok := s.byteToSector(&d, pos)
		if !ok {
			fserrors.Raise("inode: NIL sector within [0, length) during read")
		}

		sectorOff := pos % device.SectorSize
		chunk := device.SectorSize - int(sectorOff)
		if chunk > len(buf)-read {
			chunk = len(buf) - read
		}

		if sectorOff == 0 && chunk == device.SectorSize {
			s.cache.ReadSector(sector, buf[read:read+chunk])
		} else {
			var bounce [device.SectorSize]byte
			s.cache.ReadSector(sector, bounce[:])
			copy(buf[read:read+chunk], bounce[sectorOff:int(sectorOff)+chunk])
		}
		read += chunk
	}
	return read
}

// WriteAt grows h's block map if off+len(buf) extends past the current
// length, then writes buf sector by sector. A partial sector that starts
// before the pre-existing length (lying within it or straddling it) is
// read-modify-written; a partial sector that starts at or past the old
// length is zero-filled then patched, so everything past the old length
// reads as zero. Writes are denied (return 0) while DenyWrite is in
// effect. A failure to grow the block map (allocator exhausted) is
// fatal, not a returned error: unlike Create, there is no graceful
// unwind once the caller already holds an open handle to the inode.
func (s *Store) WriteAt(h *Handle, buf []byte, off int64) int {
	h.Mu.Lock()
	if h.denyWriteCnt > 0 {
		h.Mu.Unlock()
		return 0
	}
	d := h.disk
	h.Mu.Unlock()

	oldLength := int64(d.Length)
	newLength := off + int64(len(buf))
	if newLength > oldLength {
		if err := s.allocateData(&d, bytesToSectors(oldLength), bytesToSectors(newLength)); err != nil {
			// Unlike Create, which can still fail gracefully before any
			// caller observes the inode, growth on an already-open,
			// already-visible inode has nowhere graceful to unwind to:
			// the block map may now be partially extended. Treat it the
			// way the source's inode_write_at does (ASSERT(0) on a
			// failed allocate_inode_data) rather than returning a
			// write count indistinguishable from WriteDenied.
			fserrors.Raise("inode: out of space growing block map in WriteAt")
		}
		d.Length = int32(newLength)
	}

	written := 0
	for written < len(buf) {
		pos := off + int64(written)
		sector, ok := s.byteToSector(&d, pos)
		if !ok {
			fserrors.Raise("inode: NIL sector within [0, length) during write")
		}

		sectorOff := pos % device.SectorSize
		chunk := device.SectorSize - int(sectorOff)
		if chunk > len(buf)-written {
			chunk = len(buf) - written
		}

		if sectorOff == 0 && chunk == device.SectorSize {
			s.cache.WriteSector(sector, buf[written:written+chunk])
		} else {
			var bounce [device.SectorSize]byte
			// A sector entirely beyond the pre-write length need not be
			// read back: everything in it reads as zero until patched.
			// One that straddles the old length (or lies wholly within
			// it) must be read-modify-written so bytes before off are
			// preserved rather than zeroed.
			sectorStart := pos - sectorOff
			if sectorStart < oldLength {
				s.cache.ReadSector(sector, bounce[:])
			}
			copy(bounce[sectorOff:int(sectorOff)+chunk], buf[written:written+chunk])
			s.cache.WriteSector(sector, bounce[:])
		}
		written += chunk
	}

	h.Mu.Lock()
	h.disk = d
	h.Mu.Unlock()
	if newLength > oldLength {
		s.writeDiskInode(h.sector, &d)
	}

	return written
}
