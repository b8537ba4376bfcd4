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

// byteToSector walks the block map of d to find the sector backing byte
// offset pos. ok is false when no sector is
// allocated there yet; the caller decides whether that is an error
// (offset within [0, length) is fatal corruption) or normal (offset at or
// past length means "grow first").
func (s *Store) byteToSector(d *diskInode, pos int64) (device.SectorID, bool) {
	switch {
	case pos < DirectBytes:
		idx := pos / device.SectorSize
		sec := d.Direct[idx]
		return sec, sec != device.NIL

	case pos < DirectBytes+IndirectBytes:
		p := pos - DirectBytes
		group := p / (int64(PointersPerBlock) * device.SectorSize)
		ib := d.Indirect[group]
		if ib == device.NIL {
			return device.NIL, false
		}
		var buf [device.SectorSize]byte
		s.cache.ReadSector(ib, buf[:])
		pb := unmarshalPointerBlock(buf[:])
		within := (p % (int64(PointersPerBlock) * device.SectorSize)) / device.SectorSize
		sec := pb[within]
		return sec, sec != device.NIL

	case pos < MaxFileBytes:
		if d.DoubleIndirect == device.NIL {
			return device.NIL, false
		}
		var dbuf [device.SectorSize]byte
		s.cache.ReadSector(d.DoubleIndirect, dbuf[:])
		dpb := unmarshalPointerBlock(dbuf[:])

		p := pos - DirectBytes - IndirectBytes
		outer := p / (int64(PointersPerBlock) * device.SectorSize)
		ib := dpb[outer]
		if ib == device.NIL {
			return device.NIL, false
		}
		var ibuf [device.SectorSize]byte
		s.cache.ReadSector(ib, ibuf[:])
		ipb := unmarshalPointerBlock(ibuf[:])

		rem := p % (int64(PointersPerBlock) * device.SectorSize)
		within := rem / device.SectorSize
		sec := ipb[within]
		return sec, sec != device.NIL

	default:
		return device.NIL, false
	}
}

// growState tracks index/double-indirect blocks being built up across a
// single allocateData call, so a group spanning many loop iterations is
// only read once (on first touch) and written back once (at the end of
// the group or of the call) — the lazy-growth restart point.
type growState struct {
	indirect       map[int64]pointerBlock
	doubleIndirect pointerBlock
	doubleLoaded   bool
	inner          map[int64]pointerBlock
}

// allocateData extends d's block map to cover sector indices
// [start, target), zero-filling each
// newly allocated data sector. On allocation failure it returns
// fserrors.ErrNoSpace, leaving whatever was allocated so far in place.
// Create returns that error to its caller; WriteAt treats it as fatal
// and raises instead.
func (s *Store) allocateData(d *diskInode, start, target int64) error {
	if target <= start {
		return nil
	}

	gs := &growState{
		indirect: make(map[int64]pointerBlock),
		inner:    make(map[int64]pointerBlock),
	}

	var zero [device.SectorSize]byte

	for idx := start; idx < target; idx++ {
		sector, ok := s.alloc.Allocate(1)
		if !ok {
			return fserrors.ErrNoSpace
		}
		s.cache.WriteSector(sector, zero[:])

		switch {
		case idx < directSectors:
			d.Direct[idx] = sector

		case idx < doubleIndirectStart:
			rel := idx - directSectors
			group := rel / PointersPerBlock
			within := rel % PointersPerBlock

			pb, loaded := gs.indirect[group]
			if !loaded {
				if d.Indirect[group] == device.NIL {
					ibSector, ok := s.alloc.Allocate(1)
					if !ok {
						return fserrors.ErrNoSpace
					}
					d.Indirect[group] = ibSector
					pb = newEmptyPointerBlock()
				} else {
					var buf [device.SectorSize]byte
					s.cache.ReadSector(d.Indirect[group], buf[:])
					pb = unmarshalPointerBlock(buf[:])
				}
			}
			pb[within] = sector
			gs.indirect[group] = pb

			if within == PointersPerBlock-1 || idx == target-1 {
				enc := pb.marshal()
				s.cache.WriteSector(d.Indirect[group], enc[:])
			}

		default:
			rel := idx - doubleIndirectStart
			innerIdx := rel / PointersPerBlock
			ptrIdx := rel % PointersPerBlock

			if !gs.doubleLoaded {
				if d.DoubleIndirect == device.NIL {
					dbSector, ok := s.alloc.Allocate(1)
					if !ok {
						return fserrors.ErrNoSpace
					}
					d.DoubleIndirect = dbSector
					gs.doubleIndirect = newEmptyPointerBlock()
				} else {
					var buf [device.SectorSize]byte
					s.cache.ReadSector(d.DoubleIndirect, buf[:])
					gs.doubleIndirect = unmarshalPointerBlock(buf[:])
				}
				gs.doubleLoaded = true
			}

			innerBlock, loaded := gs.inner[innerIdx]
			if !loaded {
				if gs.doubleIndirect[innerIdx] == device.NIL {
					ibSector, ok := s.alloc.Allocate(1)
					if !ok {
						return fserrors.ErrNoSpace
					}
					gs.doubleIndirect[innerIdx] = ibSector
					innerBlock = newEmptyPointerBlock()
				} else {
					var buf [device.SectorSize]byte
					s.cache.ReadSector(gs.doubleIndirect[innerIdx], buf[:])
					innerBlock = unmarshalPointerBlock(buf[:])
				}
			}
			innerBlock[ptrIdx] = sector
			gs.inner[innerIdx] = innerBlock

			if ptrIdx == PointersPerBlock-1 || idx == target-1 {
				enc := innerBlock.marshal()
				s.cache.WriteSector(gs.doubleIndirect[innerIdx], enc[:])
			}
			if innerIdx == PointersPerBlock-1 && ptrIdx == PointersPerBlock-1 || idx == target-1 {
				enc := gs.doubleIndirect.marshal()
				s.cache.WriteSector(d.DoubleIndirect, enc[:])
			}
		}
	}

	return nil
}

// releaseAll returns every sector d owns — its own inode sector, then
// direct data sectors, then each indirect block's data sectors followed
// by the indirect block itself, then the double-indirect tree the same
// way — to the allocator, in a fixed order so a crash mid-release never
// leaks an index block without first releasing (or attempting to
// release) its children.
func (s *Store) releaseAll(inodeSector device.SectorID, d *diskInode) {
	s.alloc.Release(inodeSector, 1)

	for _, sec := range d.Direct {
		if sec != device.NIL {
			s.alloc.Release(sec, 1)
		}
	}

	for _, ib := range d.Indirect {
		if ib == device.NIL {
			continue
		}
		var buf [device.SectorSize]byte
		s.cache.ReadSector(ib, buf[:])
		pb := unmarshalPointerBlock(buf[:])
		for _, sec := range pb {
			if sec != device.NIL {
				s.alloc.Release(sec, 1)
			}
		}
		s.alloc.Release(ib, 1)
	}

	if d.DoubleIndirect != device.NIL {
		var dbuf [device.SectorSize]byte
		s.cache.ReadSector(d.DoubleIndirect, dbuf[:])
		dpb := unmarshalPointerBlock(dbuf[:])
		for _, ib := range dpb {
			if ib == device.NIL {
				continue
			}
			var buf [device.SectorSize]byte
			s.cache.ReadSector(ib, buf[:])
			pb := unmarshalPointerBlock(buf[:])
			for _, sec := range pb {
				if sec != device.NIL {
					s.alloc.Release(sec, 1)
				}
			}
			s.alloc.Release(ib, 1)
		}
		s.alloc.Release(d.DoubleIndirect, 1)
	}
}
