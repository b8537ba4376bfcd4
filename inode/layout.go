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

// Package inode implements the multi-level indexed inode layer: the
// on-disk inode and index-block layout, the InodeStore with its global
// open-inode table, the block-map walk, and lazy file growth. All disk
// access goes through a sectorcache.Cache.
package inode

import (
	"encoding/binary"

	"github.com/pintosfs/core/device"
)

// Magic validates that a sector read as an inode really is one.
// A mismatch is a fatal condition: on-disk corruption or a bug.
const Magic uint32 = 0x494e4f44

const (
	// DirectCount is the number of direct data-sector pointers in an inode.
	DirectCount = 10
	// IndirectCount is the number of indirect-block pointers in an inode.
	IndirectCount = 10
	// PointersPerBlock is how many 4-byte sector pointers fit in one
	// indirect or double-indirect sector (512 / 4).
	PointersPerBlock = device.SectorSize / 4

	// DirectBytes is the byte range covered by direct pointers.
	DirectBytes = int64(DirectCount) * device.SectorSize
	// IndirectBytes is the byte range covered by the ten indirect blocks.
	IndirectBytes = int64(IndirectCount) * PointersPerBlock * device.SectorSize
	// DoubleIndirectBytes is the byte range covered by the double-indirect
	// block (128 indirects of 128 directs each).
	DoubleIndirectBytes = int64(PointersPerBlock) * PointersPerBlock * device.SectorSize

	// MaxFileBytes is the largest offset the block map can address.
	MaxFileBytes = DirectBytes + IndirectBytes + DoubleIndirectBytes

	// directSectors / indirectSectors / doubleIndirectStart are the
	// block-map walk expressed in units of whole sectors rather than
	// bytes, used by the lazy-growth loop: the double-indirect root is
	// first touched at sector index 1290.
	directSectors       = DirectCount
	indirectSectors     = IndirectCount * PointersPerBlock
	doubleIndirectStart = directSectors + indirectSectors // == 1290
)

// diskInode is the exactly-one-sector on-disk inode record
type diskInode struct {
	Length         int32
	Magic          uint32
	ParentDir      device.SectorID // NIL => regular file; otherwise a directory
	Direct         [DirectCount]device.SectorID
	Indirect       [IndirectCount]device.SectorID
	DoubleIndirect device.SectorID
}

const (
	offLength         = 0
	offMagic          = 4
	offParentDir      = 8
	offDirect         = 12
	offIndirect       = offDirect + DirectCount*4
	offDoubleIndirect = offIndirect + IndirectCount*4
)

func newEmptyDiskInode(parent device.SectorID) *diskInode {
	d := &diskInode{Magic: Magic, ParentDir: parent, DoubleIndirect: device.NIL}
	for i := range d.Direct {
		d.Direct[i] = device.NIL
	}
	for i := range d.Indirect {
		d.Indirect[i] = device.NIL
	}
	return d
}

// marshal encodes d into exactly one sector, zero-padding the remainder.
func (d *diskInode) marshal() [device.SectorSize]byte {
	var buf [device.SectorSize]byte
	binary.LittleEndian.PutUint32(buf[offLength:], uint32(d.Length))
	binary.LittleEndian.PutUint32(buf[offMagic:], d.Magic)
	binary.LittleEndian.PutUint32(buf[offParentDir:], d.ParentDir)
	for i, s := range d.Direct {
		binary.LittleEndian.PutUint32(buf[offDirect+4*i:], s)
	}
	for i, s := range d.Indirect {
		binary.LittleEndian.PutUint32(buf[offIndirect+4*i:], s)
	}
	binary.LittleEndian.PutUint32(buf[offDoubleIndirect:], d.DoubleIndirect)
	return buf
}

func unmarshalDiskInode(buf []byte) *diskInode {
	d := &diskInode{}
	d.Length = int32(binary.LittleEndian.Uint32(buf[offLength:]))
	d.Magic = binary.LittleEndian.Uint32(buf[offMagic:])
	d.ParentDir = binary.LittleEndian.Uint32(buf[offParentDir:])
	for i := range d.Direct {
		d.Direct[i] = binary.LittleEndian.Uint32(buf[offDirect+4*i:])
	}
	for i := range d.Indirect {
		d.Indirect[i] = binary.LittleEndian.Uint32(buf[offIndirect+4*i:])
	}
	d.DoubleIndirect = binary.LittleEndian.Uint32(buf[offDoubleIndirect:])
	return d
}

// pointerBlock is an indirect or double-indirect sector: 128 four-byte
// sector pointers, unallocated slots holding device.NIL.
type pointerBlock [PointersPerBlock]device.SectorID

func newEmptyPointerBlock() pointerBlock {
	var pb pointerBlock
	for i := range pb {
		pb[i] = device.NIL
	}
	return pb
}

func (pb pointerBlock) marshal() [device.SectorSize]byte {
	var buf [device.SectorSize]byte
	for i, s := range pb {
		binary.LittleEndian.PutUint32(buf[4*i:], s)
	}
	return buf
}

func unmarshalPointerBlock(buf []byte) pointerBlock {
	var pb pointerBlock
	for i := range pb {
		pb[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return pb
}

// bytesToSectors rounds a byte length up to a whole number of sectors.
func bytesToSectors(n int64) int64 {
	return (n + device.SectorSize - 1) / device.SectorSize
}
