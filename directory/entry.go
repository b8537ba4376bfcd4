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

// Package directory implements a fixed-record directory format on top of
// the inode package's ReadAt/WriteAt: a directory is exactly an inode
// with a non-NIL parent whose data is an array of DirEntry records.
package directory

import (
	"bytes"

	"github.com/pintosfs/core/device"
)

// NameMax is the longest a path component may be: a deliberately tight
// 14 bytes rather than a more generous modern limit, since the on-disk
// record width is part of this format.
const NameMax = 14

// entrySize is in_use (1 byte, padded to 4) + inode_sector (4 bytes) +
// name (NameMax+1 bytes, NUL-terminated), rounded up to a 4-byte
// boundary so entries pack without straddling concerns during marshal.
const entrySize = 4 + 4 + (NameMax + 1 + 3) / 4 * 4

// DirEntry is one fixed-size slot in a directory's data.
type DirEntry struct {
	InUse       bool
	InodeSector device.SectorID
	Name        string
}

func (e *DirEntry) marshal() [entrySize]byte {
	var buf [entrySize]byte
	if e.InUse {
		buf[0] = 1
	}
	putU32(buf[4:], e.InodeSector)
	n := copy(buf[8:8+NameMax], e.Name)
	buf[8+n] = 0
	return buf
}

func unmarshalEntry(buf []byte) DirEntry {
	e := DirEntry{
		InUse:       buf[0] != 0,
		InodeSector: getU32(buf[4:]),
	}
	nameBytes := buf[8 : 8+NameMax+1]
	if nul := bytes.IndexByte(nameBytes, 0); nul >= 0 {
		e.Name = string(nameBytes[:nul])
	} else {
		e.Name = string(nameBytes)
	}
	return e
}

func putU32(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

func getU32(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}
