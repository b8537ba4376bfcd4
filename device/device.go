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

// Package device defines the BlockDevice contract the core consumes, a
// reference in-memory implementation used by tests, and a file-backed
// implementation used by cmd/pintosfs. The real block device driver — talking to an actual disk — is
// out of this module's scope; anything satisfying BlockDevice can stand
// in for it.
package device

// SectorSize is the fixed size, in bytes, of every sector this core
// addresses. All on-disk structures (inode, indirect block,
// double-indirect block) are defined to be exactly one sector.
const SectorSize = 512

// SectorID addresses a single sector. NIL is the sentinel "no sector".
type SectorID = uint32

// NIL is the sentinel value meaning "no sector" in any on-disk pointer
// field (block-map entries, parent_dir, etc).
const NIL SectorID = ^SectorID(0)

// BlockDevice is the synchronous, fixed-sector-size storage capability the
// core is built on. Read and Write are assumed infallible from the core's
// perspective: a real implementation's I/O errors are fatal and are not
// expected to be returned as Go errors from this interface — they should
// panic or log.Fatal in the concrete implementation, treating a disk
// read/write failure as unrecoverable.
type BlockDevice interface {
	// ReadSector copies the SectorSize bytes at sector s into out. len(out)
	// must be SectorSize.
	ReadSector(s SectorID, out []byte)

	// WriteSector copies len(in) == SectorSize bytes from in to sector s.
	WriteSector(s SectorID, in []byte)

	// SectorCount reports the device's total sector count, used to bound
	// read-ahead and to size the allocator's free map.
	SectorCount() SectorID
}
