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

package device

import (
	"os"

	"github.com/pintosfs/core/fserrors"
)

// FileDevice is a BlockDevice backed by a regular file, one SectorSize
// chunk per sector, used by cmd/pintosfs so the file system survives
// process restarts. Device I/O failure is fatal to the core,
// so ReadSector/WriteSector panic via fserrors.Raise rather than
// returning an error.
type FileDevice struct {
	f       *os.File
	sectors SectorID
}

// OpenFileDevice opens (creating if necessary) path and truncates/grows
// it to hold sectorCount sectors. An existing file is truncated only if
// it is smaller than sectorCount sectors; a larger existing file keeps
// its size.
func OpenFileDevice(path string, sectorCount SectorID) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	want := int64(sectorCount) * SectorSize
	if info.Size() < want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		sectorCount = SectorID(info.Size() / SectorSize)
	}
	return &FileDevice{f: f, sectors: sectorCount}, nil
}

func (d *FileDevice) ReadSector(s SectorID, out []byte) {
	if s >= d.sectors {
		fserrors.Raise("device: read past end of file device")
	}
	if _, err := d.f.ReadAt(out[:SectorSize], int64(s)*SectorSize); err != nil {
		fserrors.Raise("device: " + err.Error())
	}
}

func (d *FileDevice) WriteSector(s SectorID, in []byte) {
	if s >= d.sectors {
		fserrors.Raise("device: write past end of file device")
	}
	if _, err := d.f.WriteAt(in[:SectorSize], int64(s)*SectorSize); err != nil {
		fserrors.Raise("device: " + err.Error())
	}
}

func (d *FileDevice) SectorCount() SectorID { return d.sectors }

// Close syncs and closes the backing file.
func (d *FileDevice) Close() error {
	if err := d.f.Sync(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}
