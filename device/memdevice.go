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

import "sync"

// MemDevice is a BlockDevice backed by a plain byte slice. It exists so the
// rest of the core — and its test suite — has a working device without
// depending on a real disk backend; production deployments back
// BlockDevice with a file- or raw-disk-backed implementation supplied by
// the embedding program.
//
// MemDevice's own reads and writes are protected by a mutex: the contract
// promises synchronous, linearizable reads and writes per sector, and
// SectorCache relies on that when issuing concurrent read-ahead and
// foreground loads.
type MemDevice struct {
	mu      sync.Mutex
	sectors [][SectorSize]byte
}

// NewMemDevice returns a zero-filled device with the given sector count.
func NewMemDevice(sectorCount SectorID) *MemDevice {
	return &MemDevice{sectors: make([][SectorSize]byte, sectorCount)}
}

func (d *MemDevice) ReadSector(s SectorID, out []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(s) >= len(d.sectors) {
		panic("device: read out of range")
	}
	copy(out, d.sectors[s][:])
}

func (d *MemDevice) WriteSector(s SectorID, in []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if int(s) >= len(d.sectors) {
		panic("device: write out of range")
	}
	copy(d.sectors[s][:], in)
}

func (d *MemDevice) SectorCount() SectorID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return SectorID(len(d.sectors))
}
