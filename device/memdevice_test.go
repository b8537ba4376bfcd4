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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDeviceReadWriteRoundTrip(t *testing.T) {
	d := NewMemDevice(16)
	require.Equal(t, SectorID(16), d.SectorCount())

	in := make([]byte, SectorSize)
	for i := range in {
		in[i] = byte(i)
	}
	d.WriteSector(3, in)

	out := make([]byte, SectorSize)
	d.ReadSector(3, out)
	assert.Equal(t, in, out)
}

func TestMemDeviceUnwrittenSectorReadsZero(t *testing.T) {
	d := NewMemDevice(4)
	out := make([]byte, SectorSize)
	for i := range out {
		out[i] = 0xff
	}
	d.ReadSector(1, out)
	for _, b := range out {
		assert.Equal(t, byte(0), b)
	}
}

func TestMemDeviceOutOfRangePanics(t *testing.T) {
	d := NewMemDevice(2)
	assert.Panics(t, func() {
		d.ReadSector(2, make([]byte, SectorSize))
	})
	assert.Panics(t, func() {
		d.WriteSector(2, make([]byte, SectorSize))
	})
}
