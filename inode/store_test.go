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
	"testing"
	"time"

	"github.com/pintosfs/core/allocator"
	"github.com/pintosfs/core/clock"
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/sectorcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, sectors device.SectorID) *Store {
	t.Helper()
	dev := device.NewMemDevice(sectors)
	cache := sectorcache.NewCache(dev, clock.RealClock{}, time.Hour, nil)
	t.Cleanup(cache.Close)
	alloc := allocator.NewBitmap(sectors, 2)
	return NewStore(cache, alloc, nil)
}

func TestCreateOpenReportsLengthAndParent(t *testing.T) {
	s := newTestStore(t, 64)
	require.NoError(t, s.Create(1, 100, device.NIL))

	h, err := s.Open(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), s.Length(h))
	assert.False(t, s.IsDir(h))
	assert.Equal(t, device.SectorID(1), s.Inumber(h))
	s.Close(h)
}

func TestOpenSharesHandleAcrossCallers(t *testing.T) {
	s := newTestStore(t, 64)
	require.NoError(t, s.Create(1, 0, device.NIL))

	h1, err := s.Open(1)
	require.NoError(t, err)
	h2, err := s.Open(1)
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	s.Close(h1)
	s.Close(h2)
}

func TestWriteAtGrowsAndReadAtReturnsBytes(t *testing.T) {
	s := newTestStore(t, 4096)
	require.NoError(t, s.Create(1, 0, device.NIL))
	h, err := s.Open(1)
	require.NoError(t, err)
	defer s.Close(h)

	payload := make([]byte, 3*device.SectorSize+17)
	for i := range payload {
		payload[i] = byte(i)
	}
	n := s.WriteAt(h, payload, 0)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, int64(len(payload)), s.Length(h))

	out := make([]byte, len(payload))
	n = s.ReadAt(h, out, 0)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, out)
}

func TestWriteAtPreservesBytesBeforeSparseExtension(t *testing.T) {
	s := newTestStore(t, 4096)
	require.NoError(t, s.Create(1, 0, device.NIL))
	h, err := s.Open(1)
	require.NoError(t, err)
	defer s.Close(h)

	first := []byte("hello")
	s.WriteAt(h, first, 0)

	second := []byte("world")
	s.WriteAt(h, second, 100)

	out := make([]byte, 5)
	s.ReadAt(h, out, 0)
	assert.Equal(t, first, out)

	// The gap [len(first), 100) was never written; it must read back as
	// zero rather than whatever garbage the allocator handed out the
	// backing sector with.
	gap := make([]byte, 100-len(first))
	n := s.ReadAt(h, gap, int64(len(first)))
	assert.Equal(t, len(gap), n)
	assert.Equal(t, make([]byte, len(gap)), gap)

	tail := make([]byte, 5)
	s.ReadAt(h, tail, 100)
	assert.Equal(t, second, tail)
}

func TestWriteAtCrossingIndirectBoundary(t *testing.T) {
	s := newTestStore(t, 200000)
	require.NoError(t, s.Create(1, 0, device.NIL))
	h, err := s.Open(1)
	require.NoError(t, err)
	defer s.Close(h)

	off := DirectBytes - device.SectorSize/2
	payload := make([]byte, device.SectorSize*4)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	n := s.WriteAt(h, payload, off)
	assert.Equal(t, len(payload), n)

	out := make([]byte, len(payload))
	s.ReadAt(h, out, off)
	assert.Equal(t, payload, out)
}

func TestWriteAtCrossingDoubleIndirectBoundary(t *testing.T) {
	s := newTestStore(t, 300000)
	require.NoError(t, s.Create(1, 0, device.NIL))
	h, err := s.Open(1)
	require.NoError(t, err)
	defer s.Close(h)

	off := DirectBytes + IndirectBytes - device.SectorSize
	payload := make([]byte, device.SectorSize*3)
	for i := range payload {
		payload[i] = byte(i % 199)
	}
	n := s.WriteAt(h, payload, off)
	assert.Equal(t, len(payload), n)

	out := make([]byte, len(payload))
	s.ReadAt(h, out, off)
	assert.Equal(t, payload, out)
}

func TestDenyWriteBlocksWrites(t *testing.T) {
	s := newTestStore(t, 64)
	require.NoError(t, s.Create(1, 10, device.NIL))
	h, err := s.Open(1)
	require.NoError(t, err)
	defer s.Close(h)

	s.DenyWrite(h)
	n := s.WriteAt(h, []byte("x"), 0)
	assert.Equal(t, 0, n)

	s.AllowWrite(h)
	n = s.WriteAt(h, []byte("x"), 0)
	assert.Equal(t, 1, n)
}

func TestRemoveReleasesSectorsOnLastClose(t *testing.T) {
	s := newTestStore(t, 64)
	require.NoError(t, s.Create(1, device.SectorSize*2, device.NIL))

	freeBefore := s.alloc.(*allocator.Bitmap).FreeCount()

	h, err := s.Open(1)
	require.NoError(t, err)
	s.Remove(h)
	s.Close(h)

	freeAfter := s.alloc.(*allocator.Bitmap).FreeCount()
	assert.Greater(t, freeAfter, freeBefore)
}

func TestRemoveDeferredWhileStillOpen(t *testing.T) {
	s := newTestStore(t, 64)
	require.NoError(t, s.Create(1, 0, device.NIL))

	h1, err := s.Open(1)
	require.NoError(t, err)
	h2, err := s.Open(1)
	require.NoError(t, err)

	s.Remove(h1)
	s.Close(h1)

	// Still referenced by h2; sectors not released yet, and the inode is
	// still usable through h2.
	assert.Equal(t, int64(0), s.Length(h2))
	s.Close(h2)
}
