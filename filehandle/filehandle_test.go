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

package filehandle

import (
	"testing"
	"time"

	"github.com/pintosfs/core/allocator"
	"github.com/pintosfs/core/clock"
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/inode"
	"github.com/pintosfs/core/sectorcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandle(t *testing.T) (*inode.Store, *FileHandle) {
	t.Helper()
	dev := device.NewMemDevice(4096)
	cache := sectorcache.NewCache(dev, clock.RealClock{}, time.Hour, nil)
	t.Cleanup(cache.Close)
	alloc := allocator.NewBitmap(4096, 2)
	store := inode.NewStore(cache, alloc, nil)

	require.NoError(t, store.Create(1, 0, device.NIL))
	h, err := store.Open(1)
	require.NoError(t, err)
	return store, New(store, h, false)
}

func TestReadWriteAdvancesPosition(t *testing.T) {
	_, fh := newTestHandle(t)
	defer fh.Close()

	n := fh.Write([]byte("abcdef"))
	assert.Equal(t, 6, n)
	assert.Equal(t, int64(6), fh.Tell())

	fh.Seek(0)
	buf := make([]byte, 3)
	n = fh.Read(buf)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf))
	assert.Equal(t, int64(3), fh.Tell())
}

func TestLengthReflectsWrites(t *testing.T) {
	_, fh := newTestHandle(t)
	defer fh.Close()

	fh.Write([]byte("0123456789"))
	assert.Equal(t, int64(10), fh.Length())
}

func TestCloseWithDenyWriteCallsAllowWrite(t *testing.T) {
	store, fh := newTestHandle(t)
	h := fh.Handle()
	store.Reopen(h)
	store.DenyWrite(h)

	denyingHandle := New(store, h, true)
	denyingHandle.Close()

	// AllowWrite should have cleared the counter; a write through the
	// original handle now succeeds again.
	n := fh.Write([]byte("x"))
	assert.Equal(t, 1, n)
}
