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

package pathresolver

import (
	"testing"
	"time"

	"github.com/pintosfs/core/allocator"
	"github.com/pintosfs/core/clock"
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/directory"
	"github.com/pintosfs/core/fserrors"
	"github.com/pintosfs/core/inode"
	"github.com/pintosfs/core/sectorcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootSector device.SectorID = 2

func newTestResolver(t *testing.T) (*Resolver, *inode.Store) {
	t.Helper()
	dev := device.NewMemDevice(4096)
	cache := sectorcache.NewCache(dev, clock.RealClock{}, time.Hour, nil)
	t.Cleanup(cache.Close)
	alloc := allocator.NewBitmap(4096, 3)
	store := inode.NewStore(cache, alloc, nil)

	root, err := directory.Create(store, rootSector, rootSector)
	require.NoError(t, err)
	store.Close(root.Handle())

	return &Resolver{Store: store, Root: rootSector}, store
}

func TestResolveAbsoluteRoot(t *testing.T) {
	r, store := newTestResolver(t)
	h, err := r.Resolve("/", nil)
	require.NoError(t, err)
	defer store.Close(h)
	assert.Equal(t, rootSector, store.Inumber(h))
}

func TestResolveSkipsEmptyComponents(t *testing.T) {
	r, store := newTestResolver(t)

	rootH, err := store.Open(rootSector)
	require.NoError(t, err)
	rootDir := directory.Open(store, rootH)
	require.NoError(t, store.Create(10, 0, device.NIL))
	require.NoError(t, rootDir.Add("file", 10))
	store.Close(rootH)

	h, err := r.Resolve("//file//", nil)
	require.NoError(t, err)
	defer store.Close(h)
	assert.Equal(t, device.SectorID(10), store.Inumber(h))
}

func TestResolveDotDotFromRootStaysAtRoot(t *testing.T) {
	r, store := newTestResolver(t)
	h, err := r.Resolve("..", nil)
	require.NoError(t, err)
	defer store.Close(h)
	assert.Equal(t, rootSector, store.Inumber(h))
}

func TestResolveThroughNestedDirectories(t *testing.T) {
	r, store := newTestResolver(t)

	rootH, err := store.Open(rootSector)
	require.NoError(t, err)
	rootDir := directory.Open(store, rootH)
	sub, err := directory.Create(store, 11, rootSector)
	require.NoError(t, err)
	require.NoError(t, rootDir.Add("sub", 11))
	require.NoError(t, store.Create(12, 0, device.NIL))
	require.NoError(t, sub.Add("leaf", 12))
	store.Close(rootH)
	store.Close(sub.Handle())

	h, err := r.Resolve("/sub/leaf", nil)
	require.NoError(t, err)
	defer store.Close(h)
	assert.Equal(t, device.SectorID(12), store.Inumber(h))

	parentH, err := r.Resolve("/sub/..", nil)
	require.NoError(t, err)
	defer store.Close(parentH)
	assert.Equal(t, rootSector, store.Inumber(parentH))
}

func TestResolveThroughNonDirectoryComponentFails(t *testing.T) {
	r, store := newTestResolver(t)

	rootH, err := store.Open(rootSector)
	require.NoError(t, err)
	rootDir := directory.Open(store, rootH)
	require.NoError(t, store.Create(10, 0, device.NIL))
	require.NoError(t, rootDir.Add("file", 10))
	store.Close(rootH)

	_, err = r.Resolve("/file/nope", nil)
	assert.ErrorIs(t, err, fserrors.ErrNotADirectory)
}

func TestResolveMissingComponentFails(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve("/nope", nil)
	assert.ErrorIs(t, err, fserrors.ErrNotFound)
}

func TestResolveParentSplitsFinalComponent(t *testing.T) {
	r, store := newTestResolver(t)
	parent, name, err := r.ResolveParent("/newfile", nil)
	require.NoError(t, err)
	defer store.Close(parent)
	assert.Equal(t, rootSector, store.Inumber(parent))
	assert.Equal(t, "newfile", name)
}

func TestResolveParentRejectsDotAsFinalComponent(t *testing.T) {
	r, _ := newTestResolver(t)
	_, _, err := r.ResolveParent("/.", nil)
	assert.ErrorIs(t, err, fserrors.ErrBadPath)
}

func TestResolveRelativeUsesCwd(t *testing.T) {
	r, store := newTestResolver(t)

	rootH, err := store.Open(rootSector)
	require.NoError(t, err)
	rootDir := directory.Open(store, rootH)
	sub, err := directory.Create(store, 11, rootSector)
	require.NoError(t, err)
	require.NoError(t, rootDir.Add("sub", 11))
	require.NoError(t, store.Create(12, 0, device.NIL))
	require.NoError(t, sub.Add("leaf", 12))
	store.Close(rootH)

	cwd, err := store.Open(11)
	require.NoError(t, err)
	h, err := r.Resolve("leaf", cwd)
	require.NoError(t, err)
	assert.Equal(t, device.SectorID(12), store.Inumber(h))
	store.Close(h)
	store.Close(cwd)
	store.Close(sub.Handle())
}
