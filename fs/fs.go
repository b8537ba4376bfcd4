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

// Package fs is the public façade over the core: it wires SectorCache,
// InodeStore and PathResolver together behind the system-call surface
// (create, mkdir, remove, open, chdir, ...), and owns the fixed on-disk
// layout and the shutdown sequence.
package fs

import (
	"github.com/pintosfs/core/allocator"
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/directory"
	"github.com/pintosfs/core/filehandle"
	"github.com/pintosfs/core/fserrors"
	"github.com/pintosfs/core/inode"
	"github.com/pintosfs/core/logger"
	"github.com/pintosfs/core/pathresolver"
	"github.com/pintosfs/core/sectorcache"
	"github.com/prometheus/client_golang/prometheus"
)

var log = logger.Named("fs")

// Fixed on-disk layout: sector 0 is reserved for boot code the
// core never touches, and the free-map and root-directory inodes live at
// well-known sectors so mounting never has to search for them.
const (
	BootSector    device.SectorID = 0
	FreeMapSector device.SectorID = 1
	RootDirSector device.SectorID = 2

	// ReservedSectors is how many low sectors the fixed layout claims
	// (boot, free-map inode, root-directory inode); an Allocator must
	// treat them as already in use.
	ReservedSectors = 3
	rootCapacity    = 16
)

// FileSystem is the mounted, running core: a sector cache over a block
// device, an inode store built on top of it, and the path resolver the
// façade operations delegate to.
type FileSystem struct {
	Device device.BlockDevice
	Cache  *sectorcache.Cache
	Alloc  allocator.Allocator
	Inodes *inode.Store

	resolver pathresolver.Resolver
}

// Session is a single caller's current-directory handle: relative paths
// resolve against it rather than the root. A Session is not safe for
// concurrent use by multiple goroutines, mirroring a file-descriptor
// table's ownership.
type Session struct {
	fs  *FileSystem
	cwd *inode.Handle // nil means "root"
}

// New wires a FileSystem over an already-formatted device: dev backs
// cache, and alloc is the free-sector allocator. reg may be nil to skip
// metrics registration.
func New(dev device.BlockDevice, cache *sectorcache.Cache, alloc allocator.Allocator, reg prometheus.Registerer) *FileSystem {
	store := inode.NewStore(cache, alloc, reg)
	return &FileSystem{
		Device: dev,
		Cache:  cache,
		Alloc:  alloc,
		Inodes: store,
		resolver: pathresolver.Resolver{
			Store: store,
			Root:  RootDirSector,
		},
	}
}

// Format initializes a fresh device: it builds a bitmap allocator
// reserving the boot, free-map and root-directory sectors, then creates
// the root directory with capacity 16 and parent = self, mirroring a
// "-f" format option that triggers free-map and root-directory creation.
// The free-map's own on-disk persistence is an opaque concern left to
// the Allocator implementation.
func Format(dev device.BlockDevice, cache *sectorcache.Cache, reg prometheus.Registerer) (*FileSystem, error) {
	alloc := allocator.NewBitmap(dev.SectorCount(), ReservedSectors)
	store := inode.NewStore(cache, alloc, reg)

	root, err := directory.CreateWithCapacity(store, RootDirSector, RootDirSector, rootCapacity)
	if err != nil {
		return nil, err
	}
	store.Close(root.Handle())

	log.Info("formatted device", "sectors", dev.SectorCount(), "root_sector", RootDirSector)
	return &FileSystem{
		Device: dev,
		Cache:  cache,
		Alloc:  alloc,
		Inodes: store,
		resolver: pathresolver.Resolver{
			Store: store,
			Root:  RootDirSector,
		},
	}, nil
}

// NewSession returns a caller context rooted at the file system's root
// directory.
func (f *FileSystem) NewSession() *Session {
	return &Session{fs: f}
}

// Close releases s's current-directory handle, if any.
func (s *Session) Close() {
	if s.cwd != nil {
		s.fs.Inodes.Close(s.cwd)
		s.cwd = nil
	}
}

// Create implements create(path, size, is_dir): it splits
// path into (dir_part, name), resolves dir_part, allocates an inode
// sector, and adds name to the parent directory. Any failure after the
// inode sector is allocated releases it again.
func (s *Session) Create(path string, size int64, isDir bool) error {
	if size < 0 {
		size = 0
	}
	parent, name, err := s.fs.resolver.ResolveParent(path, s.cwd)
	if err != nil {
		return err
	}
	defer s.fs.Inodes.Close(parent)

	parentDir := directory.Open(s.fs.Inodes, parent)

	sector, ok := s.fs.Alloc.Allocate(1)
	if !ok {
		return fserrors.ErrNoSpace
	}

	if isDir {
		child, err := directory.Create(s.fs.Inodes, sector, parentDir.Sector())
		if err != nil {
			s.fs.Alloc.Release(sector, 1)
			return err
		}
		if err := parentDir.Add(name, sector); err != nil {
			s.fs.Inodes.Remove(child.Handle())
			s.fs.Inodes.Close(child.Handle())
			return err
		}
		s.fs.Inodes.Close(child.Handle())
		return nil
	}

	if err := s.fs.Inodes.Create(sector, size, device.NIL); err != nil {
		s.fs.Alloc.Release(sector, 1)
		return err
	}
	if err := parentDir.Add(name, sector); err != nil {
		h, openErr := s.fs.Inodes.Open(sector)
		if openErr == nil {
			s.fs.Inodes.Remove(h)
			s.fs.Inodes.Close(h)
		}
		return err
	}
	return nil
}

// Open resolves path and returns a FileHandle positioned at offset 0.
// "." and ".." at the final component return the directory itself or
// its parent, per the same rule applied during intermediate-component
// resolution.
func (s *Session) Open(path string) (*filehandle.FileHandle, error) {
	h, err := s.fs.resolver.Resolve(path, s.cwd)
	if err != nil {
		return nil, err
	}
	return filehandle.New(s.fs.Inodes, h, false), nil
}

// Remove implements remove(path): "." and ".." are
// disallowed as the final component (BadPath), and removing a
// non-empty directory is disallowed (DirectoryNotEmpty, enforced by
// directory.Remove).
func (s *Session) Remove(path string) error {
	parent, name, err := s.fs.resolver.ResolveParent(path, s.cwd)
	if err != nil {
		return err
	}
	defer s.fs.Inodes.Close(parent)

	return directory.Open(s.fs.Inodes, parent).Remove(name)
}

// Chdir resolves path to a directory and replaces s's current-directory
// handle with it, closing the previous one.
func (s *Session) Chdir(path string) error {
	h, err := s.fs.resolver.Resolve(path, s.cwd)
	if err != nil {
		return err
	}
	if !s.fs.Inodes.IsDir(h) {
		s.fs.Inodes.Close(h)
		return fserrors.ErrNotADirectory
	}
	if s.cwd != nil {
		s.fs.Inodes.Close(s.cwd)
	}
	s.cwd = h
	return nil
}

// Readdir resolves path to a directory and returns its entries,
// synthesized "." and ".." included.
func (s *Session) Readdir(path string) ([]directory.DirEntry, error) {
	h, err := s.fs.resolver.Resolve(path, s.cwd)
	if err != nil {
		return nil, err
	}
	defer s.fs.Inodes.Close(h)
	if !s.fs.Inodes.IsDir(h) {
		return nil, fserrors.ErrNotADirectory
	}
	return directory.Open(s.fs.Inodes, h).Readdir(), nil
}

// Shutdown implements the tail of the shutdown sequence: stop the
// cache's background tasks first, then flush every dirty slot, so the
// periodic write-back pass cannot race the final Flush. Callers are
// responsible for the earlier steps (stop accepting new syscalls, drain
// in-flight operations, close all sessions) before calling Shutdown.
func (f *FileSystem) Shutdown() {
	f.Cache.Close()
	f.Cache.Flush()
	log.Info("shutdown complete")
}
