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

// Package filehandle implements the per-caller open-file cursor: a
// position plus a reference to a shared inode Handle. A FileHandle is
// owned by a single caller and is not itself thread-safe; inode handles
// are the layer that is shared and reference-counted.
package filehandle

import (
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/inode"
)

// FileHandle is one open()'s view onto a shared inode.Handle.
type FileHandle struct {
	store     *inode.Store
	handle    *inode.Handle
	pos       int64
	denyWrite bool
}

// New wraps an already-open inode Handle. If denyWrite is true the
// caller has already arranged for inode.Store.DenyWrite(handle) to have
// been called (the loader's use case); Close will undo it.
func New(store *inode.Store, handle *inode.Handle, denyWrite bool) *FileHandle {
	return &FileHandle{store: store, handle: handle, denyWrite: denyWrite}
}

// Handle returns the underlying shared inode Handle.
func (f *FileHandle) Handle() *inode.Handle { return f.handle }

// Read copies up to len(buf) bytes starting at the handle's current
// position into buf, advances the position by the amount read, and
// returns that amount.
func (f *FileHandle) Read(buf []byte) int {
	n := f.store.ReadAt(f.handle, buf, f.pos)
	f.pos += int64(n)
	return n
}

// Write copies buf to the handle's current position, growing the file if
// necessary, advances the position, and returns the amount written (0 if
// denied by DenyWrite).
func (f *FileHandle) Write(buf []byte) int {
	n := f.store.WriteAt(f.handle, buf, f.pos)
	f.pos += int64(n)
	return n
}

// Seek sets the handle's position. Seeking past the current length is
// allowed; a subsequent write there grows the file, a read there returns
// zero bytes.
func (f *FileHandle) Seek(pos int64) { f.pos = pos }

// Tell returns the handle's current position.
func (f *FileHandle) Tell() int64 { return f.pos }

// Length returns the underlying inode's current byte length.
func (f *FileHandle) Length() int64 { return f.store.Length(f.handle) }

// Inumber returns the underlying inode's sector number.
func (f *FileHandle) Inumber() device.SectorID { return f.store.Inumber(f.handle) }

// Close releases the handle: if denyWrite was set it first calls
// AllowWrite, then closes the shared inode Handle.
func (f *FileHandle) Close() {
	if f.denyWrite {
		f.store.AllowWrite(f.handle)
	}
	f.store.Close(f.handle)
}
