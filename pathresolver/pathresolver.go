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

// Package pathresolver walks slash-separated paths over the directory
// package: absolute paths start at the root inode, relative paths start
// at a caller-supplied current directory, "." and ".." are handled
// specially, and every non-final component must both resolve and name a
// directory for the walk to continue.
package pathresolver

import (
	"strings"

	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/directory"
	"github.com/pintosfs/core/fserrors"
	"github.com/pintosfs/core/inode"
)

// Resolver walks paths against one InodeStore rooted at Root.
type Resolver struct {
	Store *inode.Store
	Root  device.SectorID
}

// split breaks path into its non-empty components, so "//a/b//" yields
// ["a", "b"]: empty components from a doubled or trailing slash are
// skipped.
func split(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// startHandle opens (or re-references) the inode the walk begins from:
// the root for an absolute path, cwd for a relative one.
func (r *Resolver) startHandle(path string, cwd *inode.Handle) (*inode.Handle, error) {
	if strings.HasPrefix(path, "/") {
		return r.Store.Open(r.Root)
	}
	if cwd == nil {
		return r.Store.Open(r.Root)
	}
	r.Store.Reopen(cwd)
	return cwd, nil
}

// step advances cur by one path component, closing cur and returning the
// next Handle. enforceDir requires the result to be a directory (used
// for every component but the last).
func (r *Resolver) step(cur *inode.Handle, comp string, enforceDir bool) (*inode.Handle, error) {
	if !r.Store.IsDir(cur) {
		r.Store.Close(cur)
		return nil, fserrors.ErrNotADirectory
	}
	d := directory.Open(r.Store, cur)

	var nextSector device.SectorID
	switch comp {
	case ".":
		nextSector = d.Sector()
	case "..":
		nextSector = d.ParentSector()
	default:
		sector, ok := d.Lookup(comp)
		if !ok {
			r.Store.Close(cur)
			return nil, fserrors.ErrNotFound
		}
		nextSector = sector
	}

	next, err := r.Store.Open(nextSector)
	r.Store.Close(cur)
	if err != nil {
		return nil, err
	}
	if enforceDir && !r.Store.IsDir(next) {
		r.Store.Close(next)
		return nil, fserrors.ErrNotADirectory
	}
	return next, nil
}

// Resolve walks path to completion and returns the final component's open
// Handle. The caller decides whether a non-directory result is
// acceptable; Resolve itself only enforces directory-ness at
// intermediate components.
func (r *Resolver) Resolve(path string, cwd *inode.Handle) (*inode.Handle, error) {
	comps := split(path)
	cur, err := r.startHandle(path, cwd)
	if err != nil {
		return nil, err
	}
	for i, comp := range comps {
		cur, err = r.step(cur, comp, i != len(comps)-1)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// ResolveParent splits path into (dir_part, name) and resolves dir_part,
// returning the open directory Handle and the final component's name.
// BadPath is returned for a path with no final component (empty path,
// or "/") or one whose final component is "." or "..".
func (r *Resolver) ResolveParent(path string, cwd *inode.Handle) (*inode.Handle, string, error) {
	comps := split(path)
	if len(comps) == 0 {
		return nil, "", fserrors.ErrBadPath
	}
	name := comps[len(comps)-1]
	if name == "." || name == ".." {
		return nil, "", fserrors.ErrBadPath
	}

	cur, err := r.startHandle(path, cwd)
	if err != nil {
		return nil, "", err
	}
	for _, comp := range comps[:len(comps)-1] {
		cur, err = r.step(cur, comp, true)
		if err != nil {
			return nil, "", err
		}
	}
	if !r.Store.IsDir(cur) {
		r.Store.Close(cur)
		return nil, "", fserrors.ErrNotADirectory
	}
	return cur, name, nil
}
