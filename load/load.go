// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package load fetches disk based mesh data for the shape providers.
// Data is returned in the TriMesh intermediate format, close to how it
// was stored on disk; the loader applies transforms and serialization
// afterwards.
//
//	Data                    File             Used For
//	-----                   -----            --------
//	wavefront meshes      : file.obj        --> shape geometry
//	polygon meshes        : file.ply        --> shape geometry
//	serialized meshes     : file.serialized --> shape geometry (Mitsuba)
//	compressed buffers    : *.bin           --> cached typed arrays
//
// Package load is provided as part of the ignis ray tracer.
package load

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Locator resolves shape file references against a set of search
// directories. Scene files reference meshes relative to themselves
// first, then relative to any registered directory.
type Locator struct {
	dirs []string
}

// NewLocator returns a locator rooted at the given directories. The
// first directory is usually the scene file's own directory.
func NewLocator(dirs ...string) *Locator {
	l := &Locator{}
	for _, d := range dirs {
		l.AddDir(d)
	}
	return l
}

// AddDir appends a search directory. Empty entries are dropped.
func (l *Locator) AddDir(dir string) *Locator {
	if dir != "" {
		l.dirs = append(l.dirs, dir)
	}
	return l
}

// Resolve returns the first existing path for name. Absolute names that
// exist resolve to themselves.
func (l *Locator) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("load: empty file name")
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		return "", fmt.Errorf("load: %s not found", name)
	}
	for _, dir := range l.dirs {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	return "", fmt.Errorf("load: %s not found in %v", name, l.dirs)
}

// Open resolves and opens the named file.
func (l *Locator) Open(name string) (io.ReadCloser, error) {
	p, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("load: open %s: %w", p, err)
	}
	return f, nil
}

// Ext returns the lower case file extension without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
