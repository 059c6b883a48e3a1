// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package scenedb holds the binary scene database produced by the loader
// and consumed by the render device. The database is a set of dynamically
// typed tables (DynTable) for variable records like shapes and lights,
// fixed layout pools (FixTable) for BVH blobs, and scene wide metadata.
// All content is little-endian and laid out exactly as the kernels read it.
package scenedb

import "fmt"

// DefaultAlignment is the byte alignment used for table entries unless a
// caller asks for something stricter. Matches the widest SIMD load the
// kernels perform.
const DefaultAlignment = 16

// LookupEntry locates one typed record inside a DynTable blob.
type LookupEntry struct {
	TypeID uint32
	Flags  uint32
	Offset uint64 // byte offset into the table data region
}

// DynTable is a dynamically typed binary region: lookup entries plus one
// contiguous byte blob. Entries are appended through AddLookup which
// hands back an appender positioned at the new record's offset.
type DynTable struct {
	lookups []LookupEntry
	data    []byte
}

// Blob appends bytes for exactly one table entry. It remembers which
// table it belongs to so appends always land at the end of the shared
// data region.
type Blob struct {
	table *DynTable
}

// EntryCount returns the number of records in the table.
func (t *DynTable) EntryCount() int { return len(t.lookups) }

// Lookups returns the recorded entries.
func (t *DynTable) Lookups() []LookupEntry { return t.lookups }

// Data returns the raw data region.
func (t *DynTable) Data() []byte { return t.data }

// Reserve pre-allocates the data region.
func (t *DynTable) Reserve(size int) {
	if cap(t.data) < size {
		grown := make([]byte, len(t.data), size)
		copy(grown, t.data)
		t.data = grown
	}
}

// AddLookup pads the data region to align, records a lookup entry at the
// padded offset and returns an appender for the new record's bytes.
// Offsets are strictly increasing per table.
func (t *DynTable) AddLookup(typeID, flags uint32, align int) *Blob {
	// An empty previous record still gets a byte of its own, so no two
	// entries share an offset.
	if n := len(t.lookups); n > 0 && t.lookups[n-1].Offset == uint64(len(t.data)) {
		t.data = append(t.data, 0)
	}
	if align > 0 && len(t.data) > 0 {
		if defect := len(t.data) % align; defect != 0 {
			t.data = append(t.data, make([]byte, align-defect)...)
		}
	}
	t.lookups = append(t.lookups, LookupEntry{TypeID: typeID, Flags: flags, Offset: uint64(len(t.data))})
	return &Blob{table: t}
}

// Write appends bytes to the record opened by AddLookup.
func (b *Blob) Write(p []byte) (int, error) {
	b.table.data = append(b.table.data, p...)
	return len(p), nil
}

// Size returns the serialized byte size of the table: a count header,
// the lookup entries and the data region.
func (t *DynTable) Size() int {
	return 4 + len(t.lookups)*16 + len(t.data)
}

// Validate checks the offset invariants. It returns ErrMisaligned when an
// entry offset does not respect align, and an error when offsets are not
// strictly increasing.
func (t *DynTable) Validate(align int) error {
	prev := int64(-1)
	for i, l := range t.lookups {
		if align > 0 && l.Offset%uint64(align) != 0 {
			return fmt.Errorf("%w: entry %d at offset %d, align %d", ErrMisaligned, i, l.Offset, align)
		}
		if int64(l.Offset) <= prev {
			return fmt.Errorf("dyntable: entry %d offset %d not increasing", i, l.Offset)
		}
		prev = int64(l.Offset)
	}
	return nil
}

// ErrMisaligned reports a lookup entry that violates its alignment.
var ErrMisaligned = fmt.Errorf("dyntable: misaligned entry")

// FixTable is a fixed layout pool: entries share one blob and are
// addressed by the byte offset returned at append time. Used for the
// per-shape BVH pools.
type FixTable struct {
	data []byte
}

// AddEntry pads the pool to align and returns an appender plus the entry
// start offset in bytes.
func (t *FixTable) AddEntry(align int) (*FixBlob, uint64) {
	if align > 0 && len(t.data) > 0 {
		if defect := len(t.data) % align; defect != 0 {
			t.data = append(t.data, make([]byte, align-defect)...)
		}
	}
	return &FixBlob{table: t}, uint64(len(t.data))
}

// CurrentOffset returns the current pool size in bytes.
func (t *FixTable) CurrentOffset() uint64 { return uint64(len(t.data)) }

// Data returns the raw pool bytes.
func (t *FixTable) Data() []byte { return t.data }

// FixBlob appends bytes to a FixTable entry.
type FixBlob struct {
	table *FixTable
}

// Write appends bytes to the pool.
func (b *FixBlob) Write(p []byte) (int, error) {
	b.table.data = append(b.table.data, p...)
	return len(p), nil
}
