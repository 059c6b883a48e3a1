// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLookupAlignment(t *testing.T) {
	var table DynTable

	b := table.AddLookup(1, 0, 16)
	_, err := b.Write([]byte{1, 2, 3}) // 3 bytes, forces padding for next entry
	require.NoError(t, err)

	table.AddLookup(2, 0, 16)
	table.AddLookup(3, 7, 4)

	lookups := table.Lookups()
	require.Len(t, lookups, 3)
	assert.EqualValues(t, 0, lookups[0].Offset)
	assert.EqualValues(t, 16, lookups[1].Offset, "second entry must be padded to 16")
	assert.EqualValues(t, 0, lookups[2].Offset%4)
	assert.EqualValues(t, 7, lookups[2].Flags)

	assert.NoError(t, table.Validate(4))
}

func TestAddLookupOffsetsStrictlyIncrease(t *testing.T) {
	var table DynTable
	for i := 0; i < 8; i++ {
		b := table.AddLookup(uint32(i), 0, 16)
		_, err := b.Write(make([]byte, i+1))
		require.NoError(t, err)
	}
	prev := int64(-1)
	for _, l := range table.Lookups() {
		assert.Greater(t, int64(l.Offset), prev)
		prev = int64(l.Offset)
	}
	assert.NoError(t, table.Validate(16))
}

func TestFixTableOffsets(t *testing.T) {
	var pool FixTable
	b, off := pool.AddEntry(16)
	require.EqualValues(t, 0, off)
	_, err := b.Write(make([]byte, 20))
	require.NoError(t, err)

	_, off2 := pool.AddEntry(16)
	assert.EqualValues(t, 32, off2, "second pool entry must start at next 16 byte boundary")
	assert.EqualValues(t, 32, pool.CurrentOffset())
}

func TestSerializerLayout(t *testing.T) {
	var table DynTable
	blob := table.AddLookup(0, 0, 0)
	s := NewSerializer(blob)
	s.WriteU32(0xDEADBEEF)
	s.WriteF32(1.0)
	s.Align(16)
	require.Equal(t, 16, s.Written())

	data := table.Data()
	require.Len(t, data, 16)
	assert.Equal(t, byte(0xEF), data[0], "little endian first byte")
	assert.Equal(t, []byte{0, 0, 0x80, 0x3F}, data[4:8], "float 1.0 bits")

	f := F32View(data)
	assert.InDelta(t, 1.0, f[1], 0)
}

func TestSplitJoinU64(t *testing.T) {
	for _, v := range []uint64{0, 1, 0xFFFFFFFF, 0x1_0000_0000, 0x1234_5678_9ABC_DEF0} {
		lo, hi := SplitU64(v)
		assert.Equal(t, v, JoinU32(lo, hi))
	}
}

func TestDatabaseTablesCreatedOnDemand(t *testing.T) {
	db := NewDatabase()
	a := db.Table("shapes")
	b := db.Table("shapes")
	assert.Same(t, a, b)
	assert.True(t, db.SceneBBox.IsEmpty())
}
