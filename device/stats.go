// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package device

// stats.go accumulates per shader type timing over iterations. The
// render device fills these when stats acquisition is enabled.

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ShaderType tags one timing bucket.
type ShaderType int

const (
	ShaderRayGeneration ShaderType = iota
	ShaderMiss
	ShaderHit
	ShaderAdvancedShadowHit
	ShaderAdvancedShadowMiss
	ShaderCallback
	ShaderTonemap
	ShaderImageInfo
	ShaderBake
)

// String returns the bucket display name.
func (s ShaderType) String() string {
	switch s {
	case ShaderRayGeneration:
		return "RayGeneration"
	case ShaderMiss:
		return "Miss"
	case ShaderHit:
		return "Hit"
	case ShaderAdvancedShadowHit:
		return "AdvancedShadowHit"
	case ShaderAdvancedShadowMiss:
		return "AdvancedShadowMiss"
	case ShaderCallback:
		return "Callback"
	case ShaderTonemap:
		return "Tonemap"
	case ShaderImageInfo:
		return "ImageInfo"
	case ShaderBake:
		return "Bake"
	default:
		return "Unknown"
	}
}

// ShaderStats is one bucket's accumulated numbers.
type ShaderStats struct {
	Count    int
	Elapsed  time.Duration
	Workload uint64 // rays or pixels processed
}

// Statistics aggregates launch timing across a session.
type Statistics struct {
	mu      sync.Mutex
	buckets map[ShaderType]*ShaderStats
}

// NewStatistics returns an empty aggregate.
func NewStatistics() *Statistics {
	return &Statistics{buckets: map[ShaderType]*ShaderStats{}}
}

// Add records one launch.
func (s *Statistics) Add(t ShaderType, elapsed time.Duration, workload uint64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[t]
	if !ok {
		b = &ShaderStats{}
		s.buckets[t] = b
	}
	b.Count++
	b.Elapsed += elapsed
	b.Workload += workload
}

// Get returns a copy of one bucket.
func (s *Statistics) Get(t ShaderType) ShaderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[t]; ok {
		return *b
	}
	return ShaderStats{}
}

// Dump renders a human readable table of all buckets.
func (s *Statistics) Dump() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]ShaderType, 0, len(s.buckets))
	for t := range s.buckets {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var sb strings.Builder
	sb.WriteString("Shader statistics:\n")
	for _, t := range types {
		b := s.buckets[t]
		fmt.Fprintf(&sb, "  %-20s %6d calls  %12v  %d items\n", t, b.Count, b.Elapsed, b.Workload)
	}
	return sb.String()
}
