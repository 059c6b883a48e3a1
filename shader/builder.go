// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package shader composes the rendering script sources handed to the
// compiler device. Sources are stitched from many sub-generators, so the
// builder tracks includes, functions and statements separately and
// deduplicates on merge; the final text is concatenated once.
package shader

import (
	"log/slog"
	"sort"
	"strings"
)

// Builder accumulates one shader source. The zero value is ready to use.
type Builder struct {
	includes   map[string]struct{}
	functions  map[string]*Builder
	funcOrder  []string
	statements []string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		includes:  map[string]struct{}{},
		functions: map[string]*Builder{},
	}
}

// ensure lazily allocates the maps so the zero value works too.
func (b *Builder) ensure() {
	if b.includes == nil {
		b.includes = map[string]struct{}{}
	}
	if b.functions == nil {
		b.functions = map[string]*Builder{}
	}
}

// AddInclude registers an include, deduplicated by name.
func (b *Builder) AddInclude(inc string) *Builder {
	b.ensure()
	b.includes[inc] = struct{}{}
	return b
}

// AddStatement appends one statement line.
func (b *Builder) AddStatement(statement string) *Builder {
	b.statements = append(b.statements, statement)
	return b
}

// AddStatements appends several statement lines.
func (b *Builder) AddStatements(statements ...string) *Builder {
	b.statements = append(b.statements, statements...)
	return b
}

// AddFunction registers a named function with the given body. A second
// registration under the same definition is dropped with an error log;
// sub-generators memoize through this. The body's includes are hoisted
// into the parent.
func (b *Builder) AddFunction(def string, body *Builder) *Builder {
	b.ensure()
	if _, exists := b.functions[def]; exists {
		slog.Error("shader builder: function def already exists", "def", def)
		return b
	}
	for inc := range body.includes {
		b.includes[inc] = struct{}{}
	}
	clone := &Builder{
		functions:  body.functions,
		funcOrder:  body.funcOrder,
		statements: body.statements,
	}
	b.functions[def] = clone
	b.funcOrder = append(b.funcOrder, def)
	return b
}

// HasFunction reports whether a function was already registered. Used
// by the shading tree to memoize per-texture closures.
func (b *Builder) HasFunction(def string) bool {
	_, ok := b.functions[def]
	return ok
}

// Merge folds another builder's content into this one. Includes and
// functions deduplicate; statements append in order.
func (b *Builder) Merge(other *Builder) *Builder {
	b.ensure()
	for inc := range other.includes {
		b.includes[inc] = struct{}{}
	}
	for _, def := range other.funcOrder {
		if _, exists := b.functions[def]; exists {
			continue
		}
		b.functions[def] = other.functions[def]
		b.funcOrder = append(b.funcOrder, def)
	}
	b.statements = append(b.statements, other.statements...)
	return b
}

// IsRoot reports whether no statements were added yet.
func (b *Builder) IsRoot() bool { return len(b.statements) == 0 }

// Build renders the final source: includes first (sorted for stable
// output), then functions in registration order, then statements.
func (b *Builder) Build() string {
	var sb strings.Builder
	b.buildInto(&sb, true)
	return sb.String()
}

func (b *Builder) buildInto(sb *strings.Builder, withIncludes bool) {
	if withIncludes {
		incs := make([]string, 0, len(b.includes))
		for inc := range b.includes {
			incs = append(incs, inc)
		}
		sort.Strings(incs)
		for _, inc := range incs {
			sb.WriteString("//#<include=\"")
			sb.WriteString(inc)
			sb.WriteString("\"\n")
		}
	}
	for _, def := range b.funcOrder {
		sb.WriteString("fn @")
		sb.WriteString(def)
		sb.WriteString("{\n")
		b.functions[def].buildInto(sb, false)
		sb.WriteString("}\n")
	}
	for _, stmt := range b.statements {
		sb.WriteString(stmt)
		sb.WriteString("\n")
	}
}
