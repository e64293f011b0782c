// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrLayoutMismatch is returned when two meshes with different vertex
	// layouts are merged.
	ErrLayoutMismatch = errors.New("mesh: vertex layouts differ")

	// ErrIndexOverflow is returned when a merge would reference a vertex
	// beyond the 16-bit index range.
	ErrIndexOverflow = errors.New("mesh: merged mesh exceeds 65536 vertices")

	// ErrInvalidMesh is returned for a mesh whose vertex bytes do not hold
	// a whole number of vertices or whose indices point past its vertices.
	ErrInvalidMesh = errors.New("mesh: invalid mesh")
)

// Mesh is the geometry of one draw request: byte-packed vertices, 16-bit
// triangle-list indices and the layout describing the vertex bytes.
type Mesh struct {
	// Vertices holds the raw vertex data, ArrayStride bytes per vertex.
	Vertices []byte

	// Indices are triangle-list indices local to Vertices.
	Indices []uint16

	// Layout describes the vertex bytes.
	Layout VertexLayout

	// MayBlend marks geometry that may produce non-opaque fragments. Such
	// geometry is batched by depth so blending stays back to front.
	MayBlend bool

	// MaxDepth is the highest depth value among the vertices.
	MaxDepth float32
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	c := *m
	c.Vertices = slices.Clone(m.Vertices)
	c.Indices = slices.Clone(m.Indices)
	c.Layout.Attributes = slices.Clone(m.Layout.Attributes)
	return &c
}

// VertexCount returns the number of vertices in m.
func (m *Mesh) VertexCount() int {
	return m.Layout.VertexCount(len(m.Vertices))
}

// Validate checks that the vertex bytes split into whole vertices of a
// non-zero stride and that every index names one of them.
func (m *Mesh) Validate() error {
	if err := m.checkVertices(); err != nil {
		return err
	}
	n := m.VertexCount()
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d is %d, mesh has %d vertices", ErrInvalidMesh, i, idx, n)
		}
	}
	return nil
}

func (m *Mesh) checkVertices() error {
	stride := m.Layout.ArrayStride
	if stride == 0 {
		if len(m.Vertices) == 0 && len(m.Indices) == 0 {
			return nil
		}
		return fmt.Errorf("%w: zero array stride", ErrInvalidMesh)
	}
	if uint64(len(m.Vertices))%stride != 0 {
		return fmt.Errorf("%w: %d vertex bytes at stride %d", ErrInvalidMesh, len(m.Vertices), stride)
	}
	return nil
}

// Merge appends other to m so both are drawn as one mesh. other's indices
// are rebased past m's vertices, and a degenerate bridge triangle
// (last index of m twice, then the last rebased index of other) separates
// the two index streams when both are non-empty. other is not modified.
//
// The merged mesh may blend if either input may, and its MaxDepth is the
// larger of the two. other must pass Validate and m must hold whole
// vertices; m's indices are not rechecked.
func (m *Mesh) Merge(other *Mesh) error {
	if err := m.checkVertices(); err != nil {
		return err
	}
	if !m.Layout.Equal(other.Layout) {
		return fmt.Errorf("%w: stride %d vs %d", ErrLayoutMismatch, m.Layout.ArrayStride, other.Layout.ArrayStride)
	}
	if err := other.Validate(); err != nil {
		return err
	}

	base := m.VertexCount()
	if base+other.VertexCount() > math.MaxUint16+1 {
		return fmt.Errorf("%w: %d + %d vertices", ErrIndexOverflow, base, other.VertexCount())
	}

	rebased := make([]uint16, len(other.Indices))
	for i, idx := range other.Indices {
		rebased[i] = idx + uint16(base) //nolint:gosec // bounded by the overflow check above
	}

	if len(m.Indices) > 0 && len(rebased) > 0 {
		last := m.Indices[len(m.Indices)-1]
		m.Indices = append(m.Indices, last, last, rebased[len(rebased)-1])
	}
	m.Indices = append(m.Indices, rebased...)
	m.Vertices = append(m.Vertices, other.Vertices...)

	if other.MaxDepth > m.MaxDepth {
		m.MaxDepth = other.MaxDepth
	}
	m.MayBlend = m.MayBlend || other.MayBlend
	return nil
}
