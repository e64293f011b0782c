// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import "encoding/binary"

// indexAlignment is the index count every padded index list is a multiple
// of. It keeps each batch's index byte range on the 4-byte copy alignment.
const indexAlignment = 4

// indexSize is the byte size of one index.
const indexSize = 2

// Span is a half-open byte range [Start, End) into a shared buffer.
type Span struct {
	Start uint64
	End   uint64
}

// Len returns the number of bytes in the span.
func (s Span) Len() uint64 { return s.End - s.Start }

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool { return s.Start == s.End }

// Slice locates one mesh inside the packed buffers.
type Slice struct {
	// Vertex is the byte range of the mesh's vertices.
	Vertex Span

	// Index is the byte range of the mesh's padded indices.
	Index Span

	// IndexCount is the number of indices to draw, padding included.
	IndexCount uint32
}

// Empty reports whether the slice has nothing to draw. Empty slices are
// skipped by the renderer.
func (s Slice) Empty() bool {
	return s.Vertex.Empty() || s.Index.Empty()
}

// Packed is the result of Pack: one vertex buffer, one index buffer and the
// location of every input mesh within them.
type Packed struct {
	// Vertices is the concatenation of all vertex bytes in input order.
	Vertices []byte

	// Indices is the concatenation of all padded index lists in input order.
	// Indices stay local to their mesh; each draw binds its own vertex range.
	Indices []uint16

	// Slices holds one entry per input mesh, in input order.
	Slices []Slice
}

// IndexBytes returns the packed indices encoded little-endian, ready for
// upload.
func (p *Packed) IndexBytes() []byte {
	out := make([]byte, 0, len(p.Indices)*indexSize)
	for _, idx := range p.Indices {
		out = binary.LittleEndian.AppendUint16(out, idx)
	}
	return out
}

// PadIndices returns indices extended with copies of its last element until
// the length is a multiple of four. The repeated index only adds degenerate
// triangles. Empty input is returned unchanged.
func PadIndices(indices []uint16) []uint16 {
	if len(indices) == 0 || len(indices)%indexAlignment == 0 {
		return indices
	}
	last := indices[len(indices)-1]
	for len(indices)%indexAlignment != 0 {
		indices = append(indices, last)
	}
	return indices
}

// Pack concatenates the vertex and index data of meshes in a single pass,
// padding each index list with PadIndices first. Input meshes are not
// modified.
func Pack(meshes []*Mesh) Packed {
	var vertexBytes, indexCount int
	for _, m := range meshes {
		vertexBytes += len(m.Vertices)
		indexCount += len(m.Indices) + indexAlignment
	}

	p := Packed{
		Vertices: make([]byte, 0, vertexBytes),
		Indices:  make([]uint16, 0, indexCount),
		Slices:   make([]Slice, 0, len(meshes)),
	}

	var vertexEnd, indexEnd uint64
	for _, m := range meshes {
		indices := PadIndices(append([]uint16(nil), m.Indices...))

		vertexStart, indexStart := vertexEnd, indexEnd
		vertexEnd += uint64(len(m.Vertices))
		indexEnd += uint64(len(indices) * indexSize)

		p.Vertices = append(p.Vertices, m.Vertices...)
		p.Indices = append(p.Indices, indices...)
		p.Slices = append(p.Slices, Slice{
			Vertex:     Span{Start: vertexStart, End: vertexEnd},
			Index:      Span{Start: indexStart, End: indexEnd},
			IndexCount: uint32(len(indices)), //nolint:gosec // bounded by the u16 vertex space
		})
	}
	return p
}
