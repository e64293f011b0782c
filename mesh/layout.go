// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"encoding/binary"
	"slices"

	"github.com/gogpu/gputypes"
)

// VertexLayout describes how the bytes of a mesh's vertex buffer are
// interpreted by the vertex stage. Two layouts are equal when their stride,
// step mode and attribute lists match element by element.
type VertexLayout struct {
	// ArrayStride is the byte distance between consecutive vertices.
	ArrayStride uint64

	// StepMode is the vertex buffer step mode (per vertex or per instance).
	StepMode gputypes.VertexStepMode

	// Attributes lists the vertex attributes in shader location order.
	Attributes []gputypes.VertexAttribute
}

// Equal reports whether l and o describe the same vertex format.
func (l VertexLayout) Equal(o VertexLayout) bool {
	return l.ArrayStride == o.ArrayStride &&
		l.StepMode == o.StepMode &&
		slices.Equal(l.Attributes, o.Attributes)
}

// Buffer returns the layout as a gputypes vertex buffer layout suitable for
// a render pipeline descriptor.
func (l VertexLayout) Buffer() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: l.ArrayStride,
		StepMode:    l.StepMode,
		Attributes:  slices.Clone(l.Attributes),
	}
}

// AppendKey appends a canonical binary encoding of the layout to b.
// Layouts that are Equal produce identical encodings.
func (l VertexLayout) AppendKey(b []byte) []byte {
	b = binary.LittleEndian.AppendUint64(b, l.ArrayStride)
	b = binary.LittleEndian.AppendUint32(b, uint32(l.StepMode))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(l.Attributes))) //nolint:gosec // attribute count is tiny
	for _, a := range l.Attributes {
		b = binary.LittleEndian.AppendUint32(b, uint32(a.Format))
		b = binary.LittleEndian.AppendUint64(b, a.Offset)
		b = binary.LittleEndian.AppendUint32(b, a.ShaderLocation)
	}
	return b
}

// VertexCount returns how many whole vertices fit in n bytes.
func (l VertexLayout) VertexCount(n int) int {
	if l.ArrayStride == 0 {
		return 0
	}
	return n / int(l.ArrayStride) //nolint:gosec // stride is a small positive value
}
