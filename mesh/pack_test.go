// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"slices"
	"testing"
)

func TestPadIndices(t *testing.T) {
	tests := []struct {
		name string
		in   []uint16
		want []uint16
	}{
		{"empty", nil, nil},
		{"aligned", []uint16{0, 1, 2, 3}, []uint16{0, 1, 2, 3}},
		{"one", []uint16{7}, []uint16{7, 7, 7, 7}},
		{"three", []uint16{0, 1, 2}, []uint16{0, 1, 2, 2}},
		{"five", []uint16{0, 1, 2, 3, 4}, []uint16{0, 1, 2, 3, 4, 4, 4, 4}},
		{"six", []uint16{0, 1, 2, 2, 3, 0}, []uint16{0, 1, 2, 2, 3, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadIndices(slices.Clone(tt.in))
			if !slices.Equal(got, tt.want) {
				t.Errorf("PadIndices(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if len(got)%4 != 0 {
				t.Errorf("padded length %d is not a multiple of 4", len(got))
			}
		})
	}
}

func TestPackOffsets(t *testing.T) {
	a := triangle(0, false)
	for i := range a.Vertices {
		a.Vertices[i] = 0xAA
	}
	b := &Mesh{
		Vertices: make([]byte, 4*8),
		Indices:  []uint16{0, 1, 2, 2, 3, 0},
		Layout:   positionLayout(),
	}
	for i := range b.Vertices {
		b.Vertices[i] = 0xBB
	}

	p := Pack([]*Mesh{a, b})

	if len(p.Slices) != 2 {
		t.Fatalf("got %d slices, want 2", len(p.Slices))
	}

	sa, sb := p.Slices[0], p.Slices[1]
	if sa.Vertex != (Span{0, 24}) {
		t.Errorf("a vertex span = %+v, want {0 24}", sa.Vertex)
	}
	if sb.Vertex != (Span{24, 56}) {
		t.Errorf("b vertex span = %+v, want {24 56}", sb.Vertex)
	}
	// a: 3 indices padded to 4 -> 8 bytes. b: 6 padded to 8 -> 16 bytes.
	if sa.Index != (Span{0, 8}) || sa.IndexCount != 4 {
		t.Errorf("a index span = %+v count %d, want {0 8} count 4", sa.Index, sa.IndexCount)
	}
	if sb.Index != (Span{8, 24}) || sb.IndexCount != 8 {
		t.Errorf("b index span = %+v count %d, want {8 24} count 8", sb.Index, sb.IndexCount)
	}

	// Vertex content is never padded.
	if len(p.Vertices) != 56 {
		t.Fatalf("vertex bytes = %d, want 56", len(p.Vertices))
	}
	if p.Vertices[23] != 0xAA || p.Vertices[24] != 0xBB {
		t.Error("vertex data not concatenated in input order")
	}

	// Indices stay local to their mesh.
	wantIdx := []uint16{0, 1, 2, 2, 0, 1, 2, 2, 3, 0, 0, 0}
	if !slices.Equal(p.Indices, wantIdx) {
		t.Errorf("indices = %v, want %v", p.Indices, wantIdx)
	}
	if got := len(p.IndexBytes()); uint64(got) != sb.Index.End {
		t.Errorf("index bytes = %d, want %d", got, sb.Index.End)
	}

	// Inputs are untouched.
	if len(a.Indices) != 3 {
		t.Errorf("Pack modified input indices: %v", a.Indices)
	}
}

func TestPackEmptyMesh(t *testing.T) {
	empty := &Mesh{Layout: positionLayout()}
	p := Pack([]*Mesh{triangle(0, false), empty, triangle(0, false)})

	if !p.Slices[1].Empty() {
		t.Errorf("empty mesh slice = %+v, want empty", p.Slices[1])
	}
	if p.Slices[1].Vertex.Start != p.Slices[0].Vertex.End {
		t.Error("empty slice does not sit at the running end offset")
	}
	if p.Slices[2].Vertex.Start != 24 {
		t.Errorf("third slice vertex start = %d, want 24", p.Slices[2].Vertex.Start)
	}
	for i, s := range p.Slices {
		if s.Index.Start%4 != 0 || s.Index.End%4 != 0 {
			t.Errorf("slice %d index span %+v not 4-byte aligned", i, s.Index)
		}
	}
}

func TestIndexBytesLittleEndian(t *testing.T) {
	p := Packed{Indices: []uint16{0x0102, 0x0304}}
	got := p.IndexBytes()
	want := []byte{0x02, 0x01, 0x04, 0x03}
	if !slices.Equal(got, want) {
		t.Errorf("IndexBytes = %x, want %x", got, want)
	}
}
