// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package mesh holds the CPU-side geometry of draw requests and the packer
// that concatenates a frame's meshes into one vertex and one index upload.
//
// A Mesh is byte-packed vertex data plus 16-bit triangle-list indices:
//
//	quad := &mesh.Mesh{
//	    Vertices: vertexBytes,
//	    Indices:  []uint16{0, 1, 2, 2, 3, 0},
//	    Layout:   layout,
//	}
//
// Merge fuses two meshes with the same layout into one logical mesh,
// rebasing the second mesh's indices. Pack lays out a list of meshes back to
// back and reports the byte range of each, padding index lists to a multiple
// of four so every range stays 4-byte aligned:
//
//	packed := mesh.Pack([]*mesh.Mesh{a, b})
//	for _, s := range packed.Slices {
//	    if s.Empty() {
//	        continue
//	    }
//	    // bind vertex range s.Vertex and index range s.Index, draw s.IndexCount
//	}
package mesh
