// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/batch"
	"github.com/gogpu/batch/mesh"
)

// vertexStride is a vec3 position followed by a vec4 color.
const vertexStride = 28

func quadLayout() mesh.VertexLayout {
	return mesh.VertexLayout{
		ArrayStride: vertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
		},
	}
}

// quad builds an axis-aligned rectangle centered on (x, y) at depth z.
// Colors with alpha below one are marked as blended.
func quad(x, y, half, z float32, c batch.Color) *mesh.Mesh {
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	c = c.Normalize()
	rgba := [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}

	vertices := make([]byte, 0, 4*vertexStride)
	for _, p := range corners {
		for _, v := range []float32{x + p[0]*half, y + p[1]*half, z} {
			vertices = binary.LittleEndian.AppendUint32(vertices, math.Float32bits(v))
		}
		for _, v := range rgba {
			vertices = binary.LittleEndian.AppendUint32(vertices, math.Float32bits(v))
		}
	}
	return &mesh.Mesh{
		Vertices: vertices,
		Indices:  []uint16{0, 1, 2, 2, 3, 0},
		Layout:   quadLayout(),
		MayBlend: c.A < 1,
		MaxDepth: z,
	}
}

// scene lays out n quads on a grid. Every third quad is translucent and
// sits on one of four depth layers. Opaque quads collapse into one batch;
// translucent ones keep their order, one batch per run of equal depth.
func scene(n int, sh batch.ShaderHandle) []batch.DrawRequest {
	if n <= 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	step := 2 / float32(cols)
	half := step * 0.4

	palette := []string{"#e06c75", "#98c379", "#61afef", "#c678dd", "#e5c07b"}
	reqs := make([]batch.DrawRequest, 0, n)
	for i := range n {
		col, row := i%cols, i/cols
		x := -1 + step*(float32(col)+0.5)
		y := 1 - step*(float32(row)+0.5)

		c := batch.Hex(palette[i%len(palette)])
		z := float32(0.5)
		if i%3 == 0 {
			c.A = 0.6
			z = 0.2 + 0.2*float32(i%4)
		}
		reqs = append(reqs, batch.DrawRequest{
			Mesh:     quad(x, y, half, z, c),
			Shader:   sh,
			Uniforms: []int{0},
		})
	}
	return reqs
}

// globals encodes the per-frame shader globals.
func globals(seconds, aspect float32) batch.UniformPayload {
	data := make([]byte, 0, 16)
	for _, v := range []float32{seconds, aspect, 0, 0} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	return batch.StaticUniform(data, gputypes.ShaderStageVertex)
}
