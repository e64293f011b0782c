// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import "github.com/gogpu/batch/internal/cache"

// frameStats are the counters of one frame.
type frameStats struct {
	batches  int
	draws    int
	uploaded uint64
}

// Stats is a snapshot of a context's resources and its last frame.
type Stats struct {
	// Frames is the number of frames whose commands reached the queue,
	// including frames whose present failed.
	Frames uint64

	// UniformBindings is the size of the uniform binding pool.
	UniformBindings int

	// Pipelines is the number of cached render pipelines.
	Pipelines int

	// PipelineCache reports hits and misses of pipeline lookups.
	PipelineCache cache.Stats

	// ShaderModules is the number of compiled shader modules.
	ShaderModules int

	// Textures is the number of live color and depth textures.
	Textures int

	// VertexCapacity and IndexCapacity are the shared buffer sizes in bytes.
	VertexCapacity uint64
	IndexCapacity  uint64

	// Batches, DrawCalls and BytesUploaded describe the last frame.
	Batches       int
	DrawCalls     int
	BytesUploaded uint64
}

// Stats returns current resource counts and the last frame's counters.
func (c *Context) Stats() Stats {
	s := Stats{
		Frames:        c.frames,
		Batches:       c.lastFrame.batches,
		DrawCalls:     c.lastFrame.draws,
		BytesUploaded: c.lastFrame.uploaded,
	}
	if c.closed {
		return s
	}
	s.UniformBindings = c.uniforms.Len()
	s.Pipelines = c.pipelines.Len()
	s.PipelineCache = c.pipelines.Stats()
	s.ShaderModules = c.shaders.Len()
	s.Textures = c.textures.Len()
	s.VertexCapacity = c.vertices.size
	s.IndexCapacity = c.indices.size
	return s
}
