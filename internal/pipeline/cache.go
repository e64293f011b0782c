// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline memoizes render pipelines by structural key.
//
// A pipeline is built on the first request for its key from the bind group
// layouts of its uniform bindings (in order), one shared texture layout per
// bound texture, the vertex layout and the shader entry points. Every
// pipeline uses a triangle list with counter-clockwise front faces, back
// face culling and alpha-over blending; a less-than, write-enabled depth
// test is added when the key asks for a depth attachment.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/batch/internal/cache"
	"github.com/gogpu/batch/internal/key"
	"github.com/gogpu/batch/internal/shader"
)

// DepthFormat is the depth attachment format pipelines are built for.
const DepthFormat = gputypes.TextureFormatDepth32Float

// ErrUnresolved is returned when a key names a shader or binding the
// resolver does not know.
var ErrUnresolved = errors.New("pipeline: unresolved resource")

// Resolver supplies the objects a pipeline key refers to.
type Resolver interface {
	// Shader returns the linked shader for id, or nil.
	Shader(id key.ShaderID) *shader.Shader

	// BindingLayout returns the bind group layout of a uniform binding, or nil.
	BindingLayout(id key.BindingID) hal.BindGroupLayout

	// TextureLayout returns the layout shared by all texture bind groups.
	TextureLayout() hal.BindGroupLayout
}

type entry struct {
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

// Cache owns the render pipelines of one rendering context.
type Cache struct {
	device hal.Device
	logger *slog.Logger
	store  *cache.Cache[string, *entry]
	built  int
}

// New creates an empty pipeline cache on device.
func New(device hal.Device, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		device: device,
		logger: logger,
		store:  cache.New[string, *entry](),
	}
}

// Ensure returns the pipeline for k, creating it on first use. Repeated
// calls with an equal key return the same object.
func (c *Cache) Ensure(k *key.Pipeline, r Resolver) (hal.RenderPipeline, error) {
	e, created, err := c.store.GetOrCreate(k.Fingerprint(), func() (*entry, error) {
		return c.build(k, r)
	})
	if err != nil {
		return nil, err
	}
	if created {
		c.logger.Debug("pipeline: created",
			"shader", k.Shader, "bindings", len(k.Bindings), "textures", k.TextureCount,
			"format", k.Format, "depth", k.Depth)
	}
	return e.pipeline, nil
}

// Len returns the number of cached pipelines.
func (c *Cache) Len() int { return c.store.Len() }

// Stats returns hit and miss counts of the cache.
func (c *Cache) Stats() cache.Stats { return c.store.Stats() }

// Destroy releases every pipeline in reverse creation order.
func (c *Cache) Destroy() {
	for _, e := range c.store.Drain() {
		c.device.DestroyRenderPipeline(e.pipeline)
		c.device.DestroyPipelineLayout(e.layout)
	}
}

func (c *Cache) build(k *key.Pipeline, r Resolver) (*entry, error) {
	sh := r.Shader(k.Shader)
	if sh == nil {
		return nil, fmt.Errorf("%w: shader %d", ErrUnresolved, k.Shader)
	}

	layouts := make([]hal.BindGroupLayout, 0, len(k.Bindings)+k.TextureCount)
	for _, id := range k.Bindings {
		l := r.BindingLayout(id)
		if l == nil {
			return nil, fmt.Errorf("%w: uniform binding %d", ErrUnresolved, id)
		}
		layouts = append(layouts, l)
	}
	for range k.TextureCount {
		layouts = append(layouts, r.TextureLayout())
	}

	label := fmt.Sprintf("batch_pipeline_%d", c.built)
	layout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	blend := gputypes.BlendStateAlpha()
	desc := &hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     sh.Vertex.Handle,
			EntryPoint: sh.VertexEntry,
			Buffers:    []gputypes.VertexBufferLayout{k.Layout.Buffer()},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeBack,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     sh.Fragment.Handle,
			EntryPoint: sh.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    k.Format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
	}
	if k.Depth {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      keep,
			StencilBack:       keep,
		}
	}

	pipeline, err := c.device.CreateRenderPipeline(desc)
	if err != nil {
		c.device.DestroyPipelineLayout(layout)
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	c.built++
	return &entry{layout: layout, pipeline: pipeline}, nil
}
