// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/google/uuid"

	"github.com/gogpu/batch/internal/key"
	"github.com/gogpu/batch/internal/pipeline"
	"github.com/gogpu/batch/internal/shader"
	"github.com/gogpu/batch/internal/texture"
	"github.com/gogpu/batch/internal/uniform"
)

// Context owns every GPU object the batching layer creates on one device:
// uniform bindings, pipelines, shader modules, textures and the shared
// vertex and index buffers. All of them live until Close.
//
// A Context must be used by one goroutine at a time.
type Context struct {
	id     uuid.UUID
	device hal.Device
	queue  hal.Queue
	logger *slog.Logger
	opts   options

	surface           hal.Surface
	surfaceConfigured bool
	width, height     uint32

	shaders   *shader.Registry
	textures  *texture.Manager
	uniforms  *uniform.Pool
	pipelines *pipeline.Cache

	vertices *sharedBuffer
	indices  *sharedBuffer

	inflight []submission
	retired  []retiredBuffer

	frames    uint64
	lastFrame frameStats
	closed    bool
}

// Ensure Context implements io.Closer.
var _ io.Closer = (*Context)(nil)

// New creates a context on an already opened device and queue.
//
// Example:
//
//	ctx, err := batch.New(openDev.Device, openDev.Queue,
//	    batch.WithSurface(surface), batch.WithSurfaceSize(800, 600))
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Context, error) {
	if device == nil || queue == nil {
		return nil, errors.New("batch: nil device or queue")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.New()
	logger := o.logger
	if logger == nil {
		logger = Logger()
	}
	logger = logger.With("context", id.String())

	c := &Context{
		id:      id,
		device:  device,
		queue:   queue,
		logger:  logger,
		opts:    o,
		surface: o.surface,
	}

	textures, err := texture.NewManager(device, queue, logger)
	if err != nil {
		return nil, err
	}
	c.textures = textures
	c.shaders = shader.NewRegistry(device, shader.Options{Validate: o.validate, SPIRV: o.spirv}, logger)
	c.uniforms = uniform.NewPool(device, logger)
	c.pipelines = pipeline.New(device, logger)

	c.vertices = &sharedBuffer{
		label: o.label + "_vertices",
		usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	}
	c.indices = &sharedBuffer{
		label: o.label + "_indices",
		usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	}
	if err := c.vertices.reserve(device, o.vertexCapacity); err != nil {
		c.destroy()
		return nil, err
	}
	if err := c.indices.reserve(device, o.indexCapacity); err != nil {
		c.destroy()
		return nil, err
	}

	if c.surface != nil && o.width > 0 && o.height > 0 {
		if err := c.ConfigureSurface(o.width, o.height); err != nil {
			c.destroy()
			return nil, err
		}
	}

	logger.Info("batch: context created",
		"label", o.label, "surface", c.surface != nil, "format", o.surfaceFormat,
		"spirv", o.spirv, "validate", o.validate)
	return c, nil
}

// NewFromProvider creates a context on a device shared by a host
// application. The provider must also expose its HAL objects through
// HalDevice() any and HalQueue() any. The provider's surface format, when
// defined, becomes the default surface format.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, errors.New("batch: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, errors.New("batch: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, errors.New("batch: provider HalQueue is not hal.Queue")
	}

	all := make([]Option, 0, len(opts)+1)
	all = append(all, WithSurfaceFormat(provider.SurfaceFormat()))
	all = append(all, opts...)
	return New(device, queue, all...)
}

// ID returns the identifier the context adds to its log records.
func (c *Context) ID() uuid.UUID { return c.id }

// SurfaceFormat returns the format pipelines drawing to the surface use.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return c.opts.surfaceFormat }

// ConfigureSurface (re)configures the surface for the given size. Call it
// after a window resize or when Render reports ErrSurfaceUnavailable.
func (c *Context) ConfigureSurface(width, height uint32) error {
	if c.closed {
		return ErrClosed
	}
	if c.surface == nil {
		return ErrNoSurface
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("batch: configure surface %dx%d: %w", width, height, hal.ErrZeroArea)
	}

	err := c.surface.Configure(c.device, &hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      c.opts.surfaceFormat,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: c.opts.presentMode,
		AlphaMode:   c.opts.alphaMode,
	})
	if err != nil {
		return fmt.Errorf("batch: configure surface: %w", err)
	}

	c.surfaceConfigured = true
	c.width, c.height = width, height
	c.logger.Info("batch: surface configured",
		"width", width, "height", height, "format", c.opts.surfaceFormat, "present_mode", c.opts.presentMode)
	return nil
}

// Close waits for the device to finish submitted work and releases every
// GPU object the context owns. The device, queue and surface themselves
// belong to the caller and stay alive. Close is idempotent.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.device.WaitIdle(); err != nil {
		c.logger.Warn("batch: wait idle on close", "err", err)
	}
	c.destroy()
	c.logger.Info("batch: context closed", "frames", c.frames)
	return nil
}

// destroy releases owned objects in reverse creation order.
func (c *Context) destroy() {
	for i := range c.inflight {
		c.inflight[i].release(c.device)
	}
	c.inflight = nil
	for _, r := range c.retired {
		c.device.DestroyBuffer(r.buffer)
	}
	c.retired = nil

	if c.surface != nil && c.surfaceConfigured {
		c.surface.Unconfigure(c.device)
		c.surfaceConfigured = false
	}
	if c.indices != nil {
		c.indices.destroy(c.device)
	}
	if c.vertices != nil {
		c.vertices.destroy(c.device)
	}
	if c.pipelines != nil {
		c.pipelines.Destroy()
	}
	if c.uniforms != nil {
		c.uniforms.Destroy()
	}
	if c.shaders != nil {
		c.shaders.Destroy()
	}
	if c.textures != nil {
		c.textures.Destroy()
	}
}

// resolver exposes the context's registries to the pipeline cache.
type resolver Context

func (r *resolver) Shader(id key.ShaderID) *shader.Shader {
	return r.shaders.Shader(id)
}

func (r *resolver) BindingLayout(id key.BindingID) hal.BindGroupLayout {
	b := r.uniforms.Binding(id)
	if b == nil {
		return nil
	}
	return b.Layout
}

func (r *resolver) TextureLayout() hal.BindGroupLayout {
	return r.textures.Layout()
}
