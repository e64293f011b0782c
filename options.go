// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Option configures a Context during creation.
//
// Example:
//
//	// Headless context rendering only into textures
//	ctx, err := batch.New(device, queue)
//
//	// Context presenting to a window surface
//	ctx, err := batch.New(device, queue,
//	    batch.WithSurface(surface),
//	    batch.WithSurfaceSize(1280, 720),
//	    batch.WithPresentMode(gputypes.PresentModeFifo))
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	surface       hal.Surface
	surfaceFormat gputypes.TextureFormat
	width         uint32
	height        uint32
	presentMode   gputypes.PresentMode
	alphaMode     gputypes.CompositeAlphaMode

	vertexCapacity uint64
	indexCapacity  uint64

	spirv    bool
	validate bool

	logger *slog.Logger
	label  string
}

const (
	// DefaultVertexCapacity is the initial size in bytes of the shared
	// vertex buffer.
	DefaultVertexCapacity = 1 << 16

	// DefaultIndexCapacity is the initial size in bytes of the shared index
	// buffer.
	DefaultIndexCapacity = 1 << 16
)

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		surfaceFormat:  gputypes.TextureFormatBGRA8Unorm,
		presentMode:    gputypes.PresentModeFifo,
		alphaMode:      gputypes.CompositeAlphaModeOpaque,
		vertexCapacity: DefaultVertexCapacity,
		indexCapacity:  DefaultIndexCapacity,
		label:          "batch",
	}
}

// WithSurface attaches a presentable surface. The surface is configured
// when the context is created if WithSurfaceSize is also given, otherwise
// on the first ConfigureSurface call.
func WithSurface(s hal.Surface) Option {
	return func(o *options) {
		o.surface = s
	}
}

// WithSurfaceFormat sets the surface texture format. Pipelines drawing to
// the surface are built for this format. The default is BGRA8Unorm.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		if f != gputypes.TextureFormatUndefined {
			o.surfaceFormat = f
		}
	}
}

// WithSurfaceSize sets the initial surface size in pixels.
func WithSurfaceSize(width, height uint32) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithPresentMode sets the surface present mode. The default is Fifo.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(o *options) {
		o.presentMode = m
	}
}

// WithVertexCapacity sets the initial size in bytes of the shared vertex
// buffer. The buffer grows when a frame needs more.
func WithVertexCapacity(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.vertexCapacity = n
		}
	}
}

// WithIndexCapacity sets the initial size in bytes of the shared index
// buffer. The buffer grows when a frame needs more.
func WithIndexCapacity(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.indexCapacity = n
		}
	}
}

// WithSPIRVShaders compiles WGSL to SPIR-V with naga before handing it to
// the backend. Useful for backends without a WGSL front end.
func WithSPIRVShaders(enabled bool) Option {
	return func(o *options) {
		o.spirv = enabled
	}
}

// WithShaderValidation runs the naga IR validator on every shader module.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// WithLogger sets the logger of the context. The default is the package
// logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLabel sets the debug label prefix of GPU objects owned by the
// context.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}
