// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package texture owns the sampled, render-target and depth textures of a
// rendering context.
//
// Color textures are RGBA8 sRGB and double as offscreen render targets.
// Every color texture carries a bind group (sampler at binding 0, texture
// view at binding 1) built from one layout shared by all textures, so
// pipelines only depend on how many textures a draw binds. Depth textures
// are Depth32Float and have no bind group.
package texture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"

	"github.com/gogpu/batch/internal/key"
)

const (
	// ColorFormat is the format of every color texture.
	ColorFormat = gputypes.TextureFormatRGBA8UnormSrgb

	// DepthFormat is the format of every depth texture.
	DepthFormat = gputypes.TextureFormatDepth32Float

	bytesPerPixel = 4
)

var (
	// ErrNotFound is returned for ids that do not name a live texture.
	ErrNotFound = errors.New("texture: not found")

	// ErrSize is returned for zero dimensions or pixel data whose length does
	// not match the dimensions.
	ErrSize = errors.New("texture: size mismatch")
)

// Kind distinguishes color from depth textures.
type Kind uint8

const (
	KindColor Kind = iota
	KindDepth
)

// Texture is one GPU texture with its default view.
type Texture struct {
	ID     key.TextureID
	Kind   Kind
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat

	Handle hal.Texture
	View   hal.TextureView
	Group  hal.BindGroup // nil for depth textures

	pixels []byte // last uploaded content, kept for resizing
}

// Manager creates and tracks textures.
type Manager struct {
	device hal.Device
	queue  hal.Queue
	logger *slog.Logger

	layout  hal.BindGroupLayout
	sampler hal.Sampler

	textures map[key.TextureID]*Texture
	nextID   key.TextureID
}

// NewManager creates the shared bind group layout and sampler.
func NewManager(device hal.Device, queue hal.Queue, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "texture_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create texture bind group layout: %w", err)
	}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "texture_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		device.DestroyBindGroupLayout(layout)
		return nil, fmt.Errorf("create texture sampler: %w", err)
	}

	return &Manager{
		device:   device,
		queue:    queue,
		logger:   logger,
		layout:   layout,
		sampler:  sampler,
		textures: make(map[key.TextureID]*Texture),
	}, nil
}

// Layout returns the bind group layout shared by all color textures.
func (m *Manager) Layout() hal.BindGroupLayout { return m.layout }

// Len returns the number of live textures.
func (m *Manager) Len() int { return len(m.textures) }

// Get returns the texture with the given id.
func (m *Manager) Get(id key.TextureID) (*Texture, error) {
	t, ok := m.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return t, nil
}

// Create uploads RGBA8 pixels into a new color texture.
func (m *Manager) Create(pixels []byte, width, height uint32) (key.TextureID, error) {
	if err := checkPixels(pixels, width, height); err != nil {
		return 0, err
	}
	id := m.nextID
	t, err := m.newColor(id, width, height)
	if err != nil {
		return 0, err
	}
	if err := m.upload(t, pixels); err != nil {
		m.release(t)
		return 0, err
	}
	m.nextID++
	m.textures[id] = t
	m.logger.Debug("texture: created", "id", id, "width", width, "height", height)
	return id, nil
}

// CreateFromImage converts img to RGBA8 and uploads it into a new color
// texture.
func (m *Manager) CreateFromImage(img image.Image) (key.TextureID, error) {
	rgba := toRGBA(img)
	b := rgba.Bounds()
	return m.Create(rgba.Pix, uint32(b.Dx()), uint32(b.Dy())) //nolint:gosec // image bounds are non-negative
}

// CreateDepth creates a depth texture usable as a depth attachment.
func (m *Manager) CreateDepth(width, height uint32) (key.TextureID, error) {
	if width == 0 || height == 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrSize, width, height)
	}
	id := m.nextID
	t, err := m.newDepth(id, width, height)
	if err != nil {
		return 0, err
	}
	m.nextID++
	m.textures[id] = t
	m.logger.Debug("texture: created depth", "id", id, "width", width, "height", height)
	return id, nil
}

// Update replaces the content of a color texture. The pixel data must match
// the texture's current size.
func (m *Manager) Update(id key.TextureID, pixels []byte) error {
	t, err := m.Get(id)
	if err != nil {
		return err
	}
	if t.Kind != KindColor {
		return fmt.Errorf("%w: texture %d is a depth texture", ErrSize, id)
	}
	if err := checkPixels(pixels, t.Width, t.Height); err != nil {
		return err
	}
	return m.upload(t, pixels)
}

// Resize recreates a texture at a new size under the same id. Color
// content is rescaled to the new size when keepContent is set, otherwise
// the texture is cleared to transparent black.
func (m *Manager) Resize(id key.TextureID, width, height uint32, keepContent bool) error {
	old, err := m.Get(id)
	if err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrSize, width, height)
	}
	if old.Width == width && old.Height == height {
		return nil
	}

	if old.Kind == KindDepth {
		t, err := m.newDepth(id, width, height)
		if err != nil {
			return err
		}
		m.release(old)
		m.textures[id] = t
		return nil
	}

	pixels := make([]byte, int(width)*int(height)*bytesPerPixel)
	if keepContent && old.pixels != nil {
		pixels = scale(old.pixels, old.Width, old.Height, width, height)
	}
	t, err := m.newColor(id, width, height)
	if err != nil {
		return err
	}
	if err := m.upload(t, pixels); err != nil {
		m.release(t)
		return err
	}
	m.release(old)
	m.textures[id] = t
	m.logger.Debug("texture: resized", "id", id, "width", width, "height", height, "keep", keepContent)
	return nil
}

// Destroy releases every texture, then the shared sampler and layout.
func (m *Manager) Destroy() {
	ids := make([]key.TextureID, 0, len(m.textures))
	for id := range m.textures {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for i := len(ids) - 1; i >= 0; i-- {
		m.release(m.textures[ids[i]])
	}
	m.textures = make(map[key.TextureID]*Texture)

	if m.sampler != nil {
		m.device.DestroySampler(m.sampler)
		m.sampler = nil
	}
	if m.layout != nil {
		m.device.DestroyBindGroupLayout(m.layout)
		m.layout = nil
	}
}

func (m *Manager) newColor(id key.TextureID, width, height uint32) (*Texture, error) {
	label := fmt.Sprintf("texture_%d", id)
	handle, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        ColorFormat,
		Usage: gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}

	view, err := m.device.CreateTextureView(handle, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		m.device.DestroyTexture(handle)
		return nil, fmt.Errorf("create texture view: %w", err)
	}

	group, err := m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label + "_bind",
		Layout: m.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.SamplerBinding{Sampler: m.sampler.NativeHandle()}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
		},
	})
	if err != nil {
		m.device.DestroyTextureView(view)
		m.device.DestroyTexture(handle)
		return nil, fmt.Errorf("create texture bind group: %w", err)
	}

	return &Texture{
		ID:     id,
		Kind:   KindColor,
		Width:  width,
		Height: height,
		Format: ColorFormat,
		Handle: handle,
		View:   view,
		Group:  group,
	}, nil
}

func (m *Manager) newDepth(id key.TextureID, width, height uint32) (*Texture, error) {
	label := fmt.Sprintf("depth_texture_%d", id)
	handle, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("create depth texture: %w", err)
	}
	view, err := m.device.CreateTextureView(handle, &hal.TextureViewDescriptor{
		Label:  label + "_view",
		Aspect: gputypes.TextureAspectDepthOnly,
	})
	if err != nil {
		m.device.DestroyTexture(handle)
		return nil, fmt.Errorf("create depth texture view: %w", err)
	}
	return &Texture{
		ID:     id,
		Kind:   KindDepth,
		Width:  width,
		Height: height,
		Format: DepthFormat,
		Handle: handle,
		View:   view,
	}, nil
}

func (m *Manager) upload(t *Texture, pixels []byte) error {
	err := m.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.Handle,
			MipLevel: 0,
			Aspect:   gputypes.TextureAspectAll,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  t.Width * bytesPerPixel,
			RowsPerImage: t.Height,
		},
		&hal.Extent3D{Width: t.Width, Height: t.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("write texture %d: %w", t.ID, err)
	}
	t.pixels = slices.Clone(pixels)
	return nil
}

func (m *Manager) release(t *Texture) {
	if t.Group != nil {
		m.device.DestroyBindGroup(t.Group)
	}
	if t.View != nil {
		m.device.DestroyTextureView(t.View)
	}
	if t.Handle != nil {
		m.device.DestroyTexture(t.Handle)
	}
}

func checkPixels(pixels []byte, width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrSize, width, height)
	}
	if want := int(width) * int(height) * bytesPerPixel; len(pixels) != want {
		return fmt.Errorf("%w: %d bytes for %dx%d RGBA, want %d", ErrSize, len(pixels), width, height, want)
	}
	return nil
}

// toRGBA returns img as a tightly packed *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == b.Dx()*bytesPerPixel {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// scale resamples RGBA8 pixels to a new size.
func scale(pixels []byte, w, h, nw, nh uint32) []byte {
	src := &image.RGBA{
		Pix:    pixels,
		Stride: int(w) * bytesPerPixel,
		Rect:   image.Rect(0, 0, int(w), int(h)),
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(nw), int(nh)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst.Pix
}
