// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	m, err := NewManager(device, queue, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Destroy)
	return m
}

func TestCreate(t *testing.T) {
	m := newManager(t)

	id, err := m.Create(make([]byte, 4*2*3), 2, 3)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	tex, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if tex.Width != 2 || tex.Height != 3 || tex.Kind != KindColor {
		t.Errorf("texture = %dx%d kind %d", tex.Width, tex.Height, tex.Kind)
	}
	if tex.Format != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("format = %v, want RGBA8UnormSrgb", tex.Format)
	}
	if tex.Group == nil {
		t.Error("color texture has no bind group")
	}
}

func TestCreateRejectsBadSizes(t *testing.T) {
	m := newManager(t)

	tests := []struct {
		name string
		n    int
		w, h uint32
	}{
		{"zero width", 0, 0, 4},
		{"short data", 15, 2, 2},
		{"long data", 17, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Create(make([]byte, tt.n), tt.w, tt.h); !errors.Is(err, ErrSize) {
				t.Errorf("Create error = %v, want ErrSize", err)
			}
		})
	}
	if m.Len() != 0 {
		t.Errorf("failed creates left %d textures", m.Len())
	}
}

func TestCreateFromImage(t *testing.T) {
	m := newManager(t)

	img := image.NewNRGBA(image.Rect(10, 10, 14, 12))
	img.Set(10, 10, color.NRGBA{R: 255, A: 255})

	id, err := m.CreateFromImage(img)
	if err != nil {
		t.Fatalf("CreateFromImage failed: %v", err)
	}
	tex, _ := m.Get(id)
	if tex.Width != 4 || tex.Height != 2 {
		t.Errorf("size = %dx%d, want 4x2", tex.Width, tex.Height)
	}
	if tex.pixels[0] != 255 || tex.pixels[3] != 255 {
		t.Errorf("first pixel = %v, want opaque red", tex.pixels[:4])
	}
}

func TestUpdate(t *testing.T) {
	m := newManager(t)

	id, err := m.Create(make([]byte, 16), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Update(id, make([]byte, 16)); err != nil {
		t.Errorf("Update failed: %v", err)
	}
	if err := m.Update(id, make([]byte, 12)); !errors.Is(err, ErrSize) {
		t.Errorf("Update with wrong size = %v, want ErrSize", err)
	}
	if err := m.Update(99, make([]byte, 16)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update of unknown id = %v, want ErrNotFound", err)
	}
}

func TestResizeKeepsID(t *testing.T) {
	m := newManager(t)

	pixels := make([]byte, 2*2*4)
	for i := range pixels {
		pixels[i] = 200
	}
	id, err := m.Create(pixels, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Resize(id, 4, 4, true); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	tex, err := m.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 4 || tex.Height != 4 {
		t.Errorf("size = %dx%d, want 4x4", tex.Width, tex.Height)
	}
	if len(tex.pixels) != 64 || tex.pixels[0] < 190 {
		t.Errorf("content not kept: len=%d first=%d", len(tex.pixels), tex.pixels[0])
	}

	if err := m.Resize(id, 1, 1, false); err != nil {
		t.Fatal(err)
	}
	tex, _ = m.Get(id)
	if tex.pixels[0] != 0 {
		t.Error("resize without keep should clear the texture")
	}
}

func TestDepthTexture(t *testing.T) {
	m := newManager(t)

	id, err := m.CreateDepth(8, 8)
	if err != nil {
		t.Fatalf("CreateDepth failed: %v", err)
	}
	tex, _ := m.Get(id)
	if tex.Kind != KindDepth || tex.Format != gputypes.TextureFormatDepth32Float {
		t.Errorf("depth texture kind=%d format=%v", tex.Kind, tex.Format)
	}
	if tex.Group != nil {
		t.Error("depth texture should not have a bind group")
	}
	if err := m.Update(id, make([]byte, 8*8*4)); err == nil {
		t.Error("Update of a depth texture should fail")
	}
	if err := m.Resize(id, 16, 16, false); err != nil {
		t.Fatalf("depth Resize failed: %v", err)
	}
	tex, _ = m.Get(id)
	if tex.Width != 16 || tex.Kind != KindDepth {
		t.Errorf("resized depth texture = %dx%d kind %d", tex.Width, tex.Height, tex.Kind)
	}
}

func TestIDsAreUnique(t *testing.T) {
	m := newManager(t)

	a, err := m.Create(make([]byte, 4), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.CreateDepth(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("color and depth textures share id %d", a)
	}
}
