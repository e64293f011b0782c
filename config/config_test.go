// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/batch"
)

const full = `
label = "ui"
clear_color = "#ff000080"

[surface]
format = "RGBA8Unorm"
width = 1280
height = 720
present_mode = "mailbox"

[buffers]
vertex_capacity = 4096
index_capacity = 1024

[shaders]
spirv = true
validate = true
`

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, uint64(batch.DefaultVertexCapacity), cfg.Buffers.VertexCapacity)
}

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(full))
	require.NoError(t, err)

	require.Equal(t, "ui", cfg.Label)
	require.Equal(t, uint32(1280), cfg.Surface.Width)
	require.Equal(t, uint32(720), cfg.Surface.Height)
	require.Equal(t, "mailbox", cfg.Surface.PresentMode)
	require.Equal(t, uint64(4096), cfg.Buffers.VertexCapacity)
	require.True(t, cfg.Shaders.SPIRV)
	require.True(t, cfg.Shaders.Validate)

	c := cfg.Clear()
	require.NotNil(t, c)
	require.InDelta(t, 1.0, c.R, 1e-9)
	require.InDelta(t, 128.0/255, c.A, 1e-9)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("[shaders]\nvalidate = true\n"))
	require.NoError(t, err)
	require.Equal(t, "batch", cfg.Label)
	require.Equal(t, "bgra8unorm", cfg.Surface.Format)
	require.Equal(t, uint64(batch.DefaultIndexCapacity), cfg.Buffers.IndexCapacity)
	require.True(t, cfg.Shaders.Validate)
}

func TestParseLoadClear(t *testing.T) {
	cfg, err := Parse([]byte(`clear_color = ""`))
	require.NoError(t, err)
	require.Nil(t, cfg.Clear())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		invalid bool
	}{
		{"syntax", "label = ", false},
		{"unknown key", "colour = \"#fff\"", false},
		{"wrong type", "[surface]\nwidth = \"wide\"", false},
		{"format", "[surface]\nformat = \"r8unorm\"", true},
		{"present mode", "[surface]\npresent_mode = \"vsync\"", true},
		{"half size", "[surface]\nwidth = 100", true},
		{"clear color", "clear_color = \"#12345\"", true},
		{"clear color digits", "clear_color = \"#gg0000\"", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			if tt.invalid {
				require.ErrorIs(t, err, ErrInvalid)
			} else {
				require.NotErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.toml")
	require.NoError(t, os.WriteFile(path, []byte(full), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ui", cfg.Label)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptionsConfigureContext(t *testing.T) {
	instance, err := noop.API{}.CreateInstance(nil)
	require.NoError(t, err)
	t.Cleanup(instance.Destroy)
	adapters := instance.EnumerateAdapters(nil)
	require.NotEmpty(t, adapters)
	dev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	require.NoError(t, err)
	t.Cleanup(dev.Device.Destroy)

	cfg, err := Parse([]byte(full))
	require.NoError(t, err)
	ctx, err := batch.New(dev.Device, dev.Queue, cfg.Options()...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, ctx.Close()) })

	require.Equal(t, gputypes.TextureFormatRGBA8Unorm, ctx.SurfaceFormat())
	s := ctx.Stats()
	require.Equal(t, uint64(4096), s.VertexCapacity)
	require.Equal(t, uint64(1024), s.IndexCapacity)
}
