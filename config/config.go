// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads batch context settings from TOML files.
//
// A complete file:
//
//	label = "ui"
//	clear_color = "#1e1e2eff"
//
//	[surface]
//	format = "bgra8unorm"
//	width = 1280
//	height = 720
//	present_mode = "fifo"
//
//	[buffers]
//	vertex_capacity = 65536
//	index_capacity = 65536
//
//	[shaders]
//	spirv = false
//	validate = true
//
// Every key is optional; missing keys keep the values of Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/batch"
)

// ErrInvalid is returned by Validate and Load for unusable settings.
var ErrInvalid = errors.New("config: invalid")

// Config is the file representation of a context's options.
type Config struct {
	Label      string  `toml:"label"`
	ClearColor string  `toml:"clear_color"`
	Surface    Surface `toml:"surface"`
	Buffers    Buffers `toml:"buffers"`
	Shaders    Shaders `toml:"shaders"`
}

// Surface configures the presentable surface.
type Surface struct {
	Format      string `toml:"format"`
	Width       uint32 `toml:"width"`
	Height      uint32 `toml:"height"`
	PresentMode string `toml:"present_mode"`
}

// Buffers sets the initial shared buffer sizes in bytes.
type Buffers struct {
	VertexCapacity uint64 `toml:"vertex_capacity"`
	IndexCapacity  uint64 `toml:"index_capacity"`
}

// Shaders controls WGSL processing.
type Shaders struct {
	SPIRV    bool `toml:"spirv"`
	Validate bool `toml:"validate"`
}

var formats = map[string]gputypes.TextureFormat{
	"bgra8unorm":      gputypes.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb": gputypes.TextureFormatBGRA8UnormSrgb,
	"rgba8unorm":      gputypes.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb": gputypes.TextureFormatRGBA8UnormSrgb,
}

var presentModes = map[string]gputypes.PresentMode{
	"fifo":         gputypes.PresentModeFifo,
	"fifo-relaxed": gputypes.PresentModeFifoRelaxed,
	"immediate":    gputypes.PresentModeImmediate,
	"mailbox":      gputypes.PresentModeMailbox,
}

// Default returns the settings New uses without options.
func Default() Config {
	return Config{
		Label:      "batch",
		ClearColor: "#000000ff",
		Surface: Surface{
			Format:      "bgra8unorm",
			PresentMode: "fifo",
		},
		Buffers: Buffers{
			VertexCapacity: batch.DefaultVertexCapacity,
			IndexCapacity:  batch.DefaultIndexCapacity,
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("config: line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks names and sizes.
func (c *Config) Validate() error {
	if _, ok := formats[strings.ToLower(c.Surface.Format)]; !ok {
		return fmt.Errorf("%w: surface format %q", ErrInvalid, c.Surface.Format)
	}
	if _, ok := presentModes[strings.ToLower(c.Surface.PresentMode)]; !ok {
		return fmt.Errorf("%w: present mode %q", ErrInvalid, c.Surface.PresentMode)
	}
	if (c.Surface.Width == 0) != (c.Surface.Height == 0) {
		return fmt.Errorf("%w: surface size %dx%d", ErrInvalid, c.Surface.Width, c.Surface.Height)
	}
	if c.ClearColor != "" && !validHex(c.ClearColor) {
		return fmt.Errorf("%w: clear color %q", ErrInvalid, c.ClearColor)
	}
	return nil
}

// Options converts the settings into context options. The surface itself
// and the logger are not part of the file and must be added by the caller.
func (c *Config) Options() []batch.Option {
	opts := []batch.Option{
		batch.WithLabel(c.Label),
		batch.WithSurfaceFormat(formats[strings.ToLower(c.Surface.Format)]),
		batch.WithPresentMode(presentModes[strings.ToLower(c.Surface.PresentMode)]),
		batch.WithVertexCapacity(c.Buffers.VertexCapacity),
		batch.WithIndexCapacity(c.Buffers.IndexCapacity),
		batch.WithSPIRVShaders(c.Shaders.SPIRV),
		batch.WithShaderValidation(c.Shaders.Validate),
	}
	if c.Surface.Width > 0 {
		opts = append(opts, batch.WithSurfaceSize(c.Surface.Width, c.Surface.Height))
	}
	return opts
}

// Clear returns the clear color, or nil when the file asks to load the
// previous content.
func (c *Config) Clear() *batch.Color {
	if c.ClearColor == "" {
		return nil
	}
	col := batch.Hex(c.ClearColor)
	return &col
}

func validHex(s string) bool {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 3, 4, 6, 8:
	default:
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
