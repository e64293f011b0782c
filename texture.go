// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/batch/internal/key"
	"github.com/gogpu/batch/internal/texture"
)

// TextureHandle names a color or depth texture owned by a Context.
type TextureHandle uint32

// ErrInvalidTextureSize is returned for zero dimensions or pixel data whose
// length is not width*height*4.
var ErrInvalidTextureSize = texture.ErrSize

// CreateTexture uploads RGBA8 sRGB pixels into a new texture. The texture
// can be sampled by draws and used as an offscreen render target.
func (c *Context) CreateTexture(pixels []byte, width, height uint32) (TextureHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	id, err := c.textures.Create(pixels, width, height)
	return TextureHandle(id), err
}

// CreateTextureFromImage converts img to RGBA and uploads it.
func (c *Context) CreateTextureFromImage(img image.Image) (TextureHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	id, err := c.textures.CreateFromImage(img)
	return TextureHandle(id), err
}

// CreateDepthTexture creates a Depth32Float texture for PassOptions.Depth.
func (c *Context) CreateDepthTexture(width, height uint32) (TextureHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	id, err := c.textures.CreateDepth(width, height)
	return TextureHandle(id), err
}

// UpdateTexture replaces the content of a color texture. pixels must match
// the texture size.
func (c *Context) UpdateTexture(h TextureHandle, pixels []byte) error {
	if c.closed {
		return ErrClosed
	}
	return missing(c.textures.Update(h.id(), pixels))
}

// ResizeTexture gives a texture new dimensions while keeping its handle.
// With keepContent a color texture's last content is scaled to the new
// size; otherwise the texture is cleared. Depth content is never kept.
func (c *Context) ResizeTexture(h TextureHandle, width, height uint32, keepContent bool) error {
	if c.closed {
		return ErrClosed
	}
	c.waitInflight()
	return missing(c.textures.Resize(h.id(), width, height, keepContent))
}

// TextureSize returns the dimensions of a texture.
func (c *Context) TextureSize(h TextureHandle) (width, height uint32, err error) {
	t, err := c.textures.Get(h.id())
	if err != nil {
		return 0, 0, missing(err)
	}
	return t.Width, t.Height, nil
}

func (h TextureHandle) id() key.TextureID { return key.TextureID(h) }

// missing marks lookup failures as ErrMissingResource.
func missing(err error) error {
	if errors.Is(err, texture.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrMissingResource, err)
	}
	return err
}
