// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package key defines the structural keys that decide when draw requests
// may share GPU state.
//
// A Batch key is either Opaque or Blended. Opaque geometry batches
// regardless of depth because the depth test orders its fragments; blended
// geometry carries a quantized depth so that draws at different depths stay
// in separate batches and blend back to front.
//
// A Pipeline key is the subset of a batch key that affects pipeline state,
// plus the color target format and whether a depth attachment is bound.
package key

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/batch/mesh"
)

// ShaderID identifies a registered shader. IDs are issued by the shader
// registry and never reused within a context.
type ShaderID uint32

// TextureID identifies a texture owned by a context.
type TextureID uint32

// BindingID is the index of a uniform binding in the context's pool.
type BindingID uint32

// depthScale is the quantization step count per unit depth.
const depthScale = 1 << 16

// QuantizeDepth maps a depth value to the integer bucket used in blended
// batch keys. NaN maps to bucket 0.
func QuantizeDepth(depth float32) int32 {
	d := float64(depth)
	if math.IsNaN(d) {
		return 0
	}
	q := math.Round(d * depthScale)
	switch {
	case q > math.MaxInt32:
		return math.MaxInt32
	case q < math.MinInt32:
		return math.MinInt32
	}
	return int32(q)
}

// Common holds the fields shared by both batch key variants.
type Common struct {
	Layout   mesh.VertexLayout
	Shader   ShaderID
	Textures []TextureID
	Bindings []BindingID
}

func (c *Common) appendKey(b []byte) []byte {
	b = c.Layout.AppendKey(b)
	b = binary.LittleEndian.AppendUint32(b, uint32(c.Shader))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Textures))) //nolint:gosec // small list
	for _, t := range c.Textures {
		b = binary.LittleEndian.AppendUint32(b, uint32(t))
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(c.Bindings))) //nolint:gosec // small list
	for _, id := range c.Bindings {
		b = binary.LittleEndian.AppendUint32(b, uint32(id))
	}
	return b
}

// Batch is a batch key. It is implemented only by Opaque and Blended.
type Batch interface {
	// Fields returns the fields shared by both variants.
	Fields() *Common

	// Fingerprint returns the canonical encoding of the key. Two keys are
	// equal iff their fingerprints are equal.
	Fingerprint() string

	batchKey()
}

// Opaque is the key of geometry that never blends. Depth does not take
// part in its identity.
type Opaque struct {
	Common
}

// Blended is the key of geometry that may blend. Depth is the quantized
// maximum depth of the geometry.
type Blended struct {
	Common
	Depth int32
}

const (
	tagOpaque  = 'O'
	tagBlended = 'B'
)

// Fields implements Batch.
func (k *Opaque) Fields() *Common { return &k.Common }

// Fingerprint implements Batch.
func (k *Opaque) Fingerprint() string {
	b := append(make([]byte, 0, 64), tagOpaque)
	return string(k.appendKey(b))
}

func (*Opaque) batchKey() {}

// Fields implements Batch.
func (k *Blended) Fields() *Common { return &k.Common }

// Fingerprint implements Batch.
func (k *Blended) Fingerprint() string {
	b := append(make([]byte, 0, 68), tagBlended)
	b = k.appendKey(b)
	b = binary.LittleEndian.AppendUint32(b, uint32(k.Depth)) //nolint:gosec // bit pattern
	return string(b)
}

func (*Blended) batchKey() {}

// ForMesh returns the batch key of a draw of m with the given resources.
// The key is Blended iff m may blend.
func ForMesh(m *mesh.Mesh, shader ShaderID, textures []TextureID, bindings []BindingID) Batch {
	c := Common{
		Layout:   m.Layout,
		Shader:   shader,
		Textures: textures,
		Bindings: bindings,
	}
	if m.MayBlend {
		return &Blended{Common: c, Depth: QuantizeDepth(m.MaxDepth)}
	}
	return &Opaque{Common: c}
}

// Pipeline identifies one render pipeline object.
type Pipeline struct {
	Layout       mesh.VertexLayout
	Shader       ShaderID
	TextureCount int
	Bindings     []BindingID
	Format       gputypes.TextureFormat
	Depth        bool
}

// PipelineFor derives the pipeline key of a batch drawn into a target of
// the given format, with or without a depth attachment. Blend depth and
// texture identity do not affect pipeline state and are dropped.
func PipelineFor(k Batch, format gputypes.TextureFormat, depth bool) Pipeline {
	c := k.Fields()
	return Pipeline{
		Layout:       c.Layout,
		Shader:       c.Shader,
		TextureCount: len(c.Textures),
		Bindings:     c.Bindings,
		Format:       format,
		Depth:        depth,
	}
}

// Fingerprint returns the canonical encoding of the key.
func (p *Pipeline) Fingerprint() string {
	b := p.Layout.AppendKey(make([]byte, 0, 64))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.Shader))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.TextureCount)) //nolint:gosec // small count
	b = binary.LittleEndian.AppendUint32(b, uint32(len(p.Bindings))) //nolint:gosec // small list
	for _, id := range p.Bindings {
		b = binary.LittleEndian.AppendUint32(b, uint32(id))
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(p.Format))
	if p.Depth {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return string(b)
}
