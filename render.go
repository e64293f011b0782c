// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/batch/internal/key"
	"github.com/gogpu/batch/internal/texture"
	"github.com/gogpu/batch/internal/uniform"
	"github.com/gogpu/batch/mesh"
)

// DrawRequest is one application-level draw: a mesh, the shader drawing
// it, the textures bound after its uniforms and the indices of the uniform
// payloads it reads.
type DrawRequest struct {
	Mesh     *mesh.Mesh
	Shader   ShaderHandle
	Textures []TextureHandle

	// Uniforms are indices into the payload slice passed to Render, bound
	// in this order.
	Uniforms []int
}

// UniformPayload is the content of one uniform for this frame. The content
// is exposed to shaders as a read-only storage buffer.
type UniformPayload struct {
	Data   []byte
	Stages gputypes.ShaderStages

	// Dynamic payloads may have any length within [MinSize, MaxSize] and
	// only share bindings with other dynamic payloads.
	Dynamic bool
	MinSize uint64
	MaxSize uint64
}

// StaticUniform returns a payload whose size is exactly len(data).
func StaticUniform(data []byte, stages gputypes.ShaderStages) UniformPayload {
	r := uniform.Static(data, stages)
	return UniformPayload{Data: r.Data, Stages: r.Stages, MinSize: r.MinSize, MaxSize: r.MaxSize}
}

// DynamicUniform returns a variable-length payload bounded by
// [minSize, maxSize].
func DynamicUniform(data []byte, stages gputypes.ShaderStages, minSize, maxSize uint64) UniformPayload {
	return UniformPayload{Data: data, Stages: stages, Dynamic: true, MinSize: minSize, MaxSize: maxSize}
}

func (u *UniformPayload) request() uniform.Request {
	return uniform.Request{
		Data:    u.Data,
		Stages:  u.Stages,
		Dynamic: u.Dynamic,
		MinSize: u.MinSize,
		MaxSize: u.MaxSize,
	}
}

// Target selects the color attachment of a pass.
type Target struct {
	texture   TextureHandle
	offscreen bool
}

// SurfaceTarget draws into the next surface image and presents it.
func SurfaceTarget() Target { return Target{} }

// TextureTarget draws into a color texture. Nothing is presented.
func TextureTarget(h TextureHandle) Target { return Target{texture: h, offscreen: true} }

// IsSurface reports whether t is the surface.
func (t Target) IsSurface() bool { return !t.offscreen }

// PassOptions describes the single render pass of a frame.
type PassOptions struct {
	Target Target

	// Depth is an optional depth texture. Pipelines of the frame get a
	// less-than, write-enabled depth test when it is set.
	Depth *TextureHandle

	// Clear is the clear color; nil loads the existing content.
	Clear *Color

	// ClearDepth clears the depth attachment to 1.0; otherwise its content
	// is loaded.
	ClearDepth bool
}

// drawBatch is one group of requests drawn with a single indexed draw.
type drawBatch struct {
	key      key.Batch
	mesh     *mesh.Mesh
	bindings []key.BindingID
	textures []*texture.Texture
	pipeline hal.RenderPipeline
	slice    mesh.Slice
}

// passTarget is the resolved attachment set of a frame.
type passTarget struct {
	format  gputypes.TextureFormat
	color   hal.TextureView
	depth   hal.TextureView
	surface bool
}

// Render draws requests in one render pass and submits it.
//
// Payloads are assigned to uniform bindings, requests with equal batch
// keys are merged into one mesh per batch (see group),
// all batches are packed into the shared buffers and each non-empty batch
// is drawn with one indexed draw. When the target is the surface the image
// is presented after submission.
//
// Errors are returned as *FrameError. Every failure before the submit
// leaves the queue without commands from this frame. A failed surface
// acquisition matches ErrSurfaceUnavailable.
func (c *Context) Render(requests []DrawRequest, uniforms []UniformPayload, pass PassOptions) error {
	if c.closed {
		return ErrClosed
	}
	c.retire()

	f := &frame{ctx: c, state: FrameIdle}
	err := f.run(requests, uniforms, pass)
	if err != nil {
		f.abort()
		c.logger.Debug("batch: frame failed", "state", f.state, "err", err)
		return &FrameError{State: f.state, Err: err}
	}

	c.logger.Debug("batch: frame submitted",
		"frame", c.frames, "requests", len(requests), "batches", f.stats.batches,
		"draws", f.stats.draws, "bytes", f.stats.uploaded)
	return nil
}

// frame holds the transient state of one Render call.
type frame struct {
	ctx   *Context
	state FrameState
	stats frameStats

	acquired    *hal.AcquiredSurfaceTexture
	surfaceView hal.TextureView
	encoder     hal.CommandEncoder
	recording   bool
}

func (f *frame) run(requests []DrawRequest, uniforms []UniformPayload, pass PassOptions) error {
	c := f.ctx

	reqs := make([]uniform.Request, len(uniforms))
	for i := range uniforms {
		reqs[i] = uniforms[i].request()
		if err := reqs[i].Validate(); err != nil {
			return fmt.Errorf("uniform %d: %w", i, err)
		}
	}
	if err := c.validateRequests(requests, len(uniforms), pass.Target); err != nil {
		return err
	}
	target, err := c.resolveTarget(pass)
	if err != nil {
		return err
	}

	ids, err := c.uniforms.Resolve(reqs)
	if err != nil {
		return err
	}
	batches, err := c.group(requests, ids)
	if err != nil {
		return err
	}

	meshes := make([]*mesh.Mesh, len(batches))
	for i, b := range batches {
		meshes[i] = b.mesh
	}
	packed := mesh.Pack(meshes)
	for i := range batches {
		batches[i].slice = packed.Slices[i]
		if batches[i].slice.Empty() {
			continue
		}
		pk := key.PipelineFor(batches[i].key, target.format, target.depth != nil)
		p, err := c.pipelines.Ensure(&pk, (*resolver)(c))
		if err != nil {
			return err
		}
		batches[i].pipeline = p
	}
	f.state = FrameBindingsResolved

	vertexBytes := padTo4(packed.Vertices)
	indexBytes := packed.IndexBytes()
	if err := c.growShared(c.vertices, uint64(len(vertexBytes))); err != nil {
		return err
	}
	if err := c.growShared(c.indices, uint64(len(indexBytes))); err != nil {
		return err
	}

	if target.surface {
		if err := f.acquire(&target); err != nil {
			return err
		}
	}

	written, err := c.uniforms.Write(c.queue, reqs, ids)
	if err != nil {
		return err
	}
	if len(vertexBytes) > 0 {
		if err := c.queue.WriteBuffer(c.vertices.buffer, 0, vertexBytes); err != nil {
			return fmt.Errorf("write vertices: %w", err)
		}
	}
	if len(indexBytes) > 0 {
		if err := c.queue.WriteBuffer(c.indices.buffer, 0, indexBytes); err != nil {
			return fmt.Errorf("write indices: %w", err)
		}
	}
	f.stats.uploaded = written + uint64(len(vertexBytes)) + uint64(len(indexBytes))
	f.state = FrameBuffersUploaded

	commands, err := f.record(&target, batches, pass)
	if err != nil {
		return err
	}
	f.state = FramePassRecorded

	index, err := c.queue.Submit([]hal.CommandBuffer{commands})
	if err != nil {
		c.device.FreeCommandBuffer(commands)
		return fmt.Errorf("submit: %w", err)
	}
	c.inflight = append(c.inflight, submission{index: index, encoder: f.encoder, commands: commands})
	f.encoder = nil
	f.state = FrameSubmitted
	c.frames++
	c.lastFrame = f.stats

	if target.surface {
		err := c.queue.Present(c.surface, f.acquired.Texture, nil)
		c.device.DestroyTextureView(f.surfaceView)
		f.acquired, f.surfaceView = nil, nil
		if err != nil {
			return fmt.Errorf("%w: present: %w", ErrSurfaceUnavailable, err)
		}
	}
	f.state = FrameIdle
	return nil
}

// abort releases what a failed frame acquired.
func (f *frame) abort() {
	c := f.ctx
	if f.encoder != nil {
		if f.recording {
			f.encoder.DiscardEncoding()
		}
		f.encoder.Destroy()
		f.encoder = nil
	}
	if f.surfaceView != nil {
		c.device.DestroyTextureView(f.surfaceView)
		f.surfaceView = nil
	}
	if f.acquired != nil {
		c.surface.DiscardTexture(f.acquired.Texture)
		f.acquired = nil
	}
}

// acquire takes the next surface image and makes it the color attachment.
func (f *frame) acquire(target *passTarget) error {
	c := f.ctx
	acquired, err := c.surface.AcquireTexture(nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)
	}
	if acquired == nil || acquired.Texture == nil {
		return fmt.Errorf("%w: no surface image", ErrSurfaceUnavailable)
	}
	f.acquired = acquired
	if acquired.Suboptimal {
		c.logger.Warn("batch: surface is suboptimal, reconfigure when convenient")
	}

	view, err := c.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           c.opts.label + "_surface_view",
		Format:          target.format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}
	f.surfaceView = view
	target.color = view
	return nil
}

// record encodes the render pass.
func (f *frame) record(target *passTarget, batches []drawBatch, pass PassOptions) (hal.CommandBuffer, error) {
	c := f.ctx
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: c.opts.label + "_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	f.encoder = encoder
	if err := encoder.BeginEncoding(c.opts.label + "_frame"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	f.recording = true

	color := hal.RenderPassColorAttachment{
		View:    target.color,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if pass.Clear != nil {
		color.LoadOp = gputypes.LoadOpClear
		color.ClearValue = pass.Clear.gpu()
	}
	desc := &hal.RenderPassDescriptor{
		Label:            c.opts.label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if target.depth != nil {
		depth := &hal.RenderPassDepthStencilAttachment{
			View:            target.depth,
			DepthLoadOp:     gputypes.LoadOpLoad,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
		}
		if pass.ClearDepth {
			depth.DepthLoadOp = gputypes.LoadOpClear
		}
		desc.DepthStencilAttachment = depth
	}

	rp := encoder.BeginRenderPass(desc)
	for i := range batches {
		b := &batches[i]
		if b.slice.Empty() {
			continue
		}
		rp.SetPipeline(b.pipeline)
		group := uint32(0)
		for _, id := range b.bindings {
			rp.SetBindGroup(group, c.uniforms.Binding(id).Group, nil)
			group++
		}
		for _, t := range b.textures {
			rp.SetBindGroup(group, t.Group, nil)
			group++
		}
		rp.SetVertexBuffer(0, c.vertices.buffer, b.slice.Vertex.Start)
		rp.SetIndexBuffer(c.indices.buffer, gputypes.IndexFormatUint16, b.slice.Index.Start)
		rp.DrawIndexed(b.slice.IndexCount, 1, 0, 0, 0)
		f.stats.batches++
		f.stats.draws++
	}
	rp.End()

	commands, err := encoder.EndEncoding()
	f.recording = false
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return commands, nil
}

// validateRequests checks every mesh and every handle a request names.
func (c *Context) validateRequests(requests []DrawRequest, payloads int, target Target) error {
	for i := range requests {
		r := &requests[i]
		if r.Mesh == nil {
			return fmt.Errorf("%w: request %d has no mesh", ErrMissingResource, i)
		}
		if err := r.Mesh.Validate(); err != nil {
			return fmt.Errorf("request %d: %w", i, err)
		}
		if c.shaders.Shader(r.Shader.id()) == nil {
			return fmt.Errorf("%w: request %d: shader %d", ErrMissingResource, i, r.Shader)
		}
		for _, h := range r.Textures {
			if !target.IsSurface() && h == target.texture {
				return fmt.Errorf("%w: request %d: texture %d", ErrTargetSampled, i, h)
			}
			t, err := c.textures.Get(h.id())
			if err != nil {
				return fmt.Errorf("request %d: %w", i, missing(err))
			}
			if t.Kind != texture.KindColor {
				return fmt.Errorf("%w: request %d: texture %d is a depth texture", ErrMissingResource, i, h)
			}
		}
		for _, u := range r.Uniforms {
			if u < 0 || u >= payloads {
				return fmt.Errorf("%w: request %d: uniform payload %d of %d", ErrMissingResource, i, u, payloads)
			}
		}
	}
	return nil
}

// resolveTarget finds the attachments and format of the pass.
func (c *Context) resolveTarget(pass PassOptions) (passTarget, error) {
	var t passTarget
	if pass.Target.IsSurface() {
		if c.surface == nil {
			return t, ErrNoSurface
		}
		if !c.surfaceConfigured {
			return t, fmt.Errorf("%w: surface not configured", ErrSurfaceUnavailable)
		}
		t.surface = true
		t.format = c.opts.surfaceFormat
	} else {
		tex, err := c.textures.Get(pass.Target.texture.id())
		if err != nil {
			return t, fmt.Errorf("render target: %w", missing(err))
		}
		if tex.Kind != texture.KindColor {
			return t, fmt.Errorf("%w: render target %d is a depth texture", ErrMissingResource, pass.Target.texture)
		}
		t.format = tex.Format
		t.color = tex.View
	}

	if pass.Depth != nil {
		tex, err := c.textures.Get(pass.Depth.id())
		if err != nil {
			return t, fmt.Errorf("depth attachment: %w", missing(err))
		}
		if tex.Kind != texture.KindDepth {
			return t, fmt.Errorf("%w: depth attachment %d is a color texture", ErrMissingResource, *pass.Depth)
		}
		t.depth = tex.View
	}
	return t, nil
}

// group merges requests with equal batch keys. Opaque requests join the
// batch where their key first appeared. Blended requests join only the
// most recent batch, so blended geometry is drawn in request order. A
// batch that would overflow the 16-bit index range is continued in a new
// batch with the same key.
func (c *Context) group(requests []DrawRequest, ids []key.BindingID) ([]drawBatch, error) {
	batches := make([]drawBatch, 0, len(requests))
	open := make(map[string]int, len(requests))

	for i := range requests {
		r := &requests[i]
		bindings := make([]key.BindingID, len(r.Uniforms))
		for j, u := range r.Uniforms {
			bindings[j] = ids[u]
		}
		texIDs := make([]key.TextureID, len(r.Textures))
		for j, h := range r.Textures {
			texIDs[j] = h.id()
		}
		k := key.ForMesh(r.Mesh, r.Shader.id(), texIDs, bindings)
		fp := k.Fingerprint()

		_, blended := k.(*key.Blended)
		if bi, ok := open[fp]; ok && (!blended || bi == len(batches)-1) {
			err := batches[bi].mesh.Merge(r.Mesh)
			if err == nil {
				continue
			}
			if !errors.Is(err, mesh.ErrIndexOverflow) {
				return nil, fmt.Errorf("request %d: %w", i, err)
			}
		}

		textures := make([]*texture.Texture, len(r.Textures))
		for j, h := range r.Textures {
			t, err := c.textures.Get(h.id())
			if err != nil {
				return nil, fmt.Errorf("request %d: %w", i, missing(err))
			}
			textures[j] = t
		}
		open[fp] = len(batches)
		batches = append(batches, drawBatch{
			key:      k,
			mesh:     r.Mesh.Clone(),
			bindings: bindings,
			textures: textures,
		})
	}
	return batches, nil
}

// growShared makes b large enough for n bytes. A replaced buffer is
// released once the frames that read it complete.
func (c *Context) growShared(b *sharedBuffer, n uint64) error {
	old, err := b.grow(c.device, n)
	if err != nil {
		return err
	}
	if old != nil {
		c.retired = append(c.retired, retiredBuffer{index: c.lastSubmission(), buffer: old})
		c.logger.Debug("batch: grew shared buffer", "label", b.label, "size", b.size)
	}
	return nil
}

// padTo4 zero-pads data to the 4-byte copy alignment.
func padTo4(data []byte) []byte {
	if rem := len(data) % 4; rem != 0 {
		return append(data[:len(data):len(data)], make([]byte, 4-rem)...)
	}
	return data
}
