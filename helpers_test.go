// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"encoding/binary"
	"image"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/batch/mesh"
)

const colorShader = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) color: vec3<f32>,
}

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) col: vec3<f32>) -> VertexOutput {
    var output: VertexOutput;
    output.position = vec4<f32>(pos.x, pos.y, pos.z, 1.0);
    output.color = col;
    return output;
}

@fragment
fn fs_main(@location(0) color: vec3<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(color.x, color.y, color.z, 1.0);
}
`

// gpu bundles a noop device and queue with call recorders.
type gpu struct {
	instance hal.Instance
	device   *recordingDevice
	queue    *recordingQueue
	surface  *recordingSurface
}

func createNoopGPU(t *testing.T) *gpu {
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
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		t.Fatalf("CreateSurface failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return &gpu{
		instance: instance,
		device:   &recordingDevice{Device: openDev.Device},
		queue:    &recordingQueue{Queue: openDev.Queue},
		surface:  &recordingSurface{Surface: surface},
	}
}

// newContext creates a context presenting to the recording surface.
func newContext(t *testing.T, g *gpu, opts ...Option) *Context {
	t.Helper()
	all := append([]Option{WithSurface(g.surface), WithSurfaceSize(64, 64)}, opts...)
	c, err := New(g.device, g.queue, all...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type recordingDevice struct {
	hal.Device
	pipelines int
	passes    []*recordingPass
}

func (d *recordingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.pipelines++
	return d.Device.CreateRenderPipeline(desc)
}

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &recordingEncoder{CommandEncoder: enc, device: d}, nil
}

// lastPass returns the most recently recorded pass.
func (d *recordingDevice) lastPass(t *testing.T) *recordingPass {
	t.Helper()
	if len(d.passes) == 0 {
		t.Fatal("no render pass was recorded")
	}
	return d.passes[len(d.passes)-1]
}

type recordingEncoder struct {
	hal.CommandEncoder
	device *recordingDevice
}

func (e *recordingEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &recordingPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), desc: desc}
	e.device.passes = append(e.device.passes, p)
	return p
}

type drawCall struct {
	indexCount   uint32
	vertexOffset uint64
	indexOffset  uint64
	groups       []uint32
}

type recordingPass struct {
	hal.RenderPassEncoder
	desc      *hal.RenderPassDescriptor
	pipelines int
	draws     []drawCall
	pending   drawCall
}

func (p *recordingPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.pipelines++
	p.pending = drawCall{}
	p.RenderPassEncoder.SetPipeline(pipeline)
}

func (p *recordingPass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.pending.groups = append(p.pending.groups, index)
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *recordingPass) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	p.pending.vertexOffset = offset
	p.RenderPassEncoder.SetVertexBuffer(slot, buffer, offset)
}

func (p *recordingPass) SetIndexBuffer(buffer hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	p.pending.indexOffset = offset
	p.RenderPassEncoder.SetIndexBuffer(buffer, format, offset)
}

func (p *recordingPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	d := p.pending
	d.indexCount = indexCount
	p.draws = append(p.draws, d)
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

type recordingQueue struct {
	hal.Queue
	submits    int
	presents   int
	writes     int
	presentErr error
}

func (q *recordingQueue) Submit(commandBuffers []hal.CommandBuffer) (uint64, error) {
	q.submits++
	return q.Queue.Submit(commandBuffers)
}

func (q *recordingQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.writes++
	return q.Queue.WriteBuffer(buffer, offset, data)
}

func (q *recordingQueue) Present(surface hal.Surface, texture hal.SurfaceTexture, damage []image.Rectangle) error {
	q.presents++
	if q.presentErr != nil {
		return q.presentErr
	}
	return q.Queue.Present(surface, texture, damage)
}

type recordingSurface struct {
	hal.Surface
	acquireErr error
	discarded  int
	configured []hal.SurfaceConfiguration
}

func (s *recordingSurface) Configure(device hal.Device, config *hal.SurfaceConfiguration) error {
	s.configured = append(s.configured, *config)
	return s.Surface.Configure(device, config)
}

func (s *recordingSurface) AcquireTexture(fence hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.Surface.AcquireTexture(fence)
}

func (s *recordingSurface) DiscardTexture(texture hal.SurfaceTexture) {
	s.discarded++
	s.Surface.DiscardTexture(texture)
}

// colorLayout matches the vs_main inputs of colorShader.
func colorLayout() mesh.VertexLayout {
	return mesh.VertexLayout{
		ArrayStride: 24,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		},
	}
}

// triangle returns a one-triangle mesh at the given depth.
func triangle(depth float32, blend bool) *mesh.Mesh {
	pos := [][2]float32{{-1, -1}, {1, -1}, {0, 1}}
	vertices := make([]byte, 0, 3*24)
	for _, p := range pos {
		for _, v := range []float32{p[0], p[1], depth, 1, 1, 1} {
			vertices = binary.LittleEndian.AppendUint32(vertices, math.Float32bits(v))
		}
	}
	return &mesh.Mesh{
		Vertices: vertices,
		Indices:  []uint16{0, 1, 2},
		Layout:   colorLayout(),
		MayBlend: blend,
		MaxDepth: depth,
	}
}
