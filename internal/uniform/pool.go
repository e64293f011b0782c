// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package uniform assigns a frame's uniform payloads to a pool of reusable
// GPU buffer bindings.
//
// Payloads are served largest first. Each takes the first binding in the
// pool that is free this frame and whose size range, dynamic mode and stage
// visibility cover it; when none qualifies a new binding sized to the
// payload is created. The pool only grows and lives as long as its owner.
package uniform

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/batch/internal/key"
)

// Binding is a GPU buffer exposed to shaders as a read-only storage
// binding, plus the size range it was created for.
type Binding struct {
	ID      key.BindingID
	MinSize uint64
	MaxSize uint64
	Dynamic bool
	Stages  gputypes.ShaderStages

	Buffer hal.Buffer
	Layout hal.BindGroupLayout
	Group  hal.BindGroup
}

// Pool owns the uniform bindings of one rendering context.
type Pool struct {
	device   hal.Device
	logger   *slog.Logger
	bindings []*Binding
}

// NewPool creates an empty pool allocating on device.
func NewPool(device hal.Device, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pool{device: device, logger: logger}
}

// Len returns the number of bindings in the pool.
func (p *Pool) Len() int { return len(p.bindings) }

// Binding returns the binding with the given id, or nil.
func (p *Pool) Binding(id key.BindingID) *Binding {
	if int(id) >= len(p.bindings) {
		return nil
	}
	return p.bindings[id]
}

// Resolve returns, for each request in order, the binding that serves it
// this frame. No binding is assigned twice. Requests are not validated;
// callers run Request.Validate first.
//
// Resolve only fails when the device cannot create a new binding; bindings
// created before the failure stay in the pool.
func (p *Pool) Resolve(reqs []Request) ([]key.BindingID, error) {
	order := make([]int, len(reqs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(reqs[b].MaxSize, reqs[a].MaxSize)
	})

	assigned := make([]key.BindingID, len(reqs))
	used := make([]bool, len(p.bindings), len(p.bindings)+len(reqs))

	for _, ri := range order {
		r := &reqs[ri]
		found := false
		for bi, b := range p.bindings {
			if used[bi] || !r.accepts(b) {
				continue
			}
			used[bi] = true
			assigned[ri] = b.ID
			found = true
			break
		}
		if found {
			continue
		}

		b, err := p.create(r)
		if err != nil {
			return nil, err
		}
		p.bindings = append(p.bindings, b)
		used = append(used, true)
		assigned[ri] = b.ID
	}
	return assigned, nil
}

// Write uploads each request's content to its assigned binding. Content is
// zero-padded to a multiple of 4 bytes.
func (p *Pool) Write(queue hal.Queue, reqs []Request, ids []key.BindingID) (uint64, error) {
	var written uint64
	for i := range reqs {
		b := p.Binding(ids[i])
		if b == nil {
			return written, fmt.Errorf("uniform: binding %d does not exist", ids[i])
		}
		if len(reqs[i].Data) == 0 {
			continue
		}
		data := padded(reqs[i].Data)
		if err := queue.WriteBuffer(b.Buffer, 0, data); err != nil {
			return written, fmt.Errorf("write uniform %d: %w", i, err)
		}
		written += uint64(len(data))
	}
	return written, nil
}

// create allocates a binding sized to r.
func (p *Pool) create(r *Request) (*Binding, error) {
	id := key.BindingID(len(p.bindings)) //nolint:gosec // pool size is small
	size := align4(r.MaxSize)
	label := fmt.Sprintf("uniform_binding_%d", id)

	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}

	layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: r.Stages,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: r.MinSize,
				},
			},
		},
	})
	if err != nil {
		p.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("create uniform bind group layout: %w", err)
	}

	group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(), Offset: 0, Size: size,
			}},
		},
	})
	if err != nil {
		p.device.DestroyBindGroupLayout(layout)
		p.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("create uniform bind group: %w", err)
	}

	p.logger.Debug("uniform: created binding",
		"id", id, "min", r.MinSize, "max", r.MaxSize, "dynamic", r.Dynamic, "stages", r.Stages)

	return &Binding{
		ID:      id,
		MinSize: r.MinSize,
		MaxSize: r.MaxSize,
		Dynamic: r.Dynamic,
		Stages:  r.Stages,
		Buffer:  buf,
		Layout:  layout,
		Group:   group,
	}, nil
}

// Destroy releases every binding in reverse creation order and empties the
// pool.
func (p *Pool) Destroy() {
	for i := len(p.bindings) - 1; i >= 0; i-- {
		b := p.bindings[i]
		p.device.DestroyBindGroup(b.Group)
		p.device.DestroyBindGroupLayout(b.Layout)
		p.device.DestroyBuffer(b.Buffer)
	}
	p.bindings = nil
}
