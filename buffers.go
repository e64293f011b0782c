// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// sharedBuffer is one of the two per-context buffers every batch draws
// from. It only grows.
type sharedBuffer struct {
	label  string
	usage  gputypes.BufferUsage
	buffer hal.Buffer
	size   uint64
}

// reserve makes the buffer at least n bytes long. A replaced buffer is
// returned so the caller can release it once the GPU no longer reads it.
func (b *sharedBuffer) reserve(device hal.Device, n uint64) error {
	old, err := b.grow(device, n)
	if old != nil {
		device.DestroyBuffer(old)
	}
	return err
}

// grow replaces the buffer with one of the next power of two size >= n.
// It returns the previous buffer, or nil when no growth was needed.
func (b *sharedBuffer) grow(device hal.Device, n uint64) (hal.Buffer, error) {
	if b.buffer != nil && n <= b.size {
		return nil, nil
	}
	size := nextPowerOfTwo(max(n, b.size, 4))
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  size,
		Usage: b.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer (%d bytes): %w", b.label, size, err)
	}
	old := b.buffer
	b.buffer, b.size = buf, size
	return old, nil
}

func (b *sharedBuffer) destroy(device hal.Device) {
	if b.buffer != nil {
		device.DestroyBuffer(b.buffer)
		b.buffer, b.size = nil, 0
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	if n&(n-1) == 0 {
		return n
	}
	return 1 << bits.Len64(n)
}

// submission is a command buffer the queue may still be executing.
type submission struct {
	index    uint64
	encoder  hal.CommandEncoder
	commands hal.CommandBuffer
}

func (s *submission) release(device hal.Device) {
	device.FreeCommandBuffer(s.commands)
	s.encoder.Destroy()
}

// retiredBuffer is a replaced shared buffer that frames up to index may
// still read.
type retiredBuffer struct {
	index  uint64
	buffer hal.Buffer
}

// retire frees command buffers and replaced buffers whose submissions the
// queue reports as completed.
func (c *Context) retire() {
	done := c.queue.PollCompleted()

	n := 0
	for _, s := range c.inflight {
		if s.index <= done {
			s.release(c.device)
			continue
		}
		c.inflight[n] = s
		n++
	}
	c.inflight = c.inflight[:n]

	n = 0
	for _, r := range c.retired {
		if r.index <= done {
			c.device.DestroyBuffer(r.buffer)
			continue
		}
		c.retired[n] = r
		n++
	}
	c.retired = c.retired[:n]
}

// lastSubmission returns the newest submission index, or 0.
func (c *Context) lastSubmission() uint64 {
	if len(c.inflight) == 0 {
		return 0
	}
	return c.inflight[len(c.inflight)-1].index
}

// waitInflight blocks until submitted frames finish, so objects they read
// can be replaced.
func (c *Context) waitInflight() {
	c.retire()
	if len(c.inflight) == 0 {
		return
	}
	if err := c.device.WaitIdle(); err != nil {
		c.logger.Warn("batch: wait idle", "err", err)
	}
	c.retire()
}
