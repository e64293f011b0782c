// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"errors"
	"fmt"

	"github.com/gogpu/batch/internal/shader"
	"github.com/gogpu/batch/internal/uniform"
	"github.com/gogpu/batch/mesh"
)

var (
	// ErrSurfaceUnavailable is returned when the next surface image cannot
	// be acquired. The backend error (hal.ErrSurfaceLost,
	// hal.ErrSurfaceOutdated, hal.ErrTimeout, ...) is wrapped alongside it.
	// Recovery, usually ConfigureSurface after a resize, is up to the caller.
	ErrSurfaceUnavailable = errors.New("batch: surface unavailable")

	// ErrMissingResource is returned when a request names a shader,
	// texture or uniform payload that does not exist.
	ErrMissingResource = errors.New("batch: missing resource")

	// ErrLayoutMismatch is returned when meshes with different vertex
	// layouts are merged.
	ErrLayoutMismatch = mesh.ErrLayoutMismatch

	// ErrInvalidMesh is returned when a request's mesh has a partial
	// vertex, a zero stride or an index past its vertices.
	ErrInvalidMesh = mesh.ErrInvalidMesh

	// ErrTargetSampled is returned when a request samples the texture the
	// pass renders into.
	ErrTargetSampled = errors.New("batch: render target is also sampled")

	// ErrIndexOverflow is returned when a batch needs more vertices than
	// 16-bit indices can address.
	ErrIndexOverflow = mesh.ErrIndexOverflow

	// ErrInvalidPayload is returned when a uniform payload violates its
	// size range.
	ErrInvalidPayload = uniform.ErrInvalidRequest

	// ErrInvalidShader is returned when WGSL fails to compile or a
	// requested entry point is missing or in the wrong stage.
	ErrInvalidShader = shader.ErrInvalid

	// ErrNoSurface is returned when rendering to the surface of a context
	// created without one.
	ErrNoSurface = errors.New("batch: context has no surface")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("batch: context closed")
)

// FrameState is the stage a frame has reached inside Render.
type FrameState uint8

const (
	// FrameIdle is the state before any GPU work of the frame.
	FrameIdle FrameState = iota

	// FrameBindingsResolved means uniform bindings and pipelines are ready.
	FrameBindingsResolved

	// FrameBuffersUploaded means uniform, vertex and index data are written.
	FrameBuffersUploaded

	// FramePassRecorded means the render pass is encoded.
	FramePassRecorded

	// FrameSubmitted means the command buffer reached the queue.
	FrameSubmitted
)

// String returns the state name.
func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "Idle"
	case FrameBindingsResolved:
		return "BindingsResolved"
	case FrameBuffersUploaded:
		return "BuffersUploaded"
	case FramePassRecorded:
		return "PassRecorded"
	case FrameSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("FrameState(%d)", s)
	}
}

// FrameError reports the state a failed frame had reached. A frame that
// fails before FrameSubmitted never submits any commands. A frame that
// fails in FrameSubmitted (a failed present) reached the queue and is
// counted in Stats.
type FrameError struct {
	State FrameState
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("batch: frame failed after %s: %v", e.State, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }
