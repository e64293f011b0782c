// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package batch draws flat lists of meshes with as few GPU objects as
// possible.
//
// # Overview
//
// Each frame the application hands a Context a list of draw requests (a
// mesh, a shader, textures and the uniform payloads the draw reads) and the
// payload contents. The Context then
//
//   - assigns every payload to a reusable uniform binding, creating
//     bindings only when no existing one fits,
//   - groups requests that can share one pipeline into batches,
//   - packs all batches into one shared vertex buffer and one shared
//     index buffer,
//   - records a single render pass that draws each batch with one
//     indexed draw, and submits it.
//
// Bindings, pipelines, shader modules and textures are owned by the
// Context and live until Close.
//
// # Quick Start
//
//	ctx, err := batch.New(device, queue,
//	    batch.WithSurface(surface),
//	    batch.WithSurfaceSize(800, 600))
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	sh, err := ctx.CreateShader(src, "vs_main", src, "fs_main")
//	...
//	err = ctx.Render(requests, uniforms, batch.PassOptions{
//	    Target: batch.SurfaceTarget(),
//	    Clear:  &batch.Color{R: 0.1, G: 0.1, B: 0.1, A: 1},
//	})
//	if errors.Is(err, batch.ErrSurfaceUnavailable) {
//	    // reconfigure and try again next frame
//	}
//
// # Batching rules
//
// Two requests share a batch when their vertex layout, shader, textures and
// resolved uniform bindings are equal. Requests whose mesh may blend also
// need an equal quantized maximum depth, so translucent geometry at
// different depths is never fused.
//
// # Concurrency
//
// A Context serves one caller at a time. Render is synchronous: it returns
// after the command buffer has been submitted.
package batch

// Version is the current version of the library.
const Version = "0.1.0"
