// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides the keyed store behind the pipeline cache and the
// shader link table.
//
// A Cache memoizes objects that are expensive to create and must exist at
// most once per key:
//
//	pipelines := cache.New[string, hal.RenderPipeline]()
//	p, created, err := pipelines.GetOrCreate(k, func() (hal.RenderPipeline, error) {
//	    return device.CreateRenderPipeline(desc)
//	})
//
// Entries live until Drain, which empties the cache in reverse insertion
// order for teardown.
package cache
