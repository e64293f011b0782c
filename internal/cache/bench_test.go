// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"strconv"
	"testing"
)

// BenchmarkPipelineLookup models a frame looking up a handful of pipeline
// fingerprints that already exist.
func BenchmarkPipelineLookup(b *testing.B) {
	c := New[string, int]()
	keys := make([]string, 16)
	for i := range keys {
		keys[i] = "pipeline/" + strconv.Itoa(i)
		_, _, _ = c.GetOrCreate(keys[i], func() (int, error) { return i, nil })
	}

	b.ReportAllocs()
	i := 0
	for b.Loop() {
		_, _, _ = c.GetOrCreate(keys[i%len(keys)], func() (int, error) { return 0, nil })
		i++
	}
}
