// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package uniform

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// ErrInvalidRequest is returned for payloads that violate the size range
// invariants.
var ErrInvalidRequest = errors.New("uniform: invalid payload")

// Request is one uniform payload of a frame.
type Request struct {
	// Data is the payload content written to the binding every frame.
	Data []byte

	// Stages are the shader stages that read the payload.
	Stages gputypes.ShaderStages

	// Dynamic marks a payload whose size is only bounded by [MinSize, MaxSize].
	Dynamic bool

	// MinSize and MaxSize are the accepted size range. For static payloads
	// both equal len(Data).
	MinSize uint64
	MaxSize uint64
}

// Static returns a request for a fixed-size payload.
func Static(data []byte, stages gputypes.ShaderStages) Request {
	n := uint64(len(data))
	return Request{Data: data, Stages: stages, MinSize: n, MaxSize: n}
}

// Dynamic returns a request for a variable-size payload bounded by
// [minSize, maxSize].
func Dynamic(data []byte, stages gputypes.ShaderStages, minSize, maxSize uint64) Request {
	return Request{Data: data, Stages: stages, Dynamic: true, MinSize: minSize, MaxSize: maxSize}
}

// Validate checks the size invariants of r.
func (r *Request) Validate() error {
	n := uint64(len(r.Data))
	switch {
	case r.Stages == gputypes.ShaderStageNone:
		return fmt.Errorf("%w: no shader stages", ErrInvalidRequest)
	case r.MinSize > r.MaxSize:
		return fmt.Errorf("%w: min size %d > max size %d", ErrInvalidRequest, r.MinSize, r.MaxSize)
	case r.MaxSize == 0:
		return fmt.Errorf("%w: empty payload", ErrInvalidRequest)
	case !r.Dynamic && (r.MinSize != n || r.MaxSize != n):
		return fmt.Errorf("%w: static payload range [%d, %d] does not match %d content bytes",
			ErrInvalidRequest, r.MinSize, r.MaxSize, n)
	case r.Dynamic && n > r.MaxSize:
		return fmt.Errorf("%w: %d content bytes exceed max size %d", ErrInvalidRequest, n, r.MaxSize)
	}
	return nil
}

// accepts reports whether a binding with the given range, mode and
// visibility may serve r.
func (r *Request) accepts(b *Binding) bool {
	return b.Dynamic == r.Dynamic &&
		b.MinSize <= r.MinSize &&
		b.MaxSize >= r.MaxSize &&
		b.Stages&r.Stages == r.Stages
}

// align4 rounds n up to a multiple of 4.
func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// padded returns data extended with zero bytes to a multiple of 4.
func padded(data []byte) []byte {
	n := align4(uint64(len(data)))
	if n == uint64(len(data)) {
		return data
	}
	out := make([]byte, n)
	copy(out, data)
	return out
}
