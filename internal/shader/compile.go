// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"
)

// ErrInvalid is returned when WGSL source fails to parse, lower or
// validate, or when a requested entry point is missing.
var ErrInvalid = errors.New("shader: invalid module")

// Stage is a programmable pipeline stage a module entry point runs in.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
	StageOther // task and mesh stages
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	case StageOther:
		return "other"
	default:
		return "unknown"
	}
}

// compiled is the front-end result for one WGSL source.
type compiled struct {
	entries map[string]Stage
	source  hal.ShaderSource
}

// compile parses and lowers src with naga, optionally validates the IR and
// optionally emits SPIR-V. Without SPIR-V output the WGSL text is handed to
// the backend unchanged.
func compile(src string, validate, toSPIRV bool) (*compiled, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, fmt.Errorf("%w: lower: %w", ErrInvalid, err)
	}

	if validate {
		verrs, err := naga.Validate(module)
		if err != nil {
			return nil, fmt.Errorf("%w: validate: %w", ErrInvalid, err)
		}
		if len(verrs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, &verrs[0])
		}
	}

	c := &compiled{
		entries: make(map[string]Stage, len(module.EntryPoints)),
		source:  hal.ShaderSource{WGSL: src},
	}
	for _, ep := range module.EntryPoints {
		c.entries[ep.Name] = stageOf(ep.Stage)
	}

	if toSPIRV {
		code, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
		if err != nil {
			return nil, fmt.Errorf("generate SPIR-V: %w", err)
		}
		c.source = hal.ShaderSource{SPIRV: words(code)}
	}
	return c, nil
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageVertex:
		return StageVertex
	case ir.StageFragment:
		return StageFragment
	case ir.StageCompute:
		return StageCompute
	default:
		return StageOther
	}
}

// words converts little-endian SPIR-V bytes to 32-bit words.
func words(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return out
}
