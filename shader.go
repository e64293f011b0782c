// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"github.com/gogpu/batch/internal/key"
	"github.com/gogpu/batch/internal/shader"
)

// ShaderHandle names a linked vertex and fragment entry point pair.
type ShaderHandle uint32

// ModuleHandle names one compiled shader module.
type ModuleHandle uint32

// CreateShader compiles the vertex and fragment sources and links the two
// entry points. When both sources are the same string a single module
// serves both stages.
//
// Each call registers new modules; keep the returned handle instead of
// calling CreateShader every frame.
func (c *Context) CreateShader(vertexSource, vertexEntry, fragmentSource, fragmentEntry string) (ShaderHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	vm, err := c.shaders.Load("", vertexSource)
	if err != nil {
		return 0, err
	}
	fm := vm
	if fragmentSource != vertexSource {
		if fm, err = c.shaders.Load("", fragmentSource); err != nil {
			return 0, err
		}
	}
	id, err := c.shaders.Link(vm, vertexEntry, fm, fragmentEntry)
	return ShaderHandle(id), err
}

// LoadShaderModule compiles WGSL source into a module that can be linked
// with CreateShaderFromModules.
func (c *Context) LoadShaderModule(label, source string) (ModuleHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	id, err := c.shaders.Load(label, source)
	return ModuleHandle(id), err
}

// CreateShaderFromModules links entry points of loaded modules. Linking
// the same pair twice returns the same handle.
func (c *Context) CreateShaderFromModules(vertex ModuleHandle, vertexEntry string, fragment ModuleHandle, fragmentEntry string) (ShaderHandle, error) {
	if c.closed {
		return 0, ErrClosed
	}
	id, err := c.shaders.Link(shader.ModuleID(vertex), vertexEntry, shader.ModuleID(fragment), fragmentEntry)
	return ShaderHandle(id), err
}

func (h ShaderHandle) id() key.ShaderID { return key.ShaderID(h) }
