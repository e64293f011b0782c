// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader registers shader modules and the vertex/fragment entry
// point pairs that pipelines are built from.
//
// Every Load call creates a new module and returns a fresh ModuleID; module
// identity is the handle, never the source text. Link pairs two entry
// points into a shader. Linking the same pair twice returns the same
// key.ShaderID, so pipelines cached by shader id are shared.
package shader

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/batch/internal/cache"
	"github.com/gogpu/batch/internal/key"
)

// ModuleID identifies a loaded shader module.
type ModuleID uint32

// Module is a compiled shader module and the entry points it declares.
type Module struct {
	ID     ModuleID
	Label  string
	Handle hal.ShaderModule

	entries map[string]Stage
}

// EntryStage returns the stage of the named entry point.
func (m *Module) EntryStage(name string) (Stage, bool) {
	s, ok := m.entries[name]
	return s, ok
}

// Shader is a linked vertex and fragment entry point pair.
type Shader struct {
	ID            key.ShaderID
	Vertex        *Module
	VertexEntry   string
	Fragment      *Module
	FragmentEntry string
}

// SameModule reports whether both stages come from one module.
func (s *Shader) SameModule() bool { return s.Vertex.ID == s.Fragment.ID }

// Options control module compilation.
type Options struct {
	// Validate runs the naga IR validator on every module.
	Validate bool

	// SPIRV hands SPIR-V produced by naga to the backend instead of WGSL.
	SPIRV bool
}

type linkKey struct {
	vertex, fragment           ModuleID
	vertexEntry, fragmentEntry string
}

// Registry owns the shader modules of one rendering context.
type Registry struct {
	device  hal.Device
	opts    Options
	logger  *slog.Logger
	modules []*Module
	shaders []*Shader
	links   *cache.Cache[linkKey, key.ShaderID]
}

// NewRegistry creates an empty registry creating modules on device.
func NewRegistry(device hal.Device, opts Options, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		device: device,
		opts:   opts,
		logger: logger,
		links:  cache.New[linkKey, key.ShaderID](),
	}
}

// Load compiles WGSL source into a new module.
func (r *Registry) Load(label, src string) (ModuleID, error) {
	c, err := compile(src, r.opts.Validate, r.opts.SPIRV)
	if err != nil {
		return 0, fmt.Errorf("load %q: %w", label, err)
	}

	id := ModuleID(len(r.modules)) //nolint:gosec // module count is small
	if label == "" {
		label = fmt.Sprintf("shader_module_%d", id)
	}
	handle, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: c.source,
	})
	if err != nil {
		return 0, fmt.Errorf("create shader module %q: %w", label, err)
	}

	r.modules = append(r.modules, &Module{
		ID:      id,
		Label:   label,
		Handle:  handle,
		entries: c.entries,
	})
	r.logger.Debug("shader: loaded module", "id", id, "label", label,
		"entry_points", len(c.entries), "spirv", r.opts.SPIRV)
	return id, nil
}

// Module returns the module with the given id, or nil.
func (r *Registry) Module(id ModuleID) *Module {
	if int(id) >= len(r.modules) {
		return nil
	}
	return r.modules[id]
}

// Link pairs a vertex entry point and a fragment entry point. Both modules
// must be loaded and declare the entry point in the matching stage.
func (r *Registry) Link(vertex ModuleID, vertexEntry string, fragment ModuleID, fragmentEntry string) (key.ShaderID, error) {
	vm, fm := r.Module(vertex), r.Module(fragment)
	if vm == nil || fm == nil {
		return 0, fmt.Errorf("%w: unknown module", ErrInvalid)
	}
	if err := checkEntry(vm, vertexEntry, StageVertex); err != nil {
		return 0, err
	}
	if err := checkEntry(fm, fragmentEntry, StageFragment); err != nil {
		return 0, err
	}

	k := linkKey{vertex: vertex, fragment: fragment, vertexEntry: vertexEntry, fragmentEntry: fragmentEntry}
	id, created, err := r.links.GetOrCreate(k, func() (key.ShaderID, error) {
		id := key.ShaderID(len(r.shaders)) //nolint:gosec // shader count is small
		r.shaders = append(r.shaders, &Shader{
			ID:            id,
			Vertex:        vm,
			VertexEntry:   vertexEntry,
			Fragment:      fm,
			FragmentEntry: fragmentEntry,
		})
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	if created {
		r.logger.Debug("shader: linked", "id", id,
			"vertex", vm.Label+":"+vertexEntry, "fragment", fm.Label+":"+fragmentEntry)
	}
	return id, nil
}

// Shader returns the linked shader with the given id, or nil.
func (r *Registry) Shader(id key.ShaderID) *Shader {
	if int(id) >= len(r.shaders) {
		return nil
	}
	return r.shaders[id]
}

// Len returns the number of loaded modules.
func (r *Registry) Len() int { return len(r.modules) }

// Destroy releases every module in reverse load order.
func (r *Registry) Destroy() {
	for i := len(r.modules) - 1; i >= 0; i-- {
		r.device.DestroyShaderModule(r.modules[i].Handle)
	}
	r.modules = nil
	r.shaders = nil
	r.links.Drain()
}

// checkEntry verifies m declares name in stage.
func checkEntry(m *Module, name string, stage Stage) error {
	got, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("%w: module %q has no entry point %q", ErrInvalid, m.Label, name)
	}
	if got != stage {
		return fmt.Errorf("%w: entry point %q in %q is a %s stage, want %s", ErrInvalid, name, m.Label, got, stage)
	}
	return nil
}
