// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command batchdemo renders a grid of quads through the batching layer and
// reports how many batches, draw calls and GPU objects each frame needed.
//
// Usage:
//
//	batchdemo [-backend noop|vulkan|metal|dx12|gl] [-frames N] [-quads N]
//	          [-config file.toml] [-shader file.wgsl [-watch]] [-v]
//
// The noop backend presents to a noop surface. Real backends render
// headless into an offscreen texture.
package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/batch"
	"github.com/gogpu/batch/config"
)

//go:embed shaders/quad.wgsl
var quadShader string

var backends = map[string]gputypes.Backend{
	"vulkan": gputypes.BackendVulkan,
	"metal":  gputypes.BackendMetal,
	"dx12":   gputypes.BackendDX12,
	"gl":     gputypes.BackendGL,
}

func main() {
	var (
		backend    = flag.String("backend", "noop", "HAL backend: noop, vulkan, metal, dx12, gl")
		frames     = flag.Int("frames", 3, "frames to render; 0 runs until interrupted")
		quads      = flag.Int("quads", 64, "number of quads")
		configPath = flag.String("config", "", "TOML configuration file")
		shaderPath = flag.String("shader", "", "WGSL file with vs_main and fs_main (default: built-in)")
		watch      = flag.Bool("watch", false, "reload -shader when the file changes")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "batchdemo",
		Level:           log.InfoLevel,
	})
	if *verbose {
		handler.SetLevel(log.DebugLevel)
	}
	logger := slog.New(handler)
	batch.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, demo{
		backend:    *backend,
		frames:     *frames,
		quads:      *quads,
		configPath: *configPath,
		shaderPath: *shaderPath,
		watch:      *watch,
		logger:     logger,
	})
	if err != nil {
		handler.Fatal("demo failed", "err", err)
	}
}

type demo struct {
	backend    string
	frames     int
	quads      int
	configPath string
	shaderPath string
	watch      bool
	logger     *slog.Logger
}

func run(ctx context.Context, d demo) error {
	cfg := config.Default()
	if d.configPath != "" {
		var err error
		if cfg, err = config.Load(d.configPath); err != nil {
			return err
		}
	}
	if cfg.Surface.Width == 0 {
		cfg.Surface.Width, cfg.Surface.Height = 640, 480
	}

	gpu, err := openGPU(d.backend)
	if err != nil {
		return err
	}
	defer gpu.close()
	d.logger.Info("device opened", "backend", d.backend, "adapter", gpu.adapter)

	opts := append(cfg.Options(), batch.WithLogger(d.logger))
	if gpu.surface != nil {
		opts = append(opts, batch.WithSurface(gpu.surface))
	}
	bc, err := batch.New(gpu.device, gpu.queue, opts...)
	if err != nil {
		return err
	}
	defer bc.Close()

	pass := batch.PassOptions{Target: batch.SurfaceTarget(), Clear: cfg.Clear()}
	if gpu.surface == nil {
		w, h := cfg.Surface.Width, cfg.Surface.Height
		target, err := bc.CreateTexture(make([]byte, int(w)*int(h)*4), w, h)
		if err != nil {
			return err
		}
		pass.Target = batch.TextureTarget(target)
	}
	depth, err := bc.CreateDepthTexture(cfg.Surface.Width, cfg.Surface.Height)
	if err != nil {
		return err
	}
	pass.Depth = &depth
	pass.ClearDepth = true

	source := quadShader
	if d.shaderPath != "" {
		b, err := os.ReadFile(d.shaderPath)
		if err != nil {
			return err
		}
		source = string(b)
	}
	sh, err := bc.CreateShader(source, "vs_main", source, "fs_main")
	if err != nil {
		return err
	}

	var sources <-chan string
	if d.watch && d.shaderPath != "" {
		w, err := watchShader(d.shaderPath, d.logger)
		if err != nil {
			return fmt.Errorf("watch %s: %w", d.shaderPath, err)
		}
		go w.run(ctx)
		sources = w.Sources()
		d.logger.Info("watching shader", "path", d.shaderPath)
	}

	aspect := float32(cfg.Surface.Width) / float32(cfg.Surface.Height)
	start := time.Now()
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for frame := 0; d.frames == 0 || frame < d.frames; frame++ {
		select {
		case <-ctx.Done():
			return nil
		case src := <-sources:
			next, err := bc.CreateShader(src, "vs_main", src, "fs_main")
			if err != nil {
				d.logger.Error("shader reload rejected, keeping previous shader", "err", err)
			} else {
				sh = next
				d.logger.Info("shader reloaded")
			}
		case <-ticker.C:
		}

		reqs := scene(d.quads, sh)
		uniforms := []batch.UniformPayload{globals(float32(time.Since(start).Seconds()), aspect)}
		err := bc.Render(reqs, uniforms, pass)
		if errors.Is(err, batch.ErrSurfaceUnavailable) {
			d.logger.Warn("surface unavailable, reconfiguring", "err", err)
			if err := bc.ConfigureSurface(cfg.Surface.Width, cfg.Surface.Height); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		s := bc.Stats()
		d.logger.Info("frame",
			"n", s.Frames, "requests", len(reqs), "batches", s.Batches, "draws", s.DrawCalls,
			"pipelines", s.Pipelines, "bindings", s.UniformBindings, "bytes", s.BytesUploaded)
	}
	return nil
}

// gpu is an opened device, plus a surface when the backend can present
// without a window.
type gpu struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	surface  hal.Surface
	adapter  string
}

func openGPU(name string) (*gpu, error) {
	var b hal.Backend = noop.API{}
	if name != "noop" {
		variant, ok := backends[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown backend %q", name)
		}
		if b, ok = hal.GetBackend(variant); !ok {
			return nil, fmt.Errorf("backend %s is not available on this platform", variant)
		}
	}

	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Backends: gputypes.BackendsAll})
	if err != nil {
		return nil, fmt.Errorf("create %s instance: %w", name, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("no %s adapter found", name)
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open %s device: %w", adapters[0].Info.Name, err)
	}

	g := &gpu{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		adapter:  adapters[0].Info.Name,
	}
	if name == "noop" {
		if g.surface, err = instance.CreateSurface(0, 0); err != nil {
			g.close()
			return nil, err
		}
	}
	return g, nil
}

func (g *gpu) close() {
	if g.surface != nil {
		g.surface.Destroy()
	}
	g.device.Destroy()
	g.instance.Destroy()
}
