package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveScene(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "room.zy"), []byte("(camera :fov 30)\n"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name        string
		scene       string
		expectPath  string
		expectError bool
	}{
		{"preset", "cornell", "", false},
		{"script by name", "room", filepath.Join(dir, "room.zy"), false},
		{"script by path", "elsewhere/thing.zy", "elsewhere/thing.zy", false},
		{"unknown scene", "nonexistent", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := resolveScene(tt.scene, dir)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for scene %q, got none", tt.scene)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if path != tt.expectPath {
				t.Errorf("Expected path %q, got %q", tt.expectPath, path)
			}
		})
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig(options{
		sceneName:   "furnace",
		accelerator: "rtree",
		samples:     3,
		workers:     2,
		width:       16,
		height:      8,
		out:         "x.png",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Scene.Builtin != "furnace" || cfg.Scene.Script != "" {
		t.Errorf("Expected builtin furnace, got %+v", cfg.Scene)
	}
	if cfg.Scene.Accelerator != "rtree" || cfg.Render.SamplesPerPixel != 3 || cfg.Render.Workers != 2 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.Render.Width != 16 || cfg.Render.Height != 8 || cfg.Output.Path != "x.png" {
		t.Errorf("Overrides not applied: %+v", cfg)
	}

	if _, err := loadConfig(options{workers: -1, accelerator: "octree"}); err == nil {
		t.Error("Expected an error for an unknown accelerator")
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-help"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("Expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(out.String(), "-scene") || !strings.Contains(out.String(), "[render]") {
		t.Errorf("Expected usage and config help, got %q", out.String())
	}
}

func TestRun_List(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-list", "-scenes", t.TempDir()}, &out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, name := range []string{"cornell", "furnace", "plane", "spheres"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("Expected %q in the scene list:\n%s", name, out.String())
		}
	}
}

func TestRun_PrintConfig(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-print-config", "-samples", "5"}, &out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "samples_per_pixel = 5") {
		t.Errorf("Expected the sample override in the printed config:\n%s", out.String())
	}
}

func TestRun_RendersPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "plane.png")
	args := []string{
		"-scene", "plane",
		"-width", "12", "-height", "8",
		"-samples", "2", "-passes", "1",
		"-workers", "1",
		"-out", out,
	}
	if err := run(context.Background(), args, &bytes.Buffer{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	file, err := os.Open(out)
	if err != nil {
		t.Fatalf("Expected an output image: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Unexpected error decoding output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
		t.Errorf("Expected a 12x8 image, got %v", b)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "never.png")
	err := run(ctx, []string{"-scene", "plane", "-width", "8", "-height", "8", "-out", out}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("Expected an error for a cancelled render")
	}
	if _, statErr := os.Stat(out); statErr == nil {
		t.Error("Expected no output image for a cancelled render")
	}
}
