package loaders

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return path
}

func TestParseScriptMetadata(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		content     string
		displayName string
		description string
	}{
		{"full.zy", "; Scene: Full Header\n;; Description: has both fields\n(camera :fov 30)\n", "Full Header", "has both fields"},
		{"bare.zy", "(camera :fov 30)\n; Scene: too late\n", "bare", ""},
		{"blank-lines.zy", "\n; Description: after a blank line\n", "blank-lines", "after a blank line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, dir, tt.name, tt.content)
			info, err := ParseScriptMetadata(path)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if info.Name != tt.displayName || info.Description != tt.description {
				t.Errorf("Expected %q / %q, got %q / %q", tt.displayName, tt.description, info.Name, info.Description)
			}
			if info.Type != "script" || info.FilePath != path {
				t.Errorf("Unexpected info %+v", info)
			}
		})
	}
}

func TestListAllScenes(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b.zy", "; Scene: B\n")
	writeScript(t, dir, "a.zy", "; Scene: A\n")
	writeScript(t, dir, "notes.txt", "ignored")

	scenes, err := ListAllScenes(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	presets := Presets()
	if len(scenes) != len(presets)+2 {
		t.Fatalf("Expected %d scenes, got %d", len(presets)+2, len(scenes))
	}
	for i, p := range presets {
		if scenes[i].ID != p.Name || scenes[i].Type != "builtin" {
			t.Errorf("Scene %d: expected builtin %q, got %+v", i, p.Name, scenes[i])
		}
	}
	if scenes[len(presets)].ID != "a" || scenes[len(presets)+1].ID != "b" {
		t.Errorf("Expected scripts sorted by id, got %+v", scenes[len(presets):])
	}

	if missing, err := ListScripts(filepath.Join(dir, "missing")); err != nil || len(missing) != 0 {
		t.Errorf("Expected no scripts and no error for a missing directory, got %v, %v", missing, err)
	}
}

func TestBundledScripts_Load(t *testing.T) {
	scripts, err := ListScripts(filepath.Join("..", "..", "scenes"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(scripts) == 0 {
		t.Skip("no bundled scene scripts")
	}

	for _, info := range scripts {
		t.Run(info.ID, func(t *testing.T) {
			if info.Description == "" {
				t.Error("Expected a Description header")
			}
			d, err := LoadScriptFile(context.Background(), info.FilePath)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer d.Release()
			if len(d.Geometries) == 0 {
				t.Error("Expected at least one object")
			}
			if d.Name != info.ID {
				t.Errorf("Expected name %q, got %q", info.ID, d.Name)
			}
		})
	}
}
