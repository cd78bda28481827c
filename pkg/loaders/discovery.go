package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScriptExt is the file extension of scene scripts
const ScriptExt = ".zy"

// SceneInfo describes a scene available to the CLI
type SceneInfo struct {
	ID          string // Name passed to -scene
	Name        string // Display name
	Description string
	Type        string // "builtin" or "script"
	FilePath    string // Script path (script type only)
}

// ListScripts scans dir for scene scripts. A missing directory yields an
// empty list.
func ListScripts(dir string) ([]SceneInfo, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*"+ScriptExt))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	scenes := make([]SceneInfo, 0, len(files))
	for _, path := range files {
		info, err := ParseScriptMetadata(path)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, info)
	}

	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].ID < scenes[j].ID
	})
	return scenes, nil
}

// ParseScriptMetadata reads the leading comment block of a scene script:
//
//	; Scene: Cornell Box
//	; Description: quad walls with a blackbody ceiling light
//
// Missing fields fall back to the file name.
func ParseScriptMetadata(path string) (SceneInfo, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info := SceneInfo{
		ID:       id,
		Name:     id,
		Type:     "script",
		FilePath: path,
	}

	file, err := os.Open(path)
	if err != nil {
		return info, fmt.Errorf("reading scene metadata: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ";") {
			break
		}

		content := strings.TrimSpace(strings.TrimLeft(line, ";"))
		if value, ok := strings.CutPrefix(content, "Scene:"); ok {
			info.Name = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(content, "Description:"); ok {
			info.Description = strings.TrimSpace(value)
		}
	}
	return info, scanner.Err()
}

// ListAllScenes returns the built-in scenes followed by the scripts in dir
func ListAllScenes(dir string) ([]SceneInfo, error) {
	var scenes []SceneInfo
	for _, p := range Presets() {
		scenes = append(scenes, SceneInfo{
			ID:          p.Name,
			Name:        p.Name,
			Description: p.Description,
			Type:        "builtin",
		})
	}

	scripts, err := ListScripts(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scene scripts: %w", err)
	}
	return append(scenes, scripts...), nil
}
