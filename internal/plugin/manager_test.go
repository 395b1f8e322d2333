package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/gesturepi/internal/gesture"
)

// writeManifest creates dir/<name>/plugin.json for manifest.
func writeManifest(t *testing.T, dir string, manifest Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(dir, manifest.Name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}

	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifestBytes, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()

	pluginDir := writeManifest(t, tmpDir, Manifest{
		Name:        "test-plugin",
		Version:     "1.0.0",
		Description: "A test plugin",
		Executable:  "test-plugin",
		States:      []string{"open_hand", "1"},
		Config:      json.RawMessage(`{"key":"space"}`),
	})

	manager := NewManager(tmpDir, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "test-plugin" {
		t.Errorf("expected plugin name 'test-plugin', got %q", plugin.Manifest.Name)
	}
	if plugin.Manifest.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", plugin.Manifest.Version)
	}
	if plugin.Manifest.Description != "A test plugin" {
		t.Errorf("expected description 'A test plugin', got %q", plugin.Manifest.Description)
	}
	if len(plugin.Manifest.States) != 2 {
		t.Errorf("expected 2 states, got %d", len(plugin.Manifest.States))
	}
	if string(plugin.Manifest.Config) != `{"key":"space"}` {
		t.Errorf("config = %s", plugin.Manifest.Config)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(pluginDir, "test-plugin") {
		t.Errorf("executable = %q", plugin.Executable)
	}
}

func TestManager_Discover_MultiplePluginsSorted(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"plugin-b", "plugin-a", "plugin-c"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Version: "1.0.0", Executable: name})
	}

	manager := NewManager(tmpDir, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 3 {
		t.Fatalf("expected 3 plugins, got %d", len(plugins))
	}
	for i, want := range []string{"plugin-a", "plugin-b", "plugin-c"} {
		if plugins[i].Manifest.Name != want {
			t.Errorf("List()[%d] = %q, want %q", i, plugins[i].Manifest.Name, want)
		}
	}
}

func TestManager_Discover_SkipsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{name: "invalid json", manifest: "not valid json"},
		{name: "missing name", manifest: `{"executable":"run"}`},
		{name: "missing executable", manifest: `{"name":"x"}`},
		{name: "unknown state", manifest: `{"name":"x","executable":"run","states":["wave"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			pluginDir := filepath.Join(tmpDir, "bad-plugin")
			if err := os.MkdirAll(pluginDir, 0755); err != nil {
				t.Fatalf("failed to create plugin dir: %v", err)
			}
			if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(tt.manifest), 0644); err != nil {
				t.Fatalf("failed to write manifest: %v", err)
			}

			manager := NewManager(tmpDir, nil)

			// Discover should skip invalid plugins gracefully
			if err := manager.Discover(); err != nil {
				t.Fatalf("Discover() failed unexpectedly: %v", err)
			}
			if plugins := manager.List(); len(plugins) != 0 {
				t.Fatalf("expected 0 plugins, got %d", len(plugins))
			}
		})
	}
}

func TestManager_Discover_EmptyDir(t *testing.T) {
	manager := NewManager(t.TempDir(), nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on empty dir: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	// Discover should not fail, just return empty list
	manager := NewManager("/path/that/does/not/exist", nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "my-plugin", Version: "2.0.0", Executable: "my-plugin-bin"})

	manager := NewManager(tmpDir, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("my-plugin")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %q", plugin.Manifest.Version)
	}

	if _, err := manager.Get("nonexistent-plugin"); err != ErrPluginNotFound {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_ForState(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "all", Executable: "run"})
	writeManifest(t, tmpDir, Manifest{Name: "open", Executable: "run", States: []string{"open_hand"}})
	writeManifest(t, tmpDir, Manifest{Name: "hand", Executable: "run", States: []string{"1", "2"}})

	manager := NewManager(tmpDir, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	tests := []struct {
		state gesture.State
		want  []string
	}{
		{gesture.NoHand, []string{"all"}},
		{gesture.ClosedFist, []string{"all", "hand"}},
		{gesture.OpenHand, []string{"all", "hand", "open"}},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			got := manager.ForState(tt.state)
			if len(got) != len(tt.want) {
				t.Fatalf("ForState() returned %d plugins, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Manifest.Name != name {
					t.Errorf("ForState()[%d] = %q, want %q", i, got[i].Manifest.Name, name)
				}
			}
		})
	}
}

func TestManager_PluginDir(t *testing.T) {
	pluginDir := "/path/to/plugins"
	manager := NewManager(pluginDir, nil)

	if manager.PluginDir() != pluginDir {
		t.Errorf("expected plugin dir %q, got %q", pluginDir, manager.PluginDir())
	}
}
