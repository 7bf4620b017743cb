package mvix

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mvix.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, `
id: search
bufferCapacity: 64
overflow: drop_latest
logEvents: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := Config{ID: "search", BufferCapacity: 64, Overflow: DropLatest, LogEvents: true}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadConfig_KeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "id: partial\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BufferCapacity != DefaultBufferCapacity || cfg.Overflow != DropOldest {
		t.Errorf("missing fields should keep defaults, got %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad overflow", content: "overflow: sometimes\n", wantErr: "unknown overflow policy"},
		{name: "bad capacity", content: "bufferCapacity: 0\n", wantErr: "bufferCapacity must be positive"},
		{name: "empty id", content: "id: \"\"\n", wantErr: "id is empty"},
		{name: "malformed", content: "id: [\n", wantErr: "yaml unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("MVIX_ID", "from-env")
	t.Setenv("MVIX_BUFFER_CAPACITY", "8")
	t.Setenv("MVIX_OVERFLOW", "drop_latest")

	cfg := DefaultConfig()
	cfg.LogEvents = true
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	want := Config{ID: "from-env", BufferCapacity: 8, Overflow: DropLatest, LogEvents: true}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseEnv_Invalid(t *testing.T) {
	t.Setenv("MVIX_BUFFER_CAPACITY", "-1")
	cfg := DefaultConfig()
	if err := ParseEnv(&cfg); err == nil {
		t.Error("expected a validation error")
	}
}

func TestWithConfig(t *testing.T) {
	cfg := Config{ID: "cfg", BufferCapacity: 3, Overflow: DropLatest}
	f := NewFeature[int, int](ReducerFunc[int, int](func(e, s int) int { return s + e }), 0, WithConfig[int, int](cfg))
	if f.ID() != "cfg" || f.capacity != 3 || f.overflow != DropLatest {
		t.Errorf("config not applied: id=%q capacity=%d overflow=%v", f.ID(), f.capacity, f.overflow)
	}
}
