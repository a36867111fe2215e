package compose

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCompose = `services:
  changedetection:
    image: ghcr.io/dgtlmoon/changedetection.io:latest
    ports:
      - "5000:5000"
  browser:
    image: dgtlmoon/sockpuppetbrowser:latest
`

func TestLoad(t *testing.T) {
	p, err := Load(t.Context(), []byte(sampleCompose), "compose.yaml", "monitor")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "monitor" {
		t.Errorf("Name = %q, want %q", p.Name, "monitor")
	}
	want := []string{"browser", "changedetection"}
	if len(p.Services) != len(want) {
		t.Fatalf("Services = %v, want %v", p.Services, want)
	}
	for i, svc := range want {
		if p.Services[i] != svc {
			t.Errorf("Services[%d] = %q, want %q", i, p.Services[i], svc)
		}
	}
}

func TestLoadNoServices(t *testing.T) {
	if _, err := Load(t.Context(), []byte("services: {}\n"), "compose.yaml", "empty"); err == nil {
		t.Fatal("Load() error = nil, want error for empty project")
	}
}

func TestLoadFileProjectNameFromDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "My_Stack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "compose.yaml")
	if err := os.WriteFile(path, []byte(sampleCompose), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFile(t.Context(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if p.Name != "my_stack" {
		t.Errorf("Name = %q, want normalized directory name %q", p.Name, "my_stack")
	}
}

func TestEnsureService(t *testing.T) {
	p := &Project{Name: "monitor", Services: []string{"browser", "changedetection"}}

	if err := p.EnsureService("changedetection"); err != nil {
		t.Errorf("EnsureService(changedetection) error = %v", err)
	}

	err := p.EnsureService("changedetect")
	if err == nil {
		t.Fatal("EnsureService(changedetect) error = nil, want error")
	}
	// The error must name the available services.
	if got := err.Error(); !strings.Contains(got, "browser") || !strings.Contains(got, "changedetection") {
		t.Errorf("EnsureService() error = %q, want it to list services", got)
	}
}
