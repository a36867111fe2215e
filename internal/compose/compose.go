// Package compose resolves container discovery parameters from a Docker
// Compose file, so the target container can be found by the labels compose
// stamps on it instead of a name guess.
package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
)

// Project is the slice of a compose project discovery needs.
type Project struct {
	Name     string
	Services []string
}

// LoadFile reads and parses a compose file. The project name follows
// compose's own convention: the directory name holding the file, normalized.
func LoadFile(ctx context.Context, path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve compose file path: %w", err)
	}
	name := projectName(filepath.Base(filepath.Dir(abs)))

	return Load(ctx, data, filepath.Base(path), name)
}

// Load parses compose YAML into a Project.
func Load(ctx context.Context, data []byte, filename, name string) (*Project, error) {
	details := composetypes.ConfigDetails{
		ConfigFiles: []composetypes.ConfigFile{
			{Filename: filename, Content: data},
		},
	}

	project, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		o.SetProjectName(name, true)
		o.SkipValidation = true
	})
	if err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}
	if len(project.Services) == 0 {
		return nil, fmt.Errorf("compose file has no services")
	}

	services := make([]string, 0, len(project.Services))
	for svc := range project.Services {
		services = append(services, svc)
	}
	sort.Strings(services)

	return &Project{Name: project.Name, Services: services}, nil
}

// EnsureService verifies service exists in the project; the error lists the
// services that do, so a typo is diagnosable from the message alone.
func (p *Project) EnsureService(service string) error {
	for _, s := range p.Services {
		if s == service {
			return nil
		}
	}
	return fmt.Errorf("service %q not in compose project %q (services: %s)",
		service, p.Name, strings.Join(p.Services, ", "))
}

// projectName mirrors compose's normalization: lowercase, with everything
// outside [a-z0-9_-] squeezed out.
func projectName(dir string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(dir) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
