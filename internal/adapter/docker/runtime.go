package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"watchtap/internal/datastore"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

var _ datastore.ContainerRuntime = (*Runtime)(nil)

// Runtime implements datastore.ContainerRuntime using the Docker Engine API.
type Runtime struct {
	cli *client.Client
}

// NewRuntime creates a Runtime with a new Docker client from the environment.
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// NewRuntimeFromClient wraps an existing Docker client.
func NewRuntimeFromClient(cli *client.Client) *Runtime {
	return &Runtime{cli: cli}
}

func (r *Runtime) WaitReady(ctx context.Context) error {
	return WaitReady(ctx, r.cli)
}

func (r *Runtime) ListRunning(ctx context.Context) ([]datastore.ContainerRef, error) {
	list, err := r.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	refs := make([]datastore.ContainerRef, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			// The engine reports names with a leading slash.
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		refs = append(refs, datastore.ContainerRef{ID: c.ID, Name: name, Labels: c.Labels})
	}
	return refs, nil
}

func (r *Runtime) PathExists(ctx context.Context, containerID, path string) (bool, error) {
	_, err := r.cli.ContainerStatPath(ctx, containerID, path)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s in container %q: %w", path, containerID, err)
	}
	return true, nil
}

func (r *Runtime) ReadFile(ctx context.Context, containerID, path string) ([]byte, error) {
	rc, _, err := r.cli.CopyFromContainer(ctx, containerID, path)
	if err != nil {
		return nil, fmt.Errorf("copy %s from container %q: %w", path, containerID, err)
	}
	defer rc.Close()

	// The engine hands back a tar archive holding the requested file.
	tr := tar.NewReader(rc)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s missing from copy archive of container %q", path, containerID)
		}
		if err != nil {
			return nil, fmt.Errorf("read copy archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s from copy archive: %w", path, err)
		}
		return data, nil
	}
}

func (r *Runtime) Exec(ctx context.Context, containerID string, cmd []string) (datastore.ExecResult, error) {
	exec, err := r.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return datastore.ExecResult{}, fmt.Errorf("create exec in container %q: %w", containerID, err)
	}

	resp, err := r.cli.ContainerExecAttach(ctx, exec.ID, container.ExecStartOptions{})
	if err != nil {
		return datastore.ExecResult{}, fmt.Errorf("attach exec in container %q: %w", containerID, err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return datastore.ExecResult{}, fmt.Errorf("read exec output: %w", err)
	}

	inspect, err := r.cli.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return datastore.ExecResult{}, fmt.Errorf("inspect exec in container %q: %w", containerID, err)
	}

	return datastore.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

func (r *Runtime) PublishedPorts(ctx context.Context, containerID string) ([]datastore.PortBinding, error) {
	info, err := r.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("inspect container %q: %w", containerID, err)
	}
	if info.NetworkSettings == nil {
		return nil, nil
	}
	return flattenPortMap(info.NetworkSettings.Ports), nil
}

// flattenPortMap turns the engine's port map into bindings, skipping
// entries whose host port does not parse.
func flattenPortMap(pm nat.PortMap) []datastore.PortBinding {
	var bindings []datastore.PortBinding
	for port, hostBindings := range pm {
		for _, hb := range hostBindings {
			hostPort, err := strconv.Atoi(hb.HostPort)
			if err != nil {
				continue
			}
			bindings = append(bindings, datastore.PortBinding{
				ContainerPort: port.Int(),
				Proto:         port.Proto(),
				HostIP:        hb.HostIP,
				HostPort:      hostPort,
			})
		}
	}
	return bindings
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}
