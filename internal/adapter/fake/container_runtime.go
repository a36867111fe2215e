package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"watchtap/internal/datastore"
)

var _ datastore.ContainerRuntime = (*ContainerRuntime)(nil)

type fileKey struct {
	id   string
	path string
}

// ContainerRuntime is an in-memory implementation of
// datastore.ContainerRuntime. State is seeded through Add/Put/Set helpers;
// per-method hooks inject failures.
type ContainerRuntime struct {
	CallRecorder
	mu    sync.Mutex
	ready bool
	refs  []datastore.ContainerRef
	files map[fileKey][]byte
	execs map[string]datastore.ExecResult
	ports map[string][]datastore.PortBinding

	WaitReadyErr      func(ctx context.Context) error
	ListRunningErr    func(ctx context.Context) error
	PathExistsErr     func(ctx context.Context, containerID, path string) error
	ReadFileErr       func(ctx context.Context, containerID, path string) error
	ExecErr           func(ctx context.Context, containerID string, cmd []string) error
	PublishedPortsErr func(ctx context.Context, containerID string) error
}

// NewContainerRuntime creates a ContainerRuntime that is ready by default.
func NewContainerRuntime() *ContainerRuntime {
	return &ContainerRuntime{
		ready: true,
		files: make(map[fileKey][]byte),
		execs: make(map[string]datastore.ExecResult),
		ports: make(map[string][]datastore.PortBinding),
	}
}

func (r *ContainerRuntime) WaitReady(ctx context.Context) error {
	r.record("WaitReady")
	if r.WaitReadyErr != nil {
		if err := r.WaitReadyErr(ctx); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return fmt.Errorf("container runtime not ready")
	}
	return nil
}

func (r *ContainerRuntime) ListRunning(ctx context.Context) ([]datastore.ContainerRef, error) {
	r.record("ListRunning")
	if r.ListRunningErr != nil {
		if err := r.ListRunningErr(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]datastore.ContainerRef, len(r.refs))
	copy(out, r.refs)
	return out, nil
}

func (r *ContainerRuntime) PathExists(ctx context.Context, containerID, path string) (bool, error) {
	r.record("PathExists", containerID, path)
	if r.PathExistsErr != nil {
		if err := r.PathExistsErr(ctx, containerID, path); err != nil {
			return false, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.files[fileKey{id: containerID, path: path}]
	return ok, nil
}

func (r *ContainerRuntime) ReadFile(ctx context.Context, containerID, path string) ([]byte, error) {
	r.record("ReadFile", containerID, path)
	if r.ReadFileErr != nil {
		if err := r.ReadFileErr(ctx, containerID, path); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.files[fileKey{id: containerID, path: path}]
	if !ok {
		return nil, fmt.Errorf("no such file %s in container %s", path, containerID)
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (r *ContainerRuntime) Exec(ctx context.Context, containerID string, cmd []string) (datastore.ExecResult, error) {
	r.record("Exec", containerID, cmd)
	if r.ExecErr != nil {
		if err := r.ExecErr(ctx, containerID, cmd); err != nil {
			return datastore.ExecResult{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.execs[execKey(containerID, cmd)], nil
}

func (r *ContainerRuntime) PublishedPorts(ctx context.Context, containerID string) ([]datastore.PortBinding, error) {
	r.record("PublishedPorts", containerID)
	if r.PublishedPortsErr != nil {
		if err := r.PublishedPortsErr(ctx, containerID); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	bindings := r.ports[containerID]
	out := make([]datastore.PortBinding, len(bindings))
	copy(out, bindings)
	return out, nil
}

func (r *ContainerRuntime) Close() error {
	r.record("Close")
	return nil
}

// AddContainer registers a running container for discovery.
func (r *ContainerRuntime) AddContainer(ref datastore.ContainerRef) {
	r.mu.Lock()
	r.refs = append(r.refs, ref)
	r.mu.Unlock()
}

// PutFile places a document at path inside a container. Calling it from a
// PathExistsErr hook makes the file appear mid-wait.
func (r *ContainerRuntime) PutFile(containerID, path string, doc []byte) {
	r.mu.Lock()
	r.files[fileKey{id: containerID, path: path}] = doc
	r.mu.Unlock()
}

// SetExec cans the result for an exact command in a container.
func (r *ContainerRuntime) SetExec(containerID string, cmd []string, res datastore.ExecResult) {
	r.mu.Lock()
	r.execs[execKey(containerID, cmd)] = res
	r.mu.Unlock()
}

// SetPorts cans the published port bindings for a container.
func (r *ContainerRuntime) SetPorts(containerID string, bindings []datastore.PortBinding) {
	r.mu.Lock()
	r.ports[containerID] = bindings
	r.mu.Unlock()
}

// SetReady controls whether WaitReady succeeds.
func (r *ContainerRuntime) SetReady(ready bool) {
	r.mu.Lock()
	r.ready = ready
	r.mu.Unlock()
}

func execKey(containerID string, cmd []string) string {
	return containerID + " " + strings.Join(cmd, " ")
}
