package datastore

import "context"

// ContainerRef identifies a running container seen by discovery.
type ContainerRef struct {
	ID     string
	Name   string
	Labels map[string]string
}

// ExecResult carries the outcome of a command run inside a container.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// PortBinding describes one published container port.
type PortBinding struct {
	ContainerPort int
	Proto         string
	HostIP        string
	HostPort      int
}

// ContainerRuntime abstracts the container engine operations watchtap needs.
// Production: adapter/docker.Runtime (wrapping the Docker Engine client)
// Testing: adapter/fake.ContainerRuntime
type ContainerRuntime interface {
	// Daemon health
	WaitReady(ctx context.Context) error

	// Discovery
	ListRunning(ctx context.Context) ([]ContainerRef, error)

	// Datastore access
	PathExists(ctx context.Context, containerID, path string) (bool, error)
	ReadFile(ctx context.Context, containerID, path string) ([]byte, error)

	// Preflight diagnostics
	Exec(ctx context.Context, containerID string, cmd []string) (ExecResult, error)
	PublishedPorts(ctx context.Context, containerID string) ([]PortBinding, error)

	Close() error
}
