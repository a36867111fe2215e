package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cenkalti/backoff/v4"

	"watchtap/internal/retrywait"
)

// Source locates a datastore document inside a running container. Hint
// discovery is the default; when Project is set, compose-label discovery
// takes over and Hint is ignored.
type Source struct {
	Hint       string
	Project    string
	Service    string
	RemotePath string
	Wait       retrywait.Policy
}

// Fetcher copies a datastore document out of a discovered container.
type Fetcher struct {
	rt      ContainerRuntime
	log     *slog.Logger
	runOpts []retrywait.Option
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimer replaces the pause timer for the file wait (testing).
func WithTimer(t backoff.Timer) FetcherOption {
	return func(f *Fetcher) {
		f.runOpts = append(f.runOpts, retrywait.WithTimer(t))
	}
}

// OnAttempt registers a per-check callback for the file wait.
func OnAttempt(fn func(attempt int, err error)) FetcherOption {
	return func(f *Fetcher) {
		f.runOpts = append(f.runOpts, retrywait.OnAttempt(fn))
	}
}

// NewFetcher creates a Fetcher on top of a container runtime.
func NewFetcher(rt ContainerRuntime, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		rt:  rt,
		log: slog.With("component", "datastore"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves the container, waits for the document to appear, and
// returns its raw bytes plus the resolved container.
//
// Discovery failures are immediate and never consume the wait schedule;
// only the file wait does. Transient errors while checking for the file
// are absorbed as long as attempts remain.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, ContainerRef, error) {
	refs, err := f.rt.ListRunning(ctx)
	if err != nil {
		return nil, ContainerRef{}, fmt.Errorf("list containers: %w", err)
	}

	var ref ContainerRef
	if src.Project != "" {
		ref, err = FindByComposeService(refs, src.Project, src.Service)
	} else {
		ref, err = FindByHint(refs, src.Hint)
	}
	if err != nil {
		return nil, ContainerRef{}, err
	}
	f.log.Debug("container resolved", "name", ref.Name, "id", shortID(ref.ID))

	op := func(ctx context.Context) error {
		ok, err := f.rt.PathExists(ctx, ref.ID, src.RemotePath)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s not present yet", src.RemotePath)
		}
		return nil
	}
	if _, err := retrywait.Run(ctx, src.Wait, op, f.runOpts...); err != nil {
		return nil, ref, fmt.Errorf("datastore %s in container %s: %w", src.RemotePath, ref.Name, err)
	}

	doc, err := f.rt.ReadFile(ctx, ref.ID, src.RemotePath)
	if err != nil {
		return nil, ref, fmt.Errorf("copy %s from container %s: %w", src.RemotePath, ref.Name, err)
	}
	f.log.Debug("datastore copied", "path", src.RemotePath, "bytes", len(doc))
	return doc, ref, nil
}

// WriteLocal persists a snapshot for post-run inspection. The document
// holds a credential, so the file is not group or world readable.
func WriteLocal(path string, doc []byte) error {
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
