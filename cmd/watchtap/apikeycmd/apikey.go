// Package apikeycmd implements `watchtap apikey`: pull the service's API
// credential out of its JSON datastore.
//
// Stdout carries exactly the credential and nothing else, so the command can
// be captured directly: key=$(watchtap apikey). Everything diagnostic goes
// to stderr.
package apikeycmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"watchtap/cmd/watchtap/ui"
	"watchtap/config"
	"watchtap/internal/adapter/docker"
	"watchtap/internal/compose"
	"watchtap/internal/datastore"
	"watchtap/internal/retrywait"

	"github.com/spf13/cobra"
)

type options struct {
	containerHint  string
	composeFile    string
	composeService string
	remotePath     string
	outPath        string
	waitAttempts   int
	waitInterval   time.Duration
	field          string
	strict         bool
}

func Cmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "apikey [DATASTORE_FILE]",
		Short: "Extract the service API key from its datastore",
		Long: `Apikey prints the watch service's API credential.

With a DATASTORE_FILE argument the credential is extracted from that
local file. Without one, the service's container is discovered through
the container engine, the datastore is awaited and copied out, and the
snapshot is kept locally for inspection.

Extraction first parses the document as JSON and walks the known
credential locations; when that yields nothing, a textual scan for the
field picks up the value even from documents strict parsing rejects.
--strict disables the scan.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				doc, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read datastore file: %w", err)
				}
				return extract(doc, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}

			rt, err := docker.NewRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			return fetchAndExtract(cmd.Context(), rt, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.containerHint, "container", config.DefaultContainerHint, "Name substring identifying the service container")
	cmd.Flags().StringVar(&opts.composeFile, "compose-file", "", "Discover the container through this compose file's labels instead of by name")
	cmd.Flags().StringVar(&opts.composeService, "service", config.DefaultComposeService, "Compose service to discover (with --compose-file)")
	cmd.Flags().StringVar(&opts.remotePath, "remote-path", config.DefaultRemotePath, "Datastore path inside the container")
	cmd.Flags().StringVar(&opts.outPath, "out", config.DefaultSnapshotName, "Local path for the copied datastore snapshot")
	cmd.Flags().IntVar(&opts.waitAttempts, "wait-attempts", config.DefaultFileWaitAttempts, "Checks for the datastore to appear")
	cmd.Flags().DurationVar(&opts.waitInterval, "wait-interval", config.DefaultFileWaitInterval, "Pause between datastore checks")
	cmd.Flags().StringVar(&opts.field, "field", config.DefaultField, "Credential field name in the datastore")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Disable the textual fallback scan")

	return cmd
}

// fetchAndExtract is the container-discovery path: resolve, wait, copy,
// snapshot, extract.
func fetchAndExtract(ctx context.Context, rt datastore.ContainerRuntime, opts options, stdout, stderr io.Writer) error {
	src := datastore.Source{
		Hint:       opts.containerHint,
		RemotePath: opts.remotePath,
		Wait:       retrywait.Policy{Attempts: opts.waitAttempts, Interval: opts.waitInterval},
	}

	if opts.composeFile != "" {
		project, err := compose.LoadFile(ctx, opts.composeFile)
		if err != nil {
			return err
		}
		if err := project.EnsureService(opts.composeService); err != nil {
			return err
		}
		src.Project = project.Name
		src.Service = opts.composeService
	}

	fetcher := datastore.NewFetcher(rt, datastore.OnAttempt(func(attempt int, err error) {
		if err == nil {
			return
		}
		fmt.Fprintln(stderr, ui.InfoMsg("datastore check %d/%d: %v", attempt, src.Wait.Attempts, err))
	}))

	doc, ref, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return err
	}
	fmt.Fprintln(stderr, ui.SuccessMsg("Copied datastore from %s.", ui.Bold(ref.Name)))

	if err := datastore.WriteLocal(opts.outPath, doc); err != nil {
		return err
	}
	fmt.Fprintln(stderr, ui.Muted("snapshot kept at "+opts.outPath))

	return extract(doc, opts, stdout, stderr)
}

// extract runs the strategy chain and prints the credential. On failure a
// bounded document prefix lands on stderr so the run is debuggable without
// dumping the whole datastore into CI logs.
func extract(doc []byte, opts options, stdout, stderr io.Writer) error {
	value, err := datastore.NewChain(opts.strict).Extract(doc, opts.field)
	if err != nil {
		var notFound *datastore.FieldNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintln(stderr, ui.ErrorMsg("Field %s not found. Document starts with:", ui.Bold(opts.field)))
			fmt.Fprintln(stderr, ui.Muted(datastore.Preview(doc)))
		}
		return err
	}

	fmt.Fprintln(stdout, value)
	return nil
}
