// Package doctorcmd implements `watchtap doctor`: preflight the CI
// environment before the pipeline spends a run on it.
package doctorcmd

import (
	"fmt"
	"path/filepath"

	"watchtap/cmd/watchtap/ui"
	"watchtap/config"
	"watchtap/internal/adapter/docker"
	"watchtap/internal/preflight"

	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	var (
		serviceURL    string
		containerHint string
		remotePath    string
		noNTP         bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment the pipeline is about to run in",
		Long: `Doctor checks everything the other subcommands depend on: the container
engine, the service container, its published ports, the datastore
directory, local disk, and (advisorily) the wall clock against NTP.

Each check prints one line. Blocking failures exit non-zero; advisory
findings never do.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := docker.NewRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			var opts []preflight.Option
			if noNTP {
				opts = append(opts, preflight.SkipNTP())
			}

			d := preflight.New(rt, serviceURL, containerHint, filepath.Dir(remotePath), ".", opts...)
			results := d.Run(cmd.Context())

			for _, r := range results {
				line := r.Name + ": " + r.Detail
				switch r.Verdict {
				case preflight.Pass:
					fmt.Println(ui.SuccessMsg("%s", line))
				case preflight.Warn:
					fmt.Println(ui.WarnMsg("%s", line))
				case preflight.Skipped:
					fmt.Println(ui.Muted("- " + line))
				default:
					fmt.Println(ui.ErrorMsg("%s", line))
				}
			}

			if n := preflight.Blockers(results); n > 0 {
				return fmt.Errorf("doctor found %d blocking issue(s)", n)
			}
			fmt.Println(ui.SuccessMsg("Environment looks good."))
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceURL, "url", config.ServiceURL(), "Watch service URL to cross-check ports against")
	cmd.Flags().StringVar(&containerHint, "container", config.DefaultContainerHint, "Name substring identifying the service container")
	cmd.Flags().StringVar(&remotePath, "remote-path", config.DefaultRemotePath, "Datastore path inside the container")
	cmd.Flags().BoolVar(&noNTP, "no-ntp", false, "Skip the clock-skew check")

	return cmd
}
