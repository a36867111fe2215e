// Package waitcmd implements `watchtap wait`: block until the watch service
// answers, or fail after a fixed, predictable budget.
package waitcmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"watchtap/cmd/watchtap/ui"
	"watchtap/config"
	"watchtap/internal/probe"
	"watchtap/internal/retrywait"

	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	var (
		apiMode      bool
		apiKey       string
		probeTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait SERVICE_URL [ATTEMPTS [INTERVAL_SECONDS]]",
		Short: "Wait until the watch service responds",
		Long: `Wait polls SERVICE_URL with bounded HTTP GETs at a constant interval
until it answers with a 2xx status or the attempt budget runs out.

The total wait is always at most ATTEMPTS x INTERVAL_SECONDS, so CI
timeouts can be set against it. With --api the probe goes to the watch
API endpoint instead, where a 401 also counts as up (service running
with auth enabled).`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := parseSchedule(args[1:])
			if err != nil {
				return err
			}

			opts := []probe.Option{
				probe.WithTimeout(probeTimeout),
				probe.OnAttempt(func(attempt int, err error) {
					if err == nil {
						return
					}
					fmt.Fprintln(os.Stderr, ui.InfoMsg("attempt %d/%d: not ready (next in %s)",
						attempt, schedule.Attempts, schedule.Interval))
				}),
			}
			if apiMode {
				opts = append(opts, probe.WithAPIMode(config.APIKey(apiKey)))
			}

			target := probe.Target{URL: args[0], Schedule: schedule}
			report, err := probe.New(opts...).Wait(cmd.Context(), target)
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("Service %s ready after attempt %d/%d (within %s).",
				ui.Bold(args[0]), report.Attempt, schedule.Attempts, report.Elapsed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&apiMode, "api", false, "Probe the watch API endpoint; accept 401 as up")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key sent as x-api-key in API mode (or "+config.EnvAPIKey+")")
	cmd.Flags().DurationVar(&probeTimeout, "probe-timeout", config.DefaultProbeTimeout, "Timeout for each probe request")

	return cmd
}

// parseSchedule turns the optional positionals into a schedule. Bad numbers
// are usage errors, reported before any probe runs.
func parseSchedule(args []string) (retrywait.Policy, error) {
	p := retrywait.Policy{
		Attempts: config.DefaultWaitAttempts,
		Interval: config.DefaultWaitInterval,
	}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return retrywait.Policy{}, fmt.Errorf("attempts must be a number, got %q", args[0])
		}
		p.Attempts = n
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return retrywait.Policy{}, fmt.Errorf("interval must be a number of seconds, got %q", args[1])
		}
		p.Interval = time.Duration(n) * time.Second
	}
	if err := p.Validate(); err != nil {
		return retrywait.Policy{}, err
	}
	return p, nil
}
