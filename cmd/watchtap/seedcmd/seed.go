// Package seedcmd implements `watchtap seed`: push the configured watch
// list into the service.
package seedcmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"watchtap/cmd/watchtap/ui"
	"watchtap/config"
	"watchtap/internal/retrywait"
	"watchtap/internal/watchapi"

	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	var (
		configPath string
		serviceURL string
		apiKey     string
		attempts   int
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Sync the configured watch list into the service",
		Long: `Seed reads monitored_urls from the config file and makes the service's
watch list cover it: missing watches are created, interval drift on
existing ones is patched, extra watches the service has are left alone.

A watch service that just became ready can still refuse its first API
calls, so the whole sync is retried on a bounded fixed-interval
schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			watches := cfg.Watches()
			if len(watches) == 0 {
				fmt.Fprintln(os.Stderr, ui.WarnMsg("No monitored_urls in %s; nothing to seed.", configPath))
				return nil
			}

			desired := make([]watchapi.Desired, len(watches))
			for i, w := range watches {
				desired[i] = watchapi.Desired{
					URL:           w.URL,
					Title:         w.Title,
					Tag:           w.EffectiveTag(),
					CheckInterval: w.Interval,
				}
			}

			url := serviceURL
			if url == "" {
				url = cfg.EffectiveServiceURL()
			}
			client, err := watchapi.NewClient(url, config.APIKey(apiKey))
			if err != nil {
				return err
			}

			schedule := retrywait.Policy{Attempts: attempts, Interval: interval}
			var res watchapi.SyncResult
			_, err = retrywait.Run(cmd.Context(), schedule, func(ctx context.Context) error {
				var syncErr error
				res, syncErr = client.Sync(ctx, desired)
				return syncErr
			}, retrywait.OnAttempt(func(attempt int, err error) {
				if err == nil {
					return
				}
				fmt.Fprintln(os.Stderr, ui.InfoMsg("sync attempt %d/%d failed: %v", attempt, attempts, err))
			}))
			if err != nil {
				return fmt.Errorf("seed watches into %s: %w", url, err)
			}

			fmt.Println(ui.SuccessMsg("Watch list synced to %s.", ui.Bold(url)))
			fmt.Println(ui.Table(
				[]string{"CREATED", "UPDATED", "UNCHANGED"},
				[][]string{{
					strconv.Itoa(res.Created),
					strconv.Itoa(res.Updated),
					strconv.Itoa(res.Unchanged),
				}},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "Config file with monitored_urls")
	cmd.Flags().StringVar(&serviceURL, "url", "", "Watch service URL (default from config, "+config.EnvServiceURL+", or built-in)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or "+config.EnvAPIKey+")")
	cmd.Flags().IntVar(&attempts, "attempts", config.DefaultSeedAttempts, "Sync attempts before giving up")
	cmd.Flags().DurationVar(&interval, "interval", config.DefaultSeedInterval, "Pause between sync attempts")

	return cmd
}
