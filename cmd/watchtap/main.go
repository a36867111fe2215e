package main

import (
	"fmt"
	"os"

	"watchtap/cmd/watchtap/apikeycmd"
	"watchtap/cmd/watchtap/doctorcmd"
	"watchtap/cmd/watchtap/seedcmd"
	"watchtap/cmd/watchtap/ui"
	"watchtap/cmd/watchtap/verifycmd"
	"watchtap/cmd/watchtap/waitcmd"
	"watchtap/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug bool
		plain bool
	)
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "watchtap",
		Short:         "CI companion for a containerized watch service",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug || logging.DebugEnabled() {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.Configure(plain)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (or set "+logging.EnvDebug+")")
	root.PersistentFlags().BoolVar(&plain, "plain", false, "Disable styled output")

	root.AddCommand(waitcmd.Cmd())
	root.AddCommand(apikeycmd.Cmd())
	root.AddCommand(verifycmd.Cmd())
	root.AddCommand(seedcmd.Cmd())
	root.AddCommand(doctorcmd.Cmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
