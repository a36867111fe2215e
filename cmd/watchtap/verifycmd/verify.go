// Package verifycmd implements `watchtap verify`: confirm an API key is
// accepted by the watch service.
package verifycmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"watchtap/cmd/watchtap/ui"
	"watchtap/config"
	"watchtap/internal/watchapi"

	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	var (
		serviceURL string
		apiKey     string
		keyStdin   bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that an API key is accepted by the service",
		Long: `Verify makes one authenticated request against the watch API and reports
whether the key was accepted.

The key comes from --api-key, from ` + config.EnvAPIKey + `, or from stdin
with --key-stdin, which lets pipelines chain extraction and verification:

  watchtap apikey | watchtap verify --key-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveKey(apiKey, keyStdin, cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, err := watchapi.NewClient(serviceURL, key)
			if err != nil {
				return err
			}

			if err := client.Verify(cmd.Context()); err != nil {
				if errors.Is(err, watchapi.ErrUnauthorized) {
					return fmt.Errorf("service at %s rejected the api key", serviceURL)
				}
				return err
			}

			fmt.Println(ui.SuccessMsg("API key accepted by %s.", ui.Bold(serviceURL)))
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceURL, "url", config.ServiceURL(), "Watch service URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key to verify (or "+config.EnvAPIKey+")")
	cmd.Flags().BoolVar(&keyStdin, "key-stdin", false, "Read the API key from stdin")

	return cmd
}

// resolveKey picks the key source: stdin when requested, else flag, else
// environment. An empty result is an error; verifying nothing is always a
// caller mistake.
func resolveKey(flagValue string, fromStdin bool, stdin io.Reader) (string, error) {
	if fromStdin {
		scanner := bufio.NewScanner(stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("read api key from stdin: %w", err)
			}
			return "", fmt.Errorf("no api key on stdin")
		}
		key := strings.TrimSpace(scanner.Text())
		if key == "" {
			return "", fmt.Errorf("no api key on stdin")
		}
		return key, nil
	}

	key := config.APIKey(flagValue)
	if key == "" {
		return "", fmt.Errorf("no api key: pass --api-key, set %s, or use --key-stdin", config.EnvAPIKey)
	}
	return key, nil
}
