package verifycmd

import (
	"strings"
	"testing"

	"watchtap/config"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name      string
		flagValue string
		fromStdin bool
		stdin     string
		env       string
		want      string
		wantErr   bool
	}{
		{name: "flag", flagValue: "tok-flag", want: "tok-flag"},
		{name: "env fallback", env: "tok-env", want: "tok-env"},
		{name: "flag beats env", flagValue: "tok-flag", env: "tok-env", want: "tok-flag"},
		{name: "stdin", fromStdin: true, stdin: "tok-stdin\n", want: "tok-stdin"},
		{name: "stdin trims whitespace", fromStdin: true, stdin: "  tok-stdin  \n", want: "tok-stdin"},
		{name: "stdin beats flag and env", fromStdin: true, stdin: "tok-stdin\n", flagValue: "tok-flag", env: "tok-env", want: "tok-stdin"},
		{name: "empty stdin", fromStdin: true, stdin: "", wantErr: true},
		{name: "blank stdin line", fromStdin: true, stdin: "\n", wantErr: true},
		{name: "nothing anywhere", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvAPIKey, tt.env)

			got, err := resolveKey(tt.flagValue, tt.fromStdin, strings.NewReader(tt.stdin))
			if tt.wantErr {
				if err == nil {
					t.Fatal("resolveKey() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveKey() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
