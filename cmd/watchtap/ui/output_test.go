package ui

import "testing"

func TestPlainOutput(t *testing.T) {
	tests := []struct {
		name       string
		forcePlain bool
		noColor    string
		ci         string
		term       string
		want       bool
	}{
		{name: "forced", forcePlain: true, want: true},
		{name: "no_color set", noColor: "1", want: true},
		{name: "ci truthy", ci: "true", want: true},
		{name: "dumb terminal", term: "dumb", want: true},
		// stderr is not a tty under go test, so even a clean env is plain.
		{name: "clean env without tty", term: "xterm-256color", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envNoColor, tt.noColor)
			t.Setenv(envCI, tt.ci)
			t.Setenv(envTerm, tt.term)

			if got := plainOutput(tt.forcePlain); got != tt.want {
				t.Errorf("plainOutput(%v) = %v, want %v", tt.forcePlain, got, tt.want)
			}
		})
	}
}

func TestKeyValuesAlignment(t *testing.T) {
	got := KeyValues("", KV("url", "http://x:5000"), KV("attempts", "30"))

	want := "url:      http://x:5000\nattempts: 30\n"
	if got != want {
		t.Errorf("KeyValues() = %q, want %q", got, want)
	}
}
