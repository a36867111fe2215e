package apikeycmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"watchtap/internal/adapter/fake"
	"watchtap/internal/datastore"
)

func testOptions() options {
	return options{
		containerHint: "changedetection",
		remotePath:    "/datastore/url-watches.json",
		waitAttempts:  3,
		waitInterval:  time.Second,
		field:         "api_access_token",
	}
}

func TestExtractPrintsOnlyCredential(t *testing.T) {
	var stdout, stderr bytes.Buffer

	doc := []byte(`{"settings":{"application":{"api_access_token":"tok-123"}}}`)
	if err := extract(doc, testOptions(), &stdout, &stderr); err != nil {
		t.Fatalf("extract() error = %v", err)
	}

	if got := stdout.String(); got != "tok-123\n" {
		t.Errorf("stdout = %q, want credential line only", got)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty on success", stderr.String())
	}
}

func TestExtractFieldMissing(t *testing.T) {
	var stdout, stderr bytes.Buffer

	doc := []byte(`{"settings":{"application":{}}}`)
	err := extract(doc, testOptions(), &stdout, &stderr)

	var notFound *datastore.FieldNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("extract() error = %v, want *FieldNotFoundError", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty on failure", stdout.String())
	}
	if !strings.Contains(stderr.String(), "api_access_token") {
		t.Errorf("stderr = %q, want it to name the missing field", stderr.String())
	}
	// The failing document prefix must appear for debugging.
	if !strings.Contains(stderr.String(), `"settings"`) {
		t.Errorf("stderr = %q, want a document preview", stderr.String())
	}
}

func TestExtractStrictRejectsMalformed(t *testing.T) {
	var stdout, stderr bytes.Buffer

	doc := []byte(`broken { "api_access_token": "tok-xyz"`)

	opts := testOptions()
	if err := extract(doc, opts, &stdout, &stderr); err != nil {
		t.Fatalf("extract() with fallback error = %v", err)
	}
	if got := stdout.String(); got != "tok-xyz\n" {
		t.Errorf("stdout = %q, want fallback value", got)
	}

	stdout.Reset()
	stderr.Reset()
	opts.strict = true
	if err := extract(doc, opts, &stdout, &stderr); err == nil {
		t.Fatal("extract() with --strict error = nil, want error on malformed document")
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty under --strict failure", stdout.String())
	}
}

func TestFetchAndExtract(t *testing.T) {
	rt := fake.NewContainerRuntime()
	rt.AddContainer(datastore.ContainerRef{ID: "abc", Name: "stack-changedetection-1"})
	rt.PutFile("abc", "/datastore/url-watches.json",
		[]byte(`{"settings":{"application":{"api_access_token":"tok-live"}}}`))

	opts := testOptions()
	opts.outPath = t.TempDir() + "/url-watches.json"

	var stdout, stderr bytes.Buffer
	if err := fetchAndExtract(t.Context(), rt, opts, &stdout, &stderr); err != nil {
		t.Fatalf("fetchAndExtract() error = %v", err)
	}

	if got := stdout.String(); got != "tok-live\n" {
		t.Errorf("stdout = %q, want credential line only", got)
	}
	if !strings.Contains(stderr.String(), opts.outPath) {
		t.Errorf("stderr = %q, want it to name the snapshot path", stderr.String())
	}
}

func TestFetchAndExtractDiscoveryFailures(t *testing.T) {
	t.Run("no match", func(t *testing.T) {
		rt := fake.NewContainerRuntime()
		rt.AddContainer(datastore.ContainerRef{ID: "x", Name: "stack-browser-1"})

		var stdout, stderr bytes.Buffer
		err := fetchAndExtract(t.Context(), rt, testOptions(), &stdout, &stderr)

		var notFound *datastore.NotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("error = %v, want *NotFoundError", err)
		}
		// Discovery failures never enter the wait loop.
		if n := rt.CallCount("PathExists"); n != 0 {
			t.Errorf("PathExists called %d times, want 0", n)
		}
	})

	t.Run("ambiguous", func(t *testing.T) {
		rt := fake.NewContainerRuntime()
		rt.AddContainer(datastore.ContainerRef{ID: "a", Name: "prod-changedetection-1"})
		rt.AddContainer(datastore.ContainerRef{ID: "b", Name: "dev-changedetection-1"})

		var stdout, stderr bytes.Buffer
		err := fetchAndExtract(t.Context(), rt, testOptions(), &stdout, &stderr)

		var ambiguous *datastore.AmbiguousError
		if !errors.As(err, &ambiguous) {
			t.Fatalf("error = %v, want *AmbiguousError", err)
		}
	})
}
