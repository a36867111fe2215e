package datastore

import (
	"errors"
	"strings"
	"testing"
)

func TestChainExtract(t *testing.T) {
	testCases := []struct {
		name  string
		doc   string
		field string
		want  string
	}{
		{
			name:  "settings level",
			doc:   `{"settings":{"api_key":"abc123"}}`,
			field: "api_key",
			want:  "abc123",
		},
		{
			name:  "application level",
			doc:   `{"settings":{"application":{"api_access_token":"deadbeef"}}}`,
			field: "api_access_token",
			want:  "deadbeef",
		},
		{
			name:  "top level",
			doc:   `{"api_access_token":"tok-1"}`,
			field: "api_access_token",
			want:  "tok-1",
		},
		{
			name:  "malformed document falls back to pattern",
			doc:   `{"watching": {...broken..., "api_access_token": "tok-xyz"}`,
			field: "api_access_token",
			want:  "tok-xyz",
		},
		{
			name:  "pattern tolerates spacing",
			doc:   `not json at all "api_access_token"   :   "spaced-tok" trailing`,
			field: "api_access_token",
			want:  "spaced-tok",
		},
		{
			name:  "deep location preferred over top level",
			doc:   `{"api_key":"top","settings":{"application":{"api_key":"deep"}}}`,
			field: "api_key",
			want:  "deep",
		},
		{
			name:  "settings preferred over top level",
			doc:   `{"api_key":"top","settings":{"api_key":"mid"}}`,
			field: "api_key",
			want:  "mid",
		},
	}

	chain := NewChain(false)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := chain.Extract([]byte(tc.doc), tc.field)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("Extract() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestChainExtractFieldAbsent(t *testing.T) {
	chain := NewChain(false)

	_, err := chain.Extract([]byte(`{"settings":{"other":"x"}}`), "api_access_token")

	var notFound *FieldNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Extract() error = %v, want *FieldNotFoundError", err)
	}
	if notFound.Field != "api_access_token" {
		t.Errorf("notFound.Field = %q, want %q", notFound.Field, "api_access_token")
	}
}

func TestChainExtractEmptyValueRejected(t *testing.T) {
	chain := NewChain(false)

	if _, err := chain.Extract([]byte(`{"settings":{"api_key":""}}`), "api_key"); err == nil {
		t.Fatal("Extract() accepted an empty credential")
	}
}

func TestChainExtractIdempotent(t *testing.T) {
	chain := NewChain(false)
	doc := []byte(`{"settings":{"application":{"api_access_token":"stable"}}}`)

	first, err := chain.Extract(doc, "api_access_token")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	second, err := chain.Extract(doc, "api_access_token")
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}
	if first != second {
		t.Errorf("Extract() not stable: %q then %q", first, second)
	}
}

func TestStrategiesAgreeOnWellFormedDocument(t *testing.T) {
	doc := []byte(`{"settings":{"application":{"api_access_token":"tok-both"}}}`)

	structured, okS := StructuredJSON{}.Extract(doc, "api_access_token")
	pattern, okP := PatternScan{}.Extract(doc, "api_access_token")

	if !okS || !okP {
		t.Fatalf("structured ok = %v, pattern ok = %v, want both", okS, okP)
	}
	if structured != pattern {
		t.Errorf("strategies disagree: structured %q, pattern %q", structured, pattern)
	}
	if structured != "tok-both" {
		t.Errorf("value = %q, want %q", structured, "tok-both")
	}

	// The chain answers with the structured result when both would match.
	got, err := NewChain(false).Extract(doc, "api_access_token")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != structured {
		t.Errorf("chain = %q, want structured result %q", got, structured)
	}
}

func TestStrictChainSkipsPatternFallback(t *testing.T) {
	chain := NewChain(true)

	// A pattern match exists, but the document does not parse.
	_, err := chain.Extract([]byte(`{broken "api_access_token": "tok-xyz"`), "api_access_token")

	var notFound *FieldNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("strict Extract() error = %v, want *FieldNotFoundError", err)
	}
}

func TestStructuredJSONRejectsNonString(t *testing.T) {
	var s StructuredJSON

	testCases := []struct {
		name string
		doc  string
	}{
		{name: "number", doc: `{"api_key": 42}`},
		{name: "object", doc: `{"api_key": {"nested": "x"}}`},
		{name: "null", doc: `{"api_key": null}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if v, ok := s.Extract([]byte(tc.doc), "api_key"); ok {
				t.Errorf("Extract() = %q, want no value for non-string field", v)
			}
		})
	}
}

func TestPatternScanFirstMatchWins(t *testing.T) {
	var p PatternScan

	doc := []byte(`"api_key": "first" junk "api_key": "second"`)
	got, ok := p.Extract(doc, "api_key")
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if got != "first" {
		t.Errorf("Extract() = %q, want %q", got, "first")
	}
}

func TestPatternScanEscapedQuotes(t *testing.T) {
	var p PatternScan

	doc := []byte(`"api_key": "to\"ken"`)
	got, ok := p.Extract(doc, "api_key")
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if got != `to\"ken` {
		t.Errorf("Extract() = %q, want raw escaped capture", got)
	}
}

func TestPatternScanQuotesFieldName(t *testing.T) {
	var p PatternScan

	// A field name with regex metacharacters must be matched literally.
	doc := []byte(`"api.key": "dotted"`)
	if v, ok := p.Extract(doc, "api+key"); ok {
		t.Errorf("Extract() = %q, want no match for a different field name", v)
	}
	got, ok := p.Extract(doc, "api.key")
	if !ok || got != "dotted" {
		t.Errorf("Extract() = %q, %v, want %q", got, ok, "dotted")
	}
}

func TestPreviewBounded(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := Preview([]byte(long))
	if len(got) > previewLimit+len("...") {
		t.Errorf("Preview() returned %d bytes, want at most %d", len(got), previewLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Preview() of a long document should mark truncation")
	}

	short := "tiny document"
	if got := Preview([]byte(short)); got != short {
		t.Errorf("Preview() = %q, want %q", got, short)
	}
}
