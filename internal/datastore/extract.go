package datastore

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Strategy extracts a named field from a datastore document. ok is false
// when the strategy cannot produce a value, which hands the document to the
// next strategy in the chain.
type Strategy interface {
	Name() string
	Extract(doc []byte, field string) (value string, ok bool)
}

// StructuredJSON parses the whole document and walks the locations the
// watch service is known to keep its credential in, most specific first.
type StructuredJSON struct{}

func (StructuredJSON) Name() string { return "structured" }

func (StructuredJSON) Extract(doc []byte, field string) (string, bool) {
	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return "", false
	}

	paths := [][]string{
		{"settings", "application", field},
		{"settings", field},
		{field},
	}
	for _, path := range paths {
		if v, ok := lookup(root, path); ok {
			return v, true
		}
	}
	return "", false
}

func lookup(root map[string]any, path []string) (string, bool) {
	node := any(root)
	for _, key := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		if node, ok = m[key]; !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// PatternScan answers with the first "<field>": "<value>" shaped match in
// the raw bytes. It tolerates documents a JSON parser rejects, but it
// matches anywhere, so an unrelated nested occurrence of the field name
// wins too. It must stay behind StructuredJSON in the chain.
type PatternScan struct{}

func (PatternScan) Name() string { return "pattern" }

func (PatternScan) Extract(doc []byte, field string) (string, bool) {
	re, err := regexp.Compile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	if err != nil {
		return "", false
	}
	m := re.FindSubmatch(doc)
	if m == nil || len(m[1]) == 0 {
		return "", false
	}
	return string(m[1]), true
}

// Chain runs extraction strategies in order; the first value wins.
type Chain struct {
	strategies []Strategy
}

// NewChain builds the extraction chain. strict drops the pattern fallback
// so only a clean structured parse can answer.
func NewChain(strict bool) *Chain {
	strategies := []Strategy{StructuredJSON{}}
	if !strict {
		strategies = append(strategies, PatternScan{})
	}
	return &Chain{strategies: strategies}
}

// Extract returns the field value from the first strategy that produces
// one, or *FieldNotFoundError when none does. Extraction is pure: the same
// document and field always produce the same answer.
func (c *Chain) Extract(doc []byte, field string) (string, error) {
	log := slog.With("component", "extract")
	for _, s := range c.strategies {
		if v, ok := s.Extract(doc, field); ok {
			log.Debug("field extracted", "field", field, "strategy", s.Name())
			return v, nil
		}
		log.Debug("strategy produced nothing", "field", field, "strategy", s.Name())
	}
	return "", &FieldNotFoundError{Field: field}
}

// previewLimit bounds how much of a failing document lands in diagnostics.
const previewLimit = 512

// Preview returns a bounded printable prefix of doc for failure output.
func Preview(doc []byte) string {
	s := string(doc)
	truncated := false
	if len(s) > previewLimit {
		s = s[:previewLimit]
		truncated = true
	}
	s = strings.ToValidUTF8(s, "�")
	if truncated {
		s += "..."
	}
	return s
}
