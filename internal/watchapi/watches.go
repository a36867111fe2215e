package watchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
)

// Watch is one monitored URL in the watch service.
type Watch struct {
	UUID          string `json:"uuid,omitempty"`
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Tag           string `json:"tag,omitempty"`
	CheckInterval int    `json:"check_interval,omitempty"`
}

// ListWatches returns the service's watches. The endpoint has answered in
// several shapes across service versions; all of them are accepted. When
// the answer is a bare UUID list, each watch is fetched individually and
// watches whose detail fetch fails are skipped.
func (c *Client) ListWatches(ctx context.Context) ([]Watch, error) {
	resp, err := c.do(ctx, http.MethodGet, []string{watchPath}, nil)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("list watches: %w", ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		return nil, unexpectedStatus("list watches", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list watches: read response: %w", err)
	}

	watches, uuids, err := parseWatchList(data)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}

	log := slog.With("component", "watchapi")
	for _, uuid := range uuids {
		w, err := c.GetWatch(ctx, uuid)
		if err != nil {
			log.Warn("skipping watch", "uuid", uuid, "err", err)
			continue
		}
		if w.URL == "" {
			continue
		}
		watches = append(watches, w)
	}
	return watches, nil
}

// GetWatch fetches one watch by UUID.
func (c *Client) GetWatch(ctx context.Context, uuid string) (Watch, error) {
	resp, err := c.do(ctx, http.MethodGet, []string{watchPath, uuid}, nil)
	if err != nil {
		return Watch{}, fmt.Errorf("get watch %s: %w", uuid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Watch{}, unexpectedStatus(fmt.Sprintf("get watch %s", uuid), resp)
	}

	var w Watch
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return Watch{}, fmt.Errorf("get watch %s: decode: %w", uuid, err)
	}
	if w.UUID == "" {
		w.UUID = uuid
	}
	return w, nil
}

// CreateWatch registers a new watch.
func (c *Client) CreateWatch(ctx context.Context, w Watch) error {
	resp, err := c.do(ctx, http.MethodPost, []string{watchPath}, w)
	if err != nil {
		return fmt.Errorf("create watch %s: %w", w.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return unexpectedStatus(fmt.Sprintf("create watch %s", w.URL), resp)
	}
	return nil
}

// UpdateWatchInterval patches the check interval of an existing watch.
func (c *Client) UpdateWatchInterval(ctx context.Context, uuid string, interval int) error {
	payload := map[string]int{"check_interval": interval}
	resp, err := c.do(ctx, http.MethodPatch, []string{watchPath, uuid}, payload)
	if err != nil {
		return fmt.Errorf("update watch %s: %w", uuid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(fmt.Sprintf("update watch %s", uuid), resp)
	}
	return nil
}

// parseWatchList accepts every list shape the service is known to answer
// with: a list of UUID strings, a list of watch objects, a single watch
// object, or a map of UUID to watch object. UUID-list entries come back in
// the second return value and need detail fetches.
func parseWatchList(data []byte) ([]Watch, []string, error) {
	var uuids []string
	if err := json.Unmarshal(data, &uuids); err == nil {
		return nil, uuids, nil
	}

	var list []Watch
	if err := json.Unmarshal(data, &list); err == nil {
		return compactWatches(list), nil, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return nil, nil, fmt.Errorf("unrecognized watch list shape: %w", err)
	}
	if _, ok := object["url"]; ok {
		var w Watch
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, nil, fmt.Errorf("parse watch object: %w", err)
		}
		return compactWatches([]Watch{w}), nil, nil
	}

	watches := make([]Watch, 0, len(object))
	for uuid, raw := range object {
		var w Watch
		if err := json.Unmarshal(raw, &w); err != nil || w.URL == "" {
			continue
		}
		if w.UUID == "" {
			w.UUID = uuid
		}
		watches = append(watches, w)
	}
	// Map iteration order is random; keep the answer stable.
	sort.Slice(watches, func(i, j int) bool { return watches[i].URL < watches[j].URL })
	return watches, nil, nil
}

func compactWatches(list []Watch) []Watch {
	out := make([]Watch, 0, len(list))
	for _, w := range list {
		if w.URL == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}
