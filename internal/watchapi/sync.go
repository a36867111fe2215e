package watchapi

import (
	"context"
	"log/slog"
)

// Desired is one watch the configuration wants present in the service.
type Desired struct {
	URL           string
	Title         string
	Tag           string
	CheckInterval int
}

// SyncResult counts what a sync pass did.
type SyncResult struct {
	Created   int
	Updated   int
	Unchanged int
}

// Sync makes the service's watch list cover desired: missing watches are
// created and interval drift on existing ones is patched. Watches the
// service has beyond desired are left alone.
func (c *Client) Sync(ctx context.Context, desired []Desired) (SyncResult, error) {
	existing, err := c.ListWatches(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	byURL := make(map[string]Watch, len(existing))
	for _, w := range existing {
		byURL[w.URL] = w
	}

	log := slog.With("component", "watchapi")
	var res SyncResult
	for _, d := range desired {
		w, ok := byURL[d.URL]
		if !ok {
			err := c.CreateWatch(ctx, Watch{
				URL:           d.URL,
				Title:         d.Title,
				Tag:           d.Tag,
				CheckInterval: d.CheckInterval,
			})
			if err != nil {
				return res, err
			}
			log.Debug("watch created", "url", d.URL, "interval", d.CheckInterval)
			res.Created++
			continue
		}
		if d.CheckInterval == 0 || w.CheckInterval == d.CheckInterval {
			res.Unchanged++
			continue
		}
		if err := c.UpdateWatchInterval(ctx, w.UUID, d.CheckInterval); err != nil {
			return res, err
		}
		log.Debug("watch interval updated", "url", d.URL, "interval", d.CheckInterval)
		res.Updated++
	}
	return res, nil
}
