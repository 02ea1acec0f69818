package valet

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/subsets-io/valet-connector/internal/catalog"
)

// FetchAllGroupDetails fetches the detail document for every group with a
// bounded fanout. Individual group failures are logged and skipped; the
// result keeps the input order of the groups that succeeded.
func (c *Client) FetchAllGroupDetails(ctx context.Context, groups []catalog.Group, fanout int, log *slog.Logger) []json.RawMessage {
	if fanout < 1 {
		fanout = 1
	}

	results := make([]json.RawMessage, len(groups))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)

	for i, grp := range groups {
		g.Go(func() error {
			body, err := c.FetchGroupDetails(gctx, grp.Name)
			if err != nil {
				log.Warn("failed to fetch group details", "group", grp.Name, "error", err)
				return nil
			}
			mu.Lock()
			results[i] = json.RawMessage(body)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	details := make([]json.RawMessage, 0, len(groups))
	for _, r := range results {
		if r != nil {
			details = append(details, r)
		}
	}
	return details
}
