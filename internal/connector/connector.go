// Package connector orchestrates a full run: catalog refresh, the
// incremental series sync, and the change-driven dataset transforms.
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/subsets-io/valet-connector/internal/catalog"
	"github.com/subsets-io/valet-connector/internal/config"
	"github.com/subsets-io/valet-connector/internal/dataset"
	"github.com/subsets-io/valet-connector/internal/ingest"
	"github.com/subsets-io/valet-connector/internal/ledger"
	"github.com/subsets-io/valet-connector/internal/metrics"
	"github.com/subsets-io/valet-connector/internal/obstore"
	"github.com/subsets-io/valet-connector/internal/sink"
	"github.com/subsets-io/valet-connector/internal/state"
	"github.com/subsets-io/valet-connector/internal/storage"
	"github.com/subsets-io/valet-connector/internal/valet"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	GitSHA  = "unknown"
)

// Transforms of independent datasets run concurrently up to this limit.
const datasetFanout = 4

// Connector wires the run phases together.
type Connector struct {
	cfg     config.Config
	client  *valet.Client
	objects storage.Store
	obs     *obstore.Store
	states  *state.Manager
	sink    sink.Sink
	mapping *dataset.Mapping
	log     *slog.Logger
	met     *metrics.Metrics
}

// New assembles a connector from its collaborators.
func New(cfg config.Config, client *valet.Client, objects storage.Store, obs *obstore.Store,
	states *state.Manager, snk sink.Sink, mapping *dataset.Mapping,
	log *slog.Logger, met *metrics.Metrics) *Connector {
	return &Connector{
		cfg:     cfg,
		client:  client,
		objects: objects,
		obs:     obs,
		states:  states,
		sink:    snk,
		mapping: mapping,
		log:     log,
		met:     met,
	}
}

// Run executes one full pass. Phases run in a fixed order because each
// feeds the next: the catalog names the series, the sync advances their
// stored observations, and the transforms consume what the sync changed.
func (c *Connector) Run(ctx context.Context) error {
	start := time.Now()

	series, err := c.loadCatalog(ctx)
	if err != nil {
		return err
	}
	c.log.Info("catalog loaded", "series", len(series))

	runner := ingest.NewRunner(c.client, c.obs, c.states,
		c.cfg.Connector.TimeBudget.Std(), c.log, c.met)
	sum, err := runner.Run(ctx, series)
	if err != nil {
		return fmt.Errorf("series sync: %w", err)
	}
	c.log.Info("series sync finished",
		"updated", sum.Updated,
		"up_to_date", sum.UpToDate,
		"inaccessible", sum.Inaccessible,
		"incomplete", sum.Incomplete)

	uploaded, skipped, err := c.transform(ctx)
	if err != nil {
		return fmt.Errorf("dataset transform: %w", err)
	}

	c.met.LastRunUnixtime.SetToCurrentTime()
	c.log.Info("run finished",
		"duration", time.Since(start).Round(time.Second).String(),
		"series_updated", sum.Updated,
		"datasets_uploaded", uploaded,
		"datasets_skipped", skipped,
		"incomplete", sum.Incomplete)
	return nil
}

// loadCatalog returns the series to track, refreshing the stored
// snapshots first when configured or when none exists yet.
func (c *Connector) loadCatalog(ctx context.Context) ([]catalog.Series, error) {
	haveSnapshot, err := c.objects.Exists(ctx, catalog.SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("check series list snapshot: %w", err)
	}

	if c.cfg.Connector.RefreshCatalog || !haveSnapshot {
		if err := c.refreshCatalog(ctx); err != nil {
			return nil, err
		}
	}
	return catalog.Load(ctx, c.objects)
}

// refreshCatalog snapshots the upstream series list and group documents.
func (c *Connector) refreshCatalog(ctx context.Context) error {
	c.log.Info("refreshing catalog snapshots")

	seriesCSV, err := c.client.FetchSeriesList(ctx)
	if err != nil {
		return fmt.Errorf("fetch series list: %w", err)
	}
	if err := catalog.Save(ctx, c.objects, seriesCSV); err != nil {
		return err
	}
	series, err := catalog.ParseSeriesList(seriesCSV)
	if err != nil {
		return fmt.Errorf("parse series list: %w", err)
	}
	if err := c.sink.UploadCatalog(ctx, series); err != nil {
		return err
	}

	groupsCSV, err := c.client.FetchGroupsList(ctx)
	if err != nil {
		return fmt.Errorf("fetch groups list: %w", err)
	}
	groups, err := catalog.ParseGroups(groupsCSV)
	if err != nil {
		return fmt.Errorf("parse groups list: %w", err)
	}

	details := c.client.FetchAllGroupDetails(ctx, groups, c.cfg.Connector.GroupFanout, c.log)
	doc, err := json.Marshal(map[string]any{"groups": details})
	if err != nil {
		return fmt.Errorf("marshal groups snapshot: %w", err)
	}
	if err := c.objects.Write(ctx, catalog.GroupsKey, doc); err != nil {
		return fmt.Errorf("write groups snapshot: %w", err)
	}

	groupRows, err := catalog.FlattenGroupDetails(details)
	if err != nil {
		return fmt.Errorf("flatten group details: %w", err)
	}
	if err := c.sink.UploadGroups(ctx, groupRows); err != nil {
		return err
	}

	c.log.Info("catalog snapshots refreshed", "groups", len(details))
	return nil
}

// transform rebuilds and uploads the datasets affected by this run's
// sync. With no filter, a dataset is rebuilt only when one of its
// constituent series changed since the last committed transform; the
// filter forces its datasets through regardless of changes.
func (c *Connector) transform(ctx context.Context) (uploaded, skipped int, err error) {
	ingestState, err := c.states.LoadIngest(ctx)
	if err != nil {
		c.met.StorageErrors.WithLabelValues("state").Inc()
		return 0, 0, err
	}
	transformState, err := c.states.LoadTransform(ctx)
	if err != nil {
		c.met.StorageErrors.WithLabelValues("state").Inc()
		return 0, 0, err
	}

	changed := ledger.Changed(ingestState, transformState)
	filter := c.cfg.Connector.DatasetFilterSet()

	if len(changed) == 0 && len(filter) == 0 {
		c.log.Info("no series changed, skipping dataset transforms")
		return 0, 0, nil
	}
	c.log.Info("starting dataset transforms", "changed_series", len(changed), "filtered", len(filter) > 0)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(datasetFanout)

	for _, ds := range c.mapping.Datasets {
		if !c.affected(ds, changed, filter) {
			continue
		}
		g.Go(func() error {
			ok, err := c.transformDataset(gctx, ds)
			if err != nil {
				return err
			}
			mu.Lock()
			if ok {
				uploaded++
			} else {
				skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return uploaded, skipped, err
	}

	// Only a full, unfiltered pass advances the transform ledger; a
	// filtered run must not mark untouched datasets as caught up.
	if len(filter) == 0 {
		ledger.Commit(ingestState, transformState)
		if err := c.states.SaveTransform(ctx, transformState); err != nil {
			return uploaded, skipped, err
		}
	}
	return uploaded, skipped, nil
}

func (c *Connector) affected(ds dataset.Dataset, changed map[string]struct{}, filter map[string]struct{}) bool {
	if len(filter) > 0 {
		_, ok := filter[ds.ID]
		return ok
	}
	for _, sm := range ds.Series {
		if _, ok := changed[sm.Code]; ok {
			return true
		}
	}
	return false
}

// transformDataset pivots and uploads one dataset. Empty or invalid
// tables are skipped, not fatal; a dataset with no data yet is normal
// early in a backfill.
func (c *Connector) transformDataset(ctx context.Context, ds dataset.Dataset) (bool, error) {
	log := c.log.With("dataset", ds.ID)

	table, stats, err := dataset.Pivot(ctx, ds.Config, c.obs)
	if err != nil {
		return false, fmt.Errorf("pivot dataset %s: %w", ds.ID, err)
	}
	for _, code := range stats.MissingSeries {
		log.Warn("constituent series has no stored data", "series", code)
		c.met.MissingSeries.WithLabelValues(ds.ID).Inc()
	}
	if table == nil {
		log.Warn("no data for dataset, skipping upload")
		c.met.DatasetsSkipped.Inc()
		return false, nil
	}
	if err := dataset.Validate(table, ds.Config); err != nil {
		log.Warn("dataset failed validation, skipping upload", "error", err)
		c.met.DatasetsSkipped.Inc()
		return false, nil
	}

	rows, err := c.sink.Upload(ctx, ds.ID, ds.Config, table, sink.MergeByDate)
	if err != nil {
		c.met.StorageErrors.WithLabelValues("sink").Inc()
		return false, err
	}
	c.met.DatasetsUploaded.Inc()
	c.met.DatasetRows.WithLabelValues(ds.ID).Observe(float64(rows))
	if stats.DroppedValues > 0 {
		log.Debug("dropped non-numeric values", "count", stats.DroppedValues)
	}
	return true, nil
}
