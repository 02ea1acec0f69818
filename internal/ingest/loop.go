package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subsets-io/valet-connector/internal/catalog"
	"github.com/subsets-io/valet-connector/internal/logging"
	"github.com/subsets-io/valet-connector/internal/metrics"
	"github.com/subsets-io/valet-connector/internal/obstore"
	"github.com/subsets-io/valet-connector/internal/state"
	"github.com/subsets-io/valet-connector/internal/valet"
)

// Fetcher is the external collaborator that retrieves observations for a
// series from a start boundary forward.
type Fetcher interface {
	FetchObservations(ctx context.Context, seriesCode, startDate string) (valet.FetchResult, error)
}

// Summary reports what one sync pass accomplished.
type Summary struct {
	Updated      int  // series that received new unique observations
	UpToDate     int  // series fetched with nothing new to merge
	Inaccessible int  // series the upstream denied or lacked
	Incomplete   bool // true when the time budget stopped the pass early
}

// Runner executes the per-series incremental sync loop.
type Runner struct {
	fetcher Fetcher
	obs     *obstore.Store
	states  *state.Manager
	budget  time.Duration
	log     *slog.Logger
	met     *metrics.Metrics

	// now is the clock; overridable in tests.
	now func() time.Time
}

// NewRunner creates a sync loop runner. met may be nil.
func NewRunner(fetcher Fetcher, obs *obstore.Store, states *state.Manager, budget time.Duration, log *slog.Logger, met *metrics.Metrics) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		fetcher: fetcher,
		obs:     obs,
		states:  states,
		budget:  budget,
		log:     log,
		met:     met,
		now:     time.Now,
	}
}

// Run syncs every catalog series once: plan, fetch, merge, persist,
// ledger update. State is persisted after each changed series, so a crash
// loses at most the in-flight series and a later run resumes where this
// one left off. The time budget is checked before each series; exceeding
// it stops the pass with Incomplete set rather than erroring.
func (r *Runner) Run(ctx context.Context, series []catalog.Series) (Summary, error) {
	st, err := r.states.LoadIngest(ctx)
	if err != nil {
		return Summary{}, err
	}

	r.log.Info("starting series sync", "series", len(series), "time_budget", r.budget.String())

	var sum Summary
	start := r.now()

	for _, s := range series {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if r.now().Sub(start) >= r.budget {
			r.log.Info("time budget exhausted, more work pending",
				"updated", sum.Updated, "elapsed", r.now().Sub(start).String())
			sum.Incomplete = true
			if r.met != nil {
				r.met.RunIncomplete.Inc()
			}
			break
		}

		if err := r.syncSeries(ctx, st, s, &sum); err != nil {
			return sum, err
		}
	}

	// Catch fetched-set additions from series that produced no new data.
	if err := r.states.SaveIngest(ctx, st); err != nil {
		return sum, err
	}

	r.log.Info("series sync complete",
		"updated", sum.Updated,
		"up_to_date", sum.UpToDate,
		"inaccessible", sum.Inaccessible,
		"incomplete", sum.Incomplete,
	)
	return sum, nil
}

func (r *Runner) syncSeries(ctx context.Context, st *state.IngestState, s catalog.Series, sum *Summary) error {
	log := logging.SeriesLogger(r.log, s.Name)

	existing, err := r.obs.Load(ctx, s.Name)
	if err != nil {
		return err
	}

	watermark, ok := st.Watermark(s.Name)
	startDate := PlanFetch(watermark, ok, existing)

	fetchStart := r.now()
	res, err := r.fetcher.FetchObservations(ctx, s.Name, startDate)
	if r.met != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		} else if res.Outcome == valet.OutcomeInaccessible {
			outcome = "inaccessible"
		}
		r.met.FetchDuration.WithLabelValues(outcome).Observe(r.now().Sub(fetchStart).Seconds())
	}
	if err != nil {
		// Fatal for the whole run; transient retries are the fetcher's job.
		if r.met != nil {
			r.met.FetchErrors.WithLabelValues("observations").Inc()
		}
		return fmt.Errorf("fetch series %s: %w", s.Name, err)
	}

	if res.Outcome == valet.OutcomeInaccessible {
		sum.Inaccessible++
		if r.met != nil {
			r.met.SeriesInaccessible.Inc()
		}
		log.Debug("series inaccessible, skipping")
		return nil
	}

	merge := Merge(s, existing, res.Observations)

	// Attempted at least once, whether or not anything changed.
	st.MarkFetched(s.Name)

	if !merge.Changed {
		sum.UpToDate++
		if r.met != nil {
			r.met.SeriesUpToDate.Inc()
		}
		return nil
	}

	if err := r.obs.Save(ctx, s.Name, merge.Merged); err != nil {
		return err
	}
	if merge.NewWatermark != "" {
		st.SetWatermark(s.Name, merge.NewWatermark)
	}

	// Persist immediately so a later crash does not redo this series.
	if err := r.states.SaveIngest(ctx, st); err != nil {
		return err
	}

	sum.Updated++
	if r.met != nil {
		r.met.SeriesUpdated.Inc()
		r.met.ObservationsMerged.Add(float64(merge.Added))
	}
	log.Debug("series updated", "added", merge.Added, "watermark", merge.NewWatermark)
	return nil
}
