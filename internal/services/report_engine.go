package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"tally/internal/cache"
	"tally/internal/core"
)

// computeTimeout bounds a report computation shared by several callers.
const computeTimeout = 30 * time.Second

// ReportEngine computes read-only spending reports. Results are cached per
// workspace and window until the next mutation of that workspace.
type ReportEngine struct {
	deps  Deps
	cache cache.Cache[*core.Report]
	group singleflight.Group

	// mu orders cache writes against invalidations. epoch counts
	// invalidations; touched holds the epoch of each workspace's latest one
	// and floor the epoch of the latest Forget.
	mu      sync.Mutex
	epoch   uint64
	floor   uint64
	touched map[string]uint64
}

// NewReportEngine returns an engine backed by c. A nil c disables caching.
func NewReportEngine(deps Deps, c cache.Cache[*core.Report]) *ReportEngine {
	return &ReportEngine{deps: deps, cache: c, touched: make(map[string]uint64)}
}

// Invalidate drops cached reports of workspace. Computations already in
// flight finish but their results are not cached.
func (e *ReportEngine) Invalidate(workspace string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.touched[workspace] = e.epoch
	if e.cache != nil {
		e.cache.Invalidate(workspace)
	}
}

// Forget drops all state kept for a deleted workspace.
func (e *ReportEngine) Forget(workspace string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.floor = e.epoch
	delete(e.touched, workspace)
	if e.cache != nil {
		e.cache.Invalidate(workspace)
	}
}

// tracked reports how many workspaces have invalidation state.
func (e *ReportEngine) tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.touched)
}

// snapshot returns the current epoch and a flight key prefix that changes
// whenever workspace is invalidated or any workspace is forgotten.
func (e *ReportEngine) snapshot(workspace string) (uint64, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch, fmt.Sprintf("%s|%d|%d", workspace, e.touched[workspace], e.floor)
}

// store caches r unless workspace was invalidated after since.
func (e *ReportEngine) store(workspace, key string, since uint64, r *core.Report) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache == nil || e.floor > since || e.touched[workspace] > since {
		return
	}
	e.cache.Set(workspace, key, r)
}

// Compute returns the report of workspace over the requested window. The
// returned report is shared and must not be modified.
func (e *ReportEngine) Compute(ctx context.Context, workspace string, period core.Period, start, end string) (*core.Report, error) {
	w, err := parseWindow(period, start, end)
	if err != nil {
		return nil, err
	}
	key := strings.Join([]string{string(w.period), start, end}, "|")

	if e.cache != nil {
		if r, ok := e.cache.Get(workspace, key); ok {
			return r, nil
		}
	}

	since, prefix := e.snapshot(workspace)
	ch := e.group.DoChan(prefix+"|"+key, func() (interface{}, error) {
		// Callers join this flight with their own contexts; none of them
		// may cancel it for the others.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		r, err := e.compute(cctx, workspace, w)
		if err != nil {
			return nil, err
		}
		r.Start, r.End = start, end
		e.store(workspace, key, since, r)
		return r, nil
	})

	select {
	case <-ctx.Done():
		return nil, core.Storage(ctx.Err(), "compute report")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.DebugContext(ctx, "Report computation shared", "workspace_id", workspace, "period", w.period)
		}
		return res.Val.(*core.Report), nil
	}
}

func (e *ReportEngine) compute(ctx context.Context, workspace string, w window) (*core.Report, error) {
	var (
		rows    []core.Transaction
		cats    []core.Category
		budgets []core.Budget
	)
	q := e.deps.Repo.Queries()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := getWorkspace(gctx, q, workspace); err != nil {
			return err
		}
		var err error
		rows, err = q.ListLedger(gctx, workspace)
		return core.Storage(err, "list ledger")
	})
	g.Go(func() error {
		var err error
		cats, err = q.ListCategories(gctx, workspace)
		return core.Storage(err, "list categories")
	})
	g.Go(func() error {
		var err error
		budgets, err = q.ListBudgets(gctx, workspace)
		return core.Storage(err, "list budgets")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, core.NotFound("no transactions in workspace %s", workspace)
	}
	dated, latest, invalid := datedRows(rows)
	if invalid > 0 {
		slog.WarnContext(ctx, "Dropped ledger rows with invalid dates", "workspace_id", workspace, "rows", invalid)
	}
	if len(dated) == 0 {
		return nil, core.NotFound("no valid dated data in workspace %s", workspace)
	}

	r := aggregate(w.filter(dated, latest), cats, budgets)
	r.WorkspaceID = workspace
	r.Period = w.period
	r.InvalidDateRows = invalid
	return &r, nil
}

// Chart projects the report of the same window onto a chart series.
func (e *ReportEngine) Chart(ctx context.Context, workspace string, kind core.ChartKind, period core.Period, start, end string) (core.ChartSeries, error) {
	switch kind {
	case core.ChartPie, core.ChartBar, core.ChartLine:
	default:
		return core.ChartSeries{}, core.Validation("unknown chart kind %q", kind)
	}
	r, err := e.Compute(ctx, workspace, period, start, end)
	if err != nil {
		return core.ChartSeries{}, err
	}
	return r.Series(kind)
}
