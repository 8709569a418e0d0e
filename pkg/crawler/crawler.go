package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zhcrawler/internal/pagepool"
	"zhcrawler/pkg/config"
	"zhcrawler/pkg/errors"
	"zhcrawler/pkg/logger"
	"zhcrawler/pkg/throttle"
	"zhcrawler/pkg/zhihu"
)

// FetchStats summarizes a fetch run
type FetchStats struct {
	Totals int
	Pages  int
	Saved  int
	Failed int
}

// Crawler pages through one question's answers and loads avatars from the
// saved snapshots
type Crawler struct {
	client   APIClient
	store    Store
	builder  zhihu.PageBuilder
	waiter   throttle.Waiter
	workers  int
	avatars  AvatarDownloader
	reporter Reporter
	logger   logger.Logger
}

// New creates a crawler from configuration
func New(cfg *config.Config, client APIClient, store Store, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("question", cfg.Zhihu.QuestionToken)

	c := &Crawler{
		client:   client,
		store:    store,
		builder:  zhihu.NewPageBuilder(cfg.Zhihu.BaseURL, cfg.Zhihu.QuestionToken, cfg.Zhihu.PageSize),
		waiter:   throttle.New(cfg.Crawl.MaxJitter, cfg.Crawl.RequestsPerMinute),
		workers:  cfg.Crawl.Workers,
		reporter: nopReporter{},
		logger:   log,
	}
	c.avatars = NewAvatars(client, store, cfg.Output.AnonymousName, log)

	return c
}

// SetThrottle replaces the wait applied before each page after the first
func (c *Crawler) SetThrottle(w throttle.Waiter) {
	c.waiter = w
}

// SetAvatarDownloader replaces the downloader used by StartLoad
func (c *Crawler) SetAvatarDownloader(d AvatarDownloader) {
	c.avatars = d
}

// SetReporter registers a progress reporter
func (c *Crawler) SetReporter(r Reporter) {
	if r == nil {
		r = nopReporter{}
	}
	c.reporter = r
	if a, ok := c.avatars.(*Avatars); ok {
		a.reporter = r
	}
}

// StartFetch fetches every page of the listing and saves each as a
// snapshot. It returns an error only when the first page cannot be fetched
// or carries no usable total; later page failures are logged and skipped.
func (c *Crawler) StartFetch(ctx context.Context) error {
	_, err := c.Fetch(ctx)
	return err
}

// Fetch is StartFetch that also reports what happened
func (c *Crawler) Fetch(ctx context.Context) (FetchStats, error) {
	var stats FetchStats
	start := time.Now()

	first := c.builder.Build(0)
	logger.LogComponentStart(c.logger, "crawler", map[string]interface{}{
		"workers":   c.workers,
		"page_size": first.Limit,
	})

	resp, err := c.client.FetchPage(ctx, first)
	c.reporter.PageDone(first.Offset, err)
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch first page")
		return stats, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totals, ok := resp.TotalCount()
	if !ok || totals <= 0 {
		err := errors.New(errors.ErrorTypeInvalidResponse, 0, "first page has no usable paging.totals")
		c.logger.WithError(err).Error("Cannot determine page count")
		return stats, err
	}

	stats.Totals = totals
	stats.Pages = zhihu.PageCount(totals, first.Limit)

	c.logger.InfoWithFields("Answer listing found", map[string]interface{}{
		"totals": totals,
		"pages":  stats.Pages,
	})
	if p, ok := c.reporter.(PagePlanner); ok {
		p.PagesPlanned(stats.Pages)
	}

	// Page 0 is already in hand
	if path, err := c.store.SaveSnapshot(resp.Data); err != nil {
		stats.Failed++
		c.logger.WithError(err).ErrorWithFields("Failed to save snapshot", map[string]interface{}{
			"offset": first.Offset,
		})
	} else {
		stats.Saved++
		logger.LogSnapshotSaved(c.logger, path, len(resp.Data))
	}

	saved, failed := c.fetchRemaining(ctx, c.builder.Offsets(totals))
	stats.Saved += saved
	stats.Failed += failed

	logger.LogComponentStop(c.logger, "crawler", map[string]interface{}{
		"pages":    stats.Pages,
		"saved":    stats.Saved,
		"failed":   stats.Failed,
		"duration": time.Since(start),
	})

	return stats, nil
}

// fetchRemaining runs the pages at offsets through the worker pool and
// returns how many were saved and how many failed
func (c *Crawler) fetchRemaining(ctx context.Context, offsets []int) (saved, failed int) {
	if len(offsets) == 0 {
		return 0, 0
	}

	pool := pagepool.New(ctx, c.workers, c.client, c.store, c.waiter, c.logger)
	pool.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			c.reporter.PageDone(result.Job.Page.Offset, result.Error)
			if result.Success {
				saved++
				continue
			}
			failed++
			c.logger.WithError(result.Error).ErrorWithFields("Page failed", map[string]interface{}{
				"offset":   result.Job.Page.Offset,
				"duration": result.Duration,
			})
		}
	}()

	unsubmitted := 0
	for _, offset := range offsets {
		if err := pool.Submit(pagepool.Job{Page: c.builder.Build(offset)}); err != nil {
			unsubmitted++
			c.logger.WithError(err).WarnWithFields("Page not submitted", map[string]interface{}{
				"offset": offset,
			})
		}
	}

	pool.Stop()
	wg.Wait()

	return saved, failed + unsubmitted
}
