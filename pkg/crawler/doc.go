// Package crawler drives a crawl of one question's answer listing.
//
// A crawl has two phases, run by separate entry points:
//
// StartFetch requests page 0, derives the page count from paging.totals and
// then fetches the remaining pages on a pool of at most five workers, each
// waiting a random jitter before its request. Every fetched page is saved
// as a snapshot file. Only a failure of page 0 is returned; other page
// failures are logged and the crawl continues.
//
// StartLoad walks the saved snapshots in name order and downloads each
// answer author's avatar, one at a time.
//
// Usage:
//
//	state := session.New(cfg.ActiveCookie(), cfg.ActiveUserAgent())
//	client := zhihu.NewClient(state, cfg.Crawl.RequestTimeout, log)
//	store, err := storage.NewManager(cfg.Output.DataDirectory, cfg.Output.ImageDirectory)
//	if err != nil {
//	    return err
//	}
//
//	c := crawler.New(cfg, client, store, log)
//	if err := c.StartFetch(ctx); err != nil {
//	    return err
//	}
//	c.StartLoad(ctx)
package crawler
