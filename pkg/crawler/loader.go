package crawler

import (
	"context"

	"zhcrawler/pkg/zhihu"
)

// LoadStats summarizes a load run
type LoadStats struct {
	Files     int
	Skipped   int
	Attempted int
}

// StartLoad downloads the avatar of every author in every snapshot, one
// file at a time in name order and one author at a time in array order.
// Unreadable files are skipped; nothing is returned as an error.
func (c *Crawler) StartLoad(ctx context.Context) LoadStats {
	var stats LoadStats

	paths, err := c.store.ListSnapshots()
	if err != nil {
		c.logger.WithError(err).Error("Failed to list snapshot files")
		return stats
	}

	logger := c.logger.WithField("component", "loader")
	logger.InfoWithFields("Loading avatars", map[string]interface{}{
		"files": len(paths),
	})

	for _, path := range paths {
		if ctx.Err() != nil {
			logger.Warn("Load cancelled")
			break
		}

		data, err := c.store.ReadSnapshot(path)
		if err != nil {
			stats.Skipped++
			logger.WithError(err).WarnWithFields("Skipping unreadable snapshot", map[string]interface{}{
				"path": path,
			})
			continue
		}

		answers, err := zhihu.DecodeAnswers(data)
		if err != nil {
			stats.Skipped++
			logger.WithError(err).WarnWithFields("Skipping malformed snapshot", map[string]interface{}{
				"path": path,
			})
			continue
		}

		stats.Files++
		for _, answer := range answers {
			if ctx.Err() != nil {
				break
			}
			c.avatars.DownloadAvatar(ctx, answer.Author)
			stats.Attempted++
		}
	}

	logger.InfoWithFields("Avatar load finished", map[string]interface{}{
		"files":     stats.Files,
		"skipped":   stats.Skipped,
		"attempted": stats.Attempted,
	})

	return stats
}
