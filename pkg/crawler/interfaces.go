package crawler

import (
	"context"
	"encoding/json"
	"io"

	"zhcrawler/pkg/zhihu"
)

// APIClient defines the remote operations the crawler needs
type APIClient interface {
	FetchPage(ctx context.Context, page zhihu.Page) (*zhihu.PageResponse, error)
	OpenImage(ctx context.Context, imageURL string) (io.ReadCloser, error)
}

// Store defines where snapshots and images are kept
type Store interface {
	SaveSnapshot(items []json.RawMessage) (string, error)
	ListSnapshots() ([]string, error)
	ReadSnapshot(path string) ([]byte, error)
	SaveImage(r io.Reader, name, ext string) (string, error)
}

// AvatarDownloader fetches one author's avatar. Failures are handled
// internally and never reported to the caller.
type AvatarDownloader interface {
	DownloadAvatar(ctx context.Context, author zhihu.Author)
}

// Reporter receives progress events, e.g. for terminal output
type Reporter interface {
	PageDone(offset int, err error)
	AvatarDone(name string, err error)
}

// PagePlanner is implemented by reporters that want the page count once
// the first page has been read
type PagePlanner interface {
	PagesPlanned(pages int)
}

type nopReporter struct{}

func (nopReporter) PageDone(int, error)       {}
func (nopReporter) AvatarDone(string, error) {}
