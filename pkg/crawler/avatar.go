package crawler

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"zhcrawler/pkg/logger"
	"zhcrawler/pkg/storage"
	"zhcrawler/pkg/zhihu"
)

// ImageSource opens remote images
type ImageSource interface {
	OpenImage(ctx context.Context, imageURL string) (io.ReadCloser, error)
}

// ImageStore persists image bodies
type ImageStore interface {
	SaveImage(r io.Reader, name, ext string) (string, error)
}

// Avatars downloads author avatars into the image directory
type Avatars struct {
	source    ImageSource
	store     ImageStore
	anonymous string
	reporter  Reporter
	logger    logger.Logger
}

// NewAvatars creates an avatar downloader. anonymous names authors that
// have no usable display name.
func NewAvatars(source ImageSource, store ImageStore, anonymous string, log logger.Logger) *Avatars {
	if anonymous == "" {
		anonymous = "anonymous"
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Avatars{
		source:    source,
		store:     store,
		anonymous: anonymous,
		reporter:  nopReporter{},
		logger:    log,
	}
}

// DownloadAvatar saves author's avatar as <name><8-digit fragment><ext>.
// An author without an avatar URL is logged and skipped. Transfer and write
// errors are logged; a failed transfer leaves no file.
func (a *Avatars) DownloadAvatar(ctx context.Context, author zhihu.Author) {
	if author.AvatarURL == "" {
		a.logger.ErrorWithFields("Author has no avatar URL", map[string]interface{}{
			"author": author.Name,
		})
		return
	}

	name := storage.SanitizeName(author.Name, a.anonymous)
	ext := urlExt(author.AvatarURL)

	body, err := a.source.OpenImage(ctx, author.AvatarURL)
	if err != nil {
		a.reporter.AvatarDone(name, err)
		logger.LogAvatar(a.logger, name, "", err)
		return
	}
	defer body.Close()

	file, err := a.store.SaveImage(body, name, ext)
	a.reporter.AvatarDone(name, err)
	logger.LogAvatar(a.logger, name, file, err)
}

// urlExt returns the extension of the URL's path, ignoring query and fragment
func urlExt(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return path.Ext(u.Path)
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return path.Ext(raw)
}
