package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"zhcrawler/pkg/auth"
	"zhcrawler/pkg/config"
	"zhcrawler/pkg/crawler"
	"zhcrawler/pkg/logger"
	"zhcrawler/pkg/session"
	"zhcrawler/pkg/storage"
	"zhcrawler/pkg/ui"
	"zhcrawler/pkg/zhihu"
)

// Crawl flags, shared by fetch, load and run
var (
	questionToken     string
	cookieHeader      string
	userAgent         string
	profileName       string
	baseURL           string
	dataDir           string
	imageDir          string
	workers           int
	maxJitter         time.Duration
	requestsPerMinute int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every page of a question's answer listing",
	Long: `Fetch page 0 of the answer listing, derive the page count from its
paging totals and fetch the remaining pages with up to five workers.
Every page is saved as a JSON snapshot in the data directory.

Only a failure of the first page stops the run; other failed pages are
logged and skipped.`,
	Example: `  # Fetch all answers of a question
  zhcrawler fetch --question 19550225

  # Use a stored cookie profile and a slower pace
  zhcrawler fetch --question 19550225 --profile work --max-jitter 5s`,
	RunE: runFetch,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Download author avatars for every saved snapshot",
	Long: `Walk the snapshot files in the data directory in name order and download
the avatar of each answer's author, one at a time, into the image
directory. Unreadable snapshots and failed downloads are logged and skipped.`,
	Example: `  zhcrawler load --data-dir ./data --image-dir ./imgs`,
	RunE:    runLoad,
}

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Fetch the listing, then download avatars",
	Example: `  zhcrawler run --question 19550225`,
	RunE:    runAll,
}

func init() {
	for _, cmd := range []*cobra.Command{fetchCmd, loadCmd, runCmd} {
		rootCmd.AddCommand(cmd)
		addOutputFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{fetchCmd, runCmd} {
		addFetchFlags(cmd)
	}
	loadCmd.Flags().StringVar(&userAgent, "user-agent", "", "user agent sent with avatar requests")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "snapshot directory (default ./data)")
	cmd.Flags().StringVar(&imageDir, "image-dir", "", "avatar directory (default ./imgs)")
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&questionToken, "question", "", "question token, the number in /question/<token>")
	cmd.Flags().StringVar(&cookieHeader, "cookie", "", "cookie header to seed the session")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "user agent sent with every request")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "use a stored cookie profile (see 'zhcrawler auth')")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL")
	cmd.Flags().IntVar(&workers, "workers", 5, "concurrent page fetches (1-5)")
	cmd.Flags().DurationVar(&maxJitter, "max-jitter", 2*time.Second, "upper bound of the random wait before each page")
	cmd.Flags().IntVar(&requestsPerMinute, "requests-per-minute", 0, "cap on page requests per minute (0 disables)")
}

// crawlFlags collects the flags the user set on cmd
func crawlFlags(cmd *cobra.Command) map[string]interface{} {
	flags := globalFlags(cmd)
	set := func(name string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = value
		}
	}

	set("question", questionToken)
	set("cookie", cookieHeader)
	set("user-agent", userAgent)
	set("base-url", baseURL)
	set("data-dir", dataDir)
	set("image-dir", imageDir)
	set("workers", workers)
	set("max-jitter", maxJitter)
	set("requests-per-minute", requestsPerMinute)
	return flags
}

// crawlRun is everything a command needs to drive the crawler
type crawlRun struct {
	cfg      *config.Config
	log      logger.Logger
	crawler  *crawler.Crawler
	progress *ui.Progress
}

// newCrawlRun loads configuration, tags the logger with a run id and wires
// the crawler. Fetching commands need a question and may pull a cookie
// from the credential store.
func newCrawlRun(cmd *cobra.Command, fetching bool) (*crawlRun, error) {
	flags := crawlFlags(cmd)

	var cfg *config.Config
	var err error
	if fetching {
		cfg, err = config.Load(configFile, flags)
	} else {
		cfg, err = config.Resolve(configFile, flags)
	}
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"run_id":  uuid.NewString(),
		"command": cmd.Name(),
	})
	logger.SetLogger(log)

	if fetching {
		if err := applyProfile(cfg, log); err != nil {
			return nil, err
		}
	}

	store, err := storage.NewManager(cfg.Output.DataDirectory, cfg.Output.ImageDirectory)
	if err != nil {
		return nil, err
	}

	state := session.New(cfg.ActiveCookie(), cfg.ActiveUserAgent())
	client := zhihu.NewClient(state, cfg.Crawl.RequestTimeout, log)

	progress := ui.NewProgress()
	c := crawler.New(cfg, client, store, log)
	c.SetReporter(progress)

	return &crawlRun{cfg: cfg, log: log, crawler: c, progress: progress}, nil
}

// applyProfile fills the cookie and user agent from the credential store
// when --profile is given or the configuration carries no cookie.
func applyProfile(cfg *config.Config, log logger.Logger) error {
	if profileName == "" && cfg.ActiveCookie() != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		if profileName != "" {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
		log.WithError(err).Warn("Credential store unavailable")
		return nil
	}

	var profile *auth.Profile
	if profileName != "" {
		profile, err = manager.Retrieve(profileName)
		if err != nil {
			return fmt.Errorf("profile %q: %w", profileName, err)
		}
	} else {
		profile, err = manager.RetrieveDefault()
		if err != nil {
			log.Debug("No stored profile, requesting without a cookie")
			return nil
		}
	}

	if profile.Cookie != "" {
		cfg.Zhihu.Cookies = []string{profile.Cookie}
	}
	// --user-agent still wins over the profile
	if profile.UserAgent != "" && userAgent == "" {
		cfg.Zhihu.UserAgents = []string{profile.UserAgent}
	}
	log.WithField("profile", profile.Name).Info("Using stored profile")
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	run, err := newCrawlRun(cmd, true)
	if err != nil {
		return err
	}
	return run.fetch(cmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	run, err := newCrawlRun(cmd, false)
	if err != nil {
		return err
	}
	run.load(cmd)
	return nil
}

func runAll(cmd *cobra.Command, args []string) error {
	run, err := newCrawlRun(cmd, true)
	if err != nil {
		return err
	}
	if err := run.fetch(cmd); err != nil {
		return err
	}
	run.load(cmd)
	return nil
}

func (r *crawlRun) fetch(cmd *cobra.Command) error {
	ui.PrintBanner()
	ui.PrintInfo("Question", r.cfg.Zhihu.QuestionToken)
	ui.PrintInfo("Snapshots", r.cfg.Output.DataDirectory)

	stats, err := r.crawler.Fetch(cmd.Context())
	r.progress.Finish()
	if err != nil {
		r.log.WithError(err).Error("Fetch failed")
		return err
	}

	if stats.Failed > 0 {
		ui.PrintWarning(fmt.Sprintf("Saved %d of %d pages", stats.Saved, stats.Pages), fmt.Sprintf("%d failed, see log", stats.Failed))
		return nil
	}
	ui.PrintSuccess(fmt.Sprintf("Saved %d of %d pages (%d answers)", stats.Saved, stats.Pages, stats.Totals))
	return nil
}

func (r *crawlRun) load(cmd *cobra.Command) {
	ui.PrintInfo("Avatars", r.cfg.Output.ImageDirectory)

	r.progress = ui.NewProgress()
	r.crawler.SetReporter(r.progress)

	stats := r.crawler.StartLoad(cmd.Context())
	r.progress.Finish()

	ui.PrintSuccess(fmt.Sprintf("Processed %d snapshots (%d skipped), %d avatars attempted",
		stats.Files, stats.Skipped, stats.Attempted))
}
