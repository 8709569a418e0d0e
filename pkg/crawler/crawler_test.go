package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zhcrawler/pkg/config"
	"zhcrawler/pkg/errors"
	"zhcrawler/pkg/logger"
	"zhcrawler/pkg/session"
	"zhcrawler/pkg/storage"
	"zhcrawler/pkg/throttle"
	"zhcrawler/pkg/zhihu"
)

const testQuestion = "q1"

// mockAPI mimics the answer listing and the avatar CDN
type mockAPI struct {
	server *httptest.Server

	mu          sync.Mutex
	totals      *int
	failOffsets map[int]int
	rotateToken string
	offsets     []int
	cookies     map[int]string
	avatarHits  []string
}

func newMockAPI(t *testing.T, totals int) *mockAPI {
	t.Helper()
	m := &mockAPI{
		totals:      &totals,
		failOffsets: map[int]int{},
		cookies:     map[int]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/questions/"+testQuestion+"/answers", m.handleAnswers)
	mux.HandleFunc("/avatars/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.avatarHits = append(m.avatarHits, r.URL.Path)
		m.mu.Unlock()
		if r.URL.Path == "/avatars/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("avatar:" + r.URL.Path))
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockAPI) handleAnswers(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	m.mu.Lock()
	m.offsets = append(m.offsets, offset)
	m.cookies[offset] = r.Header.Get("Cookie")
	status, fail := m.failOffsets[offset]
	totals := m.totals
	rotate := m.rotateToken
	m.mu.Unlock()

	if fail {
		w.WriteHeader(status)
		return
	}
	if offset == 0 && rotate != "" {
		w.Header().Add("Set-Cookie", "_xsrf="+rotate+"; Path=/")
	}

	count := 0
	if totals != nil {
		count = *totals - offset
	}
	if count > limit {
		count = limit
	}
	if count < 0 {
		count = 0
	}

	data := make([]map[string]interface{}, 0, count)
	for i := 0; i < count; i++ {
		user := fmt.Sprintf("user%02d", offset+i)
		data = append(data, map[string]interface{}{
			"id":      offset + i,
			"content": "<p>answer</p>",
			"author": map[string]interface{}{
				"name":       user,
				"avatar_url": fmt.Sprintf("%s/avatars/%s.jpg?source=test", m.server.URL, user),
			},
		})
	}

	paging := map[string]interface{}{"is_end": false}
	if totals != nil {
		paging["totals"] = *totals
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data, "paging": paging})
}

func (m *mockAPI) requestedOffsets() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]int(nil), m.offsets...)
	sort.Ints(out)
	return out
}

// testCrawler wires a crawler against the mock API with a temp output tree
func testCrawler(t *testing.T, api *mockAPI, log logger.Logger) (*Crawler, *storage.Manager, *session.State) {
	t.Helper()
	root := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Zhihu.QuestionToken = testQuestion
	cfg.Zhihu.BaseURL = api.server.URL
	cfg.Output.DataDirectory = filepath.Join(root, "data")
	cfg.Output.ImageDirectory = filepath.Join(root, "imgs")
	require.NoError(t, cfg.Validate())

	store, err := storage.NewManager(cfg.Output.DataDirectory, cfg.Output.ImageDirectory)
	require.NoError(t, err)

	state := session.New("_xsrf=seed; d_c0=device", "TestAgent/1.0")
	client := zhihu.NewClient(state, 5*time.Second, logger.NewNopLogger())

	c := New(cfg, client, store, log)
	c.SetThrottle(throttle.Nop{})
	return c, store, state
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestStartFetchRequestsEveryPage(t *testing.T) {
	tests := []struct {
		totals  int
		offsets []int
	}{
		{totals: 1, offsets: []int{0}},
		{totals: 5, offsets: []int{0}},
		{totals: 6, offsets: []int{0, 5}},
		{totals: 12, offsets: []int{0, 5, 10}},
		{totals: 23, offsets: []int{0, 5, 10, 15, 20}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("totals=%d", tt.totals), func(t *testing.T) {
			api := newMockAPI(t, tt.totals)
			c, store, _ := testCrawler(t, api, logger.NewNopLogger())

			stats, err := c.Fetch(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.offsets, api.requestedOffsets())
			assert.Equal(t, len(tt.offsets), stats.Pages)
			assert.Equal(t, len(tt.offsets), stats.Saved)
			assert.Equal(t, 0, stats.Failed)
			assert.Equal(t, len(tt.offsets), countFiles(t, store.DataDir()))
		})
	}
}

func TestStartFetchFirstPageFailureIsFatal(t *testing.T) {
	api := newMockAPI(t, 20)
	api.failOffsets[0] = http.StatusInternalServerError
	c, store, _ := testCrawler(t, api, logger.NewNopLogger())

	err := c.StartFetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeServerError))
	assert.Equal(t, []int{0}, api.requestedOffsets())
	assert.Equal(t, 0, countFiles(t, store.DataDir()))
}

func TestStartFetchMissingTotalsIsFatal(t *testing.T) {
	api := newMockAPI(t, 0)
	api.totals = nil
	c, _, _ := testCrawler(t, api, logger.NewNopLogger())

	err := c.StartFetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidResponse))
	assert.Equal(t, []int{0}, api.requestedOffsets())
}

func TestStartFetchZeroTotalsIsFatal(t *testing.T) {
	api := newMockAPI(t, 0)
	c, _, _ := testCrawler(t, api, logger.NewNopLogger())

	err := c.StartFetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidResponse))
	assert.Len(t, api.requestedOffsets(), 1)
}

func TestStartFetchLaterFailureIsSkipped(t *testing.T) {
	api := newMockAPI(t, 20)
	api.failOffsets[10] = http.StatusTooManyRequests
	tl := logger.NewTestLogger()
	c, store, _ := testCrawler(t, api, tl)

	stats, err := c.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 10, 15}, api.requestedOffsets())
	assert.Equal(t, 3, stats.Saved)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, countFiles(t, store.DataDir()))
	assert.True(t, tl.HasMessage("ERROR", "Page failed"))
}

func TestStartFetchSnapshotContents(t *testing.T) {
	api := newMockAPI(t, 7)
	c, store, _ := testCrawler(t, api, logger.NewNopLogger())

	require.NoError(t, c.StartFetch(context.Background()))

	paths, err := store.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, paths, 2)

	var names []string
	for _, p := range paths {
		data, err := store.ReadSnapshot(p)
		require.NoError(t, err)
		answers, err := zhihu.DecodeAnswers(data)
		require.NoError(t, err)
		for _, a := range answers {
			names = append(names, a.Author.Name)
		}

		// Records keep fields the crawler never reads
		var raw []map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, "<p>answer</p>", raw[0]["content"])
	}

	sort.Strings(names)
	assert.Equal(t, []string{"user00", "user01", "user02", "user03", "user04", "user05", "user06"}, names)
}

func TestStartFetchPropagatesRotatedToken(t *testing.T) {
	api := newMockAPI(t, 15)
	api.rotateToken = "rotated"
	c, _, state := testCrawler(t, api, logger.NewNopLogger())

	require.NoError(t, c.StartFetch(context.Background()))

	assert.Equal(t, "rotated", state.Token())
	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "_xsrf=seed; d_c0=device", api.cookies[0])
	assert.Equal(t, "_xsrf=rotated; d_c0=device", api.cookies[5])
	assert.Equal(t, "_xsrf=rotated; d_c0=device", api.cookies[10])
}

type recordingReporter struct {
	mu      sync.Mutex
	pages   []int
	failed  []int
	avatars []string
}

func (r *recordingReporter) PageDone(offset int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, offset)
	if err != nil {
		r.failed = append(r.failed, offset)
	}
}

func (r *recordingReporter) AvatarDone(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.avatars = append(r.avatars, name)
}

func TestStartFetchReportsProgress(t *testing.T) {
	api := newMockAPI(t, 15)
	api.failOffsets[5] = http.StatusBadGateway
	c, _, _ := testCrawler(t, api, logger.NewNopLogger())
	reporter := &recordingReporter{}
	c.SetReporter(reporter)

	require.NoError(t, c.StartFetch(context.Background()))

	sort.Ints(reporter.pages)
	assert.Equal(t, []int{0, 5, 10}, reporter.pages)
	assert.Equal(t, []int{5}, reporter.failed)
}

func TestStartFetchCancelledAfterFirstPage(t *testing.T) {
	api := newMockAPI(t, 50)
	c, _, _ := testCrawler(t, api, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	c.SetThrottle(cancelOnWait{cancel: cancel})

	stats, err := c.Fetch(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Saved)
	assert.Equal(t, 9, stats.Failed)
	assert.Equal(t, []int{0}, api.requestedOffsets())
}

// cancelOnWait cancels the crawl the first time a worker waits
type cancelOnWait struct {
	cancel context.CancelFunc
}

func (c cancelOnWait) Wait(ctx context.Context) error {
	c.cancel()
	<-ctx.Done()
	return ctx.Err()
}
