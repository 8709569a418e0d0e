package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Zhihu.QuestionToken = "19550225"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Zhihu.PageSize != 5 {
		t.Errorf("Expected default page size to be 5, got %d", config.Zhihu.PageSize)
	}

	if config.Crawl.Workers != 5 {
		t.Errorf("Expected default workers to be 5, got %d", config.Crawl.Workers)
	}

	if config.Crawl.MaxJitter != 2*time.Second {
		t.Errorf("Expected default max jitter to be 2s, got %s", config.Crawl.MaxJitter)
	}

	if config.Output.DataDirectory != "./data" {
		t.Errorf("Expected default data directory to be ./data, got %s", config.Output.DataDirectory)
	}

	if config.Output.ImageDirectory != "./imgs" {
		t.Errorf("Expected default image directory to be ./imgs, got %s", config.Output.ImageDirectory)
	}

	if config.ActiveCookie() != "" {
		t.Errorf("Expected no default cookie, got %q", config.ActiveCookie())
	}
}

func TestActiveCookieAndUserAgent(t *testing.T) {
	config := DefaultConfig()
	config.Zhihu.Cookies = []string{"  ", "_xsrf=abc; d_c0=xyz", "ignored=1"}
	config.Zhihu.UserAgents = []string{"", "TestAgent/1.0"}

	assert.Equal(t, "_xsrf=abc; d_c0=xyz", config.ActiveCookie())
	assert.Equal(t, "TestAgent/1.0", config.ActiveUserAgent())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ZHCRAWLER_COOKIE", "_xsrf=env-token")
	t.Setenv("ZHCRAWLER_USER_AGENT", "EnvAgent/2.0")
	t.Setenv("ZHCRAWLER_QUESTION_TOKEN", "27761934")
	t.Setenv("ZHCRAWLER_WORKERS", "3")
	t.Setenv("ZHCRAWLER_MAX_JITTER", "500ms")
	t.Setenv("ZHCRAWLER_REQUESTS_PER_MINUTE", "30")
	t.Setenv("ZHCRAWLER_DATA_DIR", "/tmp/zh-data")
	t.Setenv("ZHCRAWLER_IMAGE_DIR", "/tmp/zh-imgs")
	t.Setenv("ZHCRAWLER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "_xsrf=env-token", config.ActiveCookie())
	assert.Equal(t, "EnvAgent/2.0", config.ActiveUserAgent())
	assert.Equal(t, "27761934", config.Zhihu.QuestionToken)
	assert.Equal(t, 3, config.Crawl.Workers)
	assert.Equal(t, 500*time.Millisecond, config.Crawl.MaxJitter)
	assert.Equal(t, 30, config.Crawl.RequestsPerMinute)
	assert.Equal(t, "/tmp/zh-data", config.Output.DataDirectory)
	assert.Equal(t, "/tmp/zh-imgs", config.Output.ImageDirectory)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("ZHCRAWLER_WORKERS", "five")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ZHCRAWLER_WORKERS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "missing question token",
			mutate:    func(c *Config) { c.Zhihu.QuestionToken = " " },
			wantError: "question token is required",
		},
		{
			name:      "page size out of range",
			mutate:    func(c *Config) { c.Zhihu.PageSize = 50 },
			wantError: "page size must be between 1 and 20",
		},
		{
			name:      "too many workers",
			mutate:    func(c *Config) { c.Crawl.Workers = 6 },
			wantError: "workers should not exceed 5",
		},
		{
			name:      "zero workers",
			mutate:    func(c *Config) { c.Crawl.Workers = 0 },
			wantError: "workers must be positive",
		},
		{
			name:      "negative jitter",
			mutate:    func(c *Config) { c.Crawl.MaxJitter = -time.Second },
			wantError: "max jitter cannot be negative",
		},
		{
			name:      "missing image directory",
			mutate:    func(c *Config) { c.Output.ImageDirectory = "" },
			wantError: "image directory is required",
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"cookie":     "_xsrf=flag",
		"question":   "flag-question",
		"workers":    2,
		"max-jitter": 100 * time.Millisecond,
		"data-dir":   "/flag/data",
		"image-dir":  "/flag/imgs",
		"log-level":  "error",
		"no-color":   true,
	}

	config.MergeCommandLineFlags(flags)

	assert.Equal(t, "_xsrf=flag", config.ActiveCookie())
	assert.Equal(t, "flag-question", config.Zhihu.QuestionToken)
	assert.Equal(t, 2, config.Crawl.Workers)
	assert.Equal(t, 100*time.Millisecond, config.Crawl.MaxJitter)
	assert.Equal(t, "/flag/data", config.Output.DataDirectory)
	assert.Equal(t, "/flag/imgs", config.Output.ImageDirectory)
	assert.Equal(t, "error", config.Logging.Level)
	assert.True(t, config.Logging.NoColor)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	config := validConfig()
	config.Zhihu.Cookies = []string{"_xsrf=saved"}
	config.Crawl.MaxJitter = 750 * time.Millisecond
	config.Crawl.Workers = 4

	require.NoError(t, config.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.Equal(t, "19550225", loaded.Zhihu.QuestionToken)
	assert.Equal(t, "_xsrf=saved", loaded.ActiveCookie())
	assert.Equal(t, 750*time.Millisecond, loaded.Crawl.MaxJitter)
	assert.Equal(t, 4, loaded.Crawl.Workers)
}

func TestLoadFromFileParsesDurations(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `zhihu:
  question_token: "314159"
  cookies:
    - "_xsrf=yaml; z_c0=abc"
crawl:
  workers: 2
  max_jitter: 1500ms
  request_timeout: 10s
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(configPath))

	assert.Equal(t, "314159", config.Zhihu.QuestionToken)
	assert.Equal(t, "_xsrf=yaml; z_c0=abc", config.ActiveCookie())
	assert.Equal(t, 2, config.Crawl.Workers)
	assert.Equal(t, 1500*time.Millisecond, config.Crawl.MaxJitter)
	assert.Equal(t, 10*time.Second, config.Crawl.RequestTimeout)
	// Untouched sections keep their defaults
	assert.Equal(t, "./data", config.Output.DataDirectory)
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `zhihu:
  question_token: "from-file"
output:
  data_directory: "/file/data"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	t.Setenv("ZHCRAWLER_DATA_DIR", "/env/data")

	config, err := Load(configPath, map[string]interface{}{
		"question": "from-flag",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", config.Zhihu.QuestionToken)
	assert.Equal(t, "/env/data", config.Output.DataDirectory)
}

func TestLoadFailsValidation(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("crawl:\n  workers: 9\n"), 0600))

	_, err := Load(configPath, map[string]interface{}{"question": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestResolveSkipsValidation(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("output:\n  image_directory: \"/tmp/avatars\"\n"), 0600))
	t.Setenv("ZHCRAWLER_QUESTION_TOKEN", "")

	config, err := Resolve(configPath, nil)
	require.NoError(t, err)

	assert.Empty(t, config.Zhihu.QuestionToken)
	assert.Equal(t, "/tmp/avatars", config.Output.ImageDirectory)
	assert.Error(t, config.Validate())
}
