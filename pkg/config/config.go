package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "ZHCRAWLER_"

// Config holds all configuration options for the crawler
type Config struct {
	// Remote API and session inputs
	Zhihu ZhihuConfig `yaml:"zhihu" json:"zhihu"`

	// Pagination behaviour
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Where snapshots and images are written
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ZhihuConfig holds the remote API inputs
type ZhihuConfig struct {
	Cookies       []string `yaml:"cookies" json:"cookies"`
	UserAgents    []string `yaml:"user_agents" json:"user_agents"`
	QuestionToken string   `yaml:"question_token" json:"question_token"`
	BaseURL       string   `yaml:"base_url" json:"base_url"`
	PageSize      int      `yaml:"page_size" json:"page_size"`
}

// CrawlConfig holds pagination fetch settings
type CrawlConfig struct {
	Workers           int           `yaml:"workers" json:"workers"`
	MaxJitter         time.Duration `yaml:"max_jitter" json:"max_jitter"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	DataDirectory  string `yaml:"data_directory" json:"data_directory"`
	ImageDirectory string `yaml:"image_directory" json:"image_directory"`
	AnonymousName  string `yaml:"anonymous_name" json:"anonymous_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Zhihu: ZhihuConfig{
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			},
			BaseURL:  "https://www.zhihu.com",
			PageSize: 5,
		},
		Crawl: CrawlConfig{
			Workers:           5,
			MaxJitter:         2 * time.Second,
			RequestTimeout:    30 * time.Second,
			RequestsPerMinute: 0,
		},
		Output: OutputConfig{
			DataDirectory:  "./data",
			ImageDirectory: "./imgs",
			AnonymousName:  "anonymous",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ActiveCookie returns the cookie header used to seed the session
func (c *Config) ActiveCookie() string {
	return firstNonEmpty(c.Zhihu.Cookies)
}

// ActiveUserAgent returns the user agent sent with every request
func (c *Config) ActiveUserAgent() string {
	return firstNonEmpty(c.Zhihu.UserAgents)
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if cookie := os.Getenv(envPrefix + "COOKIE"); cookie != "" {
		c.Zhihu.Cookies = []string{cookie}
	}
	if userAgent := os.Getenv(envPrefix + "USER_AGENT"); userAgent != "" {
		c.Zhihu.UserAgents = []string{userAgent}
	}
	if token := os.Getenv(envPrefix + "QUESTION_TOKEN"); token != "" {
		c.Zhihu.QuestionToken = token
	}
	if baseURL := os.Getenv(envPrefix + "BASE_URL"); baseURL != "" {
		c.Zhihu.BaseURL = baseURL
	}

	if workers := os.Getenv(envPrefix + "WORKERS"); workers != "" {
		val, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS: %w", envPrefix, err)
		}
		c.Crawl.Workers = val
	}
	if jitter := os.Getenv(envPrefix + "MAX_JITTER"); jitter != "" {
		val, err := time.ParseDuration(jitter)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_JITTER: %w", envPrefix, err)
		}
		c.Crawl.MaxJitter = val
	}
	if rpm := os.Getenv(envPrefix + "REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("invalid %sREQUESTS_PER_MINUTE: %w", envPrefix, err)
		}
		c.Crawl.RequestsPerMinute = val
	}

	if dataDir := os.Getenv(envPrefix + "DATA_DIR"); dataDir != "" {
		c.Output.DataDirectory = dataDir
	}
	if imageDir := os.Getenv(envPrefix + "IMAGE_DIR"); imageDir != "" {
		c.Output.ImageDirectory = imageDir
	}

	if logLevel := os.Getenv(envPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(envPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// An empty path means "search the default locations"
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".zhcrawler.yaml",
		".zhcrawler.yml",
		filepath.Join(home, ".config", "zhcrawler", "config.yaml"),
		filepath.Join(home, ".config", "zhcrawler", "config.yml"),
		filepath.Join(home, ".zhcrawler.yaml"),
		filepath.Join(home, ".zhcrawler.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Zhihu.QuestionToken) == "" {
		errs = append(errs, errors.New("question token is required"))
	}
	if c.Zhihu.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Zhihu.PageSize <= 0 || c.Zhihu.PageSize > 20 {
		errs = append(errs, errors.New("page size must be between 1 and 20"))
	}

	if c.Crawl.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Crawl.Workers > 5 {
		errs = append(errs, errors.New("workers should not exceed 5"))
	}
	if c.Crawl.MaxJitter < 0 {
		errs = append(errs, errors.New("max jitter cannot be negative"))
	}
	if c.Crawl.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Crawl.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Output.DataDirectory == "" {
		errs = append(errs, errors.New("data directory is required"))
	}
	if c.Output.ImageDirectory == "" {
		errs = append(errs, errors.New("image directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to path as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Cookies live in here, keep it private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cookie, ok := flags["cookie"].(string); ok && cookie != "" {
		c.Zhihu.Cookies = []string{cookie}
	}
	if userAgent, ok := flags["user-agent"].(string); ok && userAgent != "" {
		c.Zhihu.UserAgents = []string{userAgent}
	}
	if token, ok := flags["question"].(string); ok && token != "" {
		c.Zhihu.QuestionToken = token
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Zhihu.BaseURL = baseURL
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Crawl.Workers = workers
	}
	if jitter, ok := flags["max-jitter"].(time.Duration); ok && jitter >= 0 {
		c.Crawl.MaxJitter = jitter
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm >= 0 {
		c.Crawl.RequestsPerMinute = rpm
	}
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Output.DataDirectory = dataDir
	}
	if imageDir, ok := flags["image-dir"].(string); ok && imageDir != "" {
		c.Output.ImageDirectory = imageDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noColor, ok := flags["no-color"].(bool); ok {
		c.Logging.NoColor = noColor
	}
}

// Load loads configuration from all sources with proper precedence and
// validates the result.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	config, err := Resolve(configPath, flags)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Resolve is Load without validation, for commands that need only part
// of the configuration
func Resolve(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".zhcrawler.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	return config, nil
}
