package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"zhcrawler/pkg/auth"
	"zhcrawler/pkg/config"
	"zhcrawler/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage zhcrawler configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (ZHCRAWLER_*)
  - .env files
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to 'zhcrawler.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the merged configuration with cookies masked",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the merged configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# zhcrawler configuration file
#
# Every option can also be set with an environment variable prefixed with
# ZHCRAWLER_, e.g. ZHCRAWLER_QUESTION_TOKEN or ZHCRAWLER_COOKIE.

zhihu:
  # Question whose answers are crawled: https://www.zhihu.com/question/<token>
  question_token: ""

  # Cookie headers; the first non-empty entry seeds the session.
  # Leave empty to use a stored profile ('zhcrawler auth set').
  cookies: []

  # User agents; the first non-empty entry is sent with every request
  user_agents:
    - "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

  base_url: "https://www.zhihu.com"

  # Answers per page, 1-20
  page_size: 5

crawl:
  # Concurrent page fetches, 1-5
  workers: 5

  # Each page waits a random delay in [0, max_jitter) before its request
  max_jitter: 2s

  request_timeout: 30s

  # Optional cap on page requests per minute; 0 disables it
  requests_per_minute: 0

output:
  data_directory: "./data"
  image_directory: "./imgs"

  # File name prefix for authors without a display name
  anonymous_name: "anonymous"

logging:
  # debug, info, warn, error
  level: "info"

  # Optional JSON log file, appended to
  file: ""

  no_color: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "zhcrawler.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	ui.PrintDim("Next: set zhihu.question_token, then run 'zhcrawler config validate --config " + configPath + "'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}

	display := *cfg
	display.Zhihu.Cookies = make([]string, len(cfg.Zhihu.Cookies))
	for i, c := range cfg.Zhihu.Cookies {
		display.Zhihu.Cookies[i] = auth.MaskCookie(c)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration")
	ui.PrintRaw(string(data))
	if configFile != "" {
		ui.PrintInfo("Configuration file", configFile)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration has errors")
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				ui.PrintError("  - " + e.Error())
			}
		} else {
			ui.PrintError("  - " + err.Error())
		}
		return errors.New("invalid configuration")
	}

	if cfg.ActiveCookie() == "" {
		ui.PrintWarning("No cookie configured", "a stored profile or an anonymous session will be used")
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Question", cfg.Zhihu.QuestionToken)
	ui.PrintInfo("Workers", fmt.Sprintf("%d", cfg.Crawl.Workers))
	ui.PrintInfo("Max jitter", cfg.Crawl.MaxJitter.String())
	ui.PrintInfo("Data directory", cfg.Output.DataDirectory)
	ui.PrintInfo("Image directory", cfg.Output.ImageDirectory)
	ui.PrintInfo("Log level", strings.ToLower(cfg.Logging.Level))
	return nil
}
