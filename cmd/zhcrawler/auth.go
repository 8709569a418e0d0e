package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"zhcrawler/pkg/auth"
	"zhcrawler/pkg/ui"
)

var (
	authCookie    string
	authUserAgent string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored cookie profiles",
	Long: `Manage cookie profiles used by fetch when the configuration carries no cookie.

Profiles are stored in:
  - the system keychain, when available
  - an encrypted file in the user config directory
Profiles can also come from ZHCRAWLER_COOKIE / ZHCRAWLER_USER_AGENT.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [profile]",
	Short: "Store a cookie header and user agent under a profile name",
	Long: `Store a cookie header under a profile name (default "default").

Copy the Cookie request header from any www.zhihu.com request in your
browser's developer tools. Without --cookie you are prompted for it and
the input is hidden.`,
	Example: `  zhcrawler auth set
  zhcrawler auth set work --cookie "_xsrf=...; d_c0=..." --user-agent "Mozilla/5.0 ..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthSet,
}

var authShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show a profile with cookie values masked",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthShow,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	RunE:  runAuthList,
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete [profile]",
	Short: "Remove a stored profile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthDelete,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authDeleteCmd)

	authSetCmd.Flags().StringVar(&authCookie, "cookie", "", "cookie header (prompted for when omitted)")
	authSetCmd.Flags().StringVar(&authUserAgent, "user-agent", "", "user agent to send with this cookie")
}

func profileArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultProfile
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := profileArg(args)
	cookie := strings.TrimSpace(authCookie)
	if cookie == "" {
		fmt.Print("Cookie header (input hidden): ")
		cookie, err = readSecret()
		if err != nil {
			return fmt.Errorf("failed to read cookie: %w", err)
		}
	}
	if cookie == "" {
		return fmt.Errorf("a cookie header is required")
	}
	if !strings.Contains(cookie, "=") {
		return fmt.Errorf("that does not look like a cookie header, expected name=value pairs")
	}

	profile := &auth.Profile{
		Name:      name,
		Cookie:    cookie,
		UserAgent: strings.TrimSpace(authUserAgent),
	}
	if err := manager.Store(profile); err != nil {
		return err
	}

	ui.PrintSuccess("Profile saved: " + name)
	ui.PrintInfo("Cookie", auth.MaskCookie(cookie))
	if !strings.Contains(cookie, "_xsrf=") {
		ui.PrintWarning("The cookie has no _xsrf value", "the API may assign one on the first response")
	}
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profile, err := manager.Retrieve(profileArg(args))
	if err != nil {
		return err
	}
	printProfile(auth.SanitizeProfile(profile))
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profiles, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(profiles) == 0 {
		ui.PrintInfo("No stored profiles", "use 'zhcrawler auth set' to add one")
		return nil
	}

	ui.PrintHighlight("Stored profiles")
	for _, p := range profiles {
		printProfile(auth.SanitizeProfile(p))
	}
	return nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := profileArg(args)
	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess("Profile removed: " + name)
	return nil
}

func printProfile(p *auth.Profile) {
	ui.PrintInfo("Profile", p.Name)
	ui.PrintInfo("  Cookie", p.Cookie)
	if p.UserAgent != "" {
		ui.PrintInfo("  User agent", p.UserAgent)
	}
	if !p.LastModified.IsZero() {
		ui.PrintInfo("  Modified", p.LastModified.Format("2006-01-02 15:04:05"))
	}
}

// readSecret reads one line from stdin without echo when stdin is a terminal
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
