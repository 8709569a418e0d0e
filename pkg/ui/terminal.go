package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Banner printed at the start of a run
const Banner = `
   _     _                         _
  ___| |__ ___ _ __ __ ___      _| | ___ _ __
 |_  / '_ \/ __| '__/ _' \ \ /\ / / |/ _ \ '__|
  / /| | | | (__| | | (_| |\ V  V /| |  __/ |
 /___|_| |_|\___|_|  \__,_| \_/\_/ |_|\___|_|
`

var (
	accent  = lipgloss.Color("#0084FF")
	good    = lipgloss.Color("#2ECC71")
	bad     = lipgloss.Color("#E74C3C")
	caution = lipgloss.Color("#F39C12")
	muted   = lipgloss.Color("#8A8A8A")

	bannerStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(accent).Bold(true)
	valueStyle     = lipgloss.NewStyle().Foreground(caution)
	successStyle   = lipgloss.NewStyle().Foreground(good).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(bad).Bold(true)
	warningStyle   = lipgloss.NewStyle().Foreground(caution)
	highlightStyle = lipgloss.NewStyle().Foreground(accent)
	dimStyle       = lipgloss.NewStyle().Foreground(muted)
)

// terminal holds output settings shared by the Print helpers
var terminal = struct {
	mu      sync.Mutex
	out     io.Writer
	quiet   bool
	noColor bool
}{out: os.Stdout}

// Configure sets where output goes, whether informational output is
// suppressed and whether styles are applied. Errors print even when quiet.
func Configure(w io.Writer, quiet, noColor bool) {
	terminal.mu.Lock()
	defer terminal.mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	terminal.out = w
	terminal.quiet = quiet
	terminal.noColor = noColor
}

// Quiet reports whether informational output is suppressed
func Quiet() bool {
	terminal.mu.Lock()
	defer terminal.mu.Unlock()
	return terminal.quiet
}

func render(style lipgloss.Style, text string) string {
	if terminal.noColor {
		return text
	}
	return style.Render(text)
}

func write(always bool, format string, args ...interface{}) {
	terminal.mu.Lock()
	defer terminal.mu.Unlock()
	if terminal.quiet && !always {
		return
	}
	fmt.Fprintf(terminal.out, format, args...)
}

func withDetail(msg string, args []interface{}) string {
	if len(args) > 0 {
		return msg + ": " + fmt.Sprintf("%v", args[0])
	}
	return msg
}

// PrintBanner prints the application banner
func PrintBanner() {
	write(false, "%s\n", render(bannerStyle, Banner))
}

// PrintError prints an error message, with an optional detail value
func PrintError(msg string, args ...interface{}) {
	write(true, "%s\n", render(errorStyle, withDetail(msg, args)))
}

// PrintWarning prints a warning message, with an optional detail value
func PrintWarning(msg string, args ...interface{}) {
	write(false, "%s\n", render(warningStyle, withDetail(msg, args)))
}

func PrintSuccess(msg string) {
	write(false, "%s\n", render(successStyle, msg))
}

// PrintInfo prints a label and its value
func PrintInfo(label, value string) {
	write(false, "%s: %s\n", render(labelStyle, label), render(valueStyle, value))
}

func PrintHighlight(msg string) {
	write(false, "%s\n", render(highlightStyle, msg))
}

func PrintDim(msg string) {
	write(false, "%s\n", render(dimStyle, msg))
}

// PrintRaw prints text unstyled, e.g. YAML documents
func PrintRaw(text string) {
	write(false, "%s", text)
}
