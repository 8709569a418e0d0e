// Package ui prints styled terminal output for the CLI and renders crawl
// progress as updating status lines.
package ui
