package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// Progress renders crawl events as single updating status lines. It
// satisfies the crawler's progress reporter and is safe for the fetch
// workers to call concurrently.
type Progress struct {
	mu sync.Mutex

	pagesPlanned  int
	pagesDone     int
	pagesFailed   int
	avatarsSaved  int
	avatarsFailed int

	startTime time.Time
}

// ProgressStats is a point-in-time copy of the counters
type ProgressStats struct {
	PagesPlanned  int
	PagesDone     int
	PagesFailed   int
	AvatarsSaved  int
	AvatarsFailed int
	Elapsed       time.Duration
}

func NewProgress() *Progress {
	return &Progress{startTime: time.Now()}
}

// PagesPlanned records how many pages the listing has
func (p *Progress) PagesPlanned(pages int) {
	p.mu.Lock()
	p.pagesPlanned = pages
	p.mu.Unlock()
}

// PageDone counts one finished page fetch
func (p *Progress) PageDone(offset int, err error) {
	p.mu.Lock()
	p.pagesDone++
	if err != nil {
		p.pagesFailed++
	}
	line := p.pageLine()
	finished := p.pagesPlanned > 0 && p.pagesDone >= p.pagesPlanned
	p.mu.Unlock()

	write(false, "\r%s", line)
	if finished {
		write(false, "\n")
	}
}

// AvatarDone counts one finished avatar download
func (p *Progress) AvatarDone(name string, err error) {
	p.mu.Lock()
	if err != nil {
		p.avatarsFailed++
	} else {
		p.avatarsSaved++
	}
	line := p.avatarLine()
	p.mu.Unlock()

	write(false, "\r%s", line)
}

// Finish ends any status line in progress and prints a summary
func (p *Progress) Finish() {
	s := p.Stats()
	write(false, "\n")
	if s.PagesDone > 0 {
		PrintInfo("Pages", fmt.Sprintf("%d fetched, %d failed", s.PagesDone-s.PagesFailed, s.PagesFailed))
	}
	if s.AvatarsSaved+s.AvatarsFailed > 0 {
		PrintInfo("Avatars", fmt.Sprintf("%d saved, %d failed (%.1f/min)", s.AvatarsSaved, s.AvatarsFailed, p.AvatarRate()))
	}
	PrintInfo("Elapsed", s.Elapsed.Round(time.Millisecond).String())
}

func (p *Progress) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProgressStats{
		PagesPlanned:  p.pagesPlanned,
		PagesDone:     p.pagesDone,
		PagesFailed:   p.pagesFailed,
		AvatarsSaved:  p.avatarsSaved,
		AvatarsFailed: p.avatarsFailed,
		Elapsed:       time.Since(p.startTime),
	}
}

// AvatarRate returns saved avatars per minute since the tracker started
func (p *Progress) AvatarRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := time.Since(p.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(p.avatarsSaved) / elapsed
}

func (p *Progress) pageLine() string {
	label := render(successStyle, "[PAGES]")
	failed := ""
	if p.pagesFailed > 0 {
		failed = " " + render(errorStyle, fmt.Sprintf("failed %d", p.pagesFailed))
	}
	if p.pagesPlanned <= 0 {
		return fmt.Sprintf("%s %d%s", label, p.pagesDone, failed)
	}
	return fmt.Sprintf("%s %s%s", label, render(valueStyle, Bar(p.pagesDone, p.pagesPlanned, barWidth)), failed)
}

func (p *Progress) avatarLine() string {
	line := fmt.Sprintf("%s saved %d", render(successStyle, "[AVATARS]"), p.avatarsSaved)
	if p.avatarsFailed > 0 {
		line += " " + render(errorStyle, fmt.Sprintf("failed %d", p.avatarsFailed))
	}
	return line
}

// Bar renders a fixed-width progress bar followed by done/total
func Bar(done, total, width int) string {
	if total <= 0 || width <= 0 {
		return fmt.Sprintf("[] %d/%d", done, total)
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, total)
}
