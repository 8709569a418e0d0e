package zhihu

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the public web origin of the API
	BaseURL = "https://www.zhihu.com"

	// AnswersEndpoint is the answer listing path; %s is the question token
	AnswersEndpoint = "/api/v4/questions/%s/answers"

	// DefaultPageSize is the number of answers requested per page
	DefaultPageSize = 5

	// Platform is the fixed platform query parameter
	Platform = "desktop"

	// SortBy is the fixed sort order query parameter
	SortBy = "default"
)

// PageBuilder turns offsets into page requests for one question
type PageBuilder struct {
	BaseURL string
	Token   string
	Size    int
}

// NewPageBuilder creates a builder for the given question token
func NewPageBuilder(baseURL, token string, size int) PageBuilder {
	return PageBuilder{BaseURL: baseURL, Token: token, Size: size}
}

// Build returns the page starting at offset
func (b PageBuilder) Build(offset int) Page {
	size := b.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	base := b.BaseURL
	if base == "" {
		base = BaseURL
	}

	return Page{
		BaseURL:  strings.TrimRight(base, "/"),
		Token:    b.Token,
		Offset:   offset,
		Limit:    size,
		Platform: Platform,
		SortBy:   SortBy,
	}
}

// Offsets returns the offsets of every page after the first for a listing
// of totals items: size, 2*size, ..., (pages-1)*size.
func (b PageBuilder) Offsets(totals int) []int {
	size := b.Size
	if size <= 0 {
		size = DefaultPageSize
	}

	pages := PageCount(totals, size)
	if pages <= 1 {
		return nil
	}

	offsets := make([]int, 0, pages-1)
	for i := 1; i < pages; i++ {
		offsets = append(offsets, i*size)
	}
	return offsets
}

// PageCount returns ceil(totals/size)
func PageCount(totals, size int) int {
	if totals <= 0 || size <= 0 {
		return 0
	}
	return (totals + size - 1) / size
}

// Page describes one request of the answer listing
type Page struct {
	BaseURL  string
	Token    string
	Offset   int
	Limit    int
	Platform string
	SortBy   string
}

// Query renders the query string. Parameter order is fixed, so it is built
// by hand instead of with url.Values.Encode, which sorts keys.
func (p Page) Query() string {
	var b strings.Builder
	b.WriteString("offset=")
	b.WriteString(strconv.Itoa(p.Offset))
	b.WriteString("&limit=")
	b.WriteString(strconv.Itoa(p.Limit))
	b.WriteString("&platform=")
	b.WriteString(url.QueryEscape(p.Platform))
	b.WriteString("&sort_by=")
	b.WriteString(url.QueryEscape(p.SortBy))
	return b.String()
}

// URL returns the absolute request URL
func (p Page) URL() string {
	path := fmt.Sprintf(AnswersEndpoint, url.PathEscape(p.Token))
	return p.BaseURL + path + "?" + p.Query()
}
