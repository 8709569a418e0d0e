package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParsesCookieHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		token  string
	}{
		{
			name:   "empty header",
			header: "",
			want:   "",
		},
		{
			name:   "simple pairs",
			header: "_xsrf=abc; d_c0=xyz",
			want:   "_xsrf=abc; d_c0=xyz",
			token:  "abc",
		},
		{
			name:   "whitespace and malformed parts",
			header: "  a=1 ;garbage; =nope;b = 2;",
			want:   "a=1; b=2",
		},
		{
			name:   "first occurrence wins",
			header: "a=1; a=2; _xsrf=t1; _xsrf=t2",
			want:   "a=1; _xsrf=t1",
			token:  "t1",
		},
		{
			name:   "value containing equals",
			header: "z_c0=2|1:0|10:abc==",
			want:   "z_c0=2|1:0|10:abc==",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.header, "Agent/1.0")
			assert.Equal(t, tt.want, s.CurrentCookie())
			assert.Equal(t, tt.token, s.Token())
			assert.Equal(t, "Agent/1.0", s.UserAgent())
		})
	}
}

func TestMergeKeepsTokenWhenAbsent(t *testing.T) {
	s := New("_xsrf=original; a=1", "")

	s.MergeResponseCookies([]string{"a=2; Path=/; HttpOnly", "b=3; Domain=.zhihu.com"})

	assert.Equal(t, "original", s.Token())
	assert.Equal(t, "_xsrf=original; a=2; b=3", s.CurrentCookie())
}

func TestMergeKeepsTokenWhenEmpty(t *testing.T) {
	s := New("_xsrf=original", "")

	s.MergeResponseCookies([]string{"_xsrf=; Max-Age=0"})

	assert.Equal(t, "original", s.Token())
}

func TestMergeOverwritesToken(t *testing.T) {
	s := New("_xsrf=original", "")

	s.MergeResponseCookies([]string{"_xsrf=fresh; Path=/"})

	assert.Equal(t, "fresh", s.Token())
	assert.Equal(t, "_xsrf=fresh", s.CurrentCookie())
}

func TestMergeIntoEmptyState(t *testing.T) {
	s := New("", "")

	s.MergeResponseCookies([]string{"_xsrf=first; Path=/", "q_c1=abc"})

	assert.Equal(t, "first", s.Token())
	assert.Equal(t, "_xsrf=first; q_c1=abc", s.CurrentCookie())
	assert.Equal(t, 2, s.Len())
}

func TestMergeNoHeadersIsNoop(t *testing.T) {
	s := New("_xsrf=keep; a=1", "")

	s.MergeResponseCookies(nil)
	s.MergeResponseCookies([]string{})
	s.MergeResponseCookies([]string{"malformed"})

	assert.Equal(t, "_xsrf=keep; a=1", s.CurrentCookie())
}

func TestMergeLastHeaderWinsWithinResponse(t *testing.T) {
	s := New("", "")

	s.MergeResponseCookies([]string{"a=1", "a=2"})

	assert.Equal(t, "a=2", s.CurrentCookie())
}

func TestConcurrentMerges(t *testing.T) {
	s := New("_xsrf=start", "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.MergeResponseCookies([]string{fmt.Sprintf("worker=%d", i)})
			_ = s.CurrentCookie()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "start", s.Token())
	assert.Equal(t, 2, s.Len())
}
