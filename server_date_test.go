package httpd

import (
	"strings"
	"testing"
	"time"
)

func TestDateCacheFormatUsesLiteralGMT(t *testing.T) {
	d := &dateCache{}
	got := d.format(time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC))
	want := "Mon, 02 Jan 2006 15:04:05 GMT"
	if got != want {
		t.Fatalf("format() = %q, want %q", got, want)
	}
	if !strings.HasSuffix(got, "GMT") {
		t.Fatalf("format() = %q, want suffix GMT", got)
	}
}

func TestDateCacheGetDoesNotStartRefreshGoroutine(t *testing.T) {
	d := &dateCache{}
	_ = d.get()
	d.mu.Lock()
	clients := d.clients
	d.mu.Unlock()
	if clients != 0 {
		t.Fatalf("get() incremented clients to %d; it must not ref-count", clients)
	}
}
