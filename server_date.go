package httpd

import (
	"sync"
	"sync/atomic"
	"time"
)

// httpDate formats the current time as an RFC 1123 GMT timestamp suitable
// for the Date response header, e.g. "Mon, 02 Jan 2006 15:04:05 GMT".
//
// Cached and refreshed once a second by a background goroutine, since
// formatting the current time on every response is wasted work under load.
func httpDate() string {
	return sharedDateCache.get()
}

var sharedDateCache = &dateCache{}

type dateCache struct {
	value   atomic.Value // string
	mu      sync.Mutex
	clients int
	stop    chan struct{}
}

func (d *dateCache) get() string {
	if v, ok := d.value.Load().(string); ok && v != "" {
		return v
	}
	return d.format(time.Now())
}

// rfc1123GMT is time.RFC1123 with the zone abbreviation pinned to the
// literal "GMT" instead of whatever time.Time.UTC() calls its zone, since
// the HTTP Date header requires "GMT" verbatim (RFC 7231 section 7.1.1.1).
const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

func (d *dateCache) format(t time.Time) string {
	return t.UTC().Format(rfc1123GMT)
}

// start begins the refresh goroutine on first use and reference-counts
// further starts, so multiple *Server values in one process share one
// timer.
func (d *dateCache) start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients++
	if d.clients > 1 {
		return
	}
	d.value.Store(d.format(time.Now()))
	d.stop = make(chan struct{})
	stop := d.stop
	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				d.value.Store(d.format(time.Now()))
			case <-stop:
				return
			}
		}
	}()
}

// stopClient decrements the reference count, stopping the refresh
// goroutine once the last Server using it shuts down.
func (d *dateCache) stopClient() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients--
	if d.clients <= 0 && d.stop != nil {
		close(d.stop)
		d.stop = nil
		d.clients = 0
	}
}
