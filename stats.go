package httpd

import "sync/atomic"

// Stats holds a single Server's running counters. A Server owns its own
// Stats value explicitly rather than through hidden global state, which
// keeps counters safe across multiple *Server instances in one process.
type Stats struct {
	Requests          int64
	Connections       int64
	ConnectionsClosed int64
	BytesRead         int64
	BytesWritten      int64
	Errors            int64
	Timeouts          int64
}

func (s *Stats) requestStarted()   { atomic.AddInt64(&s.Requests, 1) }
func (s *Stats) connectionOpened() { atomic.AddInt64(&s.Connections, 1) }
func (s *Stats) connectionClosed() { atomic.AddInt64(&s.ConnectionsClosed, 1) }
func (s *Stats) addBytesRead(n int64)    { atomic.AddInt64(&s.BytesRead, n) }
func (s *Stats) addBytesWritten(n int64) { atomic.AddInt64(&s.BytesWritten, n) }
func (s *Stats) errorOccurred()   { atomic.AddInt64(&s.Errors, 1) }
func (s *Stats) timeoutOccurred() { atomic.AddInt64(&s.Timeouts, 1) }

// Snapshot returns a copy of the current counter values.
func (s *Stats) Snapshot() Stats {
	return Stats{
		Requests:          atomic.LoadInt64(&s.Requests),
		Connections:       atomic.LoadInt64(&s.Connections),
		ConnectionsClosed: atomic.LoadInt64(&s.ConnectionsClosed),
		BytesRead:         atomic.LoadInt64(&s.BytesRead),
		BytesWritten:      atomic.LoadInt64(&s.BytesWritten),
		Errors:            atomic.LoadInt64(&s.Errors),
		Timeouts:          atomic.LoadInt64(&s.Timeouts),
	}
}

// Clear resets every counter to zero.
func (s *Stats) Clear() {
	atomic.StoreInt64(&s.Requests, 0)
	atomic.StoreInt64(&s.Connections, 0)
	atomic.StoreInt64(&s.ConnectionsClosed, 0)
	atomic.StoreInt64(&s.BytesRead, 0)
	atomic.StoreInt64(&s.BytesWritten, 0)
	atomic.StoreInt64(&s.Errors, 0)
	atomic.StoreInt64(&s.Timeouts, 0)
}
