package httpd

import (
	"net"
	"sync"
	"time"
)

// shutdownController coordinates a graceful Server.Stop: it closes the
// listener, nudges a goroutine that might be parked in Accept, and hands
// the worker pool a grace period to drain in-flight connections.
type shutdownController struct {
	mu           sync.Mutex
	ln           net.Listener
	addr         string
	network      string
	shuttingDown bool
	interruptErr error
}

func newShutdownController(ln net.Listener) *shutdownController {
	return &shutdownController{
		ln:      ln,
		addr:    ln.Addr().String(),
		network: ln.Addr().Network(),
	}
}

func (s *shutdownController) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// stop closes the listener and, for TCP listeners, self-connects once to
// unblock a goroutine that might still be parked in Accept — closing the
// listening socket alone does not reliably wake a blocked accept() on
// every platform. It then asks pool to drain within grace.
func (s *shutdownController) stop(pool *workerPool, grace time.Duration) error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.shuttingDown = true
	s.mu.Unlock()

	if s.network == "tcp" || s.network == "tcp4" || s.network == "tcp6" {
		if c, err := net.DialTimeout(s.network, s.addr, time.Second); err == nil {
			c.Close()
		}
	}

	err := s.ln.Close()
	if pool != nil {
		pool.Stop(grace)
	}
	return err
}

// interrupt records a fatal accept-loop error and triggers an immediate
// (no-grace) shutdown.
func (s *shutdownController) interrupt(err error, pool *workerPool) {
	s.mu.Lock()
	if s.interruptErr == nil {
		s.interruptErr = err
	}
	s.mu.Unlock()
	_ = s.stop(pool, 0)
}

// Err returns the error that triggered shutdown via interrupt, if any.
func (s *shutdownController) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interruptErr
}
