//go:build windows

package httpd

import (
	"net"
	"os"
	"strings"
	"syscall"
)

const unixPrefix = "unix:"

const defaultBacklog = 1024

// bindListener binds addr on Windows, where tcplisten's raw-socket-option
// path and SO_REUSEPORT dual-stack tricks do not apply: plain net.Listen
// already binds dual-stack on an empty/wildcard host, and ReusePort is
// silently ignored.
func bindListener(addr string, reusePort bool) (net.Listener, error) {
	if strings.HasPrefix(addr, unixPrefix) {
		return bindUnixListener(strings.TrimPrefix(addr, unixPrefix))
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if err := preventListenerInheritance(ln); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

// bindUnixListener binds an AF_UNIX socket at path, removing a stale socket file left behind by an unclean previous shutdown
// first.
func bindUnixListener(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := preventListenerInheritance(ln); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

// preventListenerInheritance marks ln's underlying handle non-inheritable,
// the Windows equivalent of POSIX close-on-exec: a child process spawned
// via exec should never inherit the listening socket.
func preventListenerInheritance(ln net.Listener) error {
	sc, ok := ln.(interface {
		SyscallConn() (syscall.RawConn, error)
	})
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	return rc.Control(func(fd uintptr) {
		_ = syscall.SetHandleInformation(syscall.Handle(fd), syscall.HANDLE_FLAG_INHERIT, 0)
	})
}
