//go:build !windows

package httpd

import (
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/valyala/tcplisten"
	"golang.org/x/sys/unix"
)

const unixPrefix = "unix:"

const defaultBacklog = 1024

// bindListener binds addr, which is either "host:port" for TCP or
// "unix:/path/to/socket" for a UNIX-domain socket. An empty or wildcard
// host binds dual-stack (both IPv4 and IPv6 on one socket) where the
// platform allows it, falling back to an IPv4-only bind via tcplisten
// otherwise.
func bindListener(addr string, reusePort bool) (net.Listener, error) {
	if strings.HasPrefix(addr, unixPrefix) {
		return bindUnixListener(strings.TrimPrefix(addr, unixPrefix))
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	if host == "" || host == "::" || host == "0.0.0.0" {
		if ln, err := bindDualStackListener(addr, reusePort); err == nil {
			return ln, nil
		}
	}

	network := "tcp4"
	if strings.Contains(host, ":") {
		network = "tcp6"
	}
	cfg := tcplisten.Config{ReusePort: reusePort, Backlog: defaultBacklog}
	ln, err := cfg.NewListener(network, addr)
	if err != nil {
		return nil, err
	}
	if err := preventListenerInheritance(ln); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

// bindDualStackListener opens an AF_INET6 socket with IPV6_V6ONLY cleared
// so it accepts both native IPv6 and IPv4-mapped connections on one
// listener.
func bindDualStackListener(addr string, reusePort bool) (net.Listener, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}
	closeOnErr := func(err error) (net.Listener, error) {
		unix.Close(fd)
		return nil, err
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return closeOnErr(err)
	}
	if reusePort {
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
		return closeOnErr(err)
	}
	unix.CloseOnExec(fd)

	sa := &unix.SockaddrInet6{Port: port}
	if err := unix.Bind(fd, sa); err != nil {
		return closeOnErr(err)
	}
	if err := unix.Listen(fd, defaultBacklog); err != nil {
		return closeOnErr(err)
	}

	f := os.NewFile(uintptr(fd), "httpd-dual-stack-listener")
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	return ln, nil
}

// bindUnixListener binds a UNIX-domain socket at path, removing a stale
// socket file left behind by an unclean previous shutdown first.
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

// preventListenerInheritance sets the close-on-exec flag on ln's listening
// file descriptor without duplicating it: an exec'd child process should
// never inherit the listening socket.
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
		unix.CloseOnExec(int(fd))
	})
}
