package services

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
)

// BindError means the upload listener could not start: either no usable
// LAN interface exists (Wi-Fi off) or the port is taken. It is fatal to
// the session; nothing else in the error taxonomy stops the pipeline.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("cannot start upload listener: %v", e.Err)
	}
	return fmt.Sprintf("cannot bind upload listener on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Listener is the embedded LAN upload server. Start binds to the device's
// current LAN IPv4 and serves until Stop, which aborts in-flight uploads
// but leaves already-staged files on disk.
type Listener interface {
	Start() (string, error)
	Stop() error
	URL() string
}

// listener implements the Listener interface
type listener struct {
	port    int
	handler http.Handler

	mu  sync.Mutex
	srv *http.Server
	url string
}

// NewListener creates a listener serving handler on the given port.
func NewListener(port int, handler http.Handler) Listener {
	return &listener{
		port:    port,
		handler: handler,
	}
}

// discoverLANIPv4 finds the device's LAN address: the first up,
// non-loopback interface carrying a private IPv4. Package variable so
// tests can pin the address.
var discoverLANIPv4 = lanIPv4

func lanIPv4() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			return ip.String(), nil
		}
	}

	return "", fmt.Errorf("no active LAN interface with an IPv4 address")
}

// Start discovers the LAN address, binds, and begins serving on a
// background goroutine. The returned string is the advertisable base URL.
func (l *listener) Start() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.srv != nil {
		return l.url, nil
	}

	ip, err := discoverLANIPv4()
	if err != nil {
		return "", &BindError{Err: err}
	}

	addr := net.JoinHostPort(ip, strconv.Itoa(l.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", &BindError{Addr: addr, Err: err}
	}

	l.srv = &http.Server{Handler: l.handler}
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("Upload listener stopped: %v", err)
		}
	}(l.srv)

	l.url = "http://" + ln.Addr().String() + "/"
	log.Printf("Upload listener serving on %s", l.url)
	return l.url, nil
}

// Stop unbinds immediately. In-flight uploads are aborted; staged files
// stay on disk for the caller to clean up.
func (l *listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.srv == nil {
		return nil
	}
	err := l.srv.Close()
	l.srv = nil
	l.url = ""
	return err
}

// URL returns the advertised base URL, empty when the listener is down.
func (l *listener) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.url
}
