package services

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pinLANAddress(t *testing.T, ip string, err error) {
	orig := discoverLANIPv4
	discoverLANIPv4 = func() (string, error) { return ip, err }
	t.Cleanup(func() { discoverLANIPv4 = orig })
}

func TestListenerStartServesAndStops(t *testing.T) {
	pinLANAddress(t, "127.0.0.1", nil)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	l := NewListener(0, handler) // port 0: let the kernel pick
	addr, err := l.Start()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, "http://127.0.0.1:"), "got %q", addr)
	assert.Equal(t, addr, l.URL())

	resp, err := http.Get(addr)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, l.Stop())
	assert.Empty(t, l.URL())

	_, err = http.Get(addr)
	assert.Error(t, err, "stopped listener must refuse connections")
}

func TestListenerBindErrorNoInterface(t *testing.T) {
	pinLANAddress(t, "", fmt.Errorf("no active LAN interface with an IPv4 address"))

	l := NewListener(0, http.NotFoundHandler())
	_, err := l.Start()

	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Empty(t, l.URL(), "failed start must leave no advertised address")
}

func TestListenerBindErrorPortTaken(t *testing.T) {
	pinLANAddress(t, "127.0.0.1", nil)

	// Occupy a port first.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	l := NewListener(port, http.NotFoundHandler())
	_, err = l.Start()

	var bindErr *BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Contains(t, bindErr.Error(), "cannot bind")
}

func TestListenerStopWithoutStart(t *testing.T) {
	l := NewListener(0, http.NotFoundHandler())
	assert.NoError(t, l.Stop())
}
