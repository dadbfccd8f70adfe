// Package test holds helpers shared by the network tests.
package test

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const Timeout = 5 * time.Second

// Dial connects to addr, retrying briefly while the listener comes up.
func Dial(t testing.TB, addr string) net.Conn {
	t.Helper()

	var conn net.Conn
	var err error
	for range 10 {
		conn, err = net.DialTimeout("tcp", addr, Timeout)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)

	conn.SetDeadline(time.Now().Add(Timeout))
	t.Cleanup(func() { conn.Close() })

	return conn
}

// ReadAll reads until the peer closes its write side.
func ReadAll(t testing.TB, conn net.Conn) []byte {
	t.Helper()

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return data
}

// Drain reads until the connection ends, whether by FIN or by reset, and
// returns what arrived first.
func Drain(t testing.TB, conn net.Conn) []byte {
	t.Helper()

	var buf bytes.Buffer
	_, err := io.Copy(&buf, conn)
	if err != nil {
		require.ErrorIs(t, err, syscall.ECONNRESET)
	}
	return buf.Bytes()
}

// RoundTrip writes raw on a fresh connection and returns everything the
// server sent before closing.
func RoundTrip(t testing.TB, addr, raw string) []byte {
	t.Helper()

	conn := Dial(t, addr)
	_, err := conn.Write([]byte(raw))
	require.NoError(t, err)

	return ReadAll(t, conn)
}

// ParseResponse decodes a raw response and its body.
func ParseResponse(t testing.TB, raw []byte) (*http.Response, []byte) {
	t.Helper()

	res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res, body
}
