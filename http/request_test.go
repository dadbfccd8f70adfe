package http

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestParse(t *testing.T) {
	reqMsg := []byte("GET /test HTTP/1.1\r\nAccept: text/css\r\nConnection: keep-alive\r\nContent-Length: 0\r\n\r\n")

	req, n, err := ParseRequest(reqMsg)
	require.NoError(t, err)

	assert.Equal(t, len(reqMsg), n)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/test", req.Path)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Len(t, req.Headers, 3)

	h, found := req.HeaderValue("connection")
	require.True(t, found, "connection header not found")
	assert.Equal(t, "keep-alive", h)

	h, found = req.HeaderValue("ACCEPT")
	require.True(t, found)
	assert.Equal(t, "text/css", h)

	_, found = req.HeaderValue("host")
	assert.False(t, found)
}

func TestRequestParseIncomplete(t *testing.T) {
	reqMsg := "POST /upload HTTP/1.1\r\nHost: localhost\r\nContent-Length: 5\r\n\r\nhello"

	// every strict prefix is a valid start that needs more bytes
	for i := range len(reqMsg) {
		_, _, err := ParseRequest([]byte(reqMsg[:i]))
		assert.ErrorIs(t, err, ErrIncomplete, "prefix of %d bytes", i)
	}

	req, n, err := ParseRequest([]byte(reqMsg))
	require.NoError(t, err)
	assert.Equal(t, len(reqMsg), n)
	assert.Equal(t, "hello", string(req.Body))
}

func TestRequestParseLeavesTrailingBytes(t *testing.T) {
	first := "GET / HTTP/1.1\r\n\r\n"

	_, n, err := ParseRequest([]byte(first + "GET /second HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, len(first), n)
}

func TestRequestParseBareLF(t *testing.T) {
	req, _, err := ParseRequest([]byte("\r\nHEAD /x HTTP/1.0\nHost: a\n\n"))
	require.NoError(t, err)

	assert.Equal(t, "HEAD", req.Method)
	assert.Equal(t, "HTTP/1.0", req.Version)
}

func TestRequestParseChunked(t *testing.T) {
	reqMsg := "POST / HTTP/1.1\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"5;ext=1\r\nhello\r\n" +
		"7\r\n, world\r\n" +
		"0\r\n" +
		"Trailer: x\r\n" +
		"\r\n"

	req, n, err := ParseRequest([]byte(reqMsg))
	require.NoError(t, err)
	assert.Equal(t, len(reqMsg), n)
	assert.Equal(t, "hello, world", string(req.Body))

	for i := range len(reqMsg) {
		_, _, err := ParseRequest([]byte(reqMsg[:i]))
		assert.ErrorIs(t, err, ErrIncomplete, "prefix of %d bytes", i)
	}
}

func TestRequestParseErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		err   error
	}{
		{"missing version", "GET /\r\n\r\n", ErrMalformedRequest},
		{"extra space", "GET  / HTTP/1.1\r\n\r\n", ErrMalformedRequest},
		{"bad method", "G(T / HTTP/1.1\r\n\r\n", ErrMalformedRequest},
		{"http2", "GET / HTTP/2.0\r\n\r\n", ErrMalformedRequest},
		{"garbage version", "GET / HTTX/1.1\r\n\r\n", ErrMalformedRequest},
		{"header without colon", "GET / HTTP/1.1\r\nHost\r\n\r\n", ErrMalformedRequest},
		{"header with space in name", "GET / HTTP/1.1\r\nHo st: a\r\n\r\n", ErrMalformedRequest},
		{"bad content-length", "GET / HTTP/1.1\r\nContent-Length: abc\r\n\r\n", ErrMalformedRequest},
		{"conflicting content-length", "GET / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\nab", ErrMalformedRequest},
		{"huge content-length", "GET / HTTP/1.1\r\nContent-Length: 3000000\r\n\r\n", ErrRequestTooLarge},
		{"gzip only", "POST / HTTP/1.1\r\nTransfer-Encoding: gzip\r\n\r\n", ErrUnsupportedTransferEncoding},
		{"bad chunk size", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n", ErrMalformedRequest},
		{"missing chunk terminator", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n1\r\nab\r\n", ErrMalformedRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseRequest([]byte(tc.input))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestRequestParseSizeLimitCoversWholeRequest(t *testing.T) {
	head := func(contentLength int) string {
		return fmt.Sprintf("POST / HTTP/1.1\r\nContent-Length: %d\r\n\r\n", contentLength)
	}
	fits := MaxRequestSize - len(head(MaxRequestSize))

	data := head(fits) + strings.Repeat("x", fits)
	require.Len(t, data, MaxRequestSize)
	req, n, err := ParseRequest([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, MaxRequestSize, n)
	assert.Len(t, req.Body, fits)

	_, _, err = ParseRequest([]byte(head(fits + 1)))
	assert.ErrorIs(t, err, ErrRequestTooLarge)

	chunked := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n200000\r\n"
	_, _, err = ParseRequest([]byte(chunked))
	assert.ErrorIs(t, err, ErrRequestTooLarge)
}

func TestRequestParseTooManyHeaders(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("GET / HTTP/1.1\r\n")
	for range MaxRequestHeaders + 1 {
		sb.WriteString("X-A: b\r\n")
	}
	sb.WriteString("\r\n")

	_, _, err := ParseRequest([]byte(sb.String()))
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestRequestKeepAlive(t *testing.T) {
	testCases := []struct {
		input     string
		keepAlive bool
	}{
		{"GET / HTTP/1.1\r\n\r\n", true},
		{"GET / HTTP/1.1\r\nConnection: close\r\n\r\n", false},
		{"GET / HTTP/1.0\r\n\r\n", false},
		{"GET / HTTP/1.0\r\nConnection: Keep-Alive\r\n\r\n", true},
	}

	for _, tc := range testCases {
		req, _, err := ParseRequest([]byte(tc.input))
		require.NoError(t, err)
		assert.Equal(t, tc.keepAlive, req.KeepAlive(), tc.input)
	}
}

func BenchmarkRequestParse(b *testing.B) {
	reqMsg := []byte("GET /test HTTP/1.1\r\nAccept: text/css\r\nConnection: keep-alive\r\nContent-Length: 0\r\n\r\n")

	for b.Loop() {
		if _, _, err := ParseRequest(reqMsg); err != nil {
			b.Error(err)
		}
	}
}
