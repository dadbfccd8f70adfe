// Package http serves a single fixed HTTP/1.x response per TCP connection.
//
// A Listener accepts sockets and hands each one to a Connection, which reads
// one request, writes one response and closes. All I/O completions run on a
// shared engine.Engine.
package http

import "math"

const (
	MaxRequestSize          = 2 * 1024 * 1024 // 2MB
	DefaultReadBufferSize   = 4096            // 4kB
	DefaultWriteBufferSize  = 4096            // 4kB
	MaxRequestHeaders       = math.MaxUint8
	DefaultThreads          = 4
	DefaultServerName       = "Simple C++ HTTP Server"
	HelloBody               = "<html><body>Hello, world!</body></html>"
	MimeTypeHTML            = "text/html"
	instrumentationName     = "github.com/freekieb7/hello/http"
	protocolPrefix          = "HTTP/1."
	headerConnectionName    = "Connection"
	headerContentLengthName = "Content-Length"
	headerContentTypeName   = "Content-Type"
	headerServerName        = "Server"
)

var (
	headerContentLength    = []byte("content-length")
	headerTransferEncoding = []byte("transfer-encoding")
	headerConnection       = []byte("connection")
	headerKeepAlive        = []byte("keep-alive")
	headerClose            = []byte("close")
	encodingChunked        = []byte("chunked")
	crlfOnly               = []byte("\r\n")
	colonSpace             = []byte(": ")
)

type Header struct {
	Name  string
	Value string
}
