package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

type connState uint8

const (
	stateReading connState = iota
	stateWriting
	stateClosed
)

// Connection serves exactly one request on one socket: Reading, Writing,
// Closed. Only one engine operation is outstanding at a time and its
// completion closure is the sole reference to the Connection.
type Connection struct {
	ID uuid.UUID

	server *Server
	conn   net.Conn
	state  connState
	buf    []byte
	out    []byte
	reqCtx RequestCtx
	span   trace.Span
}

func newConnection(server *Server, conn net.Conn) *Connection {
	return &Connection{
		ID:     uuid.New(),
		server: server,
		conn:   conn,
		state:  stateReading,
		buf:    make([]byte, 0, DefaultReadBufferSize),
		reqCtx: RequestCtx{Conn: conn},
	}
}

func (c *Connection) Start() {
	ctx, span := c.server.tracer.Start(context.Background(), "http.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.NetworkPeerAddress(c.conn.RemoteAddr().String()),
			attribute.String("connection.id", c.ID.String()),
		))
	c.reqCtx.Context = ctx
	c.span = span

	c.server.metrics.accepted.Add(ctx, 1)

	c.read()
}

func (c *Connection) read() {
	if len(c.buf) == cap(c.buf) {
		if cap(c.buf) >= MaxRequestSize {
			c.drop(reasonTooLarge, ErrRequestTooLarge)
			return
		}

		grown := make([]byte, len(c.buf), min(2*cap(c.buf), MaxRequestSize))
		copy(grown, c.buf)
		c.buf = grown
	}

	c.server.engine.Read(c.conn, c.buf[len(c.buf):cap(c.buf)], c.onRead)
}

func (c *Connection) onRead(n int, err error) {
	c.buf = c.buf[:len(c.buf)+n]

	if n > 0 {
		req, _, perr := ParseRequest(c.buf)
		switch {
		case perr == nil:
			c.reqCtx.Request = req
			c.respond()
			return
		case errors.Is(perr, ErrRequestTooLarge):
			c.drop(reasonTooLarge, perr)
			return
		case !errors.Is(perr, ErrIncomplete):
			c.drop(reasonMalformed, perr)
			return
		}
	}

	if err != nil {
		if len(c.buf) == 0 && errors.Is(err, io.EOF) {
			c.drop(reasonEmpty, nil)
		} else {
			c.drop(reasonRead, err)
		}
		return
	}

	c.read()
}

func (c *Connection) respond() {
	c.state = stateWriting

	req := &c.reqCtx.Request
	res := &c.reqCtx.Response

	*res = NewResponse(req.Version)
	res.SetKeepAlive(false)
	res.SetHeader(headerServerName, c.server.Name)

	if err := c.handle(); err != nil {
		c.drop(reasonPanic, err)
		return
	}
	res.Prepare()

	c.span.SetAttributes(
		semconv.HTTPRequestMethodKey.String(req.Method),
		semconv.NetworkProtocolVersion(strings.TrimPrefix(req.Version, "HTTP/")),
		semconv.HTTPResponseStatusCode(int(res.Status)),
	)

	c.out = res.AppendTo(make([]byte, 0, DefaultWriteBufferSize))
	c.server.engine.Write(c.conn, c.out, c.onWrite)
}

func (c *Connection) handle() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("http: handler panicked: %v", r)
		}
	}()

	c.server.Handler(&c.reqCtx)
	return nil
}

func (c *Connection) onWrite(_ int, err error) {
	if err != nil {
		c.drop(reasonWrite, err)
		return
	}

	c.server.metrics.responses.Add(c.reqCtx.Context, 1,
		metric.WithAttributes(semconv.HTTPResponseStatusCode(int(c.reqCtx.Response.Status))))

	// Half-close: the peer sees end of response, nothing more is read.
	if hc, ok := c.conn.(interface{ CloseWrite() error }); ok {
		hc.CloseWrite()
	}

	c.close()
}

// drop closes the connection without sending a response.
func (c *Connection) drop(reason dropReason, err error) {
	if err != nil {
		c.server.logger.DebugContext(c.reqCtx.Context, "connection dropped",
			"id", c.ID.String(), "reason", string(reason), "error", err)
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, string(reason))
	}

	c.server.metrics.dropped.Add(c.reqCtx.Context, 1,
		metric.WithAttributes(attribute.String("reason", string(reason))))

	c.close()
}

func (c *Connection) close() {
	if c.state == stateClosed {
		return
	}
	c.state = stateClosed

	c.conn.Close()
	c.span.End()
}
