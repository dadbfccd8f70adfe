package http

import (
	"context"
	"net"
)

type RequestCtx struct {
	context.Context

	Conn     net.Conn
	Request  Request
	Response Response
}

type Handler func(ctx *RequestCtx)

// HelloHandler answers every request with the same HTML page.
var HelloHandler Handler = func(ctx *RequestCtx) {
	ctx.Response.WithHTML(HelloBody)
}
