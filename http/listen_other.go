//go:build !linux

package http

import "net"

// listen ignores backlog; the runtime picks the platform maximum.
func listen(addr string, backlog int) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

func defaultBacklog() int {
	return 128
}
