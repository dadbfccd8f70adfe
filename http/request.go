package http

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIncomplete                  = errors.New("http: incomplete request")
	ErrMalformedRequest            = errors.New("http: malformed request")
	ErrRequestTooLarge             = errors.New("http: request too large")
	ErrUnsupportedTransferEncoding = errors.New("http: unsupported transfer encoding")
)

type Request struct {
	Method  string
	Path    string
	Version string
	// Header names are lower-cased, in arrival order.
	Headers []Header

	Body []byte
}

// ParseRequest parses one request from the start of data and returns the
// number of bytes it occupied. ErrIncomplete means data holds a valid prefix
// and more bytes are needed.
func ParseRequest(data []byte) (Request, int, error) {
	var req Request

	// Empty lines before the request line are ignored (RFC 9112, 2.2)
	line, pos, ok := nextLine(data, 0)
	for ok && len(line) == 0 {
		line, pos, ok = nextLine(data, pos)
	}
	if !ok {
		return req, 0, ErrIncomplete
	}

	if err := req.parseRequestLine(line); err != nil {
		return req, 0, err
	}

	contentLength := -1
	chunked := false
	for {
		line, pos, ok = nextLine(data, pos)
		if !ok {
			return req, 0, ErrIncomplete
		}
		if len(line) == 0 {
			break // end of headers
		}

		if len(req.Headers) == MaxRequestHeaders {
			return req, 0, fmt.Errorf("%w: more than %d headers", ErrMalformedRequest, MaxRequestHeaders)
		}

		i := bytes.IndexByte(line, ':')
		if i <= 0 || !isToken(line[:i]) {
			return req, 0, fmt.Errorf("%w: invalid header line %q", ErrMalformedRequest, line)
		}
		name := bytes.Clone(line[:i])
		toLower(name)
		value := bytes.TrimSpace(line[i+1:])

		switch {
		case bytes.Equal(name, headerContentLength):
			n, err := atoi(value)
			if err != nil {
				if errors.Is(err, ErrRequestTooLarge) {
					return req, 0, err
				}
				return req, 0, fmt.Errorf("%w: invalid content-length %q", ErrMalformedRequest, value)
			}
			if contentLength >= 0 && n != contentLength {
				return req, 0, fmt.Errorf("%w: conflicting content-length", ErrMalformedRequest)
			}
			contentLength = n
		case bytes.Equal(name, headerTransferEncoding):
			codings := bytes.Split(value, []byte(","))
			if !bytes.EqualFold(bytes.TrimSpace(codings[len(codings)-1]), encodingChunked) {
				return req, 0, fmt.Errorf("%w: %q", ErrUnsupportedTransferEncoding, value)
			}
			chunked = true
		}

		req.Headers = append(req.Headers, Header{Name: string(name), Value: string(value)})
	}

	// The size limit covers the whole request, head and framing included.
	switch {
	case chunked:
		body, n, err := parseChunked(data[pos:], MaxRequestSize-pos)
		if err != nil {
			return req, 0, err
		}
		req.Body = body
		pos += n
	case contentLength > 0:
		if contentLength > MaxRequestSize-pos {
			return req, 0, ErrRequestTooLarge
		}
		if len(data)-pos < contentLength {
			return req, 0, ErrIncomplete
		}
		req.Body = bytes.Clone(data[pos : pos+contentLength])
		pos += contentLength
	}

	return req, pos, nil
}

func (req *Request) parseRequestLine(line []byte) error {
	parts := bytes.Split(line, []byte(" "))
	if len(parts) != 3 {
		return fmt.Errorf("%w: malformed request line %q", ErrMalformedRequest, line)
	}
	method, path, version := parts[0], parts[1], parts[2]

	if !isToken(method) {
		return fmt.Errorf("%w: invalid method %q", ErrMalformedRequest, method)
	}
	if len(path) == 0 || bytes.ContainsAny(path, "\t\r") {
		return fmt.Errorf("%w: invalid request target %q", ErrMalformedRequest, path)
	}
	if len(version) != len(protocolPrefix)+1 || !bytes.HasPrefix(version, []byte(protocolPrefix)) ||
		version[len(version)-1] < '0' || version[len(version)-1] > '9' {
		return fmt.Errorf("%w: unsupported version %q", ErrMalformedRequest, version)
	}

	req.Method = string(method)
	req.Path = string(path)
	req.Version = string(version)
	return nil
}

// parseChunked decodes a chunked body including its trailer section. The
// encoded body may occupy at most limit bytes.
func parseChunked(data []byte, limit int) ([]byte, int, error) {
	body := make([]byte, 0)
	pos := 0

	for {
		line, next, ok := nextLine(data, pos)
		if !ok {
			return nil, 0, ErrIncomplete
		}
		if i := bytes.IndexByte(line, ';'); i >= 0 {
			line = line[:i] // chunk extensions are ignored
		}

		size, err := hextoi(bytes.TrimSpace(line))
		if err != nil {
			if errors.Is(err, ErrRequestTooLarge) {
				return nil, 0, err
			}
			return nil, 0, fmt.Errorf("%w: invalid chunk size %q", ErrMalformedRequest, line)
		}
		pos = next

		if size == 0 {
			break
		}
		if pos+size > limit {
			return nil, 0, ErrRequestTooLarge
		}
		if len(data)-pos < size {
			return nil, 0, ErrIncomplete
		}
		body = append(body, data[pos:pos+size]...)
		pos += size

		rest := data[pos:]
		switch {
		case bytes.HasPrefix(rest, crlfOnly):
			pos += 2
		case len(rest) > 0 && rest[0] == '\n':
			pos++
		case len(rest) == 0 || (len(rest) == 1 && rest[0] == '\r'):
			return nil, 0, ErrIncomplete
		default:
			return nil, 0, fmt.Errorf("%w: missing chunk terminator", ErrMalformedRequest)
		}
	}

	// Trailers are read and dropped
	for {
		line, next, ok := nextLine(data, pos)
		if !ok {
			return nil, 0, ErrIncomplete
		}
		pos = next
		if len(line) == 0 {
			break
		}
	}

	return body, pos, nil
}

// nextLine returns the line starting at pos without its CRLF or LF ending,
// and the offset just past the ending.
func nextLine(data []byte, pos int) ([]byte, int, bool) {
	i := bytes.IndexByte(data[pos:], '\n')
	if i < 0 {
		return nil, pos, false
	}

	line := data[pos : pos+i]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, pos + i + 1, true
}

func (req *Request) HeaderValue(name string) (string, bool) {
	for _, header := range req.Headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value, true
		}
	}
	return "", false
}

// KeepAlive reports whether the client asked for a persistent connection.
func (req *Request) KeepAlive() bool {
	connHeader, _ := req.HeaderValue(string(headerConnection))
	connHeader = strings.ToLower(connHeader)

	if req.Version == "HTTP/1.0" {
		return strings.Contains(connHeader, string(headerKeepAlive))
	}
	return !strings.Contains(connHeader, string(headerClose))
}
