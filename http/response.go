package http

import "strings"

type Response struct {
	Version string
	Status  uint16
	Body    []byte

	headers []Header
}

func NewResponse(version string) Response {
	return Response{
		Version: version,
		Status:  StatusOK,
		headers: make([]Header, 0, 8),
	}
}

// SetHeader replaces the value of name, or appends it when not present.
func (res *Response) SetHeader(name, value string) {
	for i := range res.headers {
		if strings.EqualFold(res.headers[i].Name, name) {
			res.headers[i].Value = value
			return
		}
	}
	res.headers = append(res.headers, Header{Name: name, Value: value})
}

func (res *Response) DelHeader(name string) {
	for i := range res.headers {
		if strings.EqualFold(res.headers[i].Name, name) {
			res.headers = append(res.headers[:i], res.headers[i+1:]...)
			return
		}
	}
}

func (res *Response) Header(name string) (string, bool) {
	for _, header := range res.headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value, true
		}
	}
	return "", false
}

func (res *Response) Headers() []Header {
	return res.headers
}

func (res *Response) WithStatus(status uint16) *Response {
	res.Status = status
	return res
}

func (res *Response) WithHTML(html string) *Response {
	res.SetHeader(headerContentTypeName, MimeTypeHTML)
	res.Body = append(res.Body[:0], html...)
	return res
}

// SetKeepAlive sets the Connection header for the response version. A
// non-persistent HTTP/1.0 response needs no header at all.
func (res *Response) SetKeepAlive(keepAlive bool) {
	http10 := res.Version == "HTTP/1.0"

	switch {
	case keepAlive && http10:
		res.SetHeader(headerConnectionName, string(headerKeepAlive))
	case !keepAlive && !http10:
		res.SetHeader(headerConnectionName, string(headerClose))
	default:
		res.DelHeader(headerConnectionName)
	}
}

// Prepare sets Content-Length from the body.
func (res *Response) Prepare() {
	res.SetHeader(headerContentLengthName, string(appendInt(nil, len(res.Body))))
}

// AppendTo appends the serialized response to dst.
func (res *Response) AppendTo(dst []byte) []byte {
	dst = append(dst, res.Version...)
	dst = append(dst, ' ')
	dst = appendInt(dst, int(res.Status))
	dst = append(dst, ' ')
	dst = append(dst, StatusText(res.Status)...)
	dst = append(dst, crlfOnly...)

	for _, header := range res.headers {
		dst = append(dst, header.Name...)
		dst = append(dst, colonSpace...)
		dst = append(dst, header.Value...)
		dst = append(dst, crlfOnly...)
	}
	dst = append(dst, crlfOnly...)

	return append(dst, res.Body...)
}
