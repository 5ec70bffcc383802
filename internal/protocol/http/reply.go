package http

import (
	"net"
	"strconv"
)

// Status is an HTTP response status code.
type Status int

const (
	StatusOK                  Status = 200
	StatusCreated             Status = 201
	StatusAccepted            Status = 202
	StatusNoContent           Status = 204
	StatusMultipleChoices     Status = 300
	StatusMovedPermanently    Status = 301
	StatusMovedTemporarily    Status = 302
	StatusNotModified         Status = 304
	StatusBadRequest          Status = 400
	StatusUnauthorized        Status = 401
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusInternalServerError Status = 500
	StatusNotImplemented      Status = 501
	StatusBadGateway          Status = 502
	StatusServiceUnavailable  Status = 503
)

var reasons = map[Status]string{
	StatusOK:                  "OK",
	StatusCreated:             "Created",
	StatusAccepted:            "Accepted",
	StatusNoContent:           "No Content",
	StatusMultipleChoices:     "Multiple Choices",
	StatusMovedPermanently:    "Moved Permanently",
	StatusMovedTemporarily:    "Moved Temporarily",
	StatusNotModified:         "Not Modified",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
	StatusBadGateway:          "Bad Gateway",
	StatusServiceUnavailable:  "Service Unavailable",
}

// Status lines and stock bodies are rendered once and shared read-only by
// every reply.
var (
	statusLines = make(map[Status][]byte, len(reasons))
	stockBodies = make(map[Status][]byte, len(reasons))
)

var (
	headerSeparator = []byte(": ")
	crlf            = []byte("\r\n")
)

func init() {
	for s, reason := range reasons {
		code := strconv.Itoa(int(s))
		statusLines[s] = []byte("HTTP/1.0 " + code + " " + reason + "\r\n")

		switch s {
		case StatusOK, StatusNoContent, StatusNotModified:
			stockBodies[s] = nil
		default:
			stockBodies[s] = []byte("<html><head><title>" + reason + "</title></head>" +
				"<body><h1>" + code + " " + reason + "</h1></body></html>")
		}
	}
}

// Known reports whether s is one of the statuses this package can render.
func (s Status) Known() bool {
	_, ok := reasons[s]
	return ok
}

// Reason returns the reason phrase for s, or "" if s is unknown.
func (s Status) Reason() string {
	return reasons[s]
}

func (s Status) String() string {
	if r, ok := reasons[s]; ok {
		return strconv.Itoa(int(s)) + " " + r
	}
	return strconv.Itoa(int(s))
}

// Reply is an HTTP response waiting to be written to a client.
type Reply struct {
	Status  Status
	Headers []Header
	Content []byte
}

// AddHeader appends a header, keeping insertion order.
func (r *Reply) AddHeader(name, value string) {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// ToBuffers renders the reply as a gathered write: the status line, one
// buffer per header line, the blank separator line and finally the content.
//
// The content buffer aliases r.Content, so the reply must not be modified
// until the write has completed. Header lines are copied. A status this
// package does not know is rendered as 500 Internal Server Error.
func (r *Reply) ToBuffers() net.Buffers {
	status := r.Status
	if !status.Known() {
		status = StatusInternalServerError
	}

	bufs := make(net.Buffers, 0, len(r.Headers)+3)
	bufs = append(bufs, statusLines[status])

	for _, h := range r.Headers {
		line := make([]byte, 0, len(h.Name)+len(h.Value)+4)
		line = append(line, h.Name...)
		line = append(line, headerSeparator...)
		line = append(line, h.Value...)
		line = append(line, crlf...)
		bufs = append(bufs, line)
	}

	bufs = append(bufs, crlf)
	if len(r.Content) > 0 {
		bufs = append(bufs, r.Content)
	}
	return bufs
}

// StockReply builds the canned reply for status: a short HTML body naming the
// status with Content-Length and Content-Type headers. Unknown statuses get
// the 500 reply.
func StockReply(status Status) Reply {
	if !status.Known() {
		status = StatusInternalServerError
	}

	body := stockBodies[status]
	return Reply{
		Status: status,
		Headers: []Header{
			{Name: "Content-Length", Value: strconv.Itoa(len(body))},
			{Name: "Content-Type", Value: "text/html"},
		},
		Content: body,
	}
}
