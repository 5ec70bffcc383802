package framework

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Response is a parsed reply from the server.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Raw     []byte
	Version string
}

// RawRequest writes raw on a new connection and reads until the server closes
// it. The reply is parsed when it is well formed.
func RawRequest(addr, raw string) (*Response, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(conn, raw); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, err
	}

	return parse(data)
}

// Get requests path with a minimal HTTP/1.0 request.
func Get(addr, path string) (*Response, error) {
	return RawRequest(addr, fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\n\r\n", path, addr))
}

func parse(data []byte) (*Response, error) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return nil, fmt.Errorf("malformed reply %q: %w", data, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    body,
		Raw:     data,
		Version: resp.Proto,
	}, nil
}
