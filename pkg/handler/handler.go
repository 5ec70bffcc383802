// Package handler turns parsed requests into replies by looking documents up
// in a docroot.Store.
package handler

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/marmos91/dittoweb/internal/logger"
	"github.com/marmos91/dittoweb/internal/protocol/http"
	"github.com/marmos91/dittoweb/pkg/store/docroot"
)

// IndexFile is appended to request paths that name a directory.
const IndexFile = "index.html"

// Handler produces the reply for a complete request.
//
// Implementations must be safe for concurrent use: each connection calls
// HandleRequest from a goroutine of its own, outside the reactor workers, so
// it may block on the document store.
type Handler interface {
	HandleRequest(ctx context.Context, req *http.Request, rep *http.Reply)
}

// RequestHandler serves static documents from a Store.
//
// It holds no mutable state; a single instance is shared by every connection.
type RequestHandler struct {
	store docroot.Store
}

// New creates a handler serving documents from store.
func New(store docroot.Store) *RequestHandler {
	return &RequestHandler{store: store}
}

// HandleRequest fills rep with the document named by req.URI.
//
// Rules:
//   - A URI that fails to decode, does not start with "/" or contains ".."
//     yields 400 Bad Request without touching the store
//   - A path ending in "/" is served as path + "index.html"
//   - A document the store cannot open yields 404 Not Found
//   - Otherwise 200 OK with the document bytes, Content-Length and a
//     Content-Type derived from the path extension
func (h *RequestHandler) HandleRequest(ctx context.Context, req *http.Request, rep *http.Reply) {
	path, ok := URLDecode(req.URI)
	if !ok {
		*rep = http.StockReply(http.StatusBadRequest)
		return
	}

	if path == "" || path[0] != '/' || strings.Contains(path, "..") {
		*rep = http.StockReply(http.StatusBadRequest)
		return
	}

	if strings.HasSuffix(path, "/") {
		path += IndexFile
	}

	doc, err := h.store.Open(ctx, path)
	if err != nil {
		if !docroot.IsNotFound(err) {
			logger.Warn("Open %s failed: %v", path, err)
		}
		*rep = http.StockReply(http.StatusNotFound)
		return
	}
	defer func() { _ = doc.Close() }()

	content, err := io.ReadAll(doc)
	if err != nil {
		logger.Warn("Read %s failed: %v", path, err)
		*rep = http.StockReply(http.StatusInternalServerError)
		return
	}

	*rep = http.Reply{
		Status:  http.StatusOK,
		Content: content,
	}
	rep.AddHeader("Content-Length", strconv.Itoa(len(content)))
	rep.AddHeader("Content-Type", http.ExtensionToType(http.PathExtension(path)))
}

// URLDecode decodes %XX escapes and '+' (as a space) in in. It reports false
// when an escape is truncated or not made of two hex digits.
func URLDecode(in string) (string, bool) {
	if strings.IndexByte(in, '%') < 0 && strings.IndexByte(in, '+') < 0 {
		return in, true
	}

	var out strings.Builder
	out.Grow(len(in))

	for i := 0; i < len(in); i++ {
		switch c := in[i]; c {
		case '%':
			if i+2 >= len(in) {
				return "", false
			}
			hi, ok1 := unhex(in[i+1])
			lo, ok2 := unhex(in[i+2])
			if !ok1 || !ok2 {
				return "", false
			}
			out.WriteByte(hi<<4 | lo)
			i += 2
		case '+':
			out.WriteByte(' ')
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), true
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
