// Package http implements the HTTP/1.0 wire format served by dittoweb: an
// incremental request parser, the request and reply value types, stock error
// replies and the extension to content type table.
//
// Nothing in this package performs I/O. Replies are rendered as net.Buffers
// so a connection can hand them to a single gathered write.
package http
