package metrics

import "time"

// HTTPMetrics provides observability for the HTTP adapter.
//
// The adapter never checks for nil: when metrics are disabled it is handed
// the no-op implementation from NewNoopHTTPMetrics.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewHTTPMetrics()
//	adapter := http.New(config, handler, m)
//
//	// Without metrics (no-op)
//	adapter := http.New(config, handler, nil)
type HTTPMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - method: Request method as sent by the client ("GET", "HEAD", ...)
	//   - status: Status code of the reply
	//   - duration: Time from the complete request to the finished write
	RecordRequest(method string, status int, duration time.Duration)

	// RecordBytesSent records reply bytes written to a client.
	RecordBytesSent(bytes int64)

	// RecordParseError counts requests rejected by the parser.
	RecordParseError()

	// RecordRateLimited counts connections turned away by admission control.
	RecordRateLimited()

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(method string, status int, duration time.Duration) {}
func (noopHTTPMetrics) RecordBytesSent(bytes int64)                                   {}
func (noopHTTPMetrics) RecordParseError()                                             {}
func (noopHTTPMetrics) RecordRateLimited()                                            {}
func (noopHTTPMetrics) SetActiveConnections(count int32)                              {}
func (noopHTTPMetrics) RecordConnectionAccepted()                                     {}
func (noopHTTPMetrics) RecordConnectionClosed()                                       {}
