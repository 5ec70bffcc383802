package http

// Header is a single name/value pair. Names keep the case they arrived in.
type Header struct {
	Name  string
	Value string
}

// Request is a parsed HTTP request line plus headers.
//
// A Request is filled in incrementally by RequestParser and must be treated
// as read-only once the parser reports Good.
type Request struct {
	Method           string
	URI              string
	HTTPVersionMajor int
	HTTPVersionMinor int

	// Headers in arrival order. Duplicates are kept.
	Headers []Header
}
