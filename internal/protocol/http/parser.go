package http

// Result is the outcome of feeding input to a RequestParser.
type Result int

const (
	// Indeterminate means the request is not complete yet; feed more bytes.
	Indeterminate Result = iota
	// Good means a complete request has been parsed.
	Good
	// Bad means the input is not a valid request.
	Bad
)

func (r Result) String() string {
	switch r {
	case Good:
		return "good"
	case Bad:
		return "bad"
	default:
		return "indeterminate"
	}
}

type parserState int

const (
	stateMethodStart parserState = iota
	stateMethod
	stateURIStart
	stateURI
	stateVersionH
	stateVersionT1
	stateVersionT2
	stateVersionP
	stateVersionSlash
	stateVersionMajorStart
	stateVersionMajor
	stateVersionMinorStart
	stateVersionMinor
	stateExpectingNewline1
	stateHeaderLineStart
	stateHeaderLWS
	stateHeaderName
	stateSpaceBeforeHeaderValue
	stateHeaderValue
	stateExpectingNewline2
	stateExpectingNewline3
)

// RequestParser incrementally parses an HTTP request.
//
// Input may arrive in chunks split at arbitrary points; the parser keeps its
// position between calls, so the caller only ever hands over what a single
// read returned. A RequestParser is not safe for concurrent use.
type RequestParser struct {
	state parserState

	// token collects the bytes of the field currently being read until the
	// delimiter that ends it is seen.
	token []byte
}

// NewRequestParser returns a parser ready for the first byte of a request.
func NewRequestParser() *RequestParser {
	return &RequestParser{}
}

// Reset returns the parser to its initial state.
func (p *RequestParser) Reset() {
	p.state = stateMethodStart
	p.token = p.token[:0]
}

// Parse feeds data to the parser until a request is complete, the input is
// rejected or data runs out. It returns the result and the number of bytes
// consumed; on Good or Bad no byte past the deciding one is consumed.
func (p *RequestParser) Parse(req *Request, data []byte) (Result, int) {
	for i, c := range data {
		if r := p.Consume(req, c); r != Indeterminate {
			return r, i + 1
		}
	}
	return Indeterminate, len(data)
}

// Consume advances the parser by one input byte.
func (p *RequestParser) Consume(req *Request, c byte) Result {
	switch p.state {
	case stateMethodStart:
		if !isToken(c) {
			return Bad
		}
		p.state = stateMethod
		p.token = append(p.token[:0], c)
		return Indeterminate

	case stateMethod:
		if c == ' ' {
			req.Method += string(p.token)
			p.token = p.token[:0]
			p.state = stateURIStart
			return Indeterminate
		}
		if !isToken(c) {
			return Bad
		}
		p.token = append(p.token, c)
		return Indeterminate

	case stateURIStart:
		if isCTL(c) {
			return Bad
		}
		p.state = stateURI
		p.token = append(p.token[:0], c)
		return Indeterminate

	case stateURI:
		if c == ' ' {
			req.URI += string(p.token)
			p.token = p.token[:0]
			p.state = stateVersionH
			return Indeterminate
		}
		if isCTL(c) {
			return Bad
		}
		p.token = append(p.token, c)
		return Indeterminate

	case stateVersionH:
		return p.expect(c, 'H', stateVersionT1)
	case stateVersionT1:
		return p.expect(c, 'T', stateVersionT2)
	case stateVersionT2:
		return p.expect(c, 'T', stateVersionP)
	case stateVersionP:
		return p.expect(c, 'P', stateVersionSlash)

	case stateVersionSlash:
		if c != '/' {
			return Bad
		}
		req.HTTPVersionMajor = 0
		req.HTTPVersionMinor = 0
		p.state = stateVersionMajorStart
		return Indeterminate

	case stateVersionMajorStart:
		if !isDigit(c) {
			return Bad
		}
		req.HTTPVersionMajor = req.HTTPVersionMajor*10 + int(c-'0')
		p.state = stateVersionMajor
		return Indeterminate

	case stateVersionMajor:
		if c == '.' {
			p.state = stateVersionMinorStart
			return Indeterminate
		}
		if !isDigit(c) {
			return Bad
		}
		req.HTTPVersionMajor = req.HTTPVersionMajor*10 + int(c-'0')
		return Indeterminate

	case stateVersionMinorStart:
		if !isDigit(c) {
			return Bad
		}
		req.HTTPVersionMinor = req.HTTPVersionMinor*10 + int(c-'0')
		p.state = stateVersionMinor
		return Indeterminate

	case stateVersionMinor:
		if c == '\r' {
			p.state = stateExpectingNewline1
			return Indeterminate
		}
		if !isDigit(c) {
			return Bad
		}
		req.HTTPVersionMinor = req.HTTPVersionMinor*10 + int(c-'0')
		return Indeterminate

	case stateExpectingNewline1:
		return p.expect(c, '\n', stateHeaderLineStart)

	case stateHeaderLineStart:
		if c == '\r' {
			p.state = stateExpectingNewline3
			return Indeterminate
		}
		if len(req.Headers) > 0 && (c == ' ' || c == '\t') {
			p.state = stateHeaderLWS
			return Indeterminate
		}
		if !isToken(c) {
			return Bad
		}
		p.token = append(p.token[:0], c)
		p.state = stateHeaderName
		return Indeterminate

	case stateHeaderLWS:
		if c == '\r' {
			p.state = stateExpectingNewline2
			return Indeterminate
		}
		if c == ' ' || c == '\t' {
			return Indeterminate
		}
		if isCTL(c) {
			return Bad
		}
		// Continuation: further bytes extend the previous header's value.
		p.token = append(p.token[:0], c)
		p.state = stateHeaderValue
		return Indeterminate

	case stateHeaderName:
		if c == ':' {
			req.Headers = append(req.Headers, Header{Name: string(p.token)})
			p.token = p.token[:0]
			p.state = stateSpaceBeforeHeaderValue
			return Indeterminate
		}
		if !isToken(c) {
			return Bad
		}
		p.token = append(p.token, c)
		return Indeterminate

	case stateSpaceBeforeHeaderValue:
		return p.expect(c, ' ', stateHeaderValue)

	case stateHeaderValue:
		if c == '\r' {
			last := &req.Headers[len(req.Headers)-1]
			last.Value += string(p.token)
			p.token = p.token[:0]
			p.state = stateExpectingNewline2
			return Indeterminate
		}
		if isCTL(c) {
			return Bad
		}
		p.token = append(p.token, c)
		return Indeterminate

	case stateExpectingNewline2:
		return p.expect(c, '\n', stateHeaderLineStart)

	case stateExpectingNewline3:
		if c == '\n' {
			return Good
		}
		return Bad

	default:
		return Bad
	}
}

func (p *RequestParser) expect(c, want byte, next parserState) Result {
	if c != want {
		return Bad
	}
	p.state = next
	return Indeterminate
}

// isChar reports whether c is a 7-bit ASCII byte.
func isChar(c byte) bool {
	return c <= 127
}

// isCTL reports whether c is a control character.
func isCTL(c byte) bool {
	return c <= 31 || c == 127
}

func isTSpecial(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']',
		'?', '=', '{', '}', ' ', '\t':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isToken reports whether c may appear in a method or header name.
func isToken(c byte) bool {
	return isChar(c) && !isCTL(c) && !isTSpecial(c)
}
