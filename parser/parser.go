// Package parser implements the request-line and header state machine used by
// the server. It recognizes
//
//	METHOD SP PATH SP VERSION CRLF (Key: Value CRLF)* CRLF
//
// and stops quietly when the buffer runs out; bodies are not parsed.
package parser

import (
	"bytes"

	"github.com/indigo-web/utils/strcomp"
)

// State is the position of the parser within a request.
type State uint8

const (
	StateMethod State = iota
	StatePath
	StateVersion
	StateHeaderKey
	StateHeaderValue
	// StateBody is terminal: entering it completes the request. No body bytes are consumed.
	StateBody
)

func (s State) String() string {
	switch s {
	case StateMethod:
		return "METHOD"
	case StatePath:
		return "PATH"
	case StateVersion:
		return "VERSION"
	case StateHeaderKey:
		return "HEADER_KEY"
	case StateHeaderValue:
		return "HEADER_VAL"
	case StateBody:
		return "BODY"
	default:
		return "UNKNOWN"
	}
}

var crlf = []byte("\r\n")

// Request is the parsed request line and header block.
type Request struct {
	Method  string
	Path    string
	Version string
	// Headers keys are case-sensitive; a repeated key keeps the last value.
	Headers map[string]string
}

// Header returns the value stored under exactly key, or "".
func (r Request) Header(key string) string {
	return r.Headers[key]
}

// HeaderFold looks a header up ignoring ASCII case. When several keys fold to
// the same name the result is any one of them.
func (r Request) HeaderFold(key string) (string, bool) {
	if v, ok := r.Headers[key]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strcomp.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Parser is not safe for concurrent use. Each connection task owns its own.
type Parser struct {
	state     State
	complete  bool
	req       Request
	headerKey string
}

func New() *Parser {
	return &Parser{
		req: Request{Headers: make(map[string]string)},
	}
}

// Parse advances the state machine over data and returns the number of bytes
// consumed. A token whose delimiter is not in data is left unconsumed.
func (p *Parser) Parse(data []byte) int {
	pos := 0
	for !p.complete {
		if p.state != StateBody && pos >= len(data) {
			break
		}

		n, ok := p.step(data[pos:])
		if !ok {
			break
		}
		pos += n
	}
	return pos
}

// step runs the transition for the current state. ok is false when the state
// needs bytes that are not there yet.
func (p *Parser) step(data []byte) (n int, ok bool) {
	switch p.state {
	case StateMethod:
		return p.parseMethod(data)
	case StatePath:
		return p.parsePath(data)
	case StateVersion:
		return p.parseVersion(data)
	case StateHeaderKey:
		return p.parseHeaderKey(data)
	case StateHeaderValue:
		return p.parseHeaderValue(data)
	default:
		return p.parseBody(data)
	}
}

func (p *Parser) parseMethod(data []byte) (int, bool) {
	sp := bytes.IndexByte(data, ' ')
	if sp < 0 {
		return 0, false
	}
	p.req.Method = string(data[:sp])
	p.state = StatePath
	return sp + 1, true
}

func (p *Parser) parsePath(data []byte) (int, bool) {
	sp := bytes.IndexByte(data, ' ')
	if sp < 0 {
		return 0, false
	}
	p.req.Path = string(data[:sp])
	p.state = StateVersion
	return sp + 1, true
}

func (p *Parser) parseVersion(data []byte) (int, bool) {
	end := bytes.Index(data, crlf)
	if end < 0 {
		return 0, false
	}
	p.req.Version = string(data[:end])
	p.state = StateHeaderKey
	return end + len(crlf), true
}

func (p *Parser) parseHeaderKey(data []byte) (int, bool) {
	// an empty line where a key was expected ends the header block
	if bytes.HasPrefix(data, crlf) {
		p.state = StateBody
		return len(crlf), true
	}

	colon := bytes.IndexByte(data, ':')
	if colon < 0 {
		return 0, false
	}
	p.headerKey = string(data[:colon])
	p.state = StateHeaderValue
	return colon + 1, true
}

func (p *Parser) parseHeaderValue(data []byte) (int, bool) {
	end := bytes.Index(data, crlf)
	if end < 0 {
		return 0, false
	}

	start := 0
	for start < end && (data[start] == ' ' || data[start] == '\t') {
		start++
	}
	p.req.Headers[p.headerKey] = string(data[start:end])
	p.headerKey = ""
	p.state = StateHeaderKey
	return end + len(crlf), true
}

// parseBody only flags completion, body framing is not implemented.
func (p *Parser) parseBody([]byte) (int, bool) {
	p.complete = true
	return 0, true
}

// Complete reports whether the request line and the blank line closing the
// header block have both been seen.
func (p *Parser) Complete() bool {
	return p.complete
}

func (p *Parser) State() State {
	return p.state
}

func (p *Parser) Method() string {
	return p.req.Method
}

func (p *Parser) Path() string {
	return p.req.Path
}

func (p *Parser) Version() string {
	return p.req.Version
}

// Header returns the value of the header named exactly key, or "" if absent.
func (p *Parser) Header(key string) string {
	return p.req.Header(key)
}

// Request returns what has been parsed so far. The header map is shared with the parser.
func (p *Parser) Request() Request {
	return p.req
}
