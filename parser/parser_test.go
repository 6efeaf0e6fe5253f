package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompleteRequest(t *testing.T) {
	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"
	p := New()

	n := p.Parse([]byte(raw))

	assert.Equal(t, len(raw), n)
	assert.True(t, p.Complete())
	assert.Equal(t, StateBody, p.State())
	assert.Equal(t, "GET", p.Method())
	assert.Equal(t, "/index.html", p.Path())
	assert.Equal(t, "HTTP/1.1", p.Version())
	assert.Equal(t, "example.com", p.Header("Host"))
	assert.Equal(t, "", p.Header("Accept"))
}

func TestParseWithoutBlankLine(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n"
	p := New()

	n := p.Parse([]byte(raw))

	assert.Equal(t, len(raw), n)
	assert.False(t, p.Complete())
	assert.Equal(t, StateHeaderKey, p.State())
	assert.Equal(t, "GET", p.Method())
	assert.Equal(t, "/", p.Path())
	assert.Equal(t, "HTTP/1.1", p.Version())
}

func TestParseTruncated(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nContent-Type: text/plain\r\nX-Trace: abc\r\n\r\n"

	for i := 0; i < len(raw)-1; i++ {
		p := New()
		var n int
		assert.NotPanics(t, func() { n = p.Parse([]byte(raw[:i])) }, "prefix %d", i)
		assert.LessOrEqual(t, n, i)
		assert.False(t, p.Complete(), "prefix %q", raw[:i])
	}
}

func TestParseStopsMidToken(t *testing.T) {
	p := New()

	n := p.Parse([]byte("GET /pa"))

	assert.Equal(t, 4, n)
	assert.Equal(t, StatePath, p.State())
	assert.Equal(t, "GET", p.Method())
	assert.Equal(t, "", p.Path())
}

func TestParseHeaderValueWhitespace(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nA: \t  spaced value \r\nB:tight\r\nC:\r\n\r\n"
	p := New()
	p.Parse([]byte(raw))

	require.True(t, p.Complete())
	assert.Equal(t, "spaced value ", p.Header("A"))
	assert.Equal(t, "tight", p.Header("B"))
	assert.Equal(t, "", p.Header("C"))
	_, ok := p.Request().Headers["C"]
	assert.True(t, ok)
}

func TestParseHeaderLastWriteWins(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nAccept: a\r\naccept: lower\r\nAccept: b\r\n\r\n"
	p := New()
	p.Parse([]byte(raw))

	require.True(t, p.Complete())
	assert.Equal(t, "b", p.Header("Accept"))
	assert.Equal(t, "lower", p.Header("accept"))
	assert.Len(t, p.Request().Headers, 2)
}

func TestParseIgnoresBody(t *testing.T) {
	head := "POST /form HTTP/1.1\r\nContent-Length: 7\r\n\r\n"
	p := New()

	n := p.Parse([]byte(head + "a=b:c=d"))

	assert.True(t, p.Complete())
	assert.Equal(t, len(head), n)
	assert.Equal(t, "7", p.Header("Content-Length"))
	assert.Len(t, p.Request().Headers, 1)
}

func TestParseNoHeaders(t *testing.T) {
	p := New()
	p.Parse([]byte("HEAD / HTTP/1.0\r\n\r\n"))

	assert.True(t, p.Complete())
	assert.Equal(t, "HEAD", p.Method())
	assert.Equal(t, "HTTP/1.0", p.Version())
	assert.Empty(t, p.Request().Headers)
}

func TestParseGeneratedHeaders(t *testing.T) {
	want := make(map[string]string)
	var b strings.Builder
	b.WriteString("GET /generated HTTP/1.1\r\n")
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("X-%s", uniuri.NewLen(12))
		value := uniuri.New()
		want[key] = value
		b.WriteString(key + ": " + value + "\r\n")
	}
	b.WriteString("\r\n")

	p := New()
	p.Parse([]byte(b.String()))

	require.True(t, p.Complete())
	assert.Equal(t, want, p.Request().Headers)
}

func TestRequestHeaderFold(t *testing.T) {
	p := New()
	p.Parse([]byte("GET / HTTP/1.1\r\nConnection: keep-alive\r\n\r\n"))
	req := p.Request()

	v, ok := req.HeaderFold("connection")
	assert.True(t, ok)
	assert.Equal(t, "keep-alive", v)
	assert.Equal(t, "", req.Header("connection"))

	_, ok = req.HeaderFold("Upgrade")
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "HEADER_VAL", StateHeaderValue.String())
	assert.Equal(t, "BODY", StateBody.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
