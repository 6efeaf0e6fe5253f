package node

import (
	"github.com/fzft/go-mock-httpd/log"
	"github.com/fzft/go-mock-httpd/parser"
	"github.com/indigo-web/utils/strcomp"
	"go.uber.org/zap"
)

// Handler answers one request. It runs on a worker goroutine and must not
// close the connection; the server does that once Handle returns.
type Handler interface {
	Handle(c Conn, p *parser.Parser) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(c Conn, p *parser.Parser) error

func (f HandlerFunc) Handle(c Conn, p *parser.Parser) error {
	return f(c, p)
}

// DefaultHandler answers every request with the canned 200. It does not look
// at p.Complete(): any bytes read at all get a response.
type DefaultHandler struct{}

func (DefaultHandler) Handle(c Conn, p *parser.Parser) error {
	if v, ok := p.Request().HeaderFold("Connection"); ok && strcomp.EqualFold(v, "keep-alive") {
		log.Logger.Debug("keep-alive requested, closing anyway", zap.Int("fd", c.Fd()))
	}
	return SendResponse(c)
}
