package node

import (
	"fmt"
	"strconv"

	"github.com/indigo-web/utils/uf"
)

const okBody = "Hello World"

var okResponse = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: " + strconv.Itoa(len(okBody)) + "\r\n" +
	"Connection: close\r\n" +
	"\r\n" +
	okBody

// SendResponse writes the canned 200 response.
func SendResponse(c Conn) error {
	return c.Write(uf.S2B(okResponse))
}

// SendErrorResponse writes a minimal HTML error page with a matching status line.
func SendErrorResponse(c Conn, code int, message string) error {
	return c.Write(errorResponse(code, message))
}

func errorResponse(code int, message string) []byte {
	body := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", code, message)
	return []byte(fmt.Sprintf("HTTP/1.1 %d %s\r\n"+
		"Content-Type: text/html\r\n"+
		"Content-Length: %d\r\n"+
		"Connection: close\r\n"+
		"\r\n%s", code, message, len(body), body))
}
