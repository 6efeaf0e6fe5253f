package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fzft/go-mock-httpd/deps/linenoise"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

var (
	CliHistFileEnv     = "HTTPCLI_HISTFILE"
	CliHistFileDefault = ".httpcli_history"
	CliDefaultTimeout  = 5 * time.Second
)

var ErrEmptyRequest = errors.New("empty request line")

type CliConnInfo struct {
	hostIp   string
	hostPort int
}

func (ci CliConnInfo) addr() string {
	return net.JoinHostPort(ci.hostIp, strconv.Itoa(ci.hostPort))
}

// Cli sends one HTTP/1.1 request per input line and prints the raw response.
type Cli struct {
	connInfo CliConnInfo
	timeout  time.Duration
	prompt   string
}

func NewCli(host string, port int) *Cli {
	ci := CliConnInfo{hostIp: host, hostPort: port}
	return &Cli{
		connInfo: ci,
		timeout:  CliDefaultTimeout,
		prompt:   ci.addr() + "> ",
	}
}

// BuildRequest turns "PATH", "METHOD PATH" or "METHOD PATH VERSION" into a
// raw request with a Host header and a terminating blank line.
func BuildRequest(line, host string) (string, error) {
	fields := strings.Fields(line)
	method, path, version := "GET", "/", "HTTP/1.1"

	switch len(fields) {
	case 0:
		return "", ErrEmptyRequest
	case 1:
		path = fields[0]
	case 2:
		method, path = strings.ToUpper(fields[0]), fields[1]
	case 3:
		method, path, version = strings.ToUpper(fields[0]), fields[1], fields[2]
	default:
		return "", fmt.Errorf("expected [METHOD] PATH [VERSION], got %d words", len(fields))
	}

	return fmt.Sprintf("%s %s %s\r\nHost: %s\r\nUser-Agent: httpcli\r\n\r\n", method, path, version, host), nil
}

// Send writes raw and reads until the server closes the connection.
func (c *Cli) Send(raw string) (string, error) {
	conn, err := net.DialTimeout("tcp", c.connInfo.addr(), c.timeout)
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", c.connInfo.addr(), err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", err
	}
	if _, err := io.WriteString(conn, raw); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		return string(resp), fmt.Errorf("receive: %w", err)
	}
	return string(resp), nil
}

// Run reads from a line editor when in is a terminal, plain lines otherwise.
func (c *Cli) Run(in *os.File, out io.Writer) error {
	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		return c.interactive(out)
	}
	return c.batch(in, out)
}

func (c *Cli) batch(r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !c.eval(scanner.Text(), out) {
			return nil
		}
	}
	return scanner.Err()
}

func (c *Cli) interactive(out io.Writer) error {
	line := linenoise.New()
	defer line.Close()

	history := historyFile()
	if history != "" {
		_ = line.HistoryLoad(history)
	}

	for {
		input, err := line.Prompt(c.prompt)
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				break
			}
			return err
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if !c.eval(input, out) {
			break
		}
	}

	if history != "" {
		return line.HistorySave(history)
	}
	return nil
}

// eval handles one input line. It returns false when the session should end.
func (c *Cli) eval(input string, out io.Writer) bool {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "":
		return true
	case "quit", "exit":
		return false
	case "clear":
		_ = linenoise.ClearScreen(out)
		return true
	case "help":
		fmt.Fprintln(out, "[METHOD] PATH [VERSION]  send a request, e.g. GET /index.html")
		fmt.Fprintln(out, "clear                    clear the screen")
		fmt.Fprintln(out, "quit                     leave")
		return true
	}

	raw, err := BuildRequest(input, c.connInfo.addr())
	if err != nil {
		fmt.Fprintf(out, "(error) %v\n", err)
		return true
	}
	resp, err := c.Send(raw)
	if err != nil {
		fmt.Fprintf(out, "(error) %v\n", err)
		return true
	}
	fmt.Fprintln(out, resp)
	return true
}

func historyFile() string {
	if p := os.Getenv(CliHistFileEnv); p != "" {
		if p == "/dev/null" {
			return ""
		}
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, CliHistFileDefault)
}
