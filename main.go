package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fzft/go-mock-httpd/log"
	"github.com/fzft/go-mock-httpd/node"
	"go.uber.org/zap"
)

func main() {
	cfg := configFromArgs(os.Args[1:], os.Getenv)

	if err := log.Init(log.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Logger.Info("Starting server",
		zap.Int("port", cfg.Port),
		zap.Int("threads", cfg.Threads),
		zap.String("version", Version()),
	)

	s := node.NewServer(cfg)
	if err := s.Run(); err != nil {
		log.Log(log.FATAL, "Server crashed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

// configFromArgs reads `[port] [threadCount]` and the HTTPD_LOG_* variables.
func configFromArgs(args []string, getenv func(string) string) node.Config {
	cfg := node.DefaultConfig()
	if len(args) > 0 {
		cfg.Port = atoi(args[0])
	}
	if len(args) > 1 {
		cfg.Threads = atoi(args[1])
	}

	if v := getenv("HTTPD_LOG_LEVEL"); v != "" {
		if level, err := log.ParseLevel(v); err == nil {
			cfg.LogLevel = level
		} else {
			fmt.Fprintf(os.Stderr, "ignoring HTTPD_LOG_LEVEL: %v\n", err)
		}
	}
	cfg.LogFile = getenv("HTTPD_LOG_FILE")
	return cfg
}

// atoi parses the leading decimal number of s the way C's atoi does:
// leading blanks and a sign are allowed, anything unparsable yields 0.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t\n\v\f\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
