package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fzft/go-mock-httpd/cmd"
)

// usage: httpcli [host] [port]
func main() {
	host, port := "127.0.0.1", 8080
	if len(os.Args) > 1 {
		host = os.Args[1]
	}
	if len(os.Args) > 2 {
		p, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad port %q\n", os.Args[2])
			os.Exit(1)
		}
		port = p
	}

	if err := cmd.NewCli(host, port).Run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
