package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/xaitan80/staticserve/internal/probe"
)

// probe sends one request line to the server and prints the raw response
// line by line.
func main() {
	addr := flag.String("addr", "localhost:8080", "Server address")
	method := flag.String("method", "GET", "Request method")
	timeout := flag.Duration("timeout", 5*time.Second, "Give up after this long")
	flag.Parse()

	path := "/"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	lines, err := probe.Stream(ctx, *addr, probe.RequestLine(*method, path))
	if err != nil {
		fmt.Println("request error:", err)
		os.Exit(1)
	}

	first := true
	for line := range lines {
		if first {
			first = false
			if strings.Contains(line, " 200 ") {
				color.Green("%s", line)
			} else {
				color.Yellow("%s", line)
			}
			continue
		}
		fmt.Println(line)
	}
	if first {
		color.Red("connection closed without a response")
		os.Exit(1)
	}
}
