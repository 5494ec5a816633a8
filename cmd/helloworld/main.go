// Command helloworld runs the fake hello-world backend as an HTTP server and
// drives the message store from the command line.
//
// Usage:
//
//	helloworld serve   [-addr :8080]
//	helloworld list    [-mock] [-json]
//	helloworld get     [-mock] [-json] ID
//	helloworld create  [-mock] [-json] NAME
//	helloworld delete  [-mock] ID
//	helloworld health  [-mock] [-json]
//	helloworld watch   [-base-url URL] [-json]
//
// Configuration comes from the environment (see internal/config). With
// -mock, or ENABLE_MOCK=true, API calls are answered in-process by a fresh
// fake backend instead of going over the network. watch always needs a
// running server, since the change feed is a websocket.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/R3E-Network/greeter/internal/config"
	"github.com/R3E-Network/greeter/internal/logging"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := logging.New("helloworld", cfg.Log.Level, cfg.Log.Format)
	logger.SetOutput(stderr)

	switch cmd := args[0]; cmd {
	case "serve":
		return runServe(ctx, cfg, logger, args[1:], stderr)
	case "watch":
		return runWatch(ctx, cfg, logger, args[1:], stdout, stderr)
	case "list", "get", "create", "delete", "health":
		return runClient(ctx, cfg, logger, cmd, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: helloworld <command> [flags] [args]

Commands:
  serve    Run the fake backend over HTTP
  list     List messages
  get      Show one message by ID
  create   Create a message for NAME
  delete   Delete a message by ID
  health   Query the backend health endpoint
  watch    Follow creates and deletes on a running server

Run "helloworld <command> -h" for command flags.
`)
}
