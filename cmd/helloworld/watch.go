package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/R3E-Network/greeter/internal/config"
	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/logging"
	helloworldclient "github.com/R3E-Network/greeter/services/helloworld/client"
	helloworldstore "github.com/R3E-Network/greeter/services/helloworld/store"
)

// runWatch loads the list once, then follows the server's change feed and
// folds every change into the store, printing each one as it lands.
func runWatch(ctx context.Context, cfg *config.Config, logger *logging.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baseURL := fs.String("base-url", cfg.API.BaseURL, "API base URL of a running server")
	asJSON := fs.Bool("json", false, "print changes as JSON lines")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	feed, err := helloworldclient.NewFeed(*baseURL, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := helloworldstore.New(newService(cfg, logger, clientOptions{baseURL: *baseURL}), logger)
	if err := store.FetchMessages(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", helloworldstore.ErrorMessage(err))
		return 1
	}

	out := printer{w: stdout, json: *asJSON}
	if !out.json {
		fmt.Fprintf(stdout, "watching %s (%d messages)\n", feed.URL(), store.MessageCount())
		count := store.MessageCount()
		store.OnChange(func(st helloworldstore.State) {
			if len(st.Messages) != count {
				count = len(st.Messages)
				fmt.Fprintf(stdout, "%d messages\n", count)
			}
		})
	}

	err = feed.Watch(ctx, func(c message.Change) {
		if err := out.change(c); err != nil {
			logger.WithError(err).Warn("print change")
		}
		store.ApplyChange(c)
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", helloworldstore.ErrorMessage(err))
		return 1
	}
	return 0
}

func (p printer) change(c message.Change) error {
	if p.json {
		return p.encodeLine(c)
	}
	_, err := fmt.Fprintf(p.w, "%s %d %s (%s)\n", c.Type, c.Message.ID, c.Message.Message, c.Timestamp.Format(time.RFC3339))
	return err
}
