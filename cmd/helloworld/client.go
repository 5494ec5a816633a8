package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/R3E-Network/greeter/internal/config"
	"github.com/R3E-Network/greeter/internal/domain/message"
	"github.com/R3E-Network/greeter/internal/httputil"
	"github.com/R3E-Network/greeter/internal/logging"
	helloworldclient "github.com/R3E-Network/greeter/services/helloworld/client"
	helloworldmock "github.com/R3E-Network/greeter/services/helloworld/mock"
	helloworldstore "github.com/R3E-Network/greeter/services/helloworld/store"
)

type clientOptions struct {
	mock    bool
	baseURL string
	json    bool
}

func runClient(ctx context.Context, cfg *config.Config, logger *logging.Logger, cmd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts clientOptions
	fs.BoolVar(&opts.mock, "mock", cfg.Mock.Enabled, "answer API calls with the in-process fake backend")
	fs.StringVar(&opts.baseURL, "base-url", cfg.API.BaseURL, "API base URL")
	fs.BoolVar(&opts.json, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	svc := newService(cfg, logger, opts)
	store := helloworldstore.New(svc, logger)
	out := printer{w: stdout, json: opts.json}

	var err error
	switch cmd {
	case "list":
		if err = store.FetchMessages(ctx); err == nil {
			err = out.messages(store.Messages())
		}
	case "get":
		var id int
		if id, err = message.ParseID(fs.Arg(0)); err == nil {
			var msg *message.Message
			if msg, err = store.FetchMessage(ctx, id); err == nil {
				err = out.messages([]message.Message{*msg})
			}
		}
	case "create":
		var msg *message.Message
		if msg, err = store.CreateMessage(ctx, strings.Join(fs.Args(), " ")); err == nil {
			err = out.messages([]message.Message{*msg})
		}
	case "delete":
		var id int
		if id, err = message.ParseID(fs.Arg(0)); err == nil {
			if err = store.DeleteMessage(ctx, id); err == nil {
				fmt.Fprintf(stdout, "Message %d deleted\n", id)
			}
		}
	case "health":
		var status *helloworldclient.HealthStatus
		if status, err = svc.Health(ctx); err == nil {
			err = out.health(status)
		}
	}

	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", helloworldstore.ErrorMessage(err))
		return 1
	}
	return 0
}

// newService builds service -> transport, resolving in-process when mock
// mode is on.
func newService(cfg *config.Config, logger *logging.Logger, opts clientOptions) *helloworldclient.Service {
	var transport http.RoundTripper
	if opts.mock {
		backend := helloworldmock.New(helloworldmock.Config{
			Prefix: cfg.Mock.Prefix,
			Logger: mockLogger(cfg),
		})
		transport = backend.RoundTripper(nil)
	}

	client := httputil.NewClient(httputil.ClientConfig{
		BaseURL:    opts.baseURL,
		Timeout:    cfg.API.Timeout,
		MaxRetries: retries(cfg.API.RetryAttempts),
		Transport:  transport,
		Logger:     logger,
	})
	return helloworldclient.New(client, logger)
}

// retries maps the configured attempt count onto ClientConfig, where zero
// means "use the default" and a negative value disables retries.
func retries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

type printer struct {
	w    io.Writer
	json bool
}

func (p printer) messages(msgs []message.Message) error {
	if p.json {
		return p.encode(msgs)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMESSAGE\tCREATED")
	for _, m := range msgs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Name, m.Message, m.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (p printer) health(h *helloworldclient.HealthStatus) error {
	if p.json {
		return p.encode(h)
	}
	_, err := fmt.Fprintf(p.w, "%s (version %s, %s)\n", h.Status, h.Version, h.Timestamp.Format(time.RFC3339))
	return err
}

// encodeLine writes v as one compact JSON line.
func (p printer) encodeLine(v any) error {
	return json.NewEncoder(p.w).Encode(v)
}

func (p printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
