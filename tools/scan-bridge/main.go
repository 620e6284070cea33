package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/services/console/checkout"
)

func main() {
	var baseURL, token, terminal string
	flag.StringVar(&baseURL, "url", envOr("CONSOLE_URL", "http://localhost:8085"), "console base URL")
	flag.StringVar(&token, "token", os.Getenv("CONSOLE_TOKEN"), "cashier access token")
	flag.StringVar(&terminal, "terminal", os.Getenv("TERMINAL_ID"), "terminal id for the checkout session")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	if token == "" {
		logger.Fatal("CONSOLE_TOKEN must be set or provided via -token")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := newConsoleClient(baseURL, token, terminal)
	if err := bridge(ctx, checkout.NewLineFeed(os.Stdin), client, os.Stdout, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("scan bridge stopped", zap.Error(err))
	}
}

// bridge forwards every decoded scan to the console until input ends.
func bridge(ctx context.Context, feed *checkout.LineFeed, client *consoleClient, out io.Writer, logger *zap.Logger) error {
	for {
		cartID, err := checkout.NewScanSession(feed.Scanner(), logger).Await(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		view, err := client.Lookup(ctx, cartID)
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			fmt.Fprintf(out, "cart %s: %s (%s)\n", cartID, apiErr.Message, apiErr.Code)
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "cart %s: %d items, total %s %s [%s]\n",
				view.CartID, len(view.Items), view.GrandTotal, view.Currency, view.State)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
