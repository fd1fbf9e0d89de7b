package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kikuomax/tweetscape-streams/internal/config"
	"github.com/kikuomax/tweetscape-streams/internal/flagx"
	"github.com/kikuomax/tweetscape-streams/internal/indexer"
)

func main() {
	command, args := flagx.SplitCommand(os.Args[1:])
	if command == "" {
		fmt.Fprint(os.Stderr, indexer.Usage)
		os.Exit(2)
	}

	cfg := config.LoadConfig(args)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app := indexer.NewApp(cfg)
	err := app.Run(ctx, command, args)
	if cerr := app.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
