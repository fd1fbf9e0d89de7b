package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/kikuomax/tweetscape-streams/internal/auth"
	"github.com/kikuomax/tweetscape-streams/internal/common"
	"github.com/kikuomax/tweetscape-streams/internal/flagx"
	"github.com/kikuomax/tweetscape-streams/internal/httpapi"
)

var ErrUnknownCommand = errors.New("unknown command")

// Usage lists the commands.
const Usage = `usage: indexer <command> [flags]

commands:
  sync      -requester ID -account ID   sync one tracked account
  sync-all                              sync every tracked account
  track     -requester ID -username U   start tracking an account
  serve                                 run the HTTP trigger API
  token     -subject S [-ttl 24h]       print a bearer token for the API
`

type commandFlags struct {
	requester string
	account   string
	username  string
	subject   string
	ttl       time.Duration
}

var commandFlagNames = []string{"-requester", "-account", "-username", "-subject", "-ttl"}

func parseCommandFlags(name string, args []string) (*commandFlags, error) {
	f := &commandFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.requester, "requester", "", "requester account id (token owner)")
	fs.StringVar(&f.account, "account", "", "tracked account id")
	fs.StringVar(&f.username, "username", "", "username to track")
	fs.StringVar(&f.subject, "subject", "", "token subject")
	fs.DurationVar(&f.ttl, "ttl", 24*time.Hour, "token validity")
	if err := fs.Parse(flagx.FilterArgs(args, commandFlagNames)); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
	}
	return f, nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: -%s is required", common.ErrorInvalidInput, name)
	}
	return nil
}

// Run executes one command with the flags found in args.
func (app *App) Run(ctx context.Context, command string, args []string) error {
	f, err := parseCommandFlags(command, args)
	if err != nil {
		return err
	}

	switch command {
	case "token":
		return app.runToken(f)
	case "sync":
		return app.runSync(ctx, f)
	case "sync-all":
		return app.runSyncAll(ctx)
	case "track":
		return app.runTrack(ctx, f)
	case "serve":
		return app.runServe(ctx)
	default:
		return fmt.Errorf("%w %q\n%s", ErrUnknownCommand, command, Usage)
	}
}

func (app *App) runToken(f *commandFlags) error {
	if err := requireFlag("subject", f.subject); err != nil {
		return err
	}
	token, err := auth.GenerateToken(f.subject, []byte(app.config.JWTSecret), f.ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.out, token)
	return err
}

func (app *App) runSync(ctx context.Context, f *commandFlags) error {
	if err := errors.Join(requireFlag("requester", f.requester), requireFlag("account", f.account)); err != nil {
		return err
	}
	s, err := app.initSyncer(ctx)
	if err != nil {
		return err
	}
	run, err := s.SyncAccount(ctx, f.requester, f.account)
	if run != nil {
		app.print(run)
	}
	return err
}

func (app *App) runSyncAll(ctx context.Context) error {
	s, err := app.initSyncer(ctx)
	if err != nil {
		return err
	}
	runs, err := s.SyncAll(ctx)
	app.print(runs)
	return err
}

func (app *App) runTrack(ctx context.Context, f *commandFlags) error {
	if err := errors.Join(requireFlag("requester", f.requester), requireFlag("username", f.username)); err != nil {
		return err
	}
	s, err := app.initSyncer(ctx)
	if err != nil {
		return err
	}
	tracked, created, err := s.Track(ctx, f.requester, f.username)
	if err != nil {
		return err
	}
	app.logger.Info(ctx, "tracked", "account", tracked.String(), "created", created)
	app.print(map[string]any{"id": tracked.ID, "username": tracked.Username, "created": created})
	return nil
}

func (app *App) runServe(ctx context.Context) error {
	s, err := app.initSyncer(ctx)
	if err != nil {
		return err
	}
	return httpapi.NewServer(app.config.ListenAddr, s, app.logger, app.config.JWTSecret).Run(ctx)
}

func (app *App) print(v any) {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		app.logger.Warn(context.Background(), "could not print result", "error", err)
	}
}
