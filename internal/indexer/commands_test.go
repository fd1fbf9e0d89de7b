package indexer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikuomax/tweetscape-streams/internal/auth"
	"github.com/kikuomax/tweetscape-streams/internal/common"
	"github.com/kikuomax/tweetscape-streams/internal/config"
	"github.com/kikuomax/tweetscape-streams/internal/logging"
)

func newTestApp(out *bytes.Buffer) *App {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JWTSecret = "k"
	return &App{config: cfg, logger: logging.NewNop(), out: out}
}

func TestParseCommandFlags_IgnoresConfigFlags(t *testing.T) {
	f, err := parseCommandFlags("sync", []string{"-d", "postgres://x", "-requester", "r1", "-n", "50", "-account=a1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", f.requester)
	assert.Equal(t, "a1", f.account)
	assert.Equal(t, 24*time.Hour, f.ttl)
}

func TestRun_Token(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(&out)

	err := app.Run(context.Background(), "token", []string{"-subject", "req", "-ttl", "1h"})
	require.NoError(t, err)

	sub, err := auth.SubjectFromToken(strings.TrimSpace(out.String()), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "req", sub)
}

func TestRun_MissingFlags(t *testing.T) {
	app := newTestApp(&bytes.Buffer{})

	err := app.Run(context.Background(), "token", nil)
	assert.ErrorIs(t, err, common.ErrorInvalidInput)

	err = app.Run(context.Background(), "sync", []string{"-requester", "r"})
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
	assert.Contains(t, err.Error(), "-account")

	err = app.Run(context.Background(), "track", nil)
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
}

func TestRun_UnknownCommand(t *testing.T) {
	app := newTestApp(&bytes.Buffer{})
	err := app.Run(context.Background(), "rebuild", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
