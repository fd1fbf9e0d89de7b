// Package credential wraps remote API calls with a single token refresh
// and retry on authorization failure.
package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kikuomax/tweetscape-streams/internal/logging"
	"github.com/kikuomax/tweetscape-streams/internal/models"
	"github.com/kikuomax/tweetscape-streams/internal/twitter"
)

// ErrRefreshDesynced is matched by RefreshDesyncedError.
var ErrRefreshDesynced = errors.New("refresh token out of sync")

// RefreshDesyncedError reports that the token endpoint rejected the stored
// refresh token. The owner has to log in again.
type RefreshDesyncedError struct {
	OwnerID string
	Err     error
}

func (e *RefreshDesyncedError) Error() string {
	return fmt.Sprintf("refresh token of %s may be out of sync, log in again: %v", e.OwnerID, e.Err)
}

func (e *RefreshDesyncedError) Is(target error) bool {
	return target == ErrRefreshDesynced
}

func (e *RefreshDesyncedError) Unwrap() error {
	return e.Err
}

// TokenRefresher exchanges a refresh token for a new token pair.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (*twitter.TokenResponse, error)
}

// SaveFunc persists a refreshed token.
type SaveFunc func(ctx context.Context, token *models.AccessToken) error

// LoadFunc reads the stored token of the client's owner.
type LoadFunc func(ctx context.Context) (*models.AccessToken, error)

// Operation is a remote call authorized with accessToken.
type Operation func(ctx context.Context, accessToken string) error

// AppCredentials identify the application at the token endpoint.
type AppCredentials struct {
	ClientID     string
	ClientSecret string
}

// Client holds the token of one requester. It is not safe for concurrent
// use. Several clients of one requester stay in step through WithStore.
type Client struct {
	app       AppCredentials
	token     models.AccessToken
	refresher TokenRefresher
	save      SaveFunc
	load      LoadFunc
	refreshMu sync.Locker
	logger    logging.Logger
	now       func() time.Time
}

// NewClient returns a client starting from token. save is called with every
// refreshed token before the failed operation is retried.
func NewClient(app AppCredentials, token models.AccessToken, refresher TokenRefresher, save SaveFunc, logger logging.Logger) *Client {
	return &Client{
		app:       app,
		token:     token,
		refresher: refresher,
		save:      save,
		logger:    logger.With("owner_id", token.OwnerID),
		now:       time.Now,
	}
}

// WithStore makes Refresh consult the stored token first. When another
// client has already rotated the refresh token, the stored token is adopted
// instead of calling the token endpoint. mu, when set, is held from the
// reload until the refreshed token is saved.
func (c *Client) WithStore(load LoadFunc, mu sync.Locker) *Client {
	c.load = load
	c.refreshMu = mu
	return c
}

// Token returns the current token.
func (c *Client) Token() models.AccessToken {
	return c.token
}

// Execute runs op. If op fails as unauthorized, the token is refreshed and
// op runs exactly once more. Other errors are returned as is.
func (c *Client) Execute(ctx context.Context, op Operation) error {
	err := op(ctx, c.token.AccessSecret)
	if err == nil || !twitter.IsUnauthorized(err) {
		return err
	}

	c.logger.Info(ctx, "access token rejected, refreshing", "error", err)
	if rerr := c.Refresh(ctx); rerr != nil {
		return rerr
	}
	return op(ctx, c.token.AccessSecret)
}

// Refresh replaces the token with a newer stored one or with a new one from
// the token endpoint, which is then persisted. A rejected refresh token
// yields RefreshDesyncedError.
func (c *Client) Refresh(ctx context.Context) error {
	if c.refreshMu != nil {
		c.refreshMu.Lock()
		defer c.refreshMu.Unlock()
	}

	if c.load != nil {
		stored, err := c.load(ctx)
		if err != nil {
			return fmt.Errorf("reload access token: %w", err)
		}
		if stored.RefreshSecret != c.token.RefreshSecret {
			c.token = *stored
			c.logger.Info(ctx, "adopted token refreshed elsewhere", "token", stored.String())
			return nil
		}
	}

	resp, err := c.refresher.RefreshToken(ctx, c.token.RefreshSecret, c.app.ClientID, c.app.ClientSecret)
	if err != nil {
		if errors.Is(err, twitter.ErrBadRequest) {
			c.logger.Error(ctx, "refresh token rejected, owner has to log in again", "error", err)
			return &RefreshDesyncedError{OwnerID: c.token.OwnerID, Err: err}
		}
		return fmt.Errorf("refresh access token: %w", err)
	}

	refreshed := c.token
	refreshed.AccessSecret = resp.AccessToken
	refreshed.RefreshSecret = resp.RefreshToken
	refreshed.TTL = time.Duration(resp.ExpiresIn) * time.Second
	refreshed.UpdatedAt = c.now().UTC()

	// the endpoint has already rotated the refresh token, so keep the new
	// one in memory even if persisting it fails
	c.token = refreshed
	if c.save != nil {
		if err := c.save(ctx, &refreshed); err != nil {
			return fmt.Errorf("save refreshed token: %w", err)
		}
	}
	c.logger.Debug(ctx, "access token refreshed", "token", refreshed.String())
	return nil
}

// Call is Execute for operations returning a value.
func Call[T any](ctx context.Context, c *Client, fn func(ctx context.Context, accessToken string) (T, error)) (T, error) {
	var out T
	err := c.Execute(ctx, func(ctx context.Context, accessToken string) error {
		v, err := fn(ctx, accessToken)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
