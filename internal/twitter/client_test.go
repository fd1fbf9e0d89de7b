package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, TokenURL: srv.URL + "/2/oauth2/token"})
	require.NoError(t, err)
	return c
}

func TestClient_Timeline_DecodesPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/42/tweets", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		assert.Equal(t, "100", r.URL.Query().Get("since_id"))
		assert.Equal(t, "p2", r.URL.Query().Get("pagination_token"))
		assert.NotEmpty(t, r.URL.Query().Get("expansions"))
		_, _ = w.Write([]byte(`{
			"data": [{"id": "130", "text": "a"}, {"id": "120", "text": "b"}],
			"includes": {"users": [{"id": "42", "username": "Alice"}], "media": [{"media_key": "3_1", "type": "photo"}]},
			"meta": {"result_count": 2, "next_token": "p3"}
		}`))
	})

	page, err := c.Timeline(context.Background(), "tok", TimelineRequest{
		AccountID:       "42",
		SinceID:         "100",
		PaginationToken: "p2",
		MaxResults:      5,
	})
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, "130", page.Posts[0].ID())
	assert.Equal(t, "120", page.Posts[1].ID())
	assert.Equal(t, "p3", page.NextToken)
	require.Len(t, page.Includes.Users, 1)
	require.Len(t, page.Includes.Media, 1)
	assert.NotEmpty(t, page.Raw)
}

func TestClient_Timeline_OmitsEmptyBounds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasSince := r.URL.Query()["since_id"]
		_, hasToken := r.URL.Query()["pagination_token"]
		assert.False(t, hasSince)
		assert.False(t, hasToken)
		_, _ = w.Write([]byte(`{"meta": {"result_count": 0}}`))
	})

	page, err := c.Timeline(context.Background(), "tok", TimelineRequest{AccountID: "42", MaxResults: 5})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Empty(t, page.NextToken)
}

func TestClient_Timeline_RejectsMalformedPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"text": "no id"}], "meta": {}}`))
	})

	_, err := c.Timeline(context.Background(), "tok", TimelineRequest{AccountID: "42", MaxResults: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPage))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, target: ErrUnauthorized},
		{name: "bad request", status: http.StatusBadRequest, target: ErrBadRequest},
		{name: "rate limited", status: http.StatusTooManyRequests, target: ErrRateLimited},
		{name: "not found", status: http.StatusNotFound, target: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"title": "Failure", "detail": "details"}`))
			})
			_, err := c.Timeline(context.Background(), "tok", TimelineRequest{AccountID: "42", MaxResults: 5})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))

			var httpErr *HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, "details", httpErr.Detail)
		})
	}
}

func TestClient_RateLimitReset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", "1654041600")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Timeline(context.Background(), "tok", TimelineRequest{AccountID: "42", MaxResults: 5})
	require.ErrorIs(t, err, ErrRateLimited)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, time.Unix(1654041600, 0).UTC(), httpErr.ResetAt)
}

func TestClient_ServerErrorIsNotUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Timeline(context.Background(), "tok", TimelineRequest{AccountID: "42", MaxResults: 5})
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
	assert.False(t, errors.Is(err, ErrBadRequest))
}

func TestClient_UserByUsername(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/users/by/username/alice":
			_, _ = w.Write([]byte(`{"data": {"id": "42", "username": "Alice", "name": "Alice A"}}`))
		default:
			_, _ = w.Write([]byte(`{"errors": [{"title": "Not Found Error", "detail": "Could not find user"}]}`))
		}
	})

	obj, err := c.UserByUsername(context.Background(), "tok", "alice")
	require.NoError(t, err)
	assert.Equal(t, "42", obj.ID())
	assert.Equal(t, "Alice", obj.String("username"))

	_, err = c.UserByUsername(context.Background(), "tok", "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_RefreshToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2/oauth2/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		_, _ = w.Write([]byte(`{"token_type": "bearer", "access_token": "new-access", "refresh_token": "new-refresh", "expires_in": 7200, "scope": "tweet.read"}`))
	})

	tok, err := c.RefreshToken(context.Background(), "old-refresh", "client-id", "client-secret")
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok.AccessToken)
	assert.Equal(t, "new-refresh", tok.RefreshToken)
	assert.Equal(t, 7200, tok.ExpiresIn)
}

func TestClient_RefreshToken_BadRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_request", "error_description": "Value passed for the token was invalid."}`))
	})

	_, err := c.RefreshToken(context.Background(), "stale", "client-id", "client-secret")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadRequest))

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "invalid_request", httpErr.Title)
	assert.Contains(t, httpErr.Error(), "Value passed for the token was invalid.")
}

func TestPageValidator(t *testing.T) {
	v, err := NewPageValidator()
	require.NoError(t, err)

	require.NoError(t, v.Validate([]byte(`{"data": [{"id": "1"}], "meta": {"result_count": 1}}`)))
	assert.ErrorIs(t, v.Validate([]byte(`{"data": []}`)), ErrMalformedPage)
	assert.ErrorIs(t, v.Validate([]byte(`{"meta": {}, "includes": {"media": [{"type": "photo"}]}}`)), ErrMalformedPage)
	assert.ErrorIs(t, v.Validate([]byte(`not json`)), ErrMalformedPage)
}

func TestClient_ResponseBodyIsCapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	c.maxBody = 32

	_, err := c.UserByUsername(context.Background(), "tok", "alice")
	require.ErrorIs(t, err, ErrResponseTooLarge)

	c.maxBody = 64
	_, err = c.UserByUsername(context.Background(), "tok", "alice")
	assert.NotErrorIs(t, err, ErrResponseTooLarge)
}
