// Package twitter is a thin HTTP client for the v2 timeline, user lookup
// and OAuth2 token endpoints.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

const (
	DefaultBaseURL  = "https://api.twitter.com"
	DefaultTokenURL = "https://api.twitter.com/2/oauth2/token"
	DefaultTimeout  = 30 * time.Second

	// MaxResponseBytes caps every response body read from the API.
	MaxResponseBytes = 8 << 20
)

// Options configures a Client. Zero values fall back to the defaults.
type Options struct {
	BaseURL    string
	TokenURL   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues single API calls. It does not retry and does not refresh
// tokens; both belong to the caller.
type Client struct {
	baseURL    string
	tokenURL   string
	httpClient *http.Client
	validator  *PageValidator
	maxBody    int64
}

// TimelineRequest selects one page of an account's timeline.
type TimelineRequest struct {
	AccountID       string
	SinceID         string
	PaginationToken string
	MaxResults      int
}

// TokenResponse is the body of a successful token refresh.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

type timelineResponse struct {
	Data     []models.Object `json:"data"`
	Includes models.Includes `json:"includes"`
	Meta     struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type userResponse struct {
	Data   models.Object `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

type errorResponse struct {
	Title            string `json:"title"`
	Detail           string `json:"detail"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewClient creates a client.
func NewClient(opts Options) (*Client, error) {
	validator, err := NewPageValidator()
	if err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		validator:  validator,
		maxBody:    MaxResponseBytes,
	}, nil
}

// Timeline fetches one page of posts authored by req.AccountID, newest
// first. The returned page has an empty NextToken when it is the last one.
func (c *Client) Timeline(ctx context.Context, accessToken string, req TimelineRequest) (*models.Page, error) {
	q := url.Values{}
	q.Set("max_results", strconv.Itoa(req.MaxResults))
	q.Set("expansions", timelineExpansions)
	q.Set("tweet.fields", tweetFields)
	q.Set("user.fields", userFields)
	q.Set("media.fields", mediaFields)
	if req.SinceID != "" {
		q.Set("since_id", req.SinceID)
	}
	if req.PaginationToken != "" {
		q.Set("pagination_token", req.PaginationToken)
	}

	reqURL := c.baseURL + "/2/users/" + url.PathEscape(req.AccountID) + "/tweets?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("timeline of %s: %w", req.AccountID, err)
	}
	if err := c.validator.Validate(body); err != nil {
		return nil, fmt.Errorf("timeline of %s: %w", req.AccountID, err)
	}

	var resp timelineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("timeline of %s: %w: %v", req.AccountID, ErrMalformedPage, err)
	}
	return &models.Page{
		Posts:     resp.Data,
		Includes:  resp.Includes,
		NextToken: resp.Meta.NextToken,
		Raw:       body,
	}, nil
}

// UserByUsername looks up a single account.
func (c *Client) UserByUsername(ctx context.Context, accessToken, username string) (models.Object, error) {
	q := url.Values{}
	q.Set("tweet.fields", tweetFields)
	q.Set("user.fields", userFields)

	reqURL := c.baseURL + "/2/users/by/username/" + url.PathEscape(username) + "?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", username, err)
	}
	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", username, err)
	}
	if resp.Data == nil {
		detail := "no data"
		if len(resp.Errors) > 0 {
			detail = resp.Errors[0].Detail
		}
		return nil, fmt.Errorf("lookup %s: %w: %s", username, ErrNotFound, detail)
	}
	return resp.Data, nil
}

// RefreshToken exchanges a refresh token for a new token pair. The client
// credentials are sent with basic authentication.
func (c *Client) RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", clientID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(clientID, clientSecret)

	body, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	var resp TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token: incomplete token response")
	}
	return &resp, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if int64(len(payload)) > c.maxBody {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, c.maxBody)
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return payload, nil
	}

	httpErr := &HTTPError{StatusCode: resp.StatusCode}
	if reset, err := strconv.ParseInt(resp.Header.Get("x-rate-limit-reset"), 10, 64); err == nil {
		httpErr.ResetAt = time.Unix(reset, 0).UTC()
	}
	var er errorResponse
	if json.Unmarshal(payload, &er) == nil {
		httpErr.Title = er.Title
		if httpErr.Title == "" {
			httpErr.Title = er.Error
		}
		httpErr.Detail = er.Detail
		if httpErr.Detail == "" {
			httpErr.Detail = er.ErrorDescription
		}
	}
	return nil, httpErr
}
