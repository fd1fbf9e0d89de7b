// Package secrets loads the external credentials of the indexer: the
// database DSN and the OAuth client of the remote API.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/kikuomax/tweetscape-streams/internal/common"
)

// Credentials are the secrets the indexer needs at startup.
type Credentials struct {
	DatabaseDSN  string
	ClientID     string
	ClientSecret string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials(dsn=%s, client_id=%s, client_secret=%s)",
		common.MaskSecret(c.DatabaseDSN), c.ClientID, common.MaskSecret(c.ClientSecret))
}

// Loader fetches credentials from a backing store.
type Loader interface {
	Load(ctx context.Context) (*Credentials, error)
}

// Static returns fixed credentials, typically from the config file.
type Static struct {
	Credentials Credentials
}

func (s *Static) Load(context.Context) (*Credentials, error) {
	c := s.Credentials
	return &c, nil
}

type getSecretValueAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newSecretsManagerClient = func(cfg aws.Config) getSecretValueAPI {
		return secretsmanager.NewFromConfig(cfg)
	}
)

// SecretsManager reads a JSON secret with the keys postgresUri, clientId
// and clientSecret.
type SecretsManager struct {
	client   getSecretValueAPI
	secretID string
}

type secretPayload struct {
	PostgresURI  string `json:"postgresUri"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

func NewSecretsManager(ctx context.Context, region, secretID string) (*SecretsManager, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SecretsManager{client: newSecretsManagerClient(cfg), secretID: secretID}, nil
}

func (s *SecretsManager) Load(ctx context.Context) (*Credentials, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret %s: %w", s.secretID, err)
	}

	var p secretPayload
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &p); err != nil {
		return nil, fmt.Errorf("%w: decode secret %s: %v", common.ErrExternalCredential, s.secretID, err)
	}
	if p.PostgresURI == "" || p.ClientID == "" || p.ClientSecret == "" {
		return nil, fmt.Errorf("%w: secret %s is incomplete", common.ErrExternalCredential, s.secretID)
	}
	return &Credentials{
		DatabaseDSN:  p.PostgresURI,
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
	}, nil
}

// Cache keeps the last loaded credentials until Reload is called.
type Cache struct {
	loader Loader

	mu    sync.Mutex
	creds *Credentials
}

func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// Get returns the cached credentials, loading them on first use.
func (c *Cache) Get(ctx context.Context) (*Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creds != nil {
		return c.creds, nil
	}
	return c.loadLocked(ctx)
}

// Reload discards the cached credentials and loads them again.
func (c *Cache) Reload(ctx context.Context) (*Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = nil
	return c.loadLocked(ctx)
}

func (c *Cache) loadLocked(ctx context.Context) (*Credentials, error) {
	creds, err := c.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.creds = creds
	return creds, nil
}

// WithReload runs fn with the cached credentials. If fn fails with
// common.ErrExternalCredential the credentials are reloaded and fn runs
// once more.
func WithReload[T any](ctx context.Context, c *Cache, fn func(ctx context.Context, creds *Credentials) (T, error)) (T, error) {
	var zero T
	creds, err := c.Get(ctx)
	if err != nil {
		return zero, err
	}
	v, err := fn(ctx, creds)
	if err == nil || !errors.Is(err, common.ErrExternalCredential) {
		return v, err
	}

	creds, rerr := c.Reload(ctx)
	if rerr != nil {
		return zero, errors.Join(err, rerr)
	}
	return fn(ctx, creds)
}
