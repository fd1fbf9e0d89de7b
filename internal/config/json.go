package config

import (
	"encoding/json"
	"os"

	"github.com/kikuomax/tweetscape-streams/internal/flagx"
	"github.com/kikuomax/tweetscape-streams/internal/timex"
)

// JsonConfig is the on-disk form of Config. HTTPTimeout accepts both "30s"
// and integer nanoseconds.
type JsonConfig struct {
	DatabaseDSN         string         `json:"database_dsn"`
	APIBaseURL          string         `json:"api_base_url"`
	TokenURL            string         `json:"token_url"`
	ClientID            string         `json:"client_id"`
	ClientSecret        string         `json:"client_secret"`
	CredentialsSecretID string         `json:"credentials_secret_id"`
	AWSRegion           string         `json:"aws_region"`
	TimelinePageSize    int            `json:"timeline_page_size"`
	Concurrency         int            `json:"concurrency"`
	HTTPTimeout         timex.Duration `json:"http_timeout"`
	ListenAddr          string         `json:"listen_addr"`
	JWTSecret           string         `json:"jwt_secret"`
	ArchiveBucket       string         `json:"archive_bucket"`
	ArchiveEndpoint     string         `json:"archive_endpoint"`
	ArchiveAccessKey    string         `json:"archive_access_key"`
	ArchiveSecretKey    string         `json:"archive_secret_key"`
	LogLevel            string         `json:"log_level"`
	LogFile             string         `json:"log_file"`
}

// parseJson overlays values from the JSON file named by -c/-config or the
// INDEXER_CONFIG environment variable. Keys absent from the file keep
// their current values. It panics when the file cannot be read or parsed.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFilePath(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.APIBaseURL, c.APIBaseURL)
	setString(&config.TokenURL, c.TokenURL)
	setString(&config.ClientID, c.ClientID)
	setString(&config.ClientSecret, c.ClientSecret)
	setString(&config.CredentialsSecretID, c.CredentialsSecretID)
	setString(&config.AWSRegion, c.AWSRegion)
	if c.TimelinePageSize != 0 {
		config.TimelinePageSize = c.TimelinePageSize
	}
	if c.Concurrency != 0 {
		config.Concurrency = c.Concurrency
	}
	if c.HTTPTimeout.Duration != 0 {
		config.HTTPTimeout = c.HTTPTimeout.Duration
	}
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.JWTSecret, c.JWTSecret)
	setString(&config.ArchiveBucket, c.ArchiveBucket)
	setString(&config.ArchiveEndpoint, c.ArchiveEndpoint)
	setString(&config.ArchiveAccessKey, c.ArchiveAccessKey)
	setString(&config.ArchiveSecretKey, c.ArchiveSecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
