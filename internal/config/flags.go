package config

import (
	"flag"
	"time"

	"github.com/kikuomax/tweetscape-streams/internal/flagx"
)

var configFlags = []string{
	"-d", "-b", "-k", "-i", "-s", "-m", "-g", "-n", "-j", "-t",
	"-a", "-w", "-o", "-e", "-u", "-p", "-l", "-f",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-b string   API base URL
//	-k string   OAuth2 token URL
//	-i string   OAuth2 client id
//	-s string   OAuth2 client secret
//	-m string   AWS Secrets Manager secret id
//	-g string   AWS region
//	-n int      timeline page size
//	-j int      sync-all concurrency
//	-t int      HTTP timeout, seconds
//	-a string   trigger API listen address
//	-w string   JWT secret
//	-o string   archive bucket
//	-e string   archive endpoint
//	-u string   archive access key
//	-p string   archive secret key
//	-l string   log level
//	-f string   log file
//
// Subcommand flags in args are filtered out with flagx.FilterArgs.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, configFlags)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.APIBaseURL, "b", config.APIBaseURL, "API base URL")
	fs.StringVar(&config.TokenURL, "k", config.TokenURL, "OAuth2 token URL")
	fs.StringVar(&config.ClientID, "i", config.ClientID, "OAuth2 client id")
	fs.StringVar(&config.ClientSecret, "s", config.ClientSecret, "OAuth2 client secret")
	fs.StringVar(&config.CredentialsSecretID, "m", config.CredentialsSecretID, "AWS Secrets Manager secret id")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.IntVar(&config.TimelinePageSize, "n", config.TimelinePageSize, "timeline page size")
	fs.IntVar(&config.Concurrency, "j", config.Concurrency, "requester groups synced in parallel")
	httpTimeout := fs.Int("t", int(config.HTTPTimeout.Seconds()), "HTTP timeout (in seconds)")
	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "trigger API listen address")
	fs.StringVar(&config.JWTSecret, "w", config.JWTSecret, "JWT secret")
	fs.StringVar(&config.ArchiveBucket, "o", config.ArchiveBucket, "archive bucket")
	fs.StringVar(&config.ArchiveEndpoint, "e", config.ArchiveEndpoint, "archive endpoint")
	fs.StringVar(&config.ArchiveAccessKey, "u", config.ArchiveAccessKey, "archive access key")
	fs.StringVar(&config.ArchiveSecretKey, "p", config.ArchiveSecretKey, "archive secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
}
