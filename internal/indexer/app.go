package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/kikuomax/tweetscape-streams/internal/archive"
	"github.com/kikuomax/tweetscape-streams/internal/config"
	"github.com/kikuomax/tweetscape-streams/internal/credential"
	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/logging"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/repomanager"
	"github.com/kikuomax/tweetscape-streams/internal/secrets"
	"github.com/kikuomax/tweetscape-streams/internal/twitter"
)

type App struct {
	config *config.Config
	logger logging.Logger
	closer io.Closer
	out    io.Writer

	db     *sql.DB
	syncer *Syncer
}

// NewApp builds the process logger. Store and API clients are created on
// first use so that commands like token run without them.
func NewApp(c *config.Config) *App {
	logger, closer := logging.New(logging.Options{
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 28,
	})
	return &App{config: c, logger: logger, closer: closer, out: os.Stdout}
}

func (app *App) secretsLoader(ctx context.Context) (secrets.Loader, error) {
	if app.config.CredentialsSecretID == "" {
		return &secrets.Static{Credentials: secrets.Credentials{
			DatabaseDSN:  app.config.DatabaseDSN,
			ClientID:     app.config.ClientID,
			ClientSecret: app.config.ClientSecret,
		}}, nil
	}
	return secrets.NewSecretsManager(ctx, app.config.AWSRegion, app.config.CredentialsSecretID)
}

// initSyncer opens the store, migrates it and wires the syncer.
func (app *App) initSyncer(ctx context.Context) (*Syncer, error) {
	if app.syncer != nil {
		return app.syncer, nil
	}

	loader, err := app.secretsLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets init error: %w", err)
	}
	cache := secrets.NewCache(loader)

	db, err := secrets.WithReload(ctx, cache, func(ctx context.Context, creds *secrets.Credentials) (*sql.DB, error) {
		return repomanager.Open(ctx, creds.DatabaseDSN)
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	creds, err := cache.Get(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.logger.Debug(ctx, "credentials loaded", "credentials", creds.String())

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	api, err := twitter.NewClient(twitter.Options{
		BaseURL:  app.config.APIBaseURL,
		TokenURL: app.config.TokenURL,
		Timeout:  app.config.HTTPTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var pages PageArchive
	if app.config.ArchiveBucket != "" {
		a, err := archive.NewS3Archive(ctx, archive.Options{
			Bucket:    app.config.ArchiveBucket,
			Region:    app.config.AWSRegion,
			Endpoint:  app.config.ArchiveEndpoint,
			AccessKey: app.config.ArchiveAccessKey,
			SecretKey: app.config.ArchiveSecretKey,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		pages = a
	}

	app.db = db
	app.syncer = NewSyncer(db, dbx.NewSQLTransactor(db), rm, api, pages, Options{
		PageSize:    app.config.TimelinePageSize,
		Concurrency: app.config.Concurrency,
		App:         credential.AppCredentials{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret},
	}, app.logger)
	return app.syncer, nil
}

// Close releases the store and the log file.
func (app *App) Close() error {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(context.Background(), "closing database", "error", err)
		}
	}
	return app.closer.Close()
}
