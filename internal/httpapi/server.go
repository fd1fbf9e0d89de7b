// Package httpapi exposes the sync triggers over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kikuomax/tweetscape-streams/internal/logging"
	"github.com/kikuomax/tweetscape-streams/internal/models"
)

// Service is the part of the indexer the API drives.
type Service interface {
	SyncAccount(ctx context.Context, requesterID, accountID string) (*models.SyncRun, error)
	Track(ctx context.Context, requesterID, username string) (*models.TrackedAccount, bool, error)
	GetRun(ctx context.Context, id string) (*models.SyncRun, error)
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, svc Service, logger logging.Logger, secretKey string) *Server {
	logger = logger.With("module", "http_server")
	return &Server{
		address: address,
		handler: NewRouter(svc, logger, []byte(secretKey)),
		logger:  logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
