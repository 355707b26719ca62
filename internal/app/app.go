// Package app connects the command line to the client: it builds the client
// from configuration and runs either the browser or a single action.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bgunnarsson/sqlkit/internal/cache"
	"github.com/bgunnarsson/sqlkit/internal/client"
	"github.com/bgunnarsson/sqlkit/internal/config"
	"github.com/bgunnarsson/sqlkit/internal/ui"
)

const redisPrefix = "sqlkit"

// session is a client plus whatever cache backend it was given.
type session struct {
	client *client.Client
	closer func() error
	cached bool
}

func (s *session) Close() error {
	err := s.client.Close()
	if s.closer != nil {
		if cerr := s.closer(); err == nil {
			err = cerr
		}
	}
	return err
}

func openSession(cfg config.Config, logger *slog.Logger) (*session, error) {
	s := &session{}
	opts := []client.Option{client.WithLogger(logger)}

	switch {
	case cfg.Cache.Redis != "":
		rs := cache.DialRedis(cfg.Cache.Redis, redisPrefix)
		s.closer = rs.Close
		s.cached = true
		opts = append(opts, client.WithCache(rs))
	case cfg.Cache.Dir != "":
		fs, err := cache.NewDirStore(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("cache dir: %w", err)
		}
		s.cached = true
		opts = append(opts, client.WithCache(fs))
	}

	s.client = client.Open(cfg.DB, opts...)
	return s, nil
}

func RunInteractive(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	s, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	// connect up front so a bad DSN fails before the screen takes over
	if err := s.client.Connect(ctx); err != nil {
		return err
	}

	return ui.Run(ctx, s.client, string(cfg.DB.Driver))
}
