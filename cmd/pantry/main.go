// Command pantry tracks perishable goods by barcode and expiry date.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mmynk/pantry/internal/config"
	"github.com/mmynk/pantry/internal/lookup"
	"github.com/mmynk/pantry/internal/remote"
	"github.com/mmynk/pantry/internal/remote/redisstore"
	"github.com/mmynk/pantry/internal/service"
	"github.com/mmynk/pantry/internal/storage/sqlite"
	"github.com/mmynk/pantry/internal/syncer"
	"github.com/mmynk/pantry/internal/syncrpc"
	"github.com/mmynk/pantry/pkg/logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		title, msg := service.Describe(err)
		fmt.Fprintf(os.Stderr, "%s: %s\n", title, msg)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pantry",
		Usage: "track perishable goods by barcode and expiry date",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "answer yes to every confirmation",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "database file (overrides PANTRY_DB_PATH)",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if db := c.String("db"); db != "" {
				cfg.DBPath = db
			}
			logging.Setup(cfg.LogLevel)
			c.App.Metadata = map[string]any{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			addCommand(),
			listCommand(),
			incCommand(),
			decCommand(),
			rmCommand(),
			editCommand(),
			clearCommand(),
			exportCommand(),
			importCommand(),
			syncCommand(),
			lookupCommand(),
		},
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

// session is one command's open inventory and the resources behind it.
type session struct {
	inv     *service.Inventory
	closers []io.Closer
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}

type openOpts struct {
	lookup bool
	sync   bool
}

// open loads the inventory. The reference list and the sync backend are
// only set up for commands that need them.
func open(c *cli.Context, o openOpts) (*session, error) {
	ctx := c.Context
	cfg := configFrom(c)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s := &session{closers: []io.Closer{store}}

	opts := []service.Option{
		service.WithLocale(cfg.Language()),
		service.WithSoonDays(cfg.SoonDays),
	}

	if o.lookup && cfg.LookupSource != "" {
		table, err := lookup.Load(ctx, &http.Client{Timeout: cfg.SyncTimeout}, cfg.LookupSource)
		if err != nil {
			// Names are a convenience; carry on without them.
			slog.Warn("Reference list unavailable", "source", cfg.LookupSource, "error", err)
		} else {
			slog.Debug("Reference list loaded", "entries", table.Len())
			opts = append(opts, service.WithLookup(table))
		}
	}

	if o.sync {
		rs, closer, err := remoteStore(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		if closer != nil {
			s.closers = append(s.closers, closer)
		}
		opts = append(opts, service.WithSyncer(syncer.New(rs, syncer.WithTTL(cfg.SyncTTL))))
	}

	inv, err := service.Open(ctx, store, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.inv = inv
	return s, nil
}

func remoteStore(ctx context.Context, cfg *config.Config) (remote.Store, io.Closer, error) {
	switch cfg.SyncBackend {
	case config.BackendRedis:
		rs, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", syncer.ErrNetworkFailure, err)
		}
		return rs, rs, nil
	default:
		client := syncrpc.NewClient(&http.Client{Timeout: cfg.SyncTimeout}, cfg.SyncURL)
		return client, nil, nil
	}
}
