package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/geodueler/geodueler/go/internal/dbconfig"
	"github.com/geodueler/geodueler/go/internal/realtime"
	"github.com/geodueler/geodueler/go/internal/store"
)

// backends bundles the multiplayer dependencies: the room store, the
// broadcast channel and the row-change listener behind it.
type backends struct {
	repo *store.Repository
	rt   *realtime.Client
}

func (b *backends) close() {
	b.rt.Close()
	b.repo.Close()
}

// connectBackends dials Postgres and NATS. Solo play never calls this.
func connectBackends(ctx context.Context) (*backends, error) {
	dbCfg := dbconfig.NewConfigFromEnv()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	repo, err := store.Connect(connectCtx, dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	nc, err := realtime.ConnectNATS(dbconfig.NATSURLFromEnv())
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	rows, err := realtime.NewRowListener(realtime.DefaultListenerConfig(dbCfg.DSN()))
	if err != nil {
		nc.Close()
		repo.Close()
		return nil, fmt.Errorf("failed to open row-change listener: %w", err)
	}

	go func() {
		if err := rows.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("row-change listener failed")
		}
	}()

	log.Info().
		Str("database", dbCfg.Database).
		Msg("connected to backends")

	return &backends{repo: repo, rt: realtime.NewClient(nc, rows)}, nil
}
