package realtime

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	natsMaxReconnects = -1 // infinite
	natsReconnectWait = 2 * time.Second
)

// ConnectNATS opens the broadcast leg of the channel. Proper JetStream
// persistence is deliberately not used: broadcast delivery is at-most-once
// and best-effort, and missed events are reconstructed from row changes or
// store reads.
func ConnectNATS(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// roomSubject returns the per-room broadcast subject.
func roomSubject(roomID fmt.Stringer) string {
	return fmt.Sprintf("room.%s.events", roomID)
}
