package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	relaysvc "github.com/Alqaedgcb/legal-telegram-bot/internal/features/relay/service"
)

const pollRetryDelay = 3 * time.Second

// Poller drives the long-polling inbound path. Each update is dispatched
// on its own goroutine; the relay's concurrency contract covers that.
type Poller struct {
	client  *Client
	relay   relaysvc.RelayController
	timeout int
}

func NewPoller(client *Client, relay relaysvc.RelayController, timeoutSec int) *Poller {
	return &Poller{
		client:  client,
		relay:   relay,
		timeout: timeoutSec,
	}
}

func (p *Poller) Run(ctx context.Context) {
	log.Info().Int("timeout_sec", p.timeout).Msg("update polling started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("update polling stopped")
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("update polling stopped")
				return
			}
			log.Error().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			ev, ok := Normalize(upd)
			if !ok {
				continue
			}
			go p.relay.Handle(ctx, ev)
		}
	}
}
