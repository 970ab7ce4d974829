// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package feed streams killmails from the zKillboard websocket into the
// store. The poller reconnects forever with exponential backoff; a circuit
// breaker keeps a flapping endpoint from being hammered. Feed liveness is
// tracked separately so the query surface can report degraded realtime
// state while historical queries keep working.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gatewatch/internal/config"
	"github.com/tomtom215/gatewatch/internal/killmail"
	"github.com/tomtom215/gatewatch/internal/logging"
	"github.com/tomtom215/gatewatch/internal/metrics"
	"github.com/tomtom215/gatewatch/internal/store"
)

const writeTimeout = 10 * time.Second

// subscribeRequest is the killstream subscription handshake.
type subscribeRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// Poller maintains the websocket subscription and feeds normalized
// killmails into the store. It implements suture.Service.
type Poller struct {
	cfg        config.FeedConfig
	normalizer *killmail.Normalizer
	store      *store.Store
	health     *Health
	breaker    *gobreaker.CircuitBreaker[*websocket.Conn]

	messages atomic.Int64
	ingested atomic.Int64
}

// NewPoller wires the feed pipeline: websocket -> normalizer -> store.
func NewPoller(cfg config.FeedConfig, n *killmail.Normalizer, s *store.Store, h *Health) *Poller {
	breaker := gobreaker.NewCircuitBreaker[*websocket.Conn](gobreaker.Settings{
		Name:    "feed-dial",
		Timeout: cfg.ReconnectMax,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Feed dial breaker state changed")
		},
	})
	return &Poller{
		cfg:        cfg,
		normalizer: n,
		store:      s,
		health:     h,
		breaker:    breaker,
	}
}

// String implements suture.Service for supervisor logging.
func (p *Poller) String() string { return "feed-poller" }

// Serve runs the reconnect loop until the context is cancelled. Raw
// payloads are handed to a separate ingest goroutine through a buffered
// channel so a slow store write never stalls the websocket read deadline.
// A store write failure cancels the loop and is returned: the poller must
// not keep advertising a live feed over a store it cannot write to.
func (p *Poller) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	msgs := make(chan []byte, p.cfg.BufferSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.ingestLoop(msgs); err != nil {
			cancel(err)
		}
	}()
	defer func() {
		close(msgs)
		wg.Wait()
	}()

	backoff := p.cfg.ReconnectInitial

	for {
		before := p.messages.Load()
		err := p.connectAndStream(ctx, msgs)
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		if p.messages.Load() > before {
			// The session delivered data; the next wait starts over.
			backoff = p.cfg.ReconnectInitial
		}
		if err != nil {
			p.health.RecordFailure()
			logging.Err(err).
				Str("url", p.cfg.URL).
				Dur("backoff", backoff).
				Msg("Feed connection lost")
		}

		metrics.FeedReconnects.Inc()
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > p.cfg.ReconnectMax {
			backoff = p.cfg.ReconnectMax
		}
	}
}

// ingestLoop drains raw payloads until the channel closes or the store
// rejects a write.
func (p *Poller) ingestLoop(msgs <-chan []byte) error {
	for payload := range msgs {
		if err := p.handleMessage(payload); err != nil {
			return err
		}
	}
	return nil
}

// connectAndStream dials, subscribes, and reads until the connection breaks
// or the context is cancelled. A nil return means a clean remote close.
func (p *Poller) connectAndStream(ctx context.Context, msgs chan<- []byte) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := p.subscribe(conn); err != nil {
		metrics.FeedPollFailures.WithLabelValues("subscribe").Inc()
		return err
	}

	logging.Info().
		Str("url", p.cfg.URL).
		Str("channel", p.cfg.Channel).
		Msg("Feed connected and subscribed")

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(p.cfg.PollTimeout)); err != nil {
			return err
		}
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				metrics.FeedPollFailures.WithLabelValues("timeout").Inc()
				return fmt.Errorf("read timed out after %v: %w", p.cfg.PollTimeout, err)
			}
			metrics.FeedPollFailures.WithLabelValues("read").Inc()
			return fmt.Errorf("read failed: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		p.messages.Add(1)
		metrics.FeedMessagesReceived.Inc()
		p.health.RecordSuccess()

		select {
		case msgs <- payload:
		case <-ctx.Done():
			return nil
		}
	}
}

// dial connects through the circuit breaker so a dead endpoint is backed
// off at the breaker level as well as the reconnect loop.
func (p *Poller) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, err := p.breaker.Execute(func() (*websocket.Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: p.cfg.PollTimeout}
		c, _, err := dialer.DialContext(ctx, p.cfg.URL, nil)
		return c, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.FeedPollFailures.WithLabelValues("breaker_open").Inc()
			return nil, fmt.Errorf("feed dial suppressed: %w", err)
		}
		metrics.FeedPollFailures.WithLabelValues("dial").Inc()
		return nil, fmt.Errorf("dial %s: %w", p.cfg.URL, err)
	}
	return conn, nil
}

func (p *Poller) subscribe(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	req := subscribeRequest{Action: "sub", Channel: p.cfg.Channel}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe to %s: %w", p.cfg.Channel, err)
	}
	return nil
}

// handleMessage runs one payload through the normalizer and store. Bad
// records are dropped and counted; they never stall the stream. Store
// write failures are returned: unlike a malformed record, they mean the
// engine can no longer keep its history consistent.
func (p *Poller) handleMessage(payload []byte) error {
	km, err := p.normalizer.Normalize(payload)
	if err != nil {
		logging.Debug().Err(err).Msg("Dropped malformed feed record")
		return nil
	}

	result, err := p.store.Insert(km)
	if err != nil {
		return fmt.Errorf("store killmail %d: %w", km.ID, err)
	}
	if result == store.Inserted {
		p.ingested.Add(1)
		logging.Debug().
			Int64("killmail_id", km.ID).
			Int64("solar_system_id", km.SolarSystemID).
			Msg("Killmail ingested")
	}
	return nil
}

// Stats reports poller counters since process start.
func (p *Poller) Stats() map[string]int64 {
	return map[string]int64{
		"messages_received":  p.messages.Load(),
		"killmails_ingested": p.ingested.Load(),
	}
}
