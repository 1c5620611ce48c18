package pubsub

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/threed-dev/threed/shared/logger"
)

// Codec turns payloads into short NOTIFY messages and back.
// NOTIFY payloads are capped at 8000 bytes, so implementations usually send
// a key and load the entity again on the receiving side.
type Codec interface {
	Encode(topic string, payload any) (string, error)
	Decode(ctx context.Context, topic string, key string) (any, error)
}

type envelope struct {
	Topic string `json:"topic"`
	Key   string `json:"key"`
}

// Postgres relays events between processes through LISTEN/NOTIFY.
// Publish goes to postgres only; every process (the publisher included)
// delivers to its local subscribers when the notification arrives.
type Postgres struct {
	local    *Bus
	db       *sql.DB
	listener *pq.Listener
	channel  string
	codec    Codec
	log      *slog.Logger
}

func NewPostgres(connStr, channel string, local *Bus, codec Codec) (*Postgres, error) {
	log := logger.Component("pubsub").With("channel", channel)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open notify connection: %w", err)
	}

	listener := pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		db.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	return &Postgres{
		local:    local,
		db:       db,
		listener: listener,
		channel:  channel,
		codec:    codec,
		log:      log,
	}, nil
}

func (p *Postgres) Publish(ctx context.Context, topic string, payload any) error {
	key, err := p.codec.Encode(topic, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}
	msg, err := json.Marshal(envelope{Topic: topic, Key: key})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}
	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", p.channel, string(msg)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", topic, err)
	}
	return nil
}

func (p *Postgres) Subscribe(ctx context.Context, topic string, predicate Predicate) *Subscription {
	return p.local.Subscribe(ctx, topic, predicate)
}

// Run relays notifications to the local bus until ctx is done.
func (p *Postgres) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-p.listener.Notify:
			if n == nil {
				// reconnected; anything sent meanwhile is lost
				p.log.Warn("listener reconnected")
				continue
			}
			p.relay(ctx, n.Extra)
		case <-time.After(90 * time.Second):
			go func() {
				if err := p.listener.Ping(); err != nil {
					p.log.Warn("listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (p *Postgres) relay(ctx context.Context, raw string) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		p.log.Error("malformed notification", "error", err)
		return
	}
	payload, err := p.codec.Decode(ctx, env.Topic, env.Key)
	if err != nil {
		p.log.Error("failed to decode notification", "topic", env.Topic, "key", env.Key, "error", err)
		return
	}
	if err := p.local.Publish(ctx, env.Topic, payload); err != nil {
		p.log.Error("failed to relay notification", "topic", env.Topic, "error", err)
	}
}

func (p *Postgres) Close() error {
	lerr := p.listener.Close()
	if err := p.db.Close(); err != nil {
		return err
	}
	return lerr
}
