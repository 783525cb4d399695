package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"task-workflow-api/internal/log"
)

// NATSConfig is the configuration for NATSPublisher.
type NATSConfig struct {
	// Conn is an already established connection. When nil, URL is dialled.
	Conn *nats.Conn
	URL  string
	// SubjectPrefix is prepended to the event type, e.g. "tasks.task_created".
	SubjectPrefix string
	Logger        log.Logger
}

func (c *NATSConfig) defaults() error {
	if c.Conn == nil && c.URL == "" {
		return fmt.Errorf("nats url or connection is required")
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "tasks"
	}
	c.SubjectPrefix = strings.TrimSuffix(c.SubjectPrefix, ".")
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "events.NATSPublisher"})
	return nil
}

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	owned  bool
	prefix string
	logger log.Logger
}

// NewNATSPublisher connects (if needed) and returns a publisher.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	conn, owned := cfg.Conn, false
	if conn == nil {
		var err error
		conn, err = nats.Connect(cfg.URL,
			nats.Name("task-workflow-api"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					cfg.Logger.Warningf("disconnected from NATS: %v", err)
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				cfg.Logger.Infof("reconnected to NATS at %s", c.ConnectedUrl())
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		owned = true
	}

	return &NATSPublisher{conn: conn, owned: owned, prefix: cfg.SubjectPrefix, logger: cfg.Logger}, nil
}

// Subject returns the subject an event of type eventType is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	subject := p.Subject(e.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	p.logger.Debugf("published %s for task %s", subject, e.TaskID)
	return nil
}

// Close drains the connection when the publisher dialled it itself.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.conn.Drain()
}
