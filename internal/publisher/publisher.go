package publisher

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secretsconfig/internal/metrics"
	"github.com/Checker-Finance/secretsconfig/pkg/model"
	"github.com/Checker-Finance/secretsconfig/pkg/smconfig"
)

const eventType = "config.reloaded"

// JetStream is the part of nats.JetStreamContext the publisher needs.
type JetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher announces configuration reloads on a NATS JetStream subject.
type Publisher struct {
	nc      *nats.Conn
	js      JetStream
	subject string
	service string
	logger  *zap.Logger

	// previous is only touched from OnReload callbacks, which the provider serializes.
	previous *smconfig.Snapshot
}

// New creates a Publisher on a JetStream context obtained from nc.
func New(nc *nats.Conn, subject, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	p := NewWithJetStream(js, subject, service, logger)
	p.nc = nc
	return p, nil
}

// NewWithJetStream builds a Publisher over an existing JetStream handle.
func NewWithJetStream(js JetStream, subject, service string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		js:      js,
		subject: subject,
		service: service,
		logger:  logger,
	}
}

// Seed records the snapshot later reloads are diffed against.
func (p *Publisher) Seed(snap *smconfig.Snapshot) {
	p.previous = snap
}

// OnReload is registered with smconfig.Provider.OnReload. Publish failures are
// logged; they never affect the provider.
func (p *Publisher) OnReload(snap *smconfig.Snapshot) {
	changed := p.previous.ChangedKeys(snap)
	p.previous = snap

	evt := model.ConfigReloadedEvent{
		ID:          uuid.New(),
		Service:     p.service,
		KeyCount:    snap.Len(),
		ChangedKeys: changed,
		LoadedAt:    snap.CreatedAt(),
		Timestamp:   time.Now().UTC(),
	}
	_ = p.Publish(evt)
}

// Publish serializes evt and publishes it to the configured subject.
func (p *Publisher) Publish(evt model.ConfigReloadedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("publisher.marshal_failed", zap.String("subject", p.subject), zap.Error(err))
		metrics.IncNATSPublish(p.subject, "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":   []string{eventType},
			"event_id":     []string{evt.ID.String()},
			"service":      []string{p.service},
			"content_type": []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg, nats.MsgId(evt.ID.String())); err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", p.subject),
			zap.String("event_id", evt.ID.String()),
			zap.Error(err))
		metrics.IncNATSPublish(p.subject, "error")
		return err
	}

	p.logger.Info("publisher.publish_success",
		zap.String("subject", p.subject),
		zap.Int("key_count", evt.KeyCount),
		zap.Int("changed", len(evt.ChangedKeys)))
	metrics.IncNATSPublish(p.subject, "ok")
	return nil
}

// Close closes the underlying connection if the publisher owns one.
func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
