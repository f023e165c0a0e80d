package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/klimeurt/repo-harvester/internal/config"
	"github.com/klimeurt/repo-harvester/internal/downloader"
	"github.com/nats-io/nats.go"
)

// AcceptedRepo is the message published for each repository accepted into
// the dataset.
type AcceptedRepo struct {
	FullName   string    `json:"full_name"`
	Keyword    string    `json:"keyword"`
	Round      int       `json:"round"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Publisher streams collection progress to NATS so downstream consumers can
// follow a harvest run. A nil Publisher is valid and publishes nothing.
type Publisher struct {
	nc              *nats.Conn
	acceptedSubject string
	okSubject       string
	failedSubject   string
}

// New creates a new Publisher instance. Publishing is optional: when no
// NATS URL is configured the returned Publisher is nil and every method is
// a no-op.
func New(cfg *config.Config) (*Publisher, error) {
	if cfg.NATSUrl == "" {
		return nil, nil
	}

	nc, err := nats.Connect(cfg.NATSUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		nc:              nc,
		acceptedSubject: cfg.AcceptedSubject,
		okSubject:       cfg.DownloadOKSubject,
		failedSubject:   cfg.DownloadFailedSubject,
	}, nil
}

// PublishAccepted publishes an accepted repository to the accepted subject.
func (p *Publisher) PublishAccepted(fullName, keyword string, round int) error {
	if p == nil {
		return nil
	}
	msg := AcceptedRepo{
		FullName:   fullName,
		Keyword:    keyword,
		Round:      round,
		AcceptedAt: time.Now().UTC(),
	}
	return p.publish(p.acceptedSubject, msg)
}

// PublishDownload publishes a download result, routed to the ok or failed
// subject depending on outcome.
func (p *Publisher) PublishDownload(res downloader.Result) error {
	if p == nil {
		return nil
	}
	subject := p.okSubject
	if res.Failed() {
		subject = p.failedSubject
	}
	return p.publish(subject, res)
}

func (p *Publisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Flush()
	p.nc.Close()
}
