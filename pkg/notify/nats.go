package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/models"
)

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// NATSReporter publishes progress events as JSON on
// <prefix>.imports.<run_id>.progress. Publishing never fails an import;
// errors are logged.
type NATSReporter struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// Connect dials NATS and returns a reporter owning the connection.
func Connect(cfg NATSConfig, logger *zap.Logger) (*NATSReporter, error) {
	logger = logger.Named("nats")
	name := cfg.Name
	if name == "" {
		name = "research-data-hub"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Warn("NATS error", zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATSReporter(nc, cfg.SubjectPrefix, logger), nil
}

// NewNATSReporter wraps an existing connection.
func NewNATSReporter(nc *nats.Conn, prefix string, logger *zap.Logger) *NATSReporter {
	if prefix == "" {
		prefix = "researchdatahub"
	}
	return &NATSReporter{nc: nc, prefix: prefix, logger: logger}
}

// Subject returns the subject events of runID are published on.
func (r *NATSReporter) Subject(runID string) string {
	return fmt.Sprintf("%s.imports.%s.progress", r.prefix, runID)
}

func (r *NATSReporter) Report(ctx context.Context, e models.ProgressEvent) {
	payload, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("Failed to encode progress event", zap.Error(err))
		return
	}
	if err := r.nc.Publish(r.Subject(e.RunID.String()), payload); err != nil {
		r.logger.Warn("Failed to publish progress event",
			zap.String("run_id", e.RunID.String()),
			zap.Error(err))
	}
}

// Close drains pending publishes and closes the connection.
func (r *NATSReporter) Close() error {
	return r.nc.Drain()
}
