package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func init() {
	factory.RegisterWriter("nats", func(def config.WriterDef, logger *zap.Logger) (model.Writer, error) {
		return NewNATSWriter(def.NATS, logger)
	})
}

// NATSWriter publishes every activity summary as a protobuf Struct.
type NATSWriter struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewNATSWriter connects to the NATS server.
func NewNATSWriter(cfg config.NATSConfig, logger *zap.Logger) (*NATSWriter, error) {
	if cfg.Subject == "" {
		return nil, errors.New("nats writer requires a subject")
	}
	nc, err := nats.Connect(cfg.URL, nats.Name("ns-profile"), nats.Timeout(dialTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	logger.Info("Connected to NATS server", zap.String("url", cfg.URL))
	return &NATSWriter{nc: nc, subject: cfg.Subject, logger: logger}, nil
}

func (w *NATSWriter) Name() string { return "nats" }

// Write publishes one message per summary and flushes the connection.
func (w *NATSWriter) Write(ctx context.Context, run model.Run, summaries []model.FlowSummary) error {
	for _, s := range summaries {
		msg, err := summaryMessage(run, s)
		if err != nil {
			return err
		}
		data, err := proto.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal summary of '%s': %w", s.Activity, err)
		}
		if err := w.nc.Publish(w.subject, data); err != nil {
			return fmt.Errorf("failed to publish summary of '%s': %w", s.Activity, err)
		}
	}
	if err := w.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush nats connection: %w", err)
	}

	w.logger.Info("Summary written", zap.String("writer", w.Name()), zap.String("subject", w.subject), zap.Int("messages", len(summaries)))
	return nil
}

func summaryMessage(run model.Run, s model.FlowSummary) (*structpb.Struct, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"run_id":        run.ID,
		"generated_at":  run.StartedAt.UTC().Format(time.RFC3339),
		"activity":      s.Activity,
		"unique_flows":  s.UniqueFlows,
		"total_packets": s.TotalPackets,
		"total_bytes":   s.TotalBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build summary message: %w", err)
	}
	return msg, nil
}

// Close drains and closes the NATS connection.
func (w *NATSWriter) Close() error {
	if w.nc == nil {
		return nil
	}
	return w.nc.Drain()
}
