package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS %s (
    RunID        String,
    GeneratedAt  DateTime,
    Activity     String,
    UniqueFlows  UInt64,
    TotalPackets UInt64,
    TotalBytes   UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(GeneratedAt)
ORDER BY (Activity, GeneratedAt);
`

const dialTimeout = 5 * time.Second

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, logger *zap.Logger) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse, logger)
	})
}

// ClickHouseWriter inserts one row per activity summary into ClickHouse.
type ClickHouseWriter struct {
	conn   driver.Conn
	table  string
	logger *zap.Logger
}

// NewClickHouseWriter connects to ClickHouse and ensures the summary table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, logger *zap.Logger) (*ClickHouseWriter, error) {
	if cfg.Table == "" {
		return nil, errors.New("clickhouse writer requires a table")
	}
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), fmt.Sprintf(createTableStatement, cfg.Table)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	logger.Info("Connected to ClickHouse", zap.String("host", cfg.Host), zap.String("table", cfg.Table))

	return &ClickHouseWriter{conn: conn, table: cfg.Table, logger: logger}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: dialTimeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// Write inserts the summaries of one run as a single batch.
func (w *ClickHouseWriter) Write(ctx context.Context, run model.Run, summaries []model.FlowSummary) error {
	if len(summaries) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+w.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, row := range summaryRows(run, summaries) {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("failed to append summary to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	w.logger.Info("Summary written", zap.String("writer", w.Name()), zap.String("table", w.table), zap.Int("rows", len(summaries)))
	return nil
}

// summaryRows lays out the summaries in table column order.
func summaryRows(run model.Run, summaries []model.FlowSummary) [][]any {
	rows := make([][]any, len(summaries))
	for i, s := range summaries {
		rows[i] = []any{run.ID, run.StartedAt, s.Activity, s.UniqueFlows, s.TotalPackets, s.TotalBytes}
	}
	return rows
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
