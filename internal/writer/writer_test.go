package writer

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var testRun = model.Run{ID: "run-1", StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	w, err := NewCSVWriter(config.CSVConfig{Path: path}, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	summaries := []model.FlowSummary{
		{Activity: "HD Video Streaming", UniqueFlows: 4, TotalPackets: 52000, TotalBytes: 71_000_000},
		{Activity: "Browsing Session 1", UniqueFlows: 37, TotalPackets: 1800, TotalBytes: 950_000},
	}
	require.NoError(t, w.Write(context.Background(), testRun, summaries))

	assert.Equal(t, [][]string{
		{"Activity", "Unique_Flows", "Total_Packets", "Total_Bytes"},
		{"HD Video Streaming", "4", "52000", "71000000"},
		{"Browsing Session 1", "37", "1800", "950000"},
	}, readCSV(t, path))

	t.Run("Overwrites", func(t *testing.T) {
		require.NoError(t, w.Write(context.Background(), testRun, summaries[1:]))
		records := readCSV(t, path)
		require.Len(t, records, 2)
		assert.Equal(t, "Browsing Session 1", records[1][0])
	})

	t.Run("HeaderOnly", func(t *testing.T) {
		require.NoError(t, w.Write(context.Background(), testRun, nil))
		assert.Equal(t, [][]string{{"Activity", "Unique_Flows", "Total_Packets", "Total_Bytes"}}, readCSV(t, path))
	})
}

func TestCSVWriter_RequiresPath(t *testing.T) {
	_, err := NewCSVWriter(config.CSVConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestSummaryRows(t *testing.T) {
	rows := summaryRows(testRun, []model.FlowSummary{{Activity: "Music Streaming", UniqueFlows: 2, TotalPackets: 10, TotalBytes: 9000}})
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"run-1", testRun.StartedAt, "Music Streaming", uint64(2), uint64(10), uint64(9000)}, rows[0])
}

func TestSummaryMessage(t *testing.T) {
	msg, err := summaryMessage(testRun, model.FlowSummary{Activity: "Conference Call", UniqueFlows: 6, TotalPackets: 4000, TotalBytes: 3_500_000})
	require.NoError(t, err)

	data, err := proto.Marshal(msg)
	require.NoError(t, err)
	decoded := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(data, decoded))

	fields := decoded.AsMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", fields["generated_at"])
	assert.Equal(t, "Conference Call", fields["activity"])
	assert.Equal(t, float64(4000), fields["total_packets"])
}

func TestConnectFailures(t *testing.T) {
	_, err := NewClickHouseWriter(config.ClickHouseConfig{Host: "127.0.0.1", Port: 1, Table: "activity_summary"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClickHouseWriter(config.ClickHouseConfig{Host: "127.0.0.1", Port: 9000}, zap.NewNop())
	assert.Error(t, err, "table is required")

	_, err = NewNATSWriter(config.NATSConfig{URL: "nats://127.0.0.1:1", Subject: "gonp.activity.summary"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Summary.Writers = []config.WriterDef{
		{Type: "csv", Enabled: true, CSV: config.CSVConfig{Path: filepath.Join(t.TempDir(), "out.csv")}},
		{Type: "clickhouse", Enabled: false},
		{Type: "nats", Enabled: false},
	}
	writers, err := factory.CreateWriters(cfg, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, writers, 1)
	assert.Equal(t, "csv", writers[0].Name())

	cfg.Summary.Writers = append(cfg.Summary.Writers, config.WriterDef{Type: "parquet", Enabled: true})
	_, err = factory.CreateWriters(cfg, zap.NewNop())
	assert.Error(t, err)
}
