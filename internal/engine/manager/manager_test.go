package manager

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/model"
	"Go2NetProfile/internal/resolver"
	"Go2NetProfile/pkg/pcap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeRenderer struct {
	calls   int
	bundles []*model.ActivityBundle
	err     error
}

func (r *fakeRenderer) Render(_ model.Run, bundles []*model.ActivityBundle) error {
	r.calls++
	r.bundles = bundles
	return r.err
}

type fakeWriter struct {
	name      string
	calls     int
	summaries []model.FlowSummary
	err       error
	closed    bool
}

func (w *fakeWriter) Write(_ context.Context, _ model.Run, summaries []model.FlowSummary) error {
	w.calls++
	w.summaries = summaries
	return w.err
}
func (w *fakeWriter) Name() string { return w.name }
func (w *fakeWriter) Close() error { w.closed = true; return nil }

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Render.Enabled = false
	cfg.Summary.Writers = nil
	return cfg
}

func writeTrace(t *testing.T, dir, name string, flows int) string {
	t.Helper()
	client := net.IPv4(192, 168, 1, 20)
	var packets []pcap.SynthPacket
	for i := 0; i < flows; i++ {
		packets = append(packets,
			pcap.SynthPacket{Offset: time.Duration(i) * 300 * time.Millisecond, SrcIP: client, DstIP: net.IPv4(1, 1, 1, byte(i+1)), SrcPort: uint16(40000 + i), DstPort: 443, Size: 100},
			pcap.SynthPacket{Offset: time.Duration(i)*300*time.Millisecond + 10*time.Millisecond, SrcIP: net.IPv4(1, 1, 1, byte(i+1)), DstIP: client, SrcPort: 443, DstPort: uint16(40000 + i), Size: 1400},
		)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, pcap.WriteTraceFile(path, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), packets))
	return path
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeRenderer, *fakeWriter) {
	t.Helper()
	r := &fakeRenderer{}
	w := &fakeWriter{name: "fake"}
	m, err := NewManager(testConfig(t), zaptest.NewLogger(t), append([]Option{WithRenderer(r), WithWriters(w)}, opts...)...)
	require.NoError(t, err)
	return m, r, w
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	paths := resolver.Map{
		"Browsing Session 1": writeTrace(t, dir, "browse.pcap", 3),
		"Music Streaming":    writeTrace(t, dir, "music.pcap", 1),
		"Conference Call":    filepath.Join(dir, "missing.pcap"),
		"HD Video Streaming": dir,
	}
	activities := []string{"Browsing Session 1", "Conference Call", "HD Video Streaming", "Music Streaming", "Browsing Session 2"}

	m, r, w := newTestManager(t)
	result, err := m.Run(context.Background(), activities, paths)
	require.NoError(t, err)

	assert.False(t, result.NoData)
	assert.NotEmpty(t, result.Run.ID)
	require.Len(t, result.Bundles, 2)
	assert.Equal(t, "Browsing Session 1", result.Bundles[0].Activity)
	assert.Equal(t, "Music Streaming", result.Bundles[1].Activity)

	assert.Equal(t, model.FlowSummary{Activity: "Browsing Session 1", UniqueFlows: 6, TotalPackets: 6, TotalBytes: 4500}, result.Summaries[0])
	assert.Equal(t, model.FlowSummary{Activity: "Music Streaming", UniqueFlows: 2, TotalPackets: 2, TotalBytes: 1500}, result.Summaries[1])

	assert.Equal(t, 1, r.calls)
	assert.Len(t, r.bundles, 2)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, result.Summaries, w.summaries)

	require.NoError(t, m.Close())
	assert.True(t, w.closed)
}

func TestRun_NoData(t *testing.T) {
	m, r, w := newTestManager(t)
	result, err := m.Run(context.Background(), config.DefaultActivities, resolver.Map{})
	require.NoError(t, err)

	assert.True(t, result.NoData)
	assert.Empty(t, result.Bundles)
	assert.Zero(t, r.calls, "nothing is rendered without data")
	assert.Zero(t, w.calls)
}

func TestRun_NoticesIgnoreLogLevel(t *testing.T) {
	dir := t.TempDir()
	var notices bytes.Buffer
	m, _, _ := newTestManager(t, WithNotices(&notices))

	missing := filepath.Join(dir, "missing.pcap")
	result, err := m.Run(context.Background(), []string{"Conference Call", "Music Streaming"}, resolver.Map{"Conference Call": missing})
	require.NoError(t, err)
	assert.True(t, result.NoData)
	assert.Equal(t,
		"File not found: "+missing+"\n"+
			"File not found for 'Music Streaming'\n"+
			"No valid data available for analysis.\n",
		notices.String())
}

func TestRun_MalformedCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pcap")
	require.NoError(t, os.WriteFile(path, []byte("not a capture at all"), 0644))

	m, r, _ := newTestManager(t)
	_, err := m.Run(context.Background(), []string{"Browsing Session 1"}, resolver.Map{"Browsing Session 1": path})
	assert.Error(t, err)
	assert.Zero(t, r.calls)
}

func TestRun_WriterFailuresAreCombined(t *testing.T) {
	dir := t.TempDir()
	failing := &fakeWriter{name: "failing", err: errors.New("disk full")}
	healthy := &fakeWriter{name: "healthy"}
	m, r, _ := newTestManager(t, WithWriters(failing, healthy))

	_, err := m.Run(context.Background(), []string{"Music Streaming"}, resolver.Map{"Music Streaming": writeTrace(t, dir, "m.pcap", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 1, healthy.calls, "a failing writer does not stop the others")
}

func TestAnalyze_Cancelled(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Analyze(ctx, []string{"Music Streaming"}, resolver.Map{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_CustomLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anything.pcap")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	loaded := 0
	m, _, _ := newTestManager(t, WithLoader(func(string) (*model.Trace, error) {
		loaded++
		return &model.Trace{}, nil
	}))
	bundles, err := m.Analyze(context.Background(), []string{"Idle"}, resolver.Map{"Idle": path})
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	require.Len(t, bundles, 1)
	assert.Equal(t, model.FlowSummary{Activity: "Idle"}, bundles[0].Summary, "an empty trace still yields a bundle")
}

func TestNewManager_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Render.Output = filepath.Join(dir, "figure.png")
	cfg.Render.PanelWidth, cfg.Render.PanelHeight = 400, 300
	cfg.Summary.Writers = []config.WriterDef{
		{Type: "csv", Enabled: true, CSV: config.CSVConfig{Path: filepath.Join(dir, "results.csv")}},
		{Type: "nats", Enabled: false},
	}

	var out bytes.Buffer
	m, err := NewManager(cfg, zap.NewNop(), WithReport(&out))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.Run(context.Background(), []string{"Conference Call"}, resolver.Map{"Conference Call": writeTrace(t, dir, "call.pcap", 2)})
	require.NoError(t, err)

	assert.FileExists(t, cfg.Render.Output)
	data, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Activity,Unique_Flows,Total_Packets,Total_Bytes\nConference Call,4,4,3000\n", string(data))
	assert.Contains(t, out.String(), "Conference Call")
}
