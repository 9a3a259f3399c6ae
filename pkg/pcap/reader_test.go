package pcap

import (
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Go2NetProfile/internal/model"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func writeTrace(t *testing.T, packets []SynthPacket) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.pcap")
	require.NoError(t, WriteTraceFile(path, testBase, packets))
	return path
}

func TestReader_ReadTrace(t *testing.T) {
	client, server := net.IPv4(192, 168, 1, 10), net.IPv4(93, 184, 216, 34)
	packets := []SynthPacket{
		{Offset: 2 * time.Second, SrcIP: client, DstIP: server, SrcPort: 50000, DstPort: 443, Size: 64},
		{Offset: 2*time.Second + 50*time.Millisecond, SrcIP: server, DstIP: client, SrcPort: 443, DstPort: 50000, Size: 1500},
		{Offset: 2*time.Second + 60*time.Millisecond, Transport: TransportARP, Size: 60},
		{Offset: 3 * time.Second, SrcIP: client, DstIP: server, SrcPort: 5353, DstPort: 53, Transport: TransportUDP, Size: 90},
		{Offset: 4 * time.Second, SrcIP: client, DstIP: server, Transport: TransportICMP, Size: 98},
	}
	trace, err := Load(writeTrace(t, packets), Options{})
	require.NoError(t, err)

	assert.Equal(t, "Ethernet", trace.LinkType)
	assert.Equal(t, 1, trace.Dropped, "the ARP frame has no IP header")
	require.Len(t, trace.Records, 4)

	wantOffsets := []time.Duration{0, 50 * time.Millisecond, time.Second, 2 * time.Second}
	wantSizes := []int{64, 1500, 90, 98}
	for i, rec := range trace.Records {
		assert.Equal(t, wantOffsets[i], rec.Offset, "record %d", i)
		assert.Equal(t, wantSizes[i], rec.Length, "record %d", i)
	}
	assert.Equal(t, testBase.Add(2*time.Second), trace.Records[0].Timestamp)
	assert.Equal(t, uint16(443), trace.Records[1].Flow.SrcPort)
	assert.Equal(t, uint16(53), trace.Records[2].Flow.DstPort)
	assert.Zero(t, trace.Records[3].Flow.SrcPort)
}

// toPcapng copies a classic pcap file into a pcapng file.
func toPcapng(t *testing.T, src string) string {
	t.Helper()
	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()
	r, err := pcapgo.NewReader(in)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "trace.pcapng")
	out, err := os.Create(dst)
	require.NoError(t, err)
	defer out.Close()
	w, err := pcapgo.NewNgWriter(out, layers.LinkTypeEthernet)
	require.NoError(t, err)

	for {
		data, ci, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.NoError(t, w.WritePacket(ci, data))
	}
	require.NoError(t, w.Flush())
	return dst
}

func TestReader_Pcapng(t *testing.T) {
	packets := []SynthPacket{
		{Offset: 3 * time.Second, SrcPort: 40000, DstPort: 443, Size: 100},
		{Offset: 4 * time.Second, SrcPort: 443, DstPort: 40000, Size: 200},
	}
	trace, err := Load(toPcapng(t, writeTrace(t, packets)), Options{})
	require.NoError(t, err)

	require.Len(t, trace.Records, 2)
	assert.Equal(t, time.Duration(0), trace.Records[0].Offset)
	assert.Equal(t, time.Second, trace.Records[1].Offset)
	assert.Equal(t, 100, trace.Records[0].Length)
	assert.Equal(t, 200, trace.Records[1].Length)
	assert.Equal(t, uint16(443), trace.Records[1].Flow.SrcPort)
}

func TestReader_OnlyNonIP(t *testing.T) {
	packets := []SynthPacket{
		{Offset: 0, Transport: TransportARP},
		{Offset: time.Second, Transport: TransportARP},
	}
	trace, err := Load(writeTrace(t, packets), Options{})
	require.NoError(t, err)
	assert.Empty(t, trace.Records)
	assert.Equal(t, 2, trace.Dropped)
}

func TestReader_MaxPackets(t *testing.T) {
	packets := make([]SynthPacket, 10)
	for i := range packets {
		packets[i] = SynthPacket{Offset: time.Duration(i) * time.Millisecond, SrcPort: uint16(1000 + i), DstPort: 80, Size: 100}
	}
	trace, err := Load(writeTrace(t, packets), Options{MaxPackets: 3})
	require.NoError(t, err)
	assert.Len(t, trace.Records, 3)
}

func TestReader_IPv6(t *testing.T) {
	packets := []SynthPacket{
		{SrcIP: net.ParseIP("2001:db8::1"), DstIP: net.ParseIP("2001:db8::2"), SrcPort: 1, DstPort: 2, Size: 120},
		{Offset: time.Millisecond, SrcPort: 3, DstPort: 4, Size: 120},
	}
	path := writeTrace(t, packets)

	trace, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Len(t, trace.Records, 1)
	assert.Equal(t, 1, trace.Dropped)

	trace, err = Load(path, Options{IPv6: true})
	require.NoError(t, err)
	assert.Len(t, trace.Records, 2)
}

func TestReader_Errors(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.pcap"), Options{})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("NotACapture", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a pcap file"), 0644))
		_, err := Load(path, Options{})
		assert.Error(t, err)
	})

	t.Run("Truncated", func(t *testing.T) {
		path := writeTrace(t, []SynthPacket{{Size: 200}, {Offset: time.Millisecond, Size: 200}})
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data[:len(data)-50], 0644))

		_, err = Load(path, Options{})
		assert.Error(t, err)
	})
}

func TestNormalize(t *testing.T) {
	records := []model.PacketRecord{
		{Timestamp: testBase.Add(3 * time.Second)},
		{Timestamp: testBase.Add(time.Second)},
		{Timestamp: testBase.Add(2 * time.Second)},
	}
	Normalize(records)

	assert.Equal(t, 2*time.Second, records[0].Offset)
	assert.Equal(t, time.Duration(0), records[1].Offset, "minimum offset is zero even out of order")
	assert.Equal(t, time.Second, records[2].Offset)

	Normalize(nil)
}
