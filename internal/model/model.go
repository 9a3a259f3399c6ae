package model

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/spaolacci/murmur3"
)

const (
	ipByteSize   = 16
	portByteSize = 2

	// FlowKeySize is the length of the canonical FlowKey encoding.
	FlowKeySize = 2*ipByteSize + 2*portByteSize
)

// FlowKey identifies a flow by its four-tuple. Ports are zero when the packet
// carries no TCP or UDP header. FlowKey is comparable and is used directly as a
// map key.
type FlowKey struct {
	SrcIP   netip.Addr
	DstIP   netip.Addr
	SrcPort uint16
	DstPort uint16
}

// Bytes returns the canonical encoding of the key: both addresses widened to
// 16 bytes followed by the big-endian ports.
func (k FlowKey) Bytes() []byte {
	buf := make([]byte, 0, FlowKeySize)
	src := k.SrcIP.As16()
	dst := k.DstIP.As16()
	buf = append(buf, src[:]...)
	buf = append(buf, dst[:]...)
	buf = append(buf, byte(k.SrcPort>>8), byte(k.SrcPort))
	buf = append(buf, byte(k.DstPort>>8), byte(k.DstPort))
	return buf
}

// Hash returns a stable 64-bit MurmurHash3 of the canonical encoding.
func (k FlowKey) Hash() uint64 {
	return murmur3.Sum64(k.Bytes())
}

func (k FlowKey) String() string {
	return fmt.Sprintf("%s:%d->%s:%d", k.SrcIP, k.SrcPort, k.DstIP, k.DstPort)
}

// PacketRecord holds the metadata extracted from a single IP packet.
type PacketRecord struct {
	Timestamp time.Time     // capture time
	Offset    time.Duration // relative to the earliest packet of the trace
	Length    int           // wire length
	Protocol  uint8
	Flow      FlowKey
}

// Trace is a loaded capture file.
type Trace struct {
	Path     string
	LinkType string
	Records  []PacketRecord
	// Dropped counts packets discarded for lacking an accepted network layer.
	Dropped int
}

// SeriesPoint is one bucket of a time-indexed series.
type SeriesPoint struct {
	Bucket int64
	Value  uint64
}

// Flow represents the aggregated traffic of one four-tuple within a trace.
type Flow struct {
	Key       FlowKey
	ID        uint64
	FirstSeen time.Duration
	LastSeen  time.Duration
	Packets   uint64
	Bytes     uint64
}

// FlowSummary is the scalar flow aggregation of one activity. It is also the
// row type of the summary table.
type FlowSummary struct {
	Activity     string
	UniqueFlows  uint64
	TotalPackets uint64
	TotalBytes   uint64
}

// ActivityBundle holds every metric derived from one analysed trace.
type ActivityBundle struct {
	Activity    string
	Source      string
	BucketWidth time.Duration
	// Throughput is the byte sum per bucket; PacketRate the packet count per
	// bucket. Only buckets containing packets are present, in bucket order.
	Throughput   []SeriesPoint
	PacketRate   []SeriesPoint
	InterArrival []time.Duration
	PacketSizes  []int
	Duration     time.Duration
	Summary      FlowSummary
	TopFlows     []Flow
}

// Run stamps a single execution of the pipeline.
type Run struct {
	ID        string
	StartedAt time.Time
}
