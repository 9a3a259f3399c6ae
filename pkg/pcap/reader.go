package pcap

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"Go2NetProfile/internal/engine/protocol"
	"Go2NetProfile/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapng files start with a Section Header Block.
const pcapngMagic = 0x0A0D0D0A

// packetDataSource is satisfied by both pcapgo.Reader and pcapgo.NgReader.
type packetDataSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// Options controls decoding of capture files.
type Options struct {
	IPv6 bool
	// MaxPackets caps the number of packets read; 0 reads the whole file.
	MaxPackets int
}

// Reader reads packets from a pcap or pcapng file.
type Reader struct {
	file   *os.File
	source packetDataSource
	path   string
	opts   Options
}

// NewReader opens filePath and detects its container format.
func NewReader(filePath string, opts Options) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(file)
	magic, err := br.Peek(4)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read capture header of '%s': %w", filePath, err)
	}

	var source packetDataSource
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		source, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		source, err = pcapgo.NewReader(br)
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open capture '%s': %w", filePath, err)
	}

	return &Reader{file: file, source: source, path: filePath, opts: opts}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadPackets reads every packet in capture order and hands the parsed record
// to handle. Packets without an accepted network layer are counted and dropped.
func (r *Reader) ReadPackets(handle func(record *model.PacketRecord)) (dropped int, err error) {
	packetSource := gopacket.NewPacketSource(r.source, r.source.LinkType())
	packetSource.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	read := 0
	for r.opts.MaxPackets == 0 || read < r.opts.MaxPackets {
		packet, err := packetSource.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dropped, fmt.Errorf("failed to read packet %d of '%s': %w", read+1, r.path, err)
		}
		read++

		record, err := protocol.ParsePacket(packet, protocol.Options{IPv6: r.opts.IPv6})
		if err != nil {
			dropped++
			continue
		}
		handle(record)
	}
	return dropped, nil
}

// ReadTrace reads the whole file and normalises record offsets so the earliest
// packet sits at zero.
func (r *Reader) ReadTrace() (*model.Trace, error) {
	trace := &model.Trace{
		Path:     r.path,
		LinkType: r.source.LinkType().String(),
	}

	dropped, err := r.ReadPackets(func(record *model.PacketRecord) {
		trace.Records = append(trace.Records, *record)
	})
	if err != nil {
		return nil, err
	}
	trace.Dropped = dropped

	Normalize(trace.Records)
	return trace, nil
}

// Load opens, reads and closes a capture file.
func Load(filePath string, opts Options) (*model.Trace, error) {
	reader, err := NewReader(filePath, opts)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.ReadTrace()
}

// Normalize sets each record's Offset relative to the earliest timestamp.
// Records keep their capture order.
func Normalize(records []model.PacketRecord) {
	if len(records) == 0 {
		return
	}
	var earliest time.Time
	for i, rec := range records {
		if i == 0 || rec.Timestamp.Before(earliest) {
			earliest = rec.Timestamp
		}
	}
	for i := range records {
		records[i].Offset = records[i].Timestamp.Sub(earliest)
	}
}
