package pcap

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const (
	ethernetHeaderLen = 14
	ipv4HeaderLen     = 20
	ipv6HeaderLen     = 40
	tcpHeaderLen      = 20
	udpHeaderLen      = 8
	icmpHeaderLen     = 8
	arpLen            = 28

	snapLen = 65536
)

// Transport selects the layer 4 header of a synthetic packet.
type Transport int

const (
	TransportTCP Transport = iota
	TransportUDP
	TransportICMP
	// TransportARP produces an Ethernet frame without any IP header.
	TransportARP
)

// SynthPacket describes one Ethernet frame to be written by SynthWriter.
type SynthPacket struct {
	Offset    time.Duration
	SrcIP     net.IP
	DstIP     net.IP
	SrcPort   uint16
	DstPort   uint16
	Transport Transport
	// Size is the frame length on the wire. Frames are padded with payload
	// up to Size; Ethernet never emits frames shorter than 60 bytes.
	Size int
}

// SynthWriter writes synthetic Ethernet frames into a classic pcap stream.
type SynthWriter struct {
	w    *pcapgo.Writer
	base time.Time
}

// NewSynthWriter writes the pcap file header and returns a writer whose packet
// timestamps are relative to base.
func NewSynthWriter(w io.Writer, base time.Time) (*SynthWriter, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &SynthWriter{w: pw, base: base}, nil
}

// Write serializes and appends one packet.
func (s *SynthWriter) Write(p SynthPacket) error {
	data, err := serialize(p)
	if err != nil {
		return err
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     s.base.Add(p.Offset),
		CaptureLength: len(data),
		Length:        len(data),
	}
	return s.w.WritePacket(ci, data)
}

// WriteTraceFile creates path and writes all packets into it.
func WriteTraceFile(path string, base time.Time, packets []SynthPacket) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file '%s': %w", path, err)
	}
	defer f.Close()

	sw, err := NewSynthWriter(f, base)
	if err != nil {
		return err
	}
	for i, p := range packets {
		if err := sw.Write(p); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return f.Close()
}

func serialize(p SynthPacket) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	buf := gopacket.NewSerializeBuffer()

	if p.Transport == TransportARP {
		eth.EthernetType = layers.EthernetTypeARP
		eth.DstMAC = layers.EthernetBroadcast
		arp := &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   []byte(eth.SrcMAC),
			SourceProtAddress: []byte(orDefault(p.SrcIP, net.IPv4(10, 0, 0, 1)).To4()),
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    []byte(orDefault(p.DstIP, net.IPv4(10, 0, 0, 2)).To4()),
		}
		pad := gopacket.Payload(make([]byte, padding(p.Size, ethernetHeaderLen+arpLen)))
		if err := gopacket.SerializeLayers(buf, opts, eth, arp, pad); err != nil {
			return nil, fmt.Errorf("failed to serialize layers: %w", err)
		}
		return buf.Bytes(), nil
	}

	src, dst := orDefault(p.SrcIP, net.IPv4(10, 0, 0, 1)), orDefault(p.DstIP, net.IPv4(10, 0, 0, 2))
	var (
		network   gopacket.SerializableLayer
		netLayer  gopacket.NetworkLayer
		headerLen = ethernetHeaderLen
	)
	if src.To4() != nil {
		ip := &layers.IPv4{Version: 4, TTL: 64, SrcIP: src.To4(), DstIP: dst.To4()}
		ip.Protocol = ipProtocol(p.Transport)
		network, netLayer = ip, ip
		headerLen += ipv4HeaderLen
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{Version: 6, HopLimit: 64, SrcIP: src.To16(), DstIP: dst.To16()}
		ip.NextHeader = ipProtocol(p.Transport)
		network, netLayer = ip, ip
		headerLen += ipv6HeaderLen
	}

	var transport gopacket.SerializableLayer
	switch p.Transport {
	case TransportTCP:
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(p.SrcPort),
			DstPort: layers.TCPPort(p.DstPort),
			ACK:     true,
			Window:  14600,
		}
		if err := tcp.SetNetworkLayerForChecksum(netLayer); err != nil {
			return nil, err
		}
		transport = tcp
		headerLen += tcpHeaderLen
	case TransportUDP:
		udp := &layers.UDP{SrcPort: layers.UDPPort(p.SrcPort), DstPort: layers.UDPPort(p.DstPort)}
		if err := udp.SetNetworkLayerForChecksum(netLayer); err != nil {
			return nil, err
		}
		transport = udp
		headerLen += udpHeaderLen
	case TransportICMP:
		transport = &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
		headerLen += icmpHeaderLen
	default:
		return nil, fmt.Errorf("unknown transport %d", p.Transport)
	}

	payload := gopacket.Payload(make([]byte, padding(p.Size, headerLen)))
	if err := gopacket.SerializeLayers(buf, opts, eth, network, transport, payload); err != nil {
		return nil, fmt.Errorf("failed to serialize layers: %w", err)
	}
	return buf.Bytes(), nil
}

func ipProtocol(t Transport) layers.IPProtocol {
	switch t {
	case TransportUDP:
		return layers.IPProtocolUDP
	case TransportICMP:
		return layers.IPProtocolICMPv4
	default:
		return layers.IPProtocolTCP
	}
}

func padding(size, headerLen int) int {
	if size <= headerLen {
		return 0
	}
	return size - headerLen
}

func orDefault(ip, def net.IP) net.IP {
	if ip == nil {
		return def
	}
	return ip
}
