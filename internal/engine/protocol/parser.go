package protocol

import (
	"errors"
	"net/netip"

	"Go2NetProfile/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrNoNetworkLayer is returned for packets without an accepted IP header.
var ErrNoNetworkLayer = errors.New("no network layer")

// Options controls which network layers are accepted.
type Options struct {
	IPv6 bool
}

// ParsePacket extracts the record fields from a decoded packet. Offset is left
// zero; it is filled in once the earliest timestamp of the trace is known.
func ParsePacket(packet gopacket.Packet, opts Options) (*model.PacketRecord, error) {
	record := &model.PacketRecord{Length: len(packet.Data())}

	if meta := packet.Metadata(); meta != nil {
		record.Timestamp = meta.Timestamp
		if meta.Length > 0 {
			record.Length = meta.Length
		}
	}

	var flow model.FlowKey
	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		flow.SrcIP = addrFrom(ip.SrcIP)
		flow.DstIP = addrFrom(ip.DstIP)
		record.Protocol = uint8(ip.Protocol)
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil && opts.IPv6 {
		ip := l.(*layers.IPv6)
		flow.SrcIP = addrFrom(ip.SrcIP)
		flow.DstIP = addrFrom(ip.DstIP)
		record.Protocol = uint8(ip.NextHeader)
	} else {
		return nil, ErrNoNetworkLayer
	}

	// Ports stay zero for anything that is not TCP or UDP.
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		flow.SrcPort = uint16(tcp.SrcPort)
		flow.DstPort = uint16(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		flow.SrcPort = uint16(udp.SrcPort)
		flow.DstPort = uint16(udp.DstPort)
	}

	record.Flow = flow
	return record, nil
}

func addrFrom(ip []byte) netip.Addr {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}
