package main

import (
	"math/rand"
	"net"
	"sort"
	"time"

	"Go2NetProfile/pkg/pcap"
)

// profile produces the packets of one synthetic activity over d.
type profile func(rng *rand.Rand, d time.Duration) []pcap.SynthPacket

var client = net.IPv4(192, 168, 1, 23)

func server(rng *rand.Rand) net.IP {
	return net.IPv4(byte(rng.Intn(200)+20), byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(254)+1))
}

// exchange appends a request and its response burst on one TCP connection.
func exchange(packets []pcap.SynthPacket, rng *rand.Rand, at time.Duration, srv net.IP, port uint16, responses, size int) []pcap.SynthPacket {
	packets = append(packets, pcap.SynthPacket{Offset: at, SrcIP: client, DstIP: srv, SrcPort: port, DstPort: 443, Size: 60 + rng.Intn(500)})
	for i := 0; i < responses; i++ {
		at += time.Duration(rng.Intn(3000)) * time.Microsecond
		packets = append(packets, pcap.SynthPacket{Offset: at, SrcIP: srv, DstIP: client, SrcPort: 443, DstPort: port, Size: size})
		if i%2 == 1 {
			packets = append(packets, pcap.SynthPacket{Offset: at + 200*time.Microsecond, SrcIP: client, DstIP: srv, SrcPort: port, DstPort: 443, Size: 66})
		}
	}
	return packets
}

// browsing opens many short connections in bursts separated by think time.
func browsing(rng *rand.Rand, d time.Duration) []pcap.SynthPacket {
	var packets []pcap.SynthPacket
	port := uint16(49152)
	for at := time.Duration(0); at < d; at += time.Duration(2000+rng.Intn(6000)) * time.Millisecond {
		pages := 3 + rng.Intn(8)
		for i := 0; i < pages; i++ {
			port++
			start := at + time.Duration(rng.Intn(400))*time.Millisecond
			packets = exchange(packets, rng, start, server(rng), port, 2+rng.Intn(30), 600+rng.Intn(900))
		}
		packets = append(packets, pcap.SynthPacket{
			Offset: at, SrcIP: client, DstIP: net.IPv4(192, 168, 1, 1),
			SrcPort: 5353, DstPort: 53, Transport: pcap.TransportUDP, Size: 80,
		})
	}
	return packets
}

// streaming pulls fixed-size chunks from one server at a steady interval.
func streaming(chunk time.Duration, packetsPerChunk int) profile {
	return func(rng *rand.Rand, d time.Duration) []pcap.SynthPacket {
		var packets []pcap.SynthPacket
		srv := server(rng)
		for at := time.Duration(0); at < d; at += chunk {
			packets = exchange(packets, rng, at, srv, 50123, packetsPerChunk, 1514)
		}
		return packets
	}
}

// conferencing sends small UDP media packets both ways at a constant rate.
func conferencing(rng *rand.Rand, d time.Duration) []pcap.SynthPacket {
	var packets []pcap.SynthPacket
	relay := server(rng)
	for at := time.Duration(0); at < d; at += 20 * time.Millisecond {
		jitter := time.Duration(rng.Intn(2000)) * time.Microsecond
		packets = append(packets,
			pcap.SynthPacket{Offset: at, SrcIP: client, DstIP: relay, SrcPort: 50000, DstPort: 3478, Transport: pcap.TransportUDP, Size: 200 + rng.Intn(1000)},
			pcap.SynthPacket{Offset: at + jitter, SrcIP: relay, DstIP: client, SrcPort: 3478, DstPort: 50000, Transport: pcap.TransportUDP, Size: 200 + rng.Intn(1000)},
		)
	}
	return packets
}

var profiles = map[string]profile{
	"browsing":     browsing,
	"music":        streaming(2*time.Second, 40),
	"video":        streaming(500*time.Millisecond, 300),
	"conferencing": conferencing,
}

// activityProfiles maps the default activities to a profile and a file name.
var activityProfiles = []struct {
	activity string
	profile  string
	file     string
}{
	{"Browsing Session 1", "browsing", "browsing1.pcap"},
	{"Browsing Session 2", "browsing", "browsing2.pcap"},
	{"Music Streaming", "music", "music.pcap"},
	{"HD Video Streaming", "video", "video.pcap"},
	{"Conference Call", "conferencing", "conference.pcap"},
}

func generate(p profile, rng *rand.Rand, d time.Duration) []pcap.SynthPacket {
	packets := p(rng, d)
	sort.SliceStable(packets, func(i, j int) bool { return packets[i].Offset < packets[j].Offset })
	return packets
}
