package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"Go2NetProfile/internal/model"
	"Go2NetProfile/pkg/pcap"
)

func main() {
	count := flag.Int("n", 5, "Number of packets to print")
	ipv6 := flag.Bool("6", false, "Accept IPv6 packets")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana [-n N] [-6] <path_to_pcap_file>")
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	reader, err := pcap.NewReader(pcapFilePath, pcap.Options{IPv6: *ipv6, MaxPackets: *count})
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	i := 0
	dropped, err := reader.ReadPackets(func(rec *model.PacketRecord) {
		i++
		fmt.Printf("[%s] %s proto=%d len=%d\n",
			rec.Timestamp.Format("15:04:05.000"),
			rec.Flow, rec.Protocol, rec.Length,
		)
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d records, %d non-IP packets skipped\n", i, dropped)
}
