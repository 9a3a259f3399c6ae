package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"Go2NetProfile/pkg/pcap"
)

func main() {
	outputDir := flag.String("o", "testdata", "Output directory for the pcap files")
	duration := flag.Duration("d", 60*time.Second, "Length of every generated trace")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	base := time.Now().Truncate(time.Second)

	fmt.Println("activities:")
	for _, ap := range activityProfiles {
		path := filepath.Join(*outputDir, ap.file)
		packets := generate(profiles[ap.profile], rng, *duration)
		if err := pcap.WriteTraceFile(path, base, packets); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		log.Printf("Generated %d packets for '%s' into %s.", len(packets), ap.activity, path)
		fmt.Printf("  - name: %q\n    path: %q\n", ap.activity, path)
	}
}
