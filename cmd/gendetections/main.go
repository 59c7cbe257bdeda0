// Command gendetections writes synthetic FIRMS detection fixtures for local
// development and test-assertion updates. It runs the real ingest transform
// over the generated rows so the JSON fixture matches actual collector
// behavior, and prints aggregate stats to paste into test expectations.
//
// Usage:
//
//	go run ./cmd/gendetections \
//	  -csv-out data/mock/detections.csv \
//	  -json-out data/mock/candidate_fires.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/ingest"
)

var acquired = time.Date(2023, time.September, 15, 3, 42, 0, 0, time.UTC)

// site is a synthetic fire location. Detections scatter around its center
// with intensity drawn from the configured FRP range.
type site struct {
	name       string
	lat, lng   float64
	detections int
	minFRP     float64
	maxFRP     float64
	confidence float64
}

var sites = []site{
	{name: "yosemite", lat: 37.8651, lng: -119.5383, detections: 14, minFRP: 90, maxFRP: 220, confidence: 88},
	{name: "eagle-county", lat: 39.6553, lng: -106.8287, detections: 6, minFRP: 40, maxFRP: 75, confidence: 72},
	{name: "coconino", lat: 35.9728, lng: -111.9876, detections: 20, minFRP: 120, maxFRP: 300, confidence: 92},
	{name: "wasatch", lat: 40.6461, lng: -111.4980, detections: 4, minFRP: 15, maxFRP: 45, confidence: 60},
	{name: "smolder", lat: 44.4280, lng: -110.5885, detections: 2, minFRP: 4, maxFRP: 8, confidence: 20},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "", "output path for the FIRMS-format CSV fixture")
	jsonOut := flag.String("json-out", "", "output path for the transformed candidate fire JSON fixture")
	seed := flag.Int64("seed", 20230915, "random seed for detection scatter")
	flag.Parse()

	if *csvOut == "" || *jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv-out, -json-out")
	}

	// Fix the clock so generated ids and timestamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2023, time.September, 15, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))
	detections := generate(rng)
	log.Printf("generated %d detections across %d sites", len(detections), len(sites))

	if err := writeCSV(*csvOut, detections); err != nil {
		return fmt.Errorf("writing CSV fixture: %w", err)
	}
	log.Printf("wrote CSV fixture: %s", *csvOut)

	fires := ingest.FromDetections(detections)
	if err := writeJSON(*jsonOut, fires); err != nil {
		return fmt.Errorf("writing JSON fixture: %w", err)
	}
	log.Printf("wrote JSON fixture: %s", *jsonOut)

	printStats(fires)
	return nil
}

func generate(rng *rand.Rand) []ingest.Detection {
	var out []ingest.Detection
	for _, s := range sites {
		for i := 0; i < s.detections; i++ {
			// Scatter within roughly one grid cell of the site center so
			// each site collapses into a handful of candidate fires.
			out = append(out, ingest.Detection{
				Latitude:   s.lat + (rng.Float64()-0.5)*0.02,
				Longitude:  s.lng + (rng.Float64()-0.5)*0.02,
				Brightness: 300 + rng.Float64()*100,
				Confidence: s.confidence,
				FRP:        s.minFRP + rng.Float64()*(s.maxFRP-s.minFRP),
				Satellite:  "Terra",
				AcquiredAt: acquired,
			})
		}
	}
	return out
}

func writeCSV(path string, detections []ingest.Detection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"latitude", "longitude", "brightness", "confidence", "frp", "satellite", "acq_date", "acq_time"}); err != nil {
		return err
	}
	for _, d := range detections {
		row := []string{
			fmt.Sprintf("%.5f", d.Latitude),
			fmt.Sprintf("%.5f", d.Longitude),
			fmt.Sprintf("%.1f", d.Brightness),
			fmt.Sprintf("%.0f", d.Confidence),
			fmt.Sprintf("%.1f", d.FRP),
			d.Satellite,
			d.AcquiredAt.Format("2006-01-02"),
			d.AcquiredAt.Format("1504"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(fires []domain.Fire) {
	severityCounts := map[domain.Severity]int{}
	totalAcres := 0
	active := 0
	for i := range fires {
		f := &fires[i]
		severityCounts[f.Severity]++
		totalAcres += f.Acres
		if f.Active() {
			active++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Candidate fires: %d\n", len(fires))
	fmt.Printf("Active: %d\n", active)
	fmt.Printf("Total acres: %d\n", totalAcres)
	fmt.Printf("By severity: high=%d, medium=%d, low=%d, contained=%d\n",
		severityCounts[domain.SeverityHigh], severityCounts[domain.SeverityMedium],
		severityCounts[domain.SeverityLow], severityCounts[domain.SeverityContained])

	if len(fires) > 0 {
		f := &fires[0]
		fmt.Printf("\nFirst candidate:\n")
		fmt.Printf("  ID: %s\n", f.ID)
		fmt.Printf("  Name: %s\n", f.Name)
		fmt.Printf("  Lat: %g, Lng: %g\n", f.Latitude, f.Longitude)
		fmt.Printf("  Acres: %d, Severity: %s\n", f.Acres, f.Severity)
		fmt.Printf("  StartDate: %s\n", f.StartDate)
		ring := f.Perimeter()
		fmt.Printf("  Perimeter points: %d\n", len(ring))
	}
}
