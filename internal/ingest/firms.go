// Package ingest turns NASA FIRMS satellite detections into wildfire
// records. The collector fetches and transforms detections and publishes
// them to Kafka; the server-side consumer merges them into the store.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/observability"
)

// Detection is one row of the FIRMS area CSV feed.
type Detection struct {
	Latitude   float64
	Longitude  float64
	Brightness float64
	Confidence float64
	FRP        float64 // fire radiative power, megawatts
	Satellite  string
	AcquiredAt time.Time
}

// FIRMSClient fetches active-fire detections from the FIRMS area API.
type FIRMSClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	source     string
	area       string
	dayRange   int
	bounds     domain.Bounds
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// DefaultFIRMSBaseURL is the production FIRMS endpoint.
const DefaultFIRMSBaseURL = "https://firms.modaps.eosdis.nasa.gov"

// NewFIRMSClient creates a client for one satellite source and area.
// Detections outside bounds are dropped during parsing.
func NewFIRMSClient(baseURL, apiKey, source, area string, dayRange int, bounds domain.Bounds, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *FIRMSClient {
	if baseURL == "" {
		baseURL = DefaultFIRMSBaseURL
	}
	return &FIRMSClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		source:     source,
		area:       area,
		dayRange:   dayRange,
		bounds:     bounds,
		logger:     logger,
		metrics:    metrics,
	}
}

// Fetch downloads and parses the detection CSV for the configured window.
func (c *FIRMSClient) Fetch(ctx context.Context) ([]Detection, error) {
	u := fmt.Sprintf("%s/api/area/csv/%s/%s/%s/%d", c.baseURL, c.apiKey, c.source, c.area, c.dayRange)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("firms API error: status %d: %s", resp.StatusCode, body)
	}

	detections, skipped, err := c.parseCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	c.metrics.TransformErrors.Add(float64(skipped))
	c.logger.Info("firms fetch complete",
		"source", c.source, "detections", len(detections), "skipped", skipped)
	return detections, nil
}

// parseCSV reads the feed by header name, so column reordering upstream does
// not break ingestion. Rows with unparseable coordinates or outside the
// configured bounds are counted and dropped.
func (c *FIRMSClient) parseCSV(r io.Reader) ([]Detection, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read firms header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"latitude", "longitude"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("firms feed missing column %q", required)
		}
	}

	var detections []Detection
	skipped := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read firms row: %w", err)
		}

		d, ok := c.parseRow(col, row)
		if !ok {
			skipped++
			continue
		}
		detections = append(detections, d)
	}
	return detections, skipped, nil
}

func (c *FIRMSClient) parseRow(col map[string]int, row []string) (Detection, bool) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	num := func(name string) float64 {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return 0
		}
		return v
	}

	lat, latErr := strconv.ParseFloat(field("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(field("longitude"), 64)
	if latErr != nil || lngErr != nil {
		return Detection{}, false
	}
	if !c.bounds.Contains(lat, lng) {
		return Detection{}, false
	}

	return Detection{
		Latitude:   lat,
		Longitude:  lng,
		Brightness: num("brightness"),
		Confidence: num("confidence"),
		FRP:        num("frp"),
		Satellite:  field("satellite"),
		AcquiredAt: parseAcquired(field("acq_date"), field("acq_time")),
	}, true
}

// parseAcquired combines the feed's acq_date ("2023-09-15") and acq_time
// ("0342", minutes-of-day as HHMM) columns.
func parseAcquired(date, hhmm string) time.Time {
	if len(hhmm) < 4 {
		hhmm = "0000"
	}
	t, err := time.Parse("2006-01-02 15:04", fmt.Sprintf("%s %s:%s", date, hhmm[:2], hhmm[2:4]))
	if err != nil {
		return time.Time{}
	}
	return t
}
