package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

// Seed loads the sample dataset: five fires across the western US, two
// active alerts, and a short update feed. Existing records with the same ids
// are overwritten, so seeding is repeatable.
func Seed(ctx context.Context, s Store) error {
	now := domain.Clock().Now()

	fires := []domain.Fire{
		{
			ID: "crf-001", Name: "California Ridge Fire", Location: "Yosemite National Park, CA",
			Latitude: 37.8651, Longitude: -119.5383, Acres: 1243, Containment: 15,
			StartDate: "Sep 12, 2023", Severity: domain.SeverityHigh, Cause: "Lightning",
			NewsURL: "https://www.nps.gov/yose/learn/news/wildfire.htm", Updated: now,
		},
		{
			ID: "emf-002", Name: "Eagle Mountain Fire", Location: "Eagle County, CO",
			Latitude: 39.6553, Longitude: -106.8287, Acres: 487, Containment: 45,
			StartDate: "Sep 14, 2023", Severity: domain.SeverityMedium, Cause: "Human", Updated: now,
		},
		{
			ID: "blf-003", Name: "Blue Lake Fire", Location: "Sierra National Forest, CA",
			Latitude: 37.2046, Longitude: -119.2539, Acres: 150, Containment: 85,
			StartDate: "Sep 10, 2023", Severity: domain.SeverityLow, Cause: "Unknown", Updated: now,
		},
		{
			ID: "rrf-004", Name: "Red Rock Fire", Location: "Coconino County, AZ",
			Latitude: 35.9728, Longitude: -111.9876, Acres: 3200, Containment: 10,
			StartDate: "Sep 8, 2023", Severity: domain.SeverityHigh, Cause: "Lightning",
			NewsURL: "https://www.fs.usda.gov/coconino/", Updated: now,
		},
		{
			ID: "gbf-005", Name: "Green Basin Fire", Location: "Wasatch County, UT",
			Latitude: 40.6461, Longitude: -111.4980, Acres: 890, Containment: 60,
			StartDate: "Sep 13, 2023", Severity: domain.SeverityMedium, Cause: "Campfire", Updated: now,
		},
	}
	for i := range fires {
		ring := domain.CirclePerimeter(fires[i].Latitude, fires[i].Longitude,
			domain.AcresToRadiusKm(fires[i].Acres), 30)
		raw, err := json.Marshal(ring)
		if err != nil {
			return fmt.Errorf("marshal perimeter for %s: %w", fires[i].ID, err)
		}
		fires[i].PerimeterCoordinates = string(raw)
	}
	if err := s.UpsertFires(ctx, fires); err != nil {
		return fmt.Errorf("seed fires: %w", err)
	}

	alerts := []domain.Alert{
		{
			ID: "alert-001", Type: "evacuation", Title: "Evacuation Order",
			Message: "Eagle Mountain Fire - Zones 2 & 3", Severity: domain.SeverityHigh,
			WildfireID: "emf-002", Zones: []string{"Zone 2", "Zone 3"}, Active: true, CreatedAt: now,
		},
		{
			ID: "alert-002", Type: "warning", Title: "Air Quality Warning",
			Message: "Poor air quality near California Ridge Fire", Severity: domain.SeverityMedium,
			WildfireID: "crf-001", Zones: []string{"All areas"}, Active: true, CreatedAt: now,
		},
	}
	for _, a := range alerts {
		if err := s.InsertAlert(ctx, a); err != nil {
			return fmt.Errorf("seed alert %s: %w", a.ID, err)
		}
	}

	updates := []domain.Update{
		{WildfireID: "crf-001", Content: "Containment increased to 15%", Timestamp: mustTime("2023-09-14T10:30:00Z")},
		{WildfireID: "crf-001", Content: "Evacuation orders expanded to Zone 3", Timestamp: mustTime("2023-09-13T18:15:00Z")},
		{WildfireID: "emf-002", Content: "Fire growth slowed due to favorable weather", Timestamp: mustTime("2023-09-15T09:45:00Z")},
	}
	for _, u := range updates {
		if err := s.InsertUpdate(ctx, u); err != nil {
			return fmt.Errorf("seed update for %s: %w", u.WildfireID, err)
		}
	}
	return nil
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
