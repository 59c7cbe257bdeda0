package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

// gridPrecision rounds detection coordinates to two decimals, roughly 1 km,
// so detections from the same burn scar land in one group.
const gridPrecision = 100

// mergeDistanceKm is how close a detection group must be to an existing fire
// to count as the same fire.
const mergeDistanceKm = 5

// acresPerMegawatt is a rough FRP-to-burned-area factor. FIRMS reports
// radiative power, not area; this keeps marker sizing plausible.
const acresPerMegawatt = 2.5

// FromDetections groups raw detections into candidate fire records: grid
// grouping, weighted centroid, acreage and severity estimated from fire
// radiative power and confidence, and a circular perimeter ring sized from
// the acreage. Candidate ids are fresh; MergeExisting reconciles them with
// fires already in the store.
func FromDetections(detections []Detection) []domain.Fire {
	groups := make(map[string][]Detection)
	for _, d := range detections {
		key := fmt.Sprintf("%g,%g",
			math.Round(d.Latitude*gridPrecision)/gridPrecision,
			math.Round(d.Longitude*gridPrecision)/gridPrecision)
		groups[key] = append(groups[key], d)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := domain.Clock().Now()
	fires := make([]domain.Fire, 0, len(groups))
	for _, key := range keys {
		group := groups[key]

		var sumLat, sumLng, sumFRP, sumConf float64
		mostRecent := group[0].AcquiredAt
		for _, d := range group {
			sumLat += d.Latitude
			sumLng += d.Longitude
			sumFRP += d.FRP
			sumConf += d.Confidence
			if d.AcquiredAt.After(mostRecent) {
				mostRecent = d.AcquiredAt
			}
		}
		n := float64(len(group))
		lat, lng := sumLat/n, sumLng/n
		avgFRP, avgConf := sumFRP/n, sumConf/n

		acres := int(math.Round(avgFRP * acresPerMegawatt))
		locationName := fmt.Sprintf("Lat %.2f, Lon %.2f", lat, lng)

		ring := domain.CirclePerimeter(lat, lng, domain.AcresToRadiusKm(acres), 30)
		rawRing, _ := json.Marshal(ring)

		fires = append(fires, domain.Fire{
			ID:                   "fire-" + uuid.NewString()[:8],
			Name:                 "Wildfire at " + locationName,
			Location:             locationName,
			Latitude:             lat,
			Longitude:            lng,
			Acres:                acres,
			Containment:          0,
			StartDate:            mostRecent.Format("Jan 2, 2006"),
			Severity:             severityFor(avgFRP, avgConf),
			Cause:                "Unknown",
			PerimeterCoordinates: string(rawRing),
			Updated:              now,
		})
	}
	return fires
}

// severityFor classifies a detection group by average radiative power and
// confidence.
func severityFor(avgFRP, avgConfidence float64) domain.Severity {
	switch {
	case avgFRP > 100 && avgConfidence > 80:
		return domain.SeverityHigh
	case avgFRP > 50 || avgConfidence > 70:
		return domain.SeverityMedium
	case avgFRP < 10 && avgConfidence < 30:
		return domain.SeverityContained
	default:
		return domain.SeverityLow
	}
}

// MergeExisting reconciles candidate fires with fires already stored. A
// candidate within 5 km of an existing fire keeps that fire's identity:
// its id, name, containment, and start date survive, while position,
// acreage, severity, and perimeter come from the fresh detections.
func MergeExisting(candidates, existing []domain.Fire) []domain.Fire {
	const mergeDistanceMiles = mergeDistanceKm / 1.60934

	merged := make([]domain.Fire, len(candidates))
	for i, c := range candidates {
		for _, e := range existing {
			if domain.DistanceMiles(c.Latitude, c.Longitude, e.Latitude, e.Longitude) < mergeDistanceMiles {
				c.ID = e.ID
				c.Name = e.Name
				c.Containment = e.Containment
				c.StartDate = e.StartDate
				break
			}
		}
		merged[i] = c
	}
	return merged
}
