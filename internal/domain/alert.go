package domain

import "time"

// Alert is an evacuation order, air-quality warning, or similar notice,
// optionally tied to one fire.
type Alert struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Severity   Severity  `json:"severity"`
	WildfireID string    `json:"wildfireId,omitempty"`
	Zones      []string  `json:"zones,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Update is a timestamped status line on a fire ("Containment increased to 15%").
type Update struct {
	ID         int       `json:"id"`
	WildfireID string    `json:"wildfireId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Subscription registers a contact for alerts on a fire. Delivery is out of
// scope; the record is only stored.
type Subscription struct {
	ID         int       `json:"id"`
	WildfireID string    `json:"wildfireId"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stats summarizes the currently burning fires. The API always populates
// NearbyFiresCount, zero when the caller supplied no reference point; the
// pointer exists so producers that never computed it can omit the field.
type Stats struct {
	ActiveFiresCount  int  `json:"activeFiresCount"`
	TotalAcresBurning int  `json:"totalAcresBurning"`
	NearbyFiresCount  *int `json:"nearbyFiresCount,omitempty"`
}
