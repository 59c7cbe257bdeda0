// Package domain models the wildfire records tracked by the map service.
//
// # Data Sources
//
// Fire records originate from two places: the NASA FIRMS (Fire Information
// for Resource Management System) satellite feed, fetched as CSV by the
// collector, grouped into fires, and published to the Kafka detection topic;
// and the seeded sample incidents used for local development.
//
// # Conventions
//
// Severity is a four-level scale: high, medium, low, contained. "contained"
// is terminal: a contained fire is never active regardless of its
// containment percentage. Containment is an integer percentage 0–100;
// reaching 100 does not by itself flip severity to contained in source data,
// so activity is defined by the conjunction of both fields (see [Fire.Active]).
//
// Perimeters are stored the way the upstream feed delivers them: a string
// column containing JSON, an ordered list of {lng,lat} vertices forming a
// closed ring (first vertex repeated last). The string may be absent or
// malformed; both cases mean "no perimeter data yet" and are never an error
// (see [ParsePerimeter]).
//
// Distances are statute miles with an Earth radius of 3958.8 mi, the constant
// the dashboard's nearby-fires radius has always used.
package domain
