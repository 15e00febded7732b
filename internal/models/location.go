package models

import "time"

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// TrackedLocation is a location paired with the time it was observed.
type TrackedLocation struct {
	Location  Location  `bson:"location" json:"location"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
