package models

import (
	"fmt"
	"math"
)

// EarthRadiusMeters matches the radius MongoDB uses for spherical $geoNear
// distances so that in-memory and Mongo rankings agree.
const EarthRadiusMeters = 6378100.0

const degToRad = math.Pi / 180.0

// GeoPoint holds a GeoJSON point as stored in mongo. Coordinates are
// [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

// NewPoint builds a GeoJSON point from a longitude and latitude
func NewPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

// Lng returns the longitude
func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }

// Lat returns the latitude
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// Valid reports whether the point carries finite, in-range coordinates
func (p GeoPoint) Valid() bool {
	lng, lat := p.Lng(), p.Lat()
	if math.IsNaN(lng) || math.IsNaN(lat) || math.IsInf(lng, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// DistanceTo returns the great-circle distance in meters using the haversine formula
func (p GeoPoint) DistanceTo(o GeoPoint) float64 {
	lat1 := p.Lat() * degToRad
	lat2 := o.Lat() * degToRad
	dLat := (o.Lat() - p.Lat()) * degToRad
	dLng := (o.Lng() - p.Lng()) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// MapsURL returns a google maps search link for the point
func (p GeoPoint) MapsURL() string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%v,%v", p.Lat(), p.Lng())
}
