package models

// Location represents a saved map marker defined by its latitude and longitude.
// Two locations are the same marker only when both coordinates are exactly equal.
type Location struct {
	Latitude  float64 `json:"latitude"`  // Latitude of the marker.
	Longitude float64 `json:"longitude"` // Longitude of the marker.
}

// Equal reports whether l and other have identical coordinates.
func (l Location) Equal(other Location) bool {
	return l.Latitude == other.Latitude && l.Longitude == other.Longitude
}
