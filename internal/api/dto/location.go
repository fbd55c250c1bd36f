package dto

// LocationRequest is the body of save and remove requests.
// Pointer fields tell a missing coordinate apart from zero.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
