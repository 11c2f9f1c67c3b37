package dto

// CreateRideRequest represents a rider's request for a new ride
type CreateRideRequest struct {
	Pickup      LocationRequest `json:"pickup" binding:"required"`
	Destination LocationRequest `json:"destination" binding:"required"`
	Fare        float64         `json:"fare" binding:"required,gt=0"`
}

// LocationRequest is an address with coordinates
type LocationRequest struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// CancelRideRequest carries the optional cancellation reason
type CancelRideRequest struct {
	Reason string `json:"reason"`
}

// RateRideRequest is the rider's one-time feedback on a completed ride
type RateRideRequest struct {
	Rating  int      `json:"rating" binding:"required,min=1,max=5"`
	Tags    []string `json:"tags"`
	Comment string   `json:"comment"`
}

// DriverStatusRequest toggles a driver's availability
type DriverStatusRequest struct {
	Online bool `json:"online"`
}

// UpdateLocationRequest represents a driver location update
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// SendMessageRequest carries one chat message
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
