package models

// RiderProfile is the API representation of a rider's saved parameters.
type RiderProfile struct {
	RiderID     string    `json:"riderId"`
	RiderMassKg float64   `json:"riderMassKg"`
	BikeMassKg  float64   `json:"bikeMassKg"`
	Surface     string    `json:"surface"`
	WindEnabled bool      `json:"windEnabled"`
	HomeLat     *float64  `json:"homeLat,omitempty"`
	HomeLon     *float64  `json:"homeLon,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// ProfilePutRequest creates or replaces a rider profile.
type ProfilePutRequest struct {
	RiderMassKg float64  `json:"riderMassKg" validate:"required,gte=30,lte=200"`
	BikeMassKg  float64  `json:"bikeMassKg" validate:"required,gte=3,lte=30"`
	Surface     string   `json:"surface,omitempty"`
	WindEnabled *bool    `json:"windEnabled,omitempty"`
	HomeLat     *float64 `json:"homeLat,omitempty"`
	HomeLon     *float64 `json:"homeLon,omitempty"`
}
