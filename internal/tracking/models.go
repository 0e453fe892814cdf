package tracking

import (
	"time"

	"github.com/google/uuid"
)

// DeviceEvent records one sighting of a device fingerprint for a user.
type DeviceEvent struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Fingerprint string    `json:"fingerprint"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// IPEvent records one sighting of an IP address for a user.
type IPEvent struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	IPAddress   string    `json:"ip_address"`
	IsVPN       bool      `json:"is_vpn"`
	IsProxy     bool      `json:"is_proxy"`
	CountryCode string    `json:"country_code,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// LocationEvent records one profile-level location change. Geocell is the
// H3 index of the coordinates, precomputed for spatiotemporal clustering.
type LocationEvent struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Geocell    string    `json:"geocell"`
	RecordedAt time.Time `json:"recorded_at"`
}

// DeviceAccountActivity summarizes one account's presence on a device.
type DeviceAccountActivity struct {
	UserID    uuid.UUID
	FirstSeen time.Time
	LastSeen  time.Time
}

// IPAccountActivity summarizes one account's presence on an IP address.
type IPAccountActivity struct {
	UserID    uuid.UUID
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
}

// RecordDeviceRequest is the payload for reporting a device sighting.
type RecordDeviceRequest struct {
	UserID      uuid.UUID `json:"user_id" binding:"required"`
	Fingerprint string    `json:"fingerprint" binding:"required"`
	UserAgent   string    `json:"user_agent"`
	Platform    string    `json:"platform"`
}

// RecordIPRequest is the payload for reporting an IP sighting.
type RecordIPRequest struct {
	UserID      uuid.UUID `json:"user_id" binding:"required"`
	IPAddress   string    `json:"ip_address" binding:"required,ip"`
	IsVPN       bool      `json:"is_vpn"`
	IsProxy     bool      `json:"is_proxy"`
	CountryCode string    `json:"country_code"`
}

// RecordLocationRequest is the payload for reporting a location change.
type RecordLocationRequest struct {
	UserID    uuid.UUID `json:"user_id" binding:"required"`
	Latitude  float64   `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64   `json:"longitude" binding:"min=-180,max=180"`
}
