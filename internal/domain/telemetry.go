package domain

import "time"

type TelemetryMessage struct {
	ReceivedAt time.Time

	Timestamp time.Time
	AssetID   string
	FleetID   string

	Latitude  float64
	Longitude float64

	SpeedMph   float64
	OdometerMi float64
	IsMoving   bool
	IgnitionOn bool

	RawPayload []byte
}
