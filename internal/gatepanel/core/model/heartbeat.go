package model

import "time"

// Heartbeat is the last online heartbeat received from the gate.
type Heartbeat struct {
	ReceivedAt time.Time `json:"receivedAt"`
}
