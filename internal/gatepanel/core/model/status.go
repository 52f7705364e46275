package model

// ConnectionStatus is the state of the broker connection owned by a session.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

// ConnectionStatuses lists every status in state-machine order.
var ConnectionStatuses = []ConnectionStatus{
	StatusDisconnected,
	StatusConnecting,
	StatusConnected,
	StatusError,
}

func (s ConnectionStatus) String() string { return string(s) }

// GateLiveness is the panel's belief about whether the gate controller is reachable.
type GateLiveness string

const (
	LivenessUnknown GateLiveness = "unknown"
	LivenessOnline  GateLiveness = "online"
	LivenessOffline GateLiveness = "offline"
)

// GateLivenesses lists every liveness value.
var GateLivenesses = []GateLiveness{LivenessUnknown, LivenessOnline, LivenessOffline}

func (l GateLiveness) String() string { return string(l) }
