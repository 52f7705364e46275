package session

import (
	"fmt"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
)

// State is a point-in-time copy of the session, shaped for presentation.
type State struct {
	Status       model.ConnectionStatus `json:"status"`
	Connected    bool                   `json:"connected"`
	Error        string                 `json:"error,omitempty"`
	LastCommand  *model.CommandRecord   `json:"lastCommand,omitempty"`
	Heartbeat    *model.Heartbeat       `json:"heartbeat,omitempty"`
	Liveness     model.GateLiveness     `json:"liveness"`
	ControlTopic string                 `json:"controlTopic"`
	StatusTopic  string                 `json:"statusTopic"`
}

// Notice is a transient message for the operator.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

// Diff derives the operator notices for the move from prev to next.
func Diff(prev, next State) []Notice {
	var notices []Notice

	if prev.Status != next.Status {
		switch next.Status {
		case model.StatusConnected:
			notices = append(notices, Notice{Title: "Connected", Description: "Successfully connected to MQTT broker"})
		case model.StatusError:
			desc := next.Error
			if desc == "" {
				desc = "Failed to connect to MQTT broker"
			}
			notices = append(notices, Notice{Title: "Connection Error", Description: desc, Destructive: true})
		case model.StatusDisconnected:
			if prev.Status == model.StatusConnected {
				notices = append(notices, Notice{Title: "Disconnected", Description: "Disconnected from MQTT broker"})
			}
		}
	}

	if next.LastCommand != nil && !sameCommand(prev.LastCommand, next.LastCommand) {
		notices = append(notices, Notice{
			Title:       "Command Sent",
			Description: fmt.Sprintf("Action '%s' sent successfully", next.LastCommand.Action),
		})
	}

	if prev.Liveness != next.Liveness {
		switch next.Liveness {
		case model.LivenessOnline:
			desc := "Heartbeat received"
			if next.Heartbeat != nil {
				desc = "Heartbeat received at " + next.Heartbeat.ReceivedAt.Format("15:04:05")
			}
			notices = append(notices, Notice{Title: "Gate Online", Description: desc})
		case model.LivenessOffline:
			notices = append(notices, Notice{Title: "Gate Offline", Description: "The gate controller reported offline", Destructive: true})
		}
	}

	return notices
}

func sameCommand(a, b *model.CommandRecord) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Action == b.Action && a.IssuedAt.Equal(b.IssuedAt)
}
