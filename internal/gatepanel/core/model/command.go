package model

import (
	"fmt"
	"time"
)

// GateCommand is one of the fixed gate actuation instructions.
type GateCommand string

const (
	CommandFull       GateCommand = "full"
	CommandPedestrian GateCommand = "pedestrian"
	CommandRight      GateCommand = "right"
	CommandLeft       GateCommand = "left"
)

// GateCommands lists the closed set of commands.
var GateCommands = []GateCommand{CommandFull, CommandPedestrian, CommandRight, CommandLeft}

func (c GateCommand) String() string { return string(c) }

// Valid reports whether c is part of the closed command set.
func (c GateCommand) Valid() bool {
	switch c {
	case CommandFull, CommandPedestrian, CommandRight, CommandLeft:
		return true
	}
	return false
}

// ParseGateCommand converts s into a GateCommand.
func ParseGateCommand(s string) (GateCommand, error) {
	c := GateCommand(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown gate command %q", s)
	}
	return c, nil
}

// ControlMessage is the JSON document published on the control topic.
type ControlMessage struct {
	Action GateCommand `json:"action"`
}

// CommandRecord remembers the most recent successfully published command.
type CommandRecord struct {
	Action   GateCommand `json:"action"`
	IssuedAt time.Time   `json:"issuedAt"`
}
