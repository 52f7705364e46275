package topic

import (
	"strings"
)

// Topic suffixes of the gate protocol.
// These are the contract with the gate controller firmware.
const (
	// SuffixControl is the downstream command topic (Panel -> Gate).
	// Structure: {root}/control
	// Payload: {"action": "full" | "pedestrian" | "right" | "left"}
	SuffixControl = "control"

	// SuffixStatus is the upstream heartbeat topic (Gate -> Panel).
	// Structure: {root}/status
	// Payload: {"hb": "<timestamp>"} or an offline marker.
	SuffixStatus = "status"
)

// Builder encapsulates the logic for constructing MQTT topic strings.
type Builder struct {
	// root is the base namespace for all topics (e.g., "gate", "site-a/gate").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
// Leading and trailing separators are dropped.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, Separator)}
}

// Control returns the topic gate commands are published to.
func (b *Builder) Control() string {
	return b.build(SuffixControl)
}

// Status returns the topic heartbeats are received on.
func (b *Builder) Status() string {
	return b.build(SuffixStatus)
}

// build joins root and suffix.
// Pattern: {root}/{suffix}
func (b *Builder) build(suffix string) string {
	if b.root == "" {
		return suffix
	}
	return b.root + Separator + suffix
}
