package topic

import "testing"

func TestBuilder(t *testing.T) {
	tests := []struct {
		root            string
		control, status string
	}{
		{"gate", "gate/control", "gate/status"},
		{"/site-a/gate/", "site-a/gate/control", "site-a/gate/status"},
		{"", "control", "status"},
	}

	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			b := NewBuilder(tt.root)
			if got := b.Control(); got != tt.control {
				t.Errorf("Control() = %q, want %q", got, tt.control)
			}
			if got := b.Status(); got != tt.status {
				t.Errorf("Status() = %q, want %q", got, tt.status)
			}
		})
	}
}
