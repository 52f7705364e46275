package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
)

func TestParseHeartbeat(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload string
		want    model.GateLiveness
		wantTS  time.Time
	}{
		{"hb rfc3339", `{"hb":"2024-01-01T00:00:00Z"}`, model.LivenessOnline, jan1},
		{"hb with offset", `{"hb":"2024-01-01T01:00:00+01:00"}`, model.LivenessOnline, jan1},
		{"hb fractional", `{"hb":"2024-01-01T00:00:00.250Z"}`, model.LivenessOnline, jan1.Add(250 * time.Millisecond)},
		{"hb without zone", `{"hb":"2024-01-01T00:00:00"}`, model.LivenessOnline, jan1},
		{"hb space separated", `{"hb":"2024-01-01 00:00:00"}`, model.LivenessOnline, jan1},
		{"hb js date", `{"hb":"Mon Jan 01 2024 01:00:00 GMT+0100 (Central European Standard Time)"}`, model.LivenessOnline, jan1},
		{"hb utc string", `{"hb":"Mon, 01 Jan 2024 00:00:00 GMT"}`, model.LivenessOnline, jan1},
		{"hb epoch seconds", `{"hb":1704067200}`, model.LivenessOnline, jan1},
		{"hb epoch millis", `{"hb":1704067200000}`, model.LivenessOnline, jan1},
		{"timestamp key", `{"timestamp":"2024-01-01T00:00:00Z","uptime":12}`, model.LivenessOnline, jan1},
		{"ts key", `{"ts":"1704067200"}`, model.LivenessOnline, jan1},
		{"bare timestamp", `2024-01-01T00:00:00Z`, model.LivenessOnline, jan1},
		{"quoted timestamp", `"2024-01-01T00:00:00Z"`, model.LivenessOnline, jan1},
		{"bare epoch", ` 1704067200000 `, model.LivenessOnline, jan1},
		{"bare offline", `offline`, model.LivenessOffline, time.Time{}},
		{"bare offline upper", `OFFLINE`, model.LivenessOffline, time.Time{}},
		{"quoted offline", `"offline"`, model.LivenessOffline, time.Time{}},
		{"hb offline", `{"hb":"offline"}`, model.LivenessOffline, time.Time{}},
		{"status offline", `{"status":"offline"}`, model.LivenessOffline, time.Time{}},
		{"online false", `{"online":false}`, model.LivenessOffline, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := ParseHeartbeat([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, sig.Liveness)
			assert.True(t, tt.wantTS.Equal(sig.Timestamp), "got %s", sig.Timestamp)
		})
	}
}

func TestParseHeartbeatMalformed(t *testing.T) {
	for _, payload := range []string{
		``,
		`   `,
		`{`,
		`{"hb":`,
		`{}`,
		`{"uptime":12}`,
		`{"hb":""}`,
		`{"hb":true}`,
		`{"hb":null}`,
		`{"hb":-5}`,
		`{"online":true}`,
		`yesterday`,
		`[1,2]`,
	} {
		_, err := ParseHeartbeat([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedHeartbeat, "payload %q", payload)
	}
}
