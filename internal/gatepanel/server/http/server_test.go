package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
	"github.com/autopeer-io/gatepanel/pkg/mqtt"
	"github.com/autopeer-io/gatepanel/pkg/options"
)

type stubClient struct {
	cfg *mqtt.ClientConfig

	mu        sync.Mutex
	published []string
}

func (c *stubClient) Start(context.Context) error { return nil }
func (c *stubClient) Disconnect(context.Context)  {}
func (c *stubClient) Subscribe(context.Context, string, int, mqtt.MessageHandler) error {
	return nil
}

func (c *stubClient) Publish(_ context.Context, topic string, _ int, _ bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, topic+" "+string(payload))
	return nil
}

type fixture struct {
	sess   *session.Session
	srv    *Server
	mu     sync.Mutex
	client *stubClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.sess = session.New(options.NewMqttOptions(), session.WithClientFactory(func(cfg *mqtt.ClientConfig) (mqtt.Client, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.client = &stubClient{cfg: cfg}
		return f.client, nil
	}))
	t.Cleanup(f.sess.Close)
	f.srv = NewServer(options.NewHttpOptions(), f.sess)
	return f
}

func (f *fixture) transport() *stubClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rr, httptest.NewRequest(method, path, r))
	return rr
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	rr := f.do(http.MethodPost, "/api/v1/connect", `{"username":"u","password":"p"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	f.transport().cfg.Lifecycle.OnConnected()
	require.True(t, f.sess.IsConnected())
}

func TestProbes(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := f.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "ok", rr.Body.String())
	}
}

func TestStaticPage(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Gate Control")

	rr = f.do(http.MethodGet, "/static/panel.js", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/api/v1/events")
}

func TestControlPageKeepsNoCredentials(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/static/panel.js", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "localStorage")
	assert.NotContains(t, body, "sessionStorage")
	assert.NotContains(t, body, "document.cookie")
	assert.Contains(t, body, "rememberMe")
}

func TestGetState(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var st session.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	assert.Equal(t, model.StatusDisconnected, st.Status)
	assert.Equal(t, model.LivenessUnknown, st.Liveness)
	assert.Equal(t, "gate/control", st.ControlTopic)
}

func TestConnectValidation(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"username":"u"}`,
		`{"password":"p"}`,
		`{"username":"u","password":"p","extra":1}`,
		`not json`,
	} {
		rr := f.do(http.MethodPost, "/api/v1/connect", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Nil(t, f.transport())
}

func TestConnect(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/v1/connect", `{"username":"gatekeeper","password":"s3cr3t"}`)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `"connecting"`, mustField(t, rr.Body.Bytes(), "status"))
	assert.Equal(t, "gatekeeper", f.transport().cfg.Username)
	assert.Equal(t, "s3cr3t", f.transport().cfg.Password)

	rr = f.do(http.MethodPost, "/api/v1/disconnect", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"disconnected"`, mustField(t, rr.Body.Bytes(), "status"))
}

func TestSendCommandNotConnected(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/v1/commands", `{"action":"full"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, `{"error":"not connected to MQTT broker"}`, rr.Body.String())
}

func TestSendCommandUnknownAction(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	rr := f.do(http.MethodPost, "/api/v1/commands", `{"action":"open"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, f.transport().published)
}

func TestSendCommand(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	rr := f.do(http.MethodPost, "/api/v1/commands", `{"action":"pedestrian"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `true`, mustField(t, rr.Body.Bytes(), "sent"))
	assert.Equal(t, []string{`gate/control {"action":"pedestrian"}`}, f.transport().published)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "gatepanel_connection_status")
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)
	stop := f.srv.events.start()
	defer stop()

	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	ev := read()
	assert.Equal(t, EventState, ev.Type)
	require.NotNil(t, ev.State)
	assert.Equal(t, model.StatusDisconnected, ev.State.Status)

	f.connect(t)

	ev = read()
	assert.Equal(t, EventStatus, ev.Type)
	assert.Equal(t, model.StatusConnecting, ev.State.Status)

	ev = read()
	assert.Equal(t, EventStatus, ev.Type)
	assert.Equal(t, model.StatusConnected, ev.State.Status)

	ev = read()
	assert.Equal(t, EventNotice, ev.Type)
	require.NotNil(t, ev.Notice)
	assert.Equal(t, "Connected", ev.Notice.Title)

	rr := f.do(http.MethodPost, "/api/v1/commands", `{"action":"left"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	ev = read()
	assert.Equal(t, EventState, ev.Type)
	ev = read()
	assert.Equal(t, "Command Sent", ev.Notice.Title)
	assert.Equal(t, "Action 'left' sent successfully", ev.Notice.Description)
}

func mustField(t *testing.T, body []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return string(m[key])
}
