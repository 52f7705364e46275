package http

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/gatepanel/internal/pkg/metrics"
	httpmw "github.com/autopeer-io/gatepanel/internal/pkg/middleware/http"
	"github.com/autopeer-io/gatepanel/pkg/options"
)

//go:embed static
var staticFiles embed.FS

func newRouter(opts *options.HttpOptions, ctrl Controller, events *eventHub) *mux.Router {
	h := &handler{ctrl: ctrl, events: events}

	r := mux.NewRouter()
	r.Use(httpmw.Logging)

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// The panel is usable as soon as it serves; broker connectivity is an
	// operator concern and is reported by /api/v1/state.
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// The event stream is long-lived and must not inherit the request timeout.
	r.HandleFunc("/api/v1/events", events.serveWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(httpmw.Timeout(opts.Timeout))
	api.HandleFunc("/state", h.getState).Methods(http.MethodGet)
	api.HandleFunc("/connect", h.connect).Methods(http.MethodPost)
	api.HandleFunc("/disconnect", h.disconnect).Methods(http.MethodPost)
	api.HandleFunc("/commands", h.sendCommand).Methods(http.MethodPost)

	static, _ := fs.Sub(staticFiles, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static)))).Methods(http.MethodGet)
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	}).Methods(http.MethodGet)

	return r
}
