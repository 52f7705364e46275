package http

import (
	"encoding/json"
	"net/http"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
	"github.com/autopeer-io/gatepanel/internal/gatepanel/session"
	"github.com/autopeer-io/gatepanel/pkg/log"
)

const maxBodySize = 64 * 1024

type handler struct {
	ctrl   Controller
	events *eventHub
}

type connectRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type commandRequest struct {
	Action string `json:"action"`
}

type commandResponse struct {
	Sent  bool          `json:"sent"`
	State session.State `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *handler) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	creds := model.Credentials{Username: req.Username, Password: req.Password, RememberMe: req.RememberMe}
	if !creds.Complete() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required"})
		return
	}

	log.Info("Connect requested", "username", creds.Username, "remote", r.RemoteAddr)
	h.ctrl.Connect(creds)
	writeJSON(w, http.StatusAccepted, h.ctrl.Snapshot())
}

func (h *handler) disconnect(w http.ResponseWriter, r *http.Request) {
	log.Info("Disconnect requested", "remote", r.RemoteAddr)
	h.ctrl.Disconnect()
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

func (h *handler) sendCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	action, err := model.ParseGateCommand(req.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if !h.ctrl.SendCommand(r.Context(), action) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: h.ctrl.Error()})
		return
	}

	h.events.refresh()
	writeJSON(w, http.StatusOK, commandResponse{Sent: true, State: h.ctrl.Snapshot()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to write response", "error", err)
	}
}
