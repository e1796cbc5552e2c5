package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/connections"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

type ConnectionHandler struct {
	conns  *connections.Manager
	logger zerolog.Logger
}

func NewConnectionHandler(conns *connections.Manager, logger zerolog.Logger) *ConnectionHandler {
	return &ConnectionHandler{conns: conns, logger: logger}
}

func (h *ConnectionHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.conns.ListSources())
}

func (h *ConnectionHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var conn models.SourceConnection
	if err := decodeSource(r, &conn); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created := h.conns.AddSource(conn)
	h.logger.Info().Str("connection_id", created.ID).Str("type", string(created.Type)).Msg("Source connection created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *ConnectionHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	conn, err := h.conns.GetSourceConnection(mux.Vars(r)["id"])
	if err != nil {
		h.writeConnError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}

func (h *ConnectionHandler) UpdateSource(w http.ResponseWriter, r *http.Request) {
	var conn models.SourceConnection
	if err := decodeSource(r, &conn); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.conns.UpdateSource(id, conn); err != nil {
		h.writeConnError(w, err)
		return
	}

	updated, err := h.conns.GetSourceConnection(id)
	if err != nil {
		h.writeConnError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (h *ConnectionHandler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	h.conns.DeleteSource(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConnectionHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.conns.ListTargets())
}

func (h *ConnectionHandler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var conn models.SnowflakeConnection
	if err := decodeTarget(r, &conn); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created := h.conns.AddTarget(conn)
	h.logger.Info().Str("connection_id", created.ID).Msg("Target connection created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *ConnectionHandler) GetTarget(w http.ResponseWriter, r *http.Request) {
	conn, err := h.conns.GetTargetConnection(mux.Vars(r)["id"])
	if err != nil {
		h.writeConnError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}

func (h *ConnectionHandler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	var conn models.SnowflakeConnection
	if err := decodeTarget(r, &conn); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.conns.UpdateTarget(id, conn); err != nil {
		h.writeConnError(w, err)
		return
	}

	updated, err := h.conns.GetTargetConnection(id)
	if err != nil {
		h.writeConnError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

func (h *ConnectionHandler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	h.conns.DeleteTarget(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// Passwords never round-trip through responses, so create and update
// payloads carry them in a dedicated field alongside the connection body.
type sourcePayload struct {
	models.SourceConnection
	Password string `json:"password"`
}

type targetPayload struct {
	models.SnowflakeConnection
	Password string `json:"password"`
}

func decodeSource(r *http.Request, conn *models.SourceConnection) error {
	var payload sourcePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return errors.New("invalid request payload")
	}
	if payload.Name == "" || payload.Host == "" || payload.Database == "" {
		return errors.New("name, host and database are required")
	}
	*conn = payload.SourceConnection
	conn.Password = payload.Password
	return nil
}

func decodeTarget(r *http.Request, conn *models.SnowflakeConnection) error {
	var payload targetPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return errors.New("invalid request payload")
	}
	if payload.Name == "" || payload.Account == "" || payload.Database == "" {
		return errors.New("name, account and database are required")
	}
	*conn = payload.SnowflakeConnection
	conn.Password = payload.Password
	return nil
}

func (h *ConnectionHandler) writeConnError(w http.ResponseWriter, err error) {
	if errors.Is(err, connections.ErrNotFound) {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
