package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/connections"
	"github.com/snowmigrate/snowmigrate-api/internal/metadata"
)

type MetadataHandler struct {
	service *metadata.Service
	logger  zerolog.Logger
}

func NewMetadataHandler(service *metadata.Service, logger zerolog.Logger) *MetadataHandler {
	return &MetadataHandler{service: service, logger: logger}
}

func (h *MetadataHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	schemas, err := h.service.ListSchemas(r.Context(), id)
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schemas)
}

func (h *MetadataHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	tables, err := h.service.ListTables(r.Context(), vars["id"], vars["schema"])
	if err != nil {
		h.writeMetadataError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tables)
}

func (h *MetadataHandler) writeMetadataError(w http.ResponseWriter, err error) {
	if errors.Is(err, connections.ErrNotFound) {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	}
	h.logger.Error().Err(err).Msg("Metadata introspection failed")
	http.Error(w, "Failed to introspect source: "+err.Error(), http.StatusBadGateway)
}
