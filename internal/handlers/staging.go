package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/engine"
)

type StagingHandler struct {
	engine *engine.Engine
	logger zerolog.Logger
}

func NewStagingHandler(eng *engine.Engine, logger zerolog.Logger) *StagingHandler {
	return &StagingHandler{engine: eng, logger: logger}
}

func (h *StagingHandler) ListStagingAreas(w http.ResponseWriter, r *http.Request) {
	areas := h.engine.StagingAreas(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(areas)
}
