package engine

import (
	"context"
	"encoding/json"
	"os/exec"

	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

// defaultStagingAreas is the built-in fallback used when the migration
// tool's staging listing is unavailable, so configuration stays possible.
func defaultStagingAreas() []models.StagingArea {
	return []models.StagingArea{
		{
			ID:        "s3-default",
			Name:      "Default S3 Staging",
			Type:      models.StagingS3,
			Path:      "s3://snowmigrate-staging/",
			Available: true,
		},
		{
			ID:        "internal-default",
			Name:      "Snowflake Internal Stage",
			Type:      models.StagingInternal,
			Path:      "@MIGRATION_STAGE",
			Available: true,
		},
	}
}

func parseStagingAreas(data []byte) ([]models.StagingArea, error) {
	var payload struct {
		StagingAreas []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Type      string `json:"type"`
			Path      string `json:"path"`
			Available *bool  `json:"available"`
		} `json:"staging_areas"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	areas := make([]models.StagingArea, 0, len(payload.StagingAreas))
	for _, s := range payload.StagingAreas {
		available := true
		if s.Available != nil {
			available = *s.Available
		}
		areas = append(areas, models.StagingArea{
			ID:        s.ID,
			Name:      s.Name,
			Type:      models.StagingType(s.Type),
			Path:      s.Path,
			Available: available,
		})
	}
	return areas, nil
}

// StagingAreas lists the staging areas known to the migration tool. On any
// listing or decoding failure it falls back to the built-in defaults. The
// result is cached for the lifetime of the engine.
func (e *Engine) StagingAreas(ctx context.Context) []models.StagingArea {
	e.stagingMu.Lock()
	defer e.stagingMu.Unlock()
	if e.stagingAreas != nil {
		return e.stagingAreas
	}

	out, err := exec.CommandContext(ctx, e.cliPath, "staging", "list", "--format", "json").Output()
	if err == nil {
		areas, perr := parseStagingAreas(out)
		if perr == nil {
			e.stagingAreas = areas
			return e.stagingAreas
		}
		err = perr
	}

	e.logger.Warn().Err(err).Msg("Staging listing unavailable, using built-in defaults")
	e.stagingAreas = defaultStagingAreas()
	return e.stagingAreas
}
