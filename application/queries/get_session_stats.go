package queries

import (
	"errors"

	"lifetree-backend/application/services"
	"lifetree-backend/application/simulation"
	"lifetree-backend/domain/versioning"
)

// GetSessionStatsQuery represents a query for session diagnostics
type GetSessionStatsQuery struct {
	SessionID       string `json:"session_id"`
	IncludeVersions bool   `json:"include_versions,omitempty"`
}

// Validate validates the query
func (q GetSessionStatsQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("session ID is required")
	}
	return nil
}

// GetSessionStatsResult combines simulation counters with layout
// statistics derived from the current snapshot.
type GetSessionStatsResult struct {
	Stats    *simulation.SessionStats  `json:"stats"`
	Layout   *services.LayoutStats     `json:"layout"`
	Versions []*versioning.TreeVersion `json:"versions,omitempty"`
}
