// internal/models/facility.go
package models

import (
	"strings"

	"github.com/codr1/clubreserve/internal/apperr"
)

const maxNameLength = 120

type FacilityType string

const (
	FacilityCourt FacilityType = "court"
	FacilityField FacilityType = "field"
	FacilityRoom  FacilityType = "room"
	FacilityLane  FacilityType = "lane"
)

func (t FacilityType) Valid() bool {
	switch t {
	case FacilityCourt, FacilityField, FacilityRoom, FacilityLane:
		return true
	}
	return false
}

type SurfaceType string

const (
	SurfaceNone      SurfaceType = ""
	SurfaceGrass     SurfaceType = "grass"
	SurfaceClay      SurfaceType = "clay"
	SurfaceHard      SurfaceType = "hard"
	SurfaceSynthetic SurfaceType = "synthetic"
	SurfaceWood      SurfaceType = "wood"
	SurfaceOther     SurfaceType = "other"
)

func (s SurfaceType) Valid() bool {
	switch s {
	case SurfaceNone, SurfaceGrass, SurfaceClay, SurfaceHard, SurfaceSynthetic, SurfaceWood, SurfaceOther:
		return true
	}
	return false
}

// outdoorCourtSurfaces cannot be declared on lanes.
var outdoorCourtSurfaces = map[SurfaceType]bool{
	SurfaceGrass: true,
	SurfaceClay:  true,
	SurfaceHard:  true,
}

type Club struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Sport struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Facility struct {
	ID       int64        `json:"id"`
	ClubID   int64        `json:"clubId"`
	Name     string       `json:"name"`
	Type     FacilityType `json:"type"`
	Capacity int64        `json:"capacity"`
	Surface  SurfaceType  `json:"surface,omitempty"`
	Indoor   bool         `json:"indoor"`
	Active   bool         `json:"active"`
}

// Validate checks the facility's own fields. Name uniqueness within the club
// is enforced by storage.
func (f Facility) Validate() error {
	if f.ClubID <= 0 {
		return apperr.Invalid("club_id", "must be a positive integer")
	}
	if err := validateName(f.Name); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return apperr.Invalid("type", "must be one of court, field, room, lane")
	}
	if f.Capacity <= 0 {
		return apperr.Invalid("capacity", "must be greater than 0")
	}
	if !f.Surface.Valid() {
		return apperr.Invalid("surface", "is not a known surface type")
	}
	if f.Type == FacilityLane && outdoorCourtSurfaces[f.Surface] {
		return apperr.Invalid("surface", "lanes cannot use grass, clay or hard surfaces")
	}
	return nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return apperr.Invalid("name", "is required")
	}
	if len(trimmed) > maxNameLength {
		return apperr.Invalid("name", "is too long")
	}
	return nil
}
