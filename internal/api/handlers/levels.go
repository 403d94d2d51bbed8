package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/minigolf/internal/course"
)

type levelInfo struct {
	Index         int        `json:"index"`
	Name          string     `json:"name"`
	Par           int        `json:"par"`
	Hole          [3]float64 `json:"hole"`
	HoleRadius    float64    `json:"hole_radius"`
	Spawn         [3]float64 `json:"spawn"`
	FallThreshold float64    `json:"fall_threshold"`
	Obstacles     int        `json:"obstacles"`
}

// ListLevels describes every level in play order.
func ListLevels(catalog *course.Catalog) gin.HandlerFunc {
	levels := make([]levelInfo, 0, catalog.Len())
	for i := 1; i <= catalog.Len(); i++ {
		def, err := catalog.Definition(i)
		if err != nil {
			continue
		}
		levels = append(levels, levelInfo{
			Index:         i,
			Name:          def.Name,
			Par:           def.Par,
			Hole:          [3]float64(def.Hole.Center),
			HoleRadius:    def.Hole.Radius,
			Spawn:         [3]float64(def.Spawn.Center),
			FallThreshold: def.FallThreshold,
			Obstacles:     len(def.Obstacles),
		})
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"levels": levels, "count": len(levels)})
	}
}
