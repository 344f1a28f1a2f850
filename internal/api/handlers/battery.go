package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/config"
)

// BatteryHandler handles battery-related requests
type BatteryHandler struct {
	batteryDir string
}

// NewBatteryHandler creates a new battery handler
func NewBatteryHandler(dir string) *BatteryHandler {
	if dir == "" {
		dir = filepath.Join("examples", "batteries")
	}
	// Convert to absolute path for reliability
	if absDir, err := filepath.Abs(dir); err == nil {
		dir = absDir
	}
	log.Info().Str("dir", dir).Msg("[Batteries] using preset directory")
	return &BatteryHandler{batteryDir: dir}
}

// ListBatteries handles GET /api/v1/batteries
func (h *BatteryHandler) ListBatteries(c *gin.Context) {
	batteries := []models.BatteryInfo{}

	presets, skipped, err := config.LoadBatteryDir(h.batteryDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("dir", h.batteryDir).Msg("[Batteries] preset directory does not exist")
		} else {
			log.Error().Err(err).Str("dir", h.batteryDir).Msg("[Batteries] failed to read preset directory")
		}
		c.JSON(http.StatusOK, gin.H{"batteries": batteries})
		return
	}
	for _, err := range skipped {
		log.Warn().Err(err).Msg("[Batteries] skipping preset")
	}

	for _, p := range presets {
		batteries = append(batteries, models.BatteryInfo{
			ID:          p.ID,
			Name:        p.Battery.Name,
			Description: p.Battery.Description,
			Specs: models.BatterySpecs{
				CapacityWh:    p.Battery.CapacityWh,
				MaxChargeW:    p.Battery.MaxChargeW,
				MaxDischargeW: p.Battery.MaxDischargeW,
				InitialSOC:    p.Battery.InitialSOC,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"batteries": batteries})
}
