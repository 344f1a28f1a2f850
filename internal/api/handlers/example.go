package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/data"
)

// GetExample handles GET /api/v1/example
func GetExample(c *gin.Context) {
	c.JSON(http.StatusOK, models.ExampleResponse{
		Consumption: data.ExampleConsumption,
		Production:  data.ExampleProduction,
	})
}
