// Package api wires the HTTP routes of the simulator.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/api/handlers"
	"github.com/MaStr/pv-bat-simulator/internal/api/middleware"
	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
)

// Deps are the collaborators the routes need. Results and Prices are optional;
// their routes are only registered when set.
type Deps struct {
	Engine     *dispatch.Engine
	Results    handlers.ResultStore
	Prices     map[string]handlers.DayAheadSource
	BatteryDir string
	StaticDir  string
	Location   *time.Location
}

func NewRouter(d Deps) *gin.Engine {
	if d.Location == nil {
		d.Location = time.Local
	}
	router := gin.New()

	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	engine := d.Engine
	if engine == nil {
		engine = dispatch.New(dispatch.WithLocation(d.Location))
	}
	computeHandler := handlers.NewComputeHandler(engine, d.Results, d.Location)
	batteryHandler := handlers.NewBatteryHandler(d.BatteryDir)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Route of the original front end
	router.POST("/berechnen", computeHandler.Compute)

	api := router.Group("/api/v1")
	{
		api.POST("/compute", computeHandler.Compute)
		api.POST("/compare", computeHandler.Compare)
		api.GET("/stream", computeHandler.Stream)

		api.GET("/batteries", batteryHandler.ListBatteries)
		api.GET("/models", handlers.ListModels)
		api.GET("/example", handlers.GetExample)

		if d.Results != nil {
			resultsHandler := handlers.NewResultsHandler(d.Results)
			api.GET("/results", resultsHandler.ListResults)
			api.GET("/results/:id", resultsHandler.GetResult)
			api.GET("/results/:id/ledger.csv", resultsHandler.GetLedger)
		}
		if len(d.Prices) > 0 {
			pricesHandler := handlers.NewPricesHandler(d.Prices, d.Location)
			api.GET("/prices", pricesHandler.GetPrices)
		}
	}

	serveStatic(router, d.StaticDir)
	return router
}

// serveStatic serves the single-page front end from dir, if it exists.
func serveStatic(router *gin.Engine, dir string) {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	}

	if dir == "" {
		router.NoRoute(notFound)
		return
	}
	if _, err := os.Stat(dir); err != nil {
		log.Info().Str("dir", dir).Msg("[API] static directory not found, skipping static file serving")
		router.NoRoute(notFound)
		return
	}

	router.Static("/assets", filepath.Join(dir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))

	// Serve index.html for all non-API routes (SPA routing)
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			notFound(c)
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
	log.Info().Str("dir", dir).Msg("[API] serving static files")
}
